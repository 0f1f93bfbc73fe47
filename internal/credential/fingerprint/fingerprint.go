// Package fingerprint hashes canonical credential bytes and derives the 32-byte
// key under which a credential is anchored on the revocation ledger.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	dErrors "pixelgenesis/pkg/domain-errors"
)

// Size is the hex length of a fingerprint.
const Size = sha256.Size * 2

// Fingerprint is a lower-case hex SHA-256 digest.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Compute hashes canonical bytes.
func Compute(canonical []byte) Fingerprint {
	sum := sha256.Sum256(canonical)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Digest returns the raw SHA-256 of canonical bytes, the value that gets signed.
func Digest(canonical []byte) [32]byte {
	return sha256.Sum256(canonical)
}

// Parse validates a caller-supplied fingerprint: 64 hex characters with an
// optional 0x prefix. The result is lower case.
func Parse(s string) (Fingerprint, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if len(s) != Size {
		return "", dErrors.New(dErrors.CodeValidation, "fingerprint must be 64 hex characters")
	}
	if !isHex(s) {
		return "", dErrors.New(dErrors.CodeValidation, "fingerprint must be hex")
	}
	return Fingerprint(s), nil
}

// OracleKey maps a hex digest onto the ledger's bytes32 key space: strip an
// optional 0x prefix, lower-case, keep the first 64 hex characters and
// right-pad with '0'. Odd or short inputs therefore still yield a key, matching
// the keys already registered on-chain.
func OracleKey(hexDigest string) ([32]byte, error) {
	var key [32]byte
	s := strings.ToLower(strings.TrimSpace(hexDigest))
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return key, dErrors.New(dErrors.CodeValidation, "oracle key source is empty")
	}
	if !isHex(s) {
		return key, dErrors.New(dErrors.CodeValidation, "oracle key source must be hex")
	}
	if len(s) > Size {
		s = s[:Size]
	}
	s += strings.Repeat("0", Size-len(s))
	if _, err := hex.Decode(key[:], []byte(s)); err != nil {
		return key, dErrors.Wrap(err, dErrors.CodeValidation, "oracle key source must be hex")
	}
	return key, nil
}

// OracleKey returns the ledger key for f.
func (f Fingerprint) OracleKey() ([32]byte, error) {
	return OracleKey(string(f))
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
