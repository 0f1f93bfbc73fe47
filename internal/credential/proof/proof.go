// Package proof signs and verifies credential proofs with secp256k1 ECDSA.
//
// The signature covers SHA-256 of the canonical pre-proof document. It is
// stored as the 64-byte R||S pair in multibase base58btc; public keys are the
// 33-byte compressed point in the same encoding.
package proof

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/multiformats/go-multibase"

	"pixelgenesis/internal/credential/fingerprint"
	"pixelgenesis/internal/credential/models"
	didmodels "pixelgenesis/internal/did/models"
)

var (
	ErrMissingProof        = errors.New("proof is missing")
	ErrUnsupportedProof    = errors.New("unsupported proof type")
	ErrUnknownMethod       = errors.New("verification method not found in issuer document")
	ErrMethodNotAuthorized = errors.New("verification method not listed for authentication")
	ErrUnsupportedKey      = errors.New("unsupported public key")
	ErrMalformedSignature  = errors.New("malformed signature")
	ErrSignatureMismatch   = errors.New("signature does not match")
)

const signatureLen = 64

// SigningKey is an issuer's private key and the method id it is published under.
type SigningKey struct {
	MethodID string
	Private  *ecdsa.PrivateKey
}

// Sign produces a proof over signingInput.
func Sign(signingInput []byte, key SigningKey, created time.Time) (*models.Proof, error) {
	if key.Private == nil {
		return nil, errors.New("signing key is empty")
	}
	digest := fingerprint.Digest(signingInput)
	sig, err := crypto.Sign(digest[:], key.Private)
	if err != nil {
		return nil, fmt.Errorf("sign credential: %w", err)
	}
	value, err := multibase.Encode(multibase.Base58BTC, sig[:signatureLen])
	if err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return &models.Proof{
		Type:               models.ProofTypeSecp256k1,
		Created:            models.FormatTime(created),
		ProofPurpose:       models.ProofPurposeAssert,
		VerificationMethod: key.MethodID,
		ProofValue:         value,
	}, nil
}

// Verify checks p against signingInput using the key issuer publishes for
// p.VerificationMethod. Every failure wraps one of the package errors.
func Verify(signingInput []byte, p *models.Proof, issuer didmodels.Document) error {
	if p == nil || p.ProofValue == "" || p.VerificationMethod == "" {
		return ErrMissingProof
	}
	if p.Type != models.ProofTypeSecp256k1 {
		return fmt.Errorf("%w: %s", ErrUnsupportedProof, p.Type)
	}
	method, ok := issuer.Method(p.VerificationMethod)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, p.VerificationMethod)
	}
	if !issuer.Authenticates(method.ID) {
		return fmt.Errorf("%w: %s", ErrMethodNotAuthorized, method.ID)
	}
	if method.Type != didmodels.KeyType {
		return fmt.Errorf("%w: method type %s", ErrUnsupportedKey, method.Type)
	}
	pub, err := DecodePublicKey(method.PublicKeyMultibase)
	if err != nil {
		return err
	}

	_, sig, err := multibase.Decode(p.ProofValue)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != signatureLen {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, signatureLen, len(sig))
	}

	digest := fingerprint.Digest(signingInput)
	if !crypto.VerifySignature(crypto.CompressPubkey(pub), digest[:], sig) {
		return ErrSignatureMismatch
	}
	return nil
}

// EncodePublicKey renders pub as multibase base58btc of the compressed point.
func EncodePublicKey(pub *ecdsa.PublicKey) (string, error) {
	return multibase.Encode(multibase.Base58BTC, crypto.CompressPubkey(pub))
}

// DecodePublicKey parses a multibase compressed secp256k1 public key.
func DecodePublicKey(s string) (*ecdsa.PublicKey, error) {
	_, raw, err := multibase.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	pub, err := crypto.DecompressPubkey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	return pub, nil
}

// GenerateKey creates a fresh secp256k1 key pair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}
