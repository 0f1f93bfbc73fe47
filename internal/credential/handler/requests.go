package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"pixelgenesis/internal/credential/models"
	dErrors "pixelgenesis/pkg/domain-errors"
)

// IssueRequest is the body of POST /v1/credentials/issue.
type IssueRequest struct {
	HolderDID        string          `json:"holderDid"`
	Type             []string        `json:"type"`
	Claims           json.RawMessage `json:"claims"`
	ExpiresAt        *string         `json:"expiresAt,omitempty"`
	CredentialSchema *models.Schema  `json:"credentialSchema,omitempty"`

	claims    map[string]any
	expiresAt *time.Time
}

// Validate checks required fields and decodes claims with numbers kept
// verbatim, so the signed form carries exactly what the issuer sent.
func (r *IssueRequest) Validate() error {
	r.HolderDID = strings.TrimSpace(r.HolderDID)
	if r.HolderDID == "" {
		return dErrors.New(dErrors.CodeValidation, "holderDid is required")
	}
	claims, err := decodeObject(r.Claims)
	if err != nil {
		return err
	}
	r.claims = claims
	if r.ExpiresAt != nil && strings.TrimSpace(*r.ExpiresAt) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*r.ExpiresAt))
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "expiresAt must be an RFC 3339 timestamp")
		}
		r.expiresAt = &t
	}
	return nil
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, dErrors.New(dErrors.CodeValidation, "claims are required")
	}
	if trimmed[0] != '{' {
		return nil, dErrors.New(dErrors.CodeValidation, "claims must be a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "claims must be a JSON object")
	}
	return out, nil
}

// VerifyRequest is the body of POST /v1/credentials/verify.
type VerifyRequest struct {
	VC     json.RawMessage `json:"vc,omitempty"`
	VCHash string          `json:"vcHash,omitempty"`

	document *models.Document
}

func (r *VerifyRequest) Validate() error {
	r.VCHash = strings.TrimSpace(r.VCHash)
	trimmed := bytes.TrimSpace(r.VC)
	hasVC := len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
	if !hasVC && r.VCHash == "" {
		return dErrors.New(dErrors.CodeValidation, "either vc or vcHash is required")
	}
	if hasVC {
		doc, err := models.ParseDocument(trimmed)
		if err != nil {
			return err
		}
		r.document = &doc
	}
	return nil
}

// RevokeRequest is the body of POST /v1/credentials/revoke.
type RevokeRequest struct {
	VCID string `json:"vcId,omitempty"`
	Hash string `json:"hash,omitempty"`
}

func (r *RevokeRequest) Validate() error {
	r.VCID = strings.TrimSpace(r.VCID)
	r.Hash = strings.TrimSpace(r.Hash)
	switch {
	case r.VCID == "" && r.Hash == "":
		return dErrors.New(dErrors.CodeValidation, "either vcId or hash is required")
	case r.VCID != "" && r.Hash != "":
		return dErrors.New(dErrors.CodeValidation, "provide only one of vcId or hash")
	}
	return nil
}
