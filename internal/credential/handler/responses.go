package handler

import (
	"pixelgenesis/internal/credential/models"
)

// CredentialResponse is the record view returned to issuers and holders.
type CredentialResponse struct {
	models.Document
	Hash             string `json:"hash"`
	AnchorState      string `json:"anchorState"`
	PendingOperation string `json:"pendingOperation,omitempty"`
	OnChainTxHash    string `json:"onchainTxHash,omitempty"`
	StorageCID       string `json:"storageCid,omitempty"`
}

func toResponse(c *models.Credential) CredentialResponse {
	return CredentialResponse{
		Document:         c.Document(),
		Hash:             c.Fingerprint.String(),
		AnchorState:      string(c.Anchor.State),
		PendingOperation: string(c.Anchor.PendingOp),
		OnChainTxHash:    c.Anchor.TxRef,
		StorageCID:       c.ContentLocator,
	}
}

func toResponses(creds []*models.Credential) []CredentialResponse {
	out := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, toResponse(c))
	}
	return out
}
