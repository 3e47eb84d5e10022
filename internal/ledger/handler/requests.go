package handler

import (
	"strings"
	"time"

	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

type IssueCredentialRequest struct {
	Locator string `json:"locator"`
}

type TransferCredentialRequest struct {
	To string `json:"to"`
}

func (r *TransferCredentialRequest) Recipient() (domain.Address, error) {
	if strings.TrimSpace(r.To) == "" {
		return domain.ZeroAddress, dErrors.New(dErrors.CodeBadRequest, "to is required")
	}
	return domain.ParseAddress(strings.TrimSpace(r.To))
}

type SelectProfileRequest struct {
	CredentialID uint64 `json:"credential_id"`
}

// CreatePostRequest carries either a precomputed content hash or the raw
// content to hash. Exactly one must be set.
type CreatePostRequest struct {
	ContentHash string `json:"content_hash"`
	Content     string `json:"content"`
}

func (r *CreatePostRequest) Validate() error {
	if r.ContentHash != "" && r.Content != "" {
		return dErrors.New(dErrors.CodeBadRequest, "set either content_hash or content, not both")
	}
	return nil
}

type TipRequest struct {
	Amount domain.Amount `json:"amount"`
}

type DepositRequest struct {
	Amount domain.Amount `json:"amount"`
}

type IssueTokenRequest struct {
	Address string `json:"address"`
	// TTL is a Go duration string; empty uses the configured default.
	TTL string `json:"ttl,omitempty"`
}

func (r *IssueTokenRequest) Parse(defaultTTL time.Duration) (domain.Address, time.Duration, error) {
	account, err := domain.ParseAddress(strings.TrimSpace(r.Address))
	if err != nil {
		return domain.ZeroAddress, 0, err
	}
	ttl := defaultTTL
	if r.TTL != "" {
		ttl, err = time.ParseDuration(r.TTL)
		if err != nil || ttl <= 0 {
			return domain.ZeroAddress, 0, dErrors.New(dErrors.CodeBadRequest, "ttl must be a positive duration")
		}
	}
	return account, ttl, nil
}
