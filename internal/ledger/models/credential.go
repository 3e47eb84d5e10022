package models

import (
	"time"

	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

// Credential is the non-fungible token that grants posting rights and can be
// selected as a profile.
//
// Invariants:
//   - ID is positive, unique and never reused
//   - Owner is never the zero address
//   - Locator is fixed at issuance (any string, including empty)
type Credential struct {
	ID        domain.CredentialID `json:"id"`
	Owner     domain.Address      `json:"owner"`
	Locator   string              `json:"locator"`
	IssuedAt  time.Time           `json:"issued_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewCredential constructs a freshly issued credential.
func NewCredential(id domain.CredentialID, owner domain.Address, locator string, now time.Time) (*Credential, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential id must be positive")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential owner must not be the zero address")
	}
	return &Credential{
		ID:        id,
		Owner:     owner,
		Locator:   locator,
		IssuedAt:  now,
		UpdatedAt: now,
	}, nil
}

// IsOwnedBy reports whether account currently owns the credential.
func (c *Credential) IsOwnedBy(account domain.Address) bool {
	return c.Owner == account
}

// CanTransfer checks that caller may move the credential to recipient.
func (c *Credential) CanTransfer(caller, recipient domain.Address) error {
	if !c.IsOwnedBy(caller) {
		return dErrors.New(dErrors.CodeUnauthorized, "must own the credential to transfer it")
	}
	if recipient.IsZero() {
		return dErrors.New(dErrors.CodeInvalidArgument, "recipient must not be the zero address")
	}
	return nil
}

// ApplyTransfer moves ownership. Call CanTransfer first.
func (c *Credential) ApplyTransfer(recipient domain.Address, now time.Time) {
	c.Owner = recipient
	c.UpdatedAt = now
}

// Collection is the static naming metadata of the credential collection.
type Collection struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}
