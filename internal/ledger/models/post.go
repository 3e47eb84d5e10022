package models

import (
	"time"

	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

// Post records a reference to off-chain content and the tips it has received.
//
// Invariants:
//   - ID is positive, unique and never reused
//   - Hash is non-empty and immutable
//   - Author is immutable; it held a credential when the post was created
//     (checked once, never re-verified)
//   - TipTotal starts at 0 and never decreases
type Post struct {
	ID        domain.PostID  `json:"id"`
	Hash      string         `json:"hash"`
	Author    domain.Address `json:"author"`
	TipTotal  domain.Amount  `json:"tip_total"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewPost constructs a post with a zero tip total.
func NewPost(id domain.PostID, hash string, author domain.Address, now time.Time) (*Post, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "post id must be positive")
	}
	if hash == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "content hash must not be empty")
	}
	if author.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "post author must not be the zero address")
	}
	return &Post{
		ID:        id,
		Hash:      hash,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTip checks that tipper may tip this post with amount.
// Use with ApplyTip inside the tip transaction.
func (p *Post) CanTip(tipper domain.Address, amount domain.Amount) error {
	if p.Author == tipper {
		return dErrors.New(dErrors.CodeUnauthorized, "cannot tip your own post")
	}
	if amount.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidArgument, "tip amount must not be negative")
	}
	return nil
}

// ApplyTip adds amount to the running total. Call CanTip first.
func (p *Post) ApplyTip(amount domain.Amount, now time.Time) {
	p.TipTotal = p.TipTotal.Add(amount)
	p.UpdatedAt = now
}

// Clone returns a copy that shares nothing mutable with p.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TipTotal = domain.AmountFromBig(p.TipTotal.Big())
	return &clone
}
