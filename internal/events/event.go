// Package events is the append-only observation log of ledger changes.
//
// Observations are appended inside the ledger transaction that produced them
// (a transactional outbox): an event exists iff its state change committed.
// Subscribers page through the log by sequence number; the Relay forwards
// unpublished events to an external Sink such as Kafka.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mintpress/pkg/domain"
)

// Type names an observation.
type Type string

const (
	TypeCredentialIssued Type = "credential_issued"
	TypePostCreated      Type = "post_created"
	TypePostTipped       Type = "post_tipped"
)

// Event is one observation. Seq is assigned by the log on append and is
// strictly increasing in commit order.
type Event struct {
	Seq          uint64              `json:"seq"`
	ID           uuid.UUID           `json:"id"`
	Type         Type                `json:"type"`
	Account      domain.Address      `json:"account"`
	CredentialID domain.CredentialID `json:"credential_id,omitempty"`
	Locator      string              `json:"locator,omitempty"`
	PostID       domain.PostID       `json:"post_id,omitempty"`
	Hash         string              `json:"hash,omitempty"`
	TipTotal     *domain.Amount      `json:"tip_total,omitempty"`
	Amount       *domain.Amount      `json:"amount,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// CredentialIssued records issuance of credential id to owner.
func CredentialIssued(id domain.CredentialID, owner domain.Address, locator string, now time.Time) Event {
	return Event{
		ID:           uuid.New(),
		Type:         TypeCredentialIssued,
		Account:      owner,
		CredentialID: id,
		Locator:      locator,
		OccurredAt:   now,
	}
}

// PostCreated records a new post; its tip total is always zero.
func PostCreated(id domain.PostID, hash string, author domain.Address, now time.Time) Event {
	zero := domain.Amount{}
	return Event{
		ID:         uuid.New(),
		Type:       TypePostCreated,
		Account:    author,
		PostID:     id,
		Hash:       hash,
		TipTotal:   &zero,
		OccurredAt: now,
	}
}

// PostTipped records a tip: the post's new running total and the tip itself.
func PostTipped(id domain.PostID, hash string, author domain.Address, newTotal, amount domain.Amount, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       TypePostTipped,
		Account:    author,
		PostID:     id,
		Hash:       hash,
		TipTotal:   &newTotal,
		Amount:     &amount,
		OccurredAt: now,
	}
}

// Key returns the partitioning key: all events of one post (or credential)
// stay ordered on one partition.
func (e Event) Key() string {
	if !e.PostID.IsNil() {
		return "post:" + e.PostID.String()
	}
	return "credential:" + e.CredentialID.String()
}

// Appender adds events to the log. Ledger stores expose it inside their
// transaction scope.
type Appender interface {
	Append(ctx context.Context, event Event) (Event, error)
}

// Log is the readable side of the observation log.
type Log interface {
	Appender
	List(ctx context.Context, afterSeq uint64, limit int) ([]Event, error)
}

// Outbox tracks which events have been forwarded to the external sink.
type Outbox interface {
	Unpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, seqs []uint64) error
}

// Sink receives events relayed from the outbox.
type Sink interface {
	Publish(ctx context.Context, events []Event) error
}
