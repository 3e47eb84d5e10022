// Package store defines the persistence ports of the ledger and the
// transactional boundary that groups them.
//
// Every ledger mutation runs inside LedgerTx.RunInTx. Implementations provide
// one global order of mutations: the memory store with a single lock, the
// postgres store with row locks on the counters and the tipped post. Reads
// that need a consistent view across stores use View.
package store

import (
	"context"
	"time"

	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/pkg/domain"
)

// CredentialStore persists credentials. FindByID returns sentinel.ErrNotFound
// for ids that were never issued.
type CredentialStore interface {
	// NextID reserves the next credential id and advances the issued count.
	NextID(ctx context.Context) (domain.CredentialID, error)
	Count(ctx context.Context) (uint64, error)
	Create(ctx context.Context, credential *models.Credential) error
	FindByID(ctx context.Context, id domain.CredentialID) (*models.Credential, error)
	// FindByIDForUpdate loads id and holds it against concurrent owner
	// changes until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id domain.CredentialID) (*models.Credential, error)
	CountByOwner(ctx context.Context, owner domain.Address) (uint64, error)
	UpdateOwner(ctx context.Context, id domain.CredentialID, owner domain.Address, now time.Time) error
}

// ProfileStore persists profile assignments. Get returns 0 when the account
// never selected a profile.
type ProfileStore interface {
	Get(ctx context.Context, account domain.Address) (domain.CredentialID, error)
	Set(ctx context.Context, account domain.Address, id domain.CredentialID, now time.Time) error
}

// PostStore persists posts.
type PostStore interface {
	NextID(ctx context.Context) (domain.PostID, error)
	Count(ctx context.Context) (uint64, error)
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id domain.PostID) (*models.Post, error)
	// FindByIDForUpdate loads a post and holds it against concurrent tips
	// until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id domain.PostID) (*models.Post, error)
	// FindByIDs returns the posts that exist, ordered by id.
	FindByIDs(ctx context.Context, ids []domain.PostID) ([]*models.Post, error)
	// List returns posts ordered by id, skipping offset posts.
	List(ctx context.Context, offset, limit int) ([]*models.Post, error)
	UpdateTipTotal(ctx context.Context, id domain.PostID, total domain.Amount, now time.Time) error
}

// Stores are the stores visible inside one transactional scope.
type Stores struct {
	Credentials CredentialStore
	Profiles    ProfileStore
	Posts       PostStore
	Events      events.Appender
}

// LedgerTx is the transactional boundary of the ledger. fn receives a context
// that carries the transaction so collaborators sharing the database can
// join it. If fn returns an error nothing it wrote is kept.
type LedgerTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
	View(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
}
