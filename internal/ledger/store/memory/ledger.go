// Package memory is the in-memory ledger store. One lock orders every
// mutation; writes inside a failed transaction are undone before the lock is
// released.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/internal/ledger/store"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

type state struct {
	credentialCount uint64
	credentials     map[domain.CredentialID]models.Credential
	ownerBalance    map[domain.Address]uint64
	profiles        map[domain.Address]domain.CredentialID
	postCount       uint64
	posts           map[domain.PostID]*models.Post
}

// Ledger holds all ledger state and implements store.LedgerTx.
type Ledger struct {
	mu      sync.RWMutex
	state   state
	log     *events.MemoryLog
	timeout time.Duration
}

// New creates an empty ledger whose observations go to log.
func New(log *events.MemoryLog) *Ledger {
	return &Ledger{
		state: state{
			credentials:  make(map[domain.CredentialID]models.Credential),
			ownerBalance: make(map[domain.Address]uint64),
			profiles:     make(map[domain.Address]domain.CredentialID),
			posts:        make(map[domain.PostID]*models.Post),
		},
		log:     log,
		timeout: defaultTxTimeout,
	}
}

func (l *Ledger) RunInTx(ctx context.Context, fn func(ctx context.Context, st store.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	t := &tx{state: &l.state}
	if err := fn(ctx, t.stores()); err != nil {
		t.rollback()
		return err
	}
	for _, e := range t.pending {
		if _, err := l.log.Append(ctx, e); err != nil {
			t.rollback()
			return err
		}
	}
	return nil
}

// View runs fn under a read lock. The stores it receives must not be written.
func (l *Ledger) View(ctx context.Context, fn func(ctx context.Context, st store.Stores) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t := &tx{state: &l.state, readOnly: true}
	st := t.stores()
	st.Events = nil
	return fn(ctx, st)
}

// tx records undo steps for every write and buffers events until commit.
type tx struct {
	state    *state
	undo     []func()
	pending  []events.Event
	readOnly bool
}

func (t *tx) stores() store.Stores {
	return store.Stores{
		Credentials: credentials{t},
		Profiles:    profiles{t},
		Posts:       posts{t},
		Events:      t,
	}
}

func (t *tx) write(undo func()) error {
	if t.readOnly {
		return dErrors.New(dErrors.CodeInternal, "write attempted in read-only view")
	}
	t.undo = append(t.undo, undo)
	return nil
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.pending = nil
}

// Append buffers the event; sequence numbers are assigned on commit.
func (t *tx) Append(_ context.Context, event events.Event) (events.Event, error) {
	if t.readOnly {
		return events.Event{}, dErrors.New(dErrors.CodeInternal, "append attempted in read-only view")
	}
	t.pending = append(t.pending, event)
	return event, nil
}

type credentials struct{ t *tx }

func (c credentials) NextID(context.Context) (domain.CredentialID, error) {
	s := c.t.state
	prev := s.credentialCount
	if err := c.t.write(func() { s.credentialCount = prev }); err != nil {
		return 0, err
	}
	s.credentialCount++
	return domain.CredentialID(s.credentialCount), nil
}

func (c credentials) Count(context.Context) (uint64, error) {
	return c.t.state.credentialCount, nil
}

func (c credentials) Create(_ context.Context, credential *models.Credential) error {
	s := c.t.state
	if _, exists := s.credentials[credential.ID]; exists {
		return sentinel.ErrConflict
	}
	if uint64(credential.ID) > s.credentialCount {
		return sentinel.ErrConflict
	}
	owner := credential.Owner
	if err := c.t.write(func() {
		delete(s.credentials, credential.ID)
		s.ownerBalance[owner]--
	}); err != nil {
		return err
	}
	s.credentials[credential.ID] = *credential
	s.ownerBalance[owner]++
	return nil
}

func (c credentials) FindByID(_ context.Context, id domain.CredentialID) (*models.Credential, error) {
	found, ok := c.t.state.credentials[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &found, nil
}

// FindByIDForUpdate is FindByID: the transaction already holds the ledger lock.
func (c credentials) FindByIDForUpdate(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	return c.FindByID(ctx, id)
}

func (c credentials) CountByOwner(_ context.Context, owner domain.Address) (uint64, error) {
	return c.t.state.ownerBalance[owner], nil
}

func (c credentials) UpdateOwner(_ context.Context, id domain.CredentialID, owner domain.Address, now time.Time) error {
	s := c.t.state
	prev, ok := s.credentials[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := c.t.write(func() {
		s.credentials[id] = prev
		s.ownerBalance[owner]--
		s.ownerBalance[prev.Owner]++
	}); err != nil {
		return err
	}
	updated := prev
	updated.Owner = owner
	updated.UpdatedAt = now
	s.credentials[id] = updated
	s.ownerBalance[prev.Owner]--
	s.ownerBalance[owner]++
	return nil
}

type profiles struct{ t *tx }

func (p profiles) Get(_ context.Context, account domain.Address) (domain.CredentialID, error) {
	return p.t.state.profiles[account], nil
}

func (p profiles) Set(_ context.Context, account domain.Address, id domain.CredentialID, _ time.Time) error {
	s := p.t.state
	prev, had := s.profiles[account]
	if err := p.t.write(func() {
		if had {
			s.profiles[account] = prev
		} else {
			delete(s.profiles, account)
		}
	}); err != nil {
		return err
	}
	s.profiles[account] = id
	return nil
}

type posts struct{ t *tx }

func (p posts) NextID(context.Context) (domain.PostID, error) {
	s := p.t.state
	prev := s.postCount
	if err := p.t.write(func() { s.postCount = prev }); err != nil {
		return 0, err
	}
	s.postCount++
	return domain.PostID(s.postCount), nil
}

func (p posts) Count(context.Context) (uint64, error) {
	return p.t.state.postCount, nil
}

func (p posts) Create(_ context.Context, post *models.Post) error {
	s := p.t.state
	if _, exists := s.posts[post.ID]; exists {
		return sentinel.ErrConflict
	}
	if uint64(post.ID) > s.postCount {
		return sentinel.ErrConflict
	}
	if err := p.t.write(func() { delete(s.posts, post.ID) }); err != nil {
		return err
	}
	s.posts[post.ID] = post.Clone()
	return nil
}

func (p posts) FindByID(_ context.Context, id domain.PostID) (*models.Post, error) {
	found, ok := p.t.state.posts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return found.Clone(), nil
}

// FindByIDForUpdate needs no extra locking: the transaction already holds
// the ledger lock.
func (p posts) FindByIDForUpdate(ctx context.Context, id domain.PostID) (*models.Post, error) {
	return p.FindByID(ctx, id)
}

func (p posts) FindByIDs(_ context.Context, ids []domain.PostID) ([]*models.Post, error) {
	out := make([]*models.Post, 0, len(ids))
	seen := make(map[domain.PostID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if found, ok := p.t.state.posts[id]; ok {
			out = append(out, found.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p posts) List(_ context.Context, offset, limit int) ([]*models.Post, error) {
	s := p.t.state
	out := []*models.Post{}
	if offset < 0 {
		offset = 0
	}
	for id := uint64(offset) + 1; id <= s.postCount; id++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		if found, ok := s.posts[domain.PostID(id)]; ok {
			out = append(out, found.Clone())
		}
	}
	return out, nil
}

func (p posts) UpdateTipTotal(_ context.Context, id domain.PostID, total domain.Amount, now time.Time) error {
	s := p.t.state
	current, ok := s.posts[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	prev := current.Clone()
	if err := p.t.write(func() { s.posts[id] = prev }); err != nil {
		return err
	}
	updated := current.Clone()
	updated.TipTotal = total
	updated.UpdatedAt = now
	s.posts[id] = updated
	return nil
}
