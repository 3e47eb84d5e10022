// Package postgres is the PostgreSQL ledger store. RunInTx opens a sql.Tx and
// places it in the context so the observation log and the postgres wallet
// write in the same transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/internal/ledger/store"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/sentinel"
	txcontext "mintpress/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Ledger implements store.LedgerTx on a *sql.DB.
type Ledger struct {
	db      *sql.DB
	log     *events.PostgresLog
	timeout time.Duration
}

// New constructs a ledger store; log receives observations inside each tx.
func New(db *sql.DB, log *events.PostgresLog) *Ledger {
	return &Ledger{db: db, log: log, timeout: defaultTxTimeout}
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

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	txCtx := txcontext.WithTx(ctx, tx)
	if err := fn(txCtx, l.stores()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// View reads outside any transaction; each query sees committed state.
func (l *Ledger) View(ctx context.Context, fn func(ctx context.Context, st store.Stores) error) error {
	st := l.stores()
	st.Events = nil
	return fn(ctx, st)
}

func (l *Ledger) stores() store.Stores {
	return store.Stores{
		Credentials: &CredentialStore{db: l.db},
		Profiles:    &ProfileStore{db: l.db},
		Posts:       &PostStore{db: l.db},
		Events:      l.log,
	}
}

// nextCounter advances a ledger_counters row. The row lock it takes is held
// until the transaction ends, which serialises issuance per counter.
func nextCounter(ctx context.Context, db *sql.DB, name string) (uint64, error) {
	var value uint64
	err := txcontext.ExecutorFrom(ctx, db).QueryRowContext(ctx,
		`UPDATE ledger_counters SET value = value + 1 WHERE name = $1 RETURNING value`, name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("advance %s counter: %w", name, err)
	}
	return value, nil
}

func readCounter(ctx context.Context, db *sql.DB, name string) (uint64, error) {
	var value uint64
	err := txcontext.ExecutorFrom(ctx, db).QueryRowContext(ctx,
		`SELECT value FROM ledger_counters WHERE name = $1`, name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("read %s counter: %w", name, err)
	}
	return value, nil
}

func addressFromBytes(b []byte) (domain.Address, error) {
	var a domain.Address
	if len(b) != len(a) {
		return a, fmt.Errorf("stored address has %d bytes", len(b))
	}
	copy(a[:], b)
	return a, nil
}

// CredentialStore persists credentials in the credentials table.
type CredentialStore struct {
	db *sql.DB
}

func (s *CredentialStore) NextID(ctx context.Context) (domain.CredentialID, error) {
	v, err := nextCounter(ctx, s.db, "credentials")
	return domain.CredentialID(v), err
}

func (s *CredentialStore) Count(ctx context.Context) (uint64, error) {
	return readCounter(ctx, s.db, "credentials")
}

func (s *CredentialStore) Create(ctx context.Context, c *models.Credential) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO credentials (id, owner, locator, issued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, int64(c.ID), c.Owner[:], c.Locator, c.IssuedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) FindByID(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	return s.findOne(ctx, `
		SELECT id, owner, locator, issued_at, updated_at
		FROM credentials
		WHERE id = $1
	`, id)
}

func (s *CredentialStore) FindByIDForUpdate(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	return s.findOne(ctx, `
		SELECT id, owner, locator, issued_at, updated_at
		FROM credentials
		WHERE id = $1
		FOR UPDATE
	`, id)
}

func (s *CredentialStore) findOne(ctx context.Context, query string, id domain.CredentialID) (*models.Credential, error) {
	var (
		c     models.Credential
		owner []byte
		rawID int64
	)
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, int64(id)).Scan(&rawID, &owner, &c.Locator, &c.IssuedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	c.ID = domain.CredentialID(rawID)
	if c.Owner, err = addressFromBytes(owner); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CredentialStore) CountByOwner(ctx context.Context, owner domain.Address) (uint64, error) {
	var n uint64
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credentials WHERE owner = $1`, owner[:],
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count credentials by owner: %w", err)
	}
	return n, nil
}

func (s *CredentialStore) UpdateOwner(ctx context.Context, id domain.CredentialID, owner domain.Address, now time.Time) error {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`UPDATE credentials SET owner = $2, updated_at = $3 WHERE id = $1`,
		int64(id), owner[:], now,
	)
	if err != nil {
		return fmt.Errorf("update credential owner: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ProfileStore persists profile assignments in the profiles table.
type ProfileStore struct {
	db *sql.DB
}

func (s *ProfileStore) Get(ctx context.Context, account domain.Address) (domain.CredentialID, error) {
	var id int64
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT credential_id FROM profiles WHERE account = $1`, account[:],
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("find profile: %w", err)
	}
	return domain.CredentialID(id), nil
}

func (s *ProfileStore) Set(ctx context.Context, account domain.Address, id domain.CredentialID, now time.Time) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO profiles (account, credential_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account) DO UPDATE
		SET credential_id = EXCLUDED.credential_id, updated_at = EXCLUDED.updated_at
	`, account[:], int64(id), now)
	if err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

// PostStore persists posts in the posts table. Tip totals are NUMERIC(78,0)
// and cross the driver as decimal strings.
type PostStore struct {
	db *sql.DB
}

const postColumns = `id, hash, author, tip_total::text, created_at, updated_at`

func (s *PostStore) NextID(ctx context.Context) (domain.PostID, error) {
	v, err := nextCounter(ctx, s.db, "posts")
	return domain.PostID(v), err
}

func (s *PostStore) Count(ctx context.Context) (uint64, error) {
	return readCounter(ctx, s.db, "posts")
}

func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO posts (id, hash, author, tip_total, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
	`, int64(p.ID), p.Hash, p.Author[:], p.TipTotal.String(), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostStore) FindByID(ctx context.Context, id domain.PostID) (*models.Post, error) {
	return s.findOne(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
}

func (s *PostStore) FindByIDForUpdate(ctx context.Context, id domain.PostID) (*models.Post, error) {
	return s.findOne(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1 FOR UPDATE`, id)
}

func (s *PostStore) findOne(ctx context.Context, query string, id domain.PostID) (*models.Post, error) {
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, int64(id))
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	defer rows.Close()
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return posts[0], nil
}

func (s *PostStore) FindByIDs(ctx context.Context, ids []domain.PostID) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ANY($1) ORDER BY id`,
		pq.Array(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (s *PostStore) List(ctx context.Context, offset, limit int) ([]*models.Post, error) {
	if offset < 0 {
		offset = 0
	}
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (s *PostStore) UpdateTipTotal(ctx context.Context, id domain.PostID, total domain.Amount, now time.Time) error {
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`UPDATE posts SET tip_total = $2::numeric, updated_at = $3 WHERE id = $1`,
		int64(id), total.String(), now,
	)
	if err != nil {
		return fmt.Errorf("update tip total: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanPosts(rows *sql.Rows) ([]*models.Post, error) {
	out := []*models.Post{}
	for rows.Next() {
		var (
			p      models.Post
			rawID  int64
			author []byte
			total  string
		)
		if err := rows.Scan(&rawID, &p.Hash, &author, &total, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.ID = domain.PostID(rawID)
		var err error
		if p.Author, err = addressFromBytes(author); err != nil {
			return nil, err
		}
		if p.TipTotal, err = domain.ParseAmount(total); err != nil {
			return nil, fmt.Errorf("decode tip total: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}

// isUniqueViolation matches SQLSTATE 23505 from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var coded interface{ SQLState() string }
	if errors.As(err, &coded) {
		return coded.SQLState() == "23505"
	}
	return false
}
