package wallet

import (
	"context"
	"database/sql"
	"fmt"

	"mintpress/pkg/domain"
	"mintpress/pkg/platform/sentinel"
	txcontext "mintpress/pkg/platform/tx"
)

// Postgres keeps balances in wallet_balances. Writes use the transaction in
// the context when present, so a tip and its transfer commit together.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) JoinsLedgerTx() bool { return true }

func (p *Postgres) Transfer(ctx context.Context, from, to domain.Address, amount domain.Amount) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if _, ok := txcontext.From(ctx); ok {
		return p.transfer(ctx, from, to, amount)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin wallet tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := p.transfer(txcontext.WithTx(ctx, tx), from, to, amount); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit wallet tx: %w", err)
	}
	return nil
}

// transfer debits with a guarded UPDATE: no matching row means the payer is short.
func (p *Postgres) transfer(ctx context.Context, from, to domain.Address, amount domain.Amount) error {
	exec := txcontext.ExecutorFrom(ctx, p.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE wallet_balances
		SET balance = balance - $2::numeric, updated_at = now()
		WHERE account = $1 AND balance >= $2::numeric
	`, from[:], amount.String())
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if amount.IsZero() {
			return nil
		}
		return sentinel.ErrInsufficientFunds
	}
	if _, err := exec.ExecContext(ctx, `
		INSERT INTO wallet_balances (account, balance) VALUES ($1, $2::numeric)
		ON CONFLICT (account) DO UPDATE
		SET balance = wallet_balances.balance + EXCLUDED.balance, updated_at = now()
	`, to[:], amount.String()); err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	return nil
}

func (p *Postgres) Balance(ctx context.Context, account domain.Address) (domain.Amount, error) {
	var raw string
	err := txcontext.ExecutorFrom(ctx, p.db).QueryRowContext(ctx,
		`SELECT COALESCE((SELECT balance::text FROM wallet_balances WHERE account = $1), '0')`,
		account[:],
	).Scan(&raw)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("read balance: %w", err)
	}
	return domain.ParseAmount(raw)
}

func (p *Postgres) Deposit(ctx context.Context, account domain.Address, amount domain.Amount) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	_, err := txcontext.ExecutorFrom(ctx, p.db).ExecContext(ctx, `
		INSERT INTO wallet_balances (account, balance) VALUES ($1, $2::numeric)
		ON CONFLICT (account) DO UPDATE
		SET balance = wallet_balances.balance + EXCLUDED.balance, updated_at = now()
	`, account[:], amount.String())
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	return nil
}
