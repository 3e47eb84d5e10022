// Package wallet is the value-transfer substrate behind tipping. A transfer is
// all-or-nothing: either both balances change or neither does.
package wallet

import (
	"context"

	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

// Wallet moves native value between accounts. Transfer returns
// sentinel.ErrInsufficientFunds when the payer balance is short.
type Wallet interface {
	Transfer(ctx context.Context, from, to domain.Address, amount domain.Amount) error
	Balance(ctx context.Context, account domain.Address) (domain.Amount, error)
	Deposit(ctx context.Context, account domain.Address, amount domain.Amount) error
}

// LedgerTxParticipant is implemented by wallets whose writes join the ledger
// transaction carried in the context. Their transfers roll back with it, so
// callers need no compensating transfer.
type LedgerTxParticipant interface {
	JoinsLedgerTx() bool
}

// JoinsLedgerTx reports whether w's transfers commit with the ledger transaction.
func JoinsLedgerTx(w Wallet) bool {
	p, ok := w.(LedgerTxParticipant)
	return ok && p.JoinsLedgerTx()
}

func validateAmount(amount domain.Amount) error {
	if amount.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidArgument, "amount must not be negative")
	}
	return nil
}
