package wallet

import (
	"context"
	"sync"

	"mintpress/pkg/domain"
	"mintpress/pkg/platform/sentinel"
)

// Memory is an in-process wallet.
type Memory struct {
	mu       sync.Mutex
	balances map[domain.Address]domain.Amount
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[domain.Address]domain.Amount)}
}

func (m *Memory) Transfer(_ context.Context, from, to domain.Address, amount domain.Amount) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[from].Cmp(amount) < 0 {
		return sentinel.ErrInsufficientFunds
	}
	if amount.IsZero() || from == to {
		return nil
	}
	m.balances[from] = m.balances[from].Sub(amount)
	m.balances[to] = m.balances[to].Add(amount)
	return nil
}

func (m *Memory) Balance(_ context.Context, account domain.Address) (domain.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

func (m *Memory) Deposit(_ context.Context, account domain.Address, amount domain.Amount) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] = m.balances[account].Add(amount)
	return nil
}
