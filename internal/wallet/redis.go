package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mintpress/pkg/domain"
	"mintpress/pkg/platform/sentinel"
)

const (
	balanceKeyPrefix = "wallet:balance:"
	maxTxRetries     = 16
)

// Redis keeps balances as decimal strings and moves value with an optimistic
// WATCH/MULTI transaction over both keys.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func balanceKey(account domain.Address) string {
	return balanceKeyPrefix + account.Hex()
}

func (r *Redis) Transfer(ctx context.Context, from, to domain.Address, amount domain.Amount) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	fromKey, toKey := balanceKey(from), balanceKey(to)

	txf := func(tx *redis.Tx) error {
		fromBal, err := readBalance(ctx, tx, fromKey)
		if err != nil {
			return err
		}
		if fromBal.Cmp(amount) < 0 {
			return sentinel.ErrInsufficientFunds
		}
		if amount.IsZero() || from == to {
			return nil
		}
		toBal, err := readBalance(ctx, tx, toKey)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fromKey, fromBal.Sub(amount).String(), 0)
			pipe.Set(ctx, toKey, toBal.Add(amount).String(), 0)
			return nil
		})
		return err
	}
	return r.watch(ctx, txf, fromKey, toKey)
}

func (r *Redis) Balance(ctx context.Context, account domain.Address) (domain.Amount, error) {
	return readBalance(ctx, r.client, balanceKey(account))
}

func (r *Redis) Deposit(ctx context.Context, account domain.Address, amount domain.Amount) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	key := balanceKey(account)
	return r.watch(ctx, func(tx *redis.Tx) error {
		bal, err := readBalance(ctx, tx, key)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, bal.Add(amount).String(), 0)
			return nil
		})
		return err
	}, key)
}

// watch retries fn while another client races it on the watched keys.
func (r *Redis) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for range maxTxRetries {
		err := r.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("wallet transaction retries exhausted: %w", sentinel.ErrConflict)
}

// getter is satisfied by both the client and a watched *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readBalance(ctx context.Context, c getter, key string) (domain.Amount, error) {
	raw, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Amount{}, nil
	}
	if err != nil {
		return domain.Amount{}, fmt.Errorf("read balance: %w", err)
	}
	bal, err := domain.ParseAmount(raw)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("decode balance %s: %w", key, err)
	}
	return bal, nil
}
