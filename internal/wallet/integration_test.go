//go:build integration

package wallet

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"mintpress/pkg/domain"
	txcontext "mintpress/pkg/platform/tx"
	"mintpress/pkg/testutil/containers"
)

func TestRedisWallet(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	suite.Run(t, &walletContract{newWallet: func() Wallet {
		require.NoError(t, rc.FlushAll(context.Background()))
		return NewRedis(rc.Client)
	}})
}

func TestPostgresWallet(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	suite.Run(t, &walletContract{newWallet: func() Wallet {
		require.NoError(t, pg.Reset(context.Background()))
		return NewPostgres(pg.DB)
	}})
}

func TestPostgresWalletRollsBackWithCallerTx(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	w := NewPostgres(pg.DB)
	alice := domain.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	bob := domain.MustParseAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	require.NoError(t, w.Deposit(ctx, alice, domain.NewAmount(100)))

	boom := errors.New("boom")
	err := func() error {
		tx, err := pg.DB.BeginTx(ctx, &sql.TxOptions{})
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()
		if err := w.Transfer(txcontext.WithTx(ctx, tx), alice, bob, domain.NewAmount(40)); err != nil {
			return err
		}
		return boom
	}()
	require.ErrorIs(t, err, boom)

	bal, err := w.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "100", bal.String())
}
