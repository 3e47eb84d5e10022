package wallet

import (
	"context"
	"sync"

	"github.com/stretchr/testify/suite"

	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/sentinel"
)

// walletContract runs the same behaviour checks against every backend.
type walletContract struct {
	suite.Suite
	newWallet func() Wallet
	wallet    Wallet
	ctx       context.Context
	alice     domain.Address
	bob       domain.Address
}

func (s *walletContract) SetupTest() {
	s.ctx = context.Background()
	s.wallet = s.newWallet()
	s.alice = domain.MustParseAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	s.bob = domain.MustParseAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
}

func (s *walletContract) balance(a domain.Address) string {
	bal, err := s.wallet.Balance(s.ctx, a)
	s.Require().NoError(err)
	return bal.String()
}

func (s *walletContract) TestUnknownAccountHasZeroBalance() {
	s.Equal("0", s.balance(s.alice))
}

func (s *walletContract) TestTransferMovesValue() {
	s.Require().NoError(s.wallet.Deposit(s.ctx, s.alice, domain.Ether(2)))
	s.Require().NoError(s.wallet.Transfer(s.ctx, s.alice, s.bob, domain.Ether(1)))

	s.Equal(domain.Ether(1).String(), s.balance(s.alice))
	s.Equal(domain.Ether(1).String(), s.balance(s.bob))
}

func (s *walletContract) TestInsufficientFundsChangesNothing() {
	s.Require().NoError(s.wallet.Deposit(s.ctx, s.alice, domain.NewAmount(10)))

	err := s.wallet.Transfer(s.ctx, s.alice, s.bob, domain.NewAmount(11))
	s.Require().ErrorIs(err, sentinel.ErrInsufficientFunds)

	s.Equal("10", s.balance(s.alice))
	s.Equal("0", s.balance(s.bob))
}

func (s *walletContract) TestZeroTransferFromEmptyAccount() {
	s.Require().NoError(s.wallet.Transfer(s.ctx, s.alice, s.bob, domain.NewAmount(0)))
	s.Equal("0", s.balance(s.bob))
}

func (s *walletContract) TestNegativeAmountsRejected() {
	neg := domain.NewAmount(-1)
	s.True(dErrors.HasCode(s.wallet.Deposit(s.ctx, s.alice, neg), dErrors.CodeInvalidArgument))
	s.True(dErrors.HasCode(s.wallet.Transfer(s.ctx, s.alice, s.bob, neg), dErrors.CodeInvalidArgument))
}

func (s *walletContract) TestConcurrentTransfersConserveValue() {
	s.Require().NoError(s.wallet.Deposit(s.ctx, s.alice, domain.NewAmount(50)))

	const attempts = 80
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.wallet.Transfer(s.ctx, s.alice, s.bob, domain.NewAmount(1))
		}()
	}
	wg.Wait()

	alice, err := s.wallet.Balance(s.ctx, s.alice)
	s.Require().NoError(err)
	bob, err := s.wallet.Balance(s.ctx, s.bob)
	s.Require().NoError(err)
	s.False(alice.IsNegative())
	s.Equal("50", alice.Add(bob).String())
}
