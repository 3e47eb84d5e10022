//go:build integration

package postgres

import (
	"sync"

	"mintpress/internal/ledger/service"
	"mintpress/internal/wallet"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

func (s *PostgresLedgerSuite) newService() (*service.Service, *wallet.Memory) {
	w := wallet.NewMemory()
	return service.New(s.ledger, w, s.log), w
}

func (s *PostgresLedgerSuite) TestConcurrentTransfersMoveCredentialOnce() {
	svc, _ := s.newService()
	carol := domain.MustParseAddress("0x90f79bf6eb2c4f870365e785982e1f101e93b906")

	for range 10 {
		id := s.issue(s.alice)

		start := make(chan struct{})
		recipients := []domain.Address{s.bob, carol}
		errs := make([]error, len(recipients))
		var wg sync.WaitGroup
		for i, to := range recipients {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				errs[i] = svc.TransferCredential(s.ctx, s.alice, to, id)
			}()
		}
		close(start)
		wg.Wait()

		var winner domain.Address
		succeeded := 0
		for i, err := range errs {
			if err == nil {
				succeeded++
				winner = recipients[i]
				continue
			}
			s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "loser must be refused, got %v", err)
		}
		s.Require().Equal(1, succeeded, "exactly one transfer of credential %d may commit", id)

		owner, err := svc.OwnerOf(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(winner, owner)
	}
}

func (s *PostgresLedgerSuite) TestSelectProfileRacingTransfer() {
	svc, _ := s.newService()

	for range 10 {
		id := s.issue(s.alice)

		start := make(chan struct{})
		var transferErr, selectErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			transferErr = svc.TransferCredential(s.ctx, s.alice, s.bob, id)
		}()
		go func() {
			defer wg.Done()
			<-start
			selectErr = svc.SelectProfile(s.ctx, s.alice, id)
		}()
		close(start)
		wg.Wait()
		s.Require().NoError(transferErr)

		// Either the selection committed before the transfer, or it saw bob
		// as owner and was refused.
		if selectErr != nil {
			s.True(dErrors.HasCode(selectErr, dErrors.CodeUnauthorized), "got %v", selectErr)
		}
	}
}

func (s *PostgresLedgerSuite) TestTipsAccumulateOnTheTippedPostOnly() {
	svc, w := s.newService()
	s.issue(s.alice)
	tipped, err := svc.CreatePost(s.ctx, s.alice, "bafkreitipped")
	s.Require().NoError(err)
	other, err := svc.CreatePost(s.ctx, s.alice, "bafkreiother")
	s.Require().NoError(err)
	s.Require().NoError(w.Deposit(s.ctx, s.bob, domain.NewAmount(100)))

	for _, a := range []int64{1, 5, 11} {
		s.Require().NoError(svc.TipPost(s.ctx, s.bob, tipped, domain.NewAmount(a)))
	}

	p, err := svc.GetPost(s.ctx, tipped)
	s.Require().NoError(err)
	s.Equal("17", p.TipTotal.String())
	untouched, err := svc.GetPost(s.ctx, other)
	s.Require().NoError(err)
	s.Equal("0", untouched.TipTotal.String())
}
