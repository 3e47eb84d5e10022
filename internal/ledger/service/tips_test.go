package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"mintpress/internal/events"
	"mintpress/internal/ledger/service/mocks"
	"mintpress/internal/ledger/store"
	"mintpress/internal/wallet"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/sentinel"
)

func (s *ServiceSuite) fund(account domain.Address, amount domain.Amount) {
	s.Require().NoError(s.service.Deposit(s.ctx, account, amount))
}

func (s *ServiceSuite) balance(account domain.Address) domain.Amount {
	bal, err := s.service.Balance(s.ctx, account)
	s.Require().NoError(err)
	return bal
}

func (s *ServiceSuite) tipTotal(id domain.PostID) string {
	post, err := s.service.GetPost(s.ctx, id)
	s.Require().NoError(err)
	return post.TipTotal.String()
}

func (s *ServiceSuite) TestTipScenario() {
	s.fund(user2, domain.Ether(10))
	s.Equal(domain.CredentialID(1), s.issue(user1))

	balance, err := s.service.CredentialBalance(s.ctx, user1)
	s.Require().NoError(err)
	s.Equal(uint64(1), balance)

	postID := s.createPost(user1, "SampleHash")
	s.Equal(domain.PostID(1), postID)
	s.Equal("0", s.tipTotal(postID))

	before := s.balance(user1)
	s.Require().NoError(s.service.TipPost(s.ctx, user2, postID, domain.Ether(1)))

	s.Equal(domain.Ether(1).String(), s.tipTotal(postID))
	s.Equal(domain.Ether(1).String(), s.balance(user1).Sub(before).String())
	s.Equal(domain.Ether(9).String(), s.balance(user2).String())

	err = s.service.TipPost(s.ctx, user2, 2, domain.Ether(1))
	s.requireCode(err, dErrors.CodeInvalidArgument)
	s.Contains(err.Error(), "invalid post id")

	err = s.service.TipPost(s.ctx, user1, postID, domain.Ether(1))
	s.requireCode(err, dErrors.CodeUnauthorized)
	s.Contains(err.Error(), "cannot tip your own post")

	s.Equal(domain.Ether(1).String(), s.tipTotal(postID))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.TipsTotal))
}

func (s *ServiceSuite) TestTipEmitsObservation() {
	s.fund(user2, domain.NewAmount(1000))
	s.issue(user1)
	postID := s.createPost(user1, "SampleHash")

	s.Require().NoError(s.service.TipPost(s.ctx, user2, postID, domain.NewAmount(300)))
	s.Require().NoError(s.service.TipPost(s.ctx, user2, postID, domain.NewAmount(200)))

	list, err := s.service.ListEvents(s.ctx, 2, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	last := list[1]
	s.Equal(events.TypePostTipped, last.Type)
	s.Equal("SampleHash", last.Hash)
	s.Equal(user1, last.Account)
	s.Equal("500", last.TipTotal.String())
	s.Equal("200", last.Amount.String())
}

func (s *ServiceSuite) TestTipOutOfRange() {
	s.fund(user2, domain.NewAmount(10))

	s.Run("no posts at all", func() {
		err := s.service.TipPost(s.ctx, user2, 1, domain.NewAmount(1))
		s.requireCode(err, dErrors.CodeInvalidArgument)
	})

	s.issue(user1)
	s.createPost(user1, "h")

	s.Run("zero and past the end", func() {
		for _, id := range []domain.PostID{0, 2, 1 << 40} {
			err := s.service.TipPost(s.ctx, user2, id, domain.NewAmount(1))
			s.requireCode(err, dErrors.CodeInvalidArgument)
		}
	})

	s.Equal("10", s.balance(user2).String())
}

func (s *ServiceSuite) TestSelfTipLeavesStateUnchanged() {
	s.fund(user1, domain.NewAmount(10))
	s.issue(user1)
	postID := s.createPost(user1, "h")

	for _, amount := range []int64{0, 1, 10} {
		err := s.service.TipPost(s.ctx, user1, postID, domain.NewAmount(amount))
		s.requireCode(err, dErrors.CodeUnauthorized)
	}
	s.Equal("0", s.tipTotal(postID))
	s.Equal("10", s.balance(user1).String())
}

func (s *ServiceSuite) TestZeroTipIsAllowed() {
	s.issue(user1)
	postID := s.createPost(user1, "h")

	s.Require().NoError(s.service.TipPost(s.ctx, user2, postID, domain.NewAmount(0)))
	s.Equal("0", s.tipTotal(postID))
	s.Contains(s.eventTypes(), events.TypePostTipped)
}

func (s *ServiceSuite) TestNegativeTipIsRejected() {
	s.issue(user1)
	postID := s.createPost(user1, "h")

	err := s.service.TipPost(s.ctx, user2, postID, domain.NewAmount(-5))
	s.requireCode(err, dErrors.CodeInvalidArgument)
}

func (s *ServiceSuite) TestInsufficientFundsAbortsTip() {
	s.fund(user2, domain.NewAmount(5))
	s.issue(user1)
	postID := s.createPost(user1, "h")

	err := s.service.TipPost(s.ctx, user2, postID, domain.NewAmount(6))
	s.requireCode(err, dErrors.CodeInsufficientFunds)

	s.Equal("0", s.tipTotal(postID))
	s.Equal("5", s.balance(user2).String())
	s.Equal("0", s.balance(user1).String())
	s.NotContains(s.eventTypes(), events.TypePostTipped)
}

func (s *ServiceSuite) TestConcurrentTipsAreSerialised() {
	s.issue(user1)
	postID := s.createPost(user1, "h")
	tippers := []domain.Address{user2, user3}
	for _, t := range tippers {
		s.fund(t, domain.NewAmount(1000))
	}

	const perTipper = 25
	var wg sync.WaitGroup
	for _, tipper := range tippers {
		for range perTipper {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.service.TipPost(s.ctx, tipper, postID, domain.NewAmount(3))
			}()
		}
	}
	wg.Wait()

	s.Equal("150", s.tipTotal(postID))
	s.Equal("150", s.balance(user1).String())
	s.Equal("925", s.balance(user2).String())
	s.Equal("925", s.balance(user3).String())
}

// failingEventsTx fails the PostTipped append, after the transfer has run.
type failingEventsTx struct {
	store.LedgerTx
}

type failingAppender struct {
	next events.Appender
}

var errAppendFailed = errors.New("event log unavailable")

func (a failingAppender) Append(ctx context.Context, e events.Event) (events.Event, error) {
	if e.Type == events.TypePostTipped {
		return events.Event{}, errAppendFailed
	}
	return a.next.Append(ctx, e)
}

func (f failingEventsTx) RunInTx(ctx context.Context, fn func(ctx context.Context, st store.Stores) error) error {
	return f.LedgerTx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		st.Events = failingAppender{next: st.Events}
		return fn(ctx, st)
	})
}

func (s *ServiceSuite) TestFailedLedgerWriteCompensatesTransfer() {
	svc := New(failingEventsTx{s.ledger}, s.wallet, s.log)
	s.fund(user2, domain.NewAmount(100))
	s.issue(user1)
	postID := s.createPost(user1, "h")

	err := svc.TipPost(s.ctx, user2, postID, domain.NewAmount(40))
	s.requireCode(err, dErrors.CodeInternal)
	s.ErrorIs(err, errAppendFailed)

	s.Equal("0", s.tipTotal(postID))
	s.Equal("100", s.balance(user2).String())
	s.Equal("0", s.balance(user1).String())
}

// spendingWallet makes the tipped author try to spend the tip elsewhere at the
// moment the reverse transfer starts.
type spendingWallet struct {
	*wallet.Memory
	author domain.Address
	spend  func() error
	result chan error
}

func (w *spendingWallet) Transfer(ctx context.Context, from, to domain.Address, amount domain.Amount) error {
	if from == w.author && w.result == nil {
		w.result = make(chan error, 1)
		go func() { w.result <- w.spend() }()
		select {
		case err := <-w.result:
			w.result <- err
		case <-time.After(100 * time.Millisecond):
		}
	}
	return w.Memory.Transfer(ctx, from, to, amount)
}

func (s *ServiceSuite) TestCompensationRunsBeforeAuthorCanSpend() {
	s.fund(user2, domain.NewAmount(100))
	s.issue(user1)
	s.issue(user3)
	tipped := s.createPost(user1, "h1")
	elsewhere := s.createPost(user3, "h3")

	w := &spendingWallet{
		Memory: s.wallet,
		author: user1,
		spend: func() error {
			return s.service.TipPost(s.ctx, user1, elsewhere, domain.NewAmount(40))
		},
	}
	svc := New(failingEventsTx{s.ledger}, w, s.log, WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))))

	err := svc.TipPost(s.ctx, user2, tipped, domain.NewAmount(40))
	s.requireCode(err, dErrors.CodeInternal)

	s.Require().NotNil(w.result, "reverse transfer must run")
	spendErr := <-w.result
	s.requireCode(spendErr, dErrors.CodeInsufficientFunds)

	s.Equal("100", s.balance(user2).String())
	s.Equal("0", s.balance(user1).String())
	s.Equal("0", s.balance(user3).String())
	s.Equal("0", s.tipTotal(tipped))
	s.Equal("0", s.tipTotal(elsewhere))
	s.NotContains(s.logs.String(), "tip compensation failed")
}

func (s *ServiceSuite) TestTipsAccumulateOnTheTippedPostOnly() {
	s.fund(user2, domain.NewAmount(100))
	s.issue(user1)
	tipped := s.createPost(user1, "h1")
	other := s.createPost(user1, "h2")

	for _, a := range []int64{1, 5, 11} {
		s.Require().NoError(s.service.TipPost(s.ctx, user2, tipped, domain.NewAmount(a)))
	}

	s.Equal("17", s.tipTotal(tipped))
	s.Equal("0", s.tipTotal(other))
	s.Equal("83", s.balance(user2).String())
	s.Equal("17", s.balance(user1).String())
}

func (s *ServiceSuite) TestCompensationUsesReverseTransfer() {
	ctrl := gomock.NewController(s.T())
	w := mocks.NewMockWallet(ctrl)
	svc := New(failingEventsTx{s.ledger}, w, s.log)
	s.issue(user1)
	postID := s.createPost(user1, "h")
	amount := domain.NewAmount(7)

	gomock.InOrder(
		w.EXPECT().Transfer(gomock.Any(), user2, user1, amount).Return(nil),
		w.EXPECT().Transfer(gomock.Any(), user1, user2, amount).Return(nil),
	)

	err := svc.TipPost(s.ctx, user2, postID, amount)
	s.requireCode(err, dErrors.CodeInternal)
}

type participantWallet struct {
	*mocks.MockWallet
	*mocks.MockLedgerTxParticipant
}

func (s *ServiceSuite) TestNoCompensationWhenWalletJoinsLedgerTx() {
	ctrl := gomock.NewController(s.T())
	w := participantWallet{mocks.NewMockWallet(ctrl), mocks.NewMockLedgerTxParticipant(ctrl)}
	svc := New(failingEventsTx{s.ledger}, w, s.log)
	s.issue(user1)
	postID := s.createPost(user1, "h")

	w.MockWallet.EXPECT().Transfer(gomock.Any(), user2, user1, gomock.Any()).Return(nil).Times(1)
	w.MockLedgerTxParticipant.EXPECT().JoinsLedgerTx().Return(true)

	err := svc.TipPost(s.ctx, user2, postID, domain.NewAmount(7))
	s.requireCode(err, dErrors.CodeInternal)
}

func (s *ServiceSuite) TestWalletErrorsAreTranslated() {
	ctrl := gomock.NewController(s.T())
	w := mocks.NewMockWallet(ctrl)
	svc := New(s.ledger, w, s.log)
	s.issue(user1)
	postID := s.createPost(user1, "h")

	w.EXPECT().Transfer(gomock.Any(), user2, user1, gomock.Any()).Return(sentinel.ErrInsufficientFunds)
	err := svc.TipPost(s.ctx, user2, postID, domain.NewAmount(1))
	s.requireCode(err, dErrors.CodeInsufficientFunds)

	w.EXPECT().Transfer(gomock.Any(), user2, user1, gomock.Any()).Return(sentinel.ErrConflict)
	err = svc.TipPost(s.ctx, user2, postID, domain.NewAmount(1))
	s.requireCode(err, dErrors.CodeConflict)

	w.EXPECT().Transfer(gomock.Any(), user2, user1, gomock.Any()).Return(errors.New("redis down"))
	err = svc.TipPost(s.ctx, user2, postID, domain.NewAmount(1))
	s.requireCode(err, dErrors.CodeInternal)

	s.Equal("0", s.tipTotal(postID))
}

func (s *ServiceSuite) TestDepositValidation() {
	err := s.service.Deposit(s.ctx, domain.ZeroAddress, domain.NewAmount(1))
	s.requireCode(err, dErrors.CodeInvalidArgument)

	err = s.service.Deposit(s.ctx, user1, domain.NewAmount(-1))
	s.requireCode(err, dErrors.CodeInvalidArgument)
}
