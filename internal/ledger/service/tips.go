package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/internal/ledger/store"
	"mintpress/internal/wallet"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/sentinel"
	"mintpress/pkg/requestcontext"
)

// TipPost transfers amount from caller to the author of post id and adds it
// to the post's tip total. The transfer and the total change together or not
// at all: a wallet that joins the ledger transaction rolls back with it, any
// other wallet gets a reverse transfer when the ledger write fails.
func (s *Service) TipPost(ctx context.Context, caller domain.Address, id domain.PostID, amount domain.Amount) (err error) {
	ctx, end := s.start(ctx, "tip_post",
		attribute.String("account", caller.String()),
		attribute.Int64("post_id", int64(id)),
		attribute.String("amount", amount.String()),
	)
	defer func() { end(err) }()

	now := requestcontext.Now(ctx)
	var (
		transferred bool
		compensated bool
		author      domain.Address
		newTotal    domain.Amount
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		count, err := st.Posts.Count(ctx)
		if err != nil {
			return internalError(err, "failed to count posts")
		}
		if id.IsNil() || uint64(id) > count {
			return dErrors.New(dErrors.CodeInvalidArgument, "invalid post id")
		}
		post, err := st.Posts.FindByIDForUpdate(ctx, id)
		if err != nil {
			return internalError(err, "failed to load post")
		}
		if err := post.CanTip(caller, amount); err != nil {
			return err
		}

		if err := s.wallet.Transfer(ctx, caller, post.Author, amount); err != nil {
			return transferError(err)
		}
		transferred = true
		author = post.Author

		if err := recordTip(ctx, st, post, amount, now); err != nil {
			// Reverse while the ledger boundary is still held so the author
			// cannot spend the tip first.
			s.compensate(ctx, caller, author, id, amount, err)
			compensated = true
			return err
		}
		newTotal = post.TipTotal
		return nil
	})
	if err != nil {
		if transferred && !compensated {
			// The closure succeeded but the commit did not.
			s.compensate(ctx, caller, author, id, amount, err)
		}
		return err
	}

	s.metrics.RecordTip(amount)
	s.logger.InfoContext(ctx, "post tipped", s.logAttrs(ctx,
		"post_id", id,
		"tipper", caller.String(),
		"author", author.String(),
		"amount", amount.String(),
		"tip_total", newTotal.String(),
	)...)
	return nil
}

func recordTip(ctx context.Context, st store.Stores, post *models.Post, amount domain.Amount, now time.Time) error {
	post.ApplyTip(amount, now)
	if err := st.Posts.UpdateTipTotal(ctx, post.ID, post.TipTotal, now); err != nil {
		return internalError(err, "failed to update tip total")
	}
	if _, err := st.Events.Append(ctx, events.PostTipped(post.ID, post.Hash, post.Author, post.TipTotal, amount, now)); err != nil {
		return internalError(err, "failed to record tip")
	}
	return nil
}

// compensate reverses a transfer whose ledger write did not commit.
func (s *Service) compensate(ctx context.Context, tipper, author domain.Address, id domain.PostID, amount domain.Amount, cause error) {
	if amount.IsZero() || wallet.JoinsLedgerTx(s.wallet) {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.wallet.Transfer(ctx, author, tipper, amount); err != nil {
		s.logger.ErrorContext(ctx, "tip compensation failed; balances need reconciliation", s.logAttrs(ctx,
			"post_id", id,
			"tipper", tipper.String(),
			"author", author.String(),
			"amount", amount.String(),
			"cause", cause,
			"error", err,
		)...)
		return
	}
	s.logger.WarnContext(ctx, "tip transfer compensated", s.logAttrs(ctx,
		"post_id", id,
		"amount", amount.String(),
		"cause", cause,
	)...)
}

func transferError(err error) error {
	if errors.Is(err, sentinel.ErrInsufficientFunds) {
		return dErrors.Wrap(err, dErrors.CodeInsufficientFunds, "insufficient funds for tip")
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent balance update, retry the tip")
	}
	return internalError(err, "value transfer failed")
}

// Balance returns account's wallet balance.
func (s *Service) Balance(ctx context.Context, account domain.Address) (bal domain.Amount, err error) {
	ctx, end := s.start(ctx, "balance", attribute.String("account", account.String()))
	defer func() { end(err) }()

	bal, err = s.wallet.Balance(ctx, account)
	if err != nil {
		return domain.Amount{}, internalError(err, "failed to read balance")
	}
	return bal, nil
}

// Deposit credits account's wallet. It is an operator action for deployments
// without an external chain.
func (s *Service) Deposit(ctx context.Context, account domain.Address, amount domain.Amount) (err error) {
	ctx, end := s.start(ctx, "deposit", attribute.String("account", account.String()))
	defer func() { end(err) }()

	if account.IsZero() {
		return dErrors.New(dErrors.CodeInvalidArgument, "account must not be the zero address")
	}
	if err := s.wallet.Deposit(ctx, account, amount); err != nil {
		return internalError(err, "failed to deposit")
	}
	s.logger.InfoContext(ctx, "wallet deposit", s.logAttrs(ctx,
		"account", account.String(),
		"amount", amount.String(),
	)...)
	return nil
}

// ListEvents pages through observations after seq.
func (s *Service) ListEvents(ctx context.Context, afterSeq uint64, limit int) (list []events.Event, err error) {
	ctx, end := s.start(ctx, "list_events")
	defer func() { end(err) }()

	_, limit = pageBounds(0, limit)
	list, err = s.events.List(ctx, afterSeq, limit)
	if err != nil {
		return nil, internalError(err, "failed to list events")
	}
	return list, nil
}
