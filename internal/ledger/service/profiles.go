package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"mintpress/internal/ledger/store"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/requestcontext"
)

const errMustOwnProfile = "must own the credential to select it as profile"

// SelectProfile points caller's profile at id. It fails with Unauthorized
// unless caller owns id right now, including when id was never issued.
func (s *Service) SelectProfile(ctx context.Context, caller domain.Address, id domain.CredentialID) (err error) {
	ctx, end := s.start(ctx, "select_profile",
		attribute.String("account", caller.String()),
		attribute.Int64("credential_id", int64(id)),
	)
	defer func() { end(err) }()

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		credential, err := st.Credentials.FindByIDForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return dErrors.New(dErrors.CodeUnauthorized, errMustOwnProfile)
			}
			return internalError(err, "failed to load credential")
		}
		if !credential.IsOwnedBy(caller) {
			return dErrors.New(dErrors.CodeUnauthorized, errMustOwnProfile)
		}
		if err := st.Profiles.Set(ctx, caller, id, now); err != nil {
			return internalError(err, "failed to select profile")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "profile selected", s.logAttrs(ctx,
		"account", caller.String(),
		"credential_id", id,
	)...)
	return nil
}

// ProfileOf returns account's profile credential, or 0 when none was set.
// The id may be stale if the credential has since been transferred away.
func (s *Service) ProfileOf(ctx context.Context, account domain.Address) (id domain.CredentialID, err error) {
	ctx, end := s.start(ctx, "profile_of", attribute.String("account", account.String()))
	defer func() { end(err) }()

	err = s.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		id, err = st.Profiles.Get(ctx, account)
		return internalError(err, "failed to load profile")
	})
	return id, err
}
