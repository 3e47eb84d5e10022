package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/internal/ledger/store"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/requestcontext"
)

// IssueCredential mints the next credential to requester. The requester's
// profile is assigned according to the profile policy: with the default
// policy only a requester without a profile gets the new id.
func (s *Service) IssueCredential(ctx context.Context, requester domain.Address, locator string) (id domain.CredentialID, err error) {
	ctx, end := s.start(ctx, "issue_credential", attribute.String("account", requester.String()))
	defer func() { end(err) }()

	if requester.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, "requester must not be the zero address")
	}
	now := requestcontext.Now(ctx)
	var profileSet bool

	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		next, err := st.Credentials.NextID(ctx)
		if err != nil {
			return internalError(err, "failed to allocate credential id")
		}
		credential, err := models.NewCredential(next, requester, locator, now)
		if err != nil {
			return err
		}
		if err := st.Credentials.Create(ctx, credential); err != nil {
			return internalError(err, "failed to store credential")
		}

		current, err := st.Profiles.Get(ctx, requester)
		if err != nil {
			return internalError(err, "failed to load profile")
		}
		if current.IsNil() || s.policy == models.ProfilePolicyLatest {
			if err := st.Profiles.Set(ctx, requester, next, now); err != nil {
				return internalError(err, "failed to assign profile")
			}
			profileSet = true
		}

		if _, err := st.Events.Append(ctx, events.CredentialIssued(next, requester, locator, now)); err != nil {
			return internalError(err, "failed to record credential issuance")
		}
		id = next
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.IncrementCredentialsIssued()
	s.logger.InfoContext(ctx, "credential issued", s.logAttrs(ctx,
		"credential_id", id,
		"owner", requester.String(),
		"profile_assigned", profileSet,
	)...)
	return id, nil
}

// OwnerOf returns the current owner of id.
func (s *Service) OwnerOf(ctx context.Context, id domain.CredentialID) (owner domain.Address, err error) {
	credential, err := s.credential(ctx, "owner_of", id)
	if err != nil {
		return domain.ZeroAddress, err
	}
	return credential.Owner, nil
}

// LocatorOf returns the metadata locator recorded at issuance.
func (s *Service) LocatorOf(ctx context.Context, id domain.CredentialID) (string, error) {
	credential, err := s.credential(ctx, "locator_of", id)
	if err != nil {
		return "", err
	}
	return credential.Locator, nil
}

// GetCredential returns the full credential record.
func (s *Service) GetCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	return s.credential(ctx, "get_credential", id)
}

func (s *Service) credential(ctx context.Context, op string, id domain.CredentialID) (credential *models.Credential, err error) {
	ctx, end := s.start(ctx, op, attribute.Int64("credential_id", int64(id)))
	defer func() { end(err) }()

	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	err = s.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		found, err := st.Credentials.FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return dErrors.New(dErrors.CodeNotFound, "credential not found")
			}
			return internalError(err, "failed to load credential")
		}
		credential = found
		return nil
	})
	return credential, err
}

// CredentialBalance returns how many credentials account currently owns.
func (s *Service) CredentialBalance(ctx context.Context, account domain.Address) (n uint64, err error) {
	ctx, end := s.start(ctx, "credential_balance", attribute.String("account", account.String()))
	defer func() { end(err) }()

	err = s.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		n, err = st.Credentials.CountByOwner(ctx, account)
		return internalError(err, "failed to count credentials")
	})
	return n, err
}

// CredentialCount returns how many credentials were ever issued.
func (s *Service) CredentialCount(ctx context.Context) (n uint64, err error) {
	ctx, end := s.start(ctx, "credential_count")
	defer func() { end(err) }()

	err = s.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		n, err = st.Credentials.Count(ctx)
		return internalError(err, "failed to count credentials")
	})
	return n, err
}

// TransferCredential moves id from caller to recipient. Profile assignments
// are left untouched: a previous owner may keep pointing at a credential it
// no longer holds.
func (s *Service) TransferCredential(ctx context.Context, caller, recipient domain.Address, id domain.CredentialID) (err error) {
	ctx, end := s.start(ctx, "transfer_credential",
		attribute.String("account", caller.String()),
		attribute.Int64("credential_id", int64(id)),
	)
	defer func() { end(err) }()

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		credential, err := st.Credentials.FindByIDForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return dErrors.New(dErrors.CodeUnauthorized, "must own the credential to transfer it")
			}
			return internalError(err, "failed to load credential")
		}
		if err := credential.CanTransfer(caller, recipient); err != nil {
			return err
		}
		credential.ApplyTransfer(recipient, now)
		if err := st.Credentials.UpdateOwner(ctx, id, credential.Owner, now); err != nil {
			return internalError(err, "failed to transfer credential")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "credential transferred", s.logAttrs(ctx,
		"credential_id", id,
		"from", caller.String(),
		"to", recipient.String(),
	)...)
	return nil
}
