package service

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

func (s *ServiceSuite) TestIssueCredential() {
	s.Run("assigns ids from 1 in issuance order", func() {
		s.Equal(domain.CredentialID(1), s.issue(user1))
		s.Equal(domain.CredentialID(2), s.issue(user2))
		s.Equal(domain.CredentialID(3), s.issue(user1))

		count, err := s.service.CredentialCount(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(3), count)
	})

	s.Run("records owner, locator and balance", func() {
		owner, err := s.service.OwnerOf(s.ctx, 3)
		s.Require().NoError(err)
		s.Equal(user1, owner)

		locator, err := s.service.LocatorOf(s.ctx, 2)
		s.Require().NoError(err)
		s.Equal("ipfs://profile.json", locator)

		balance, err := s.service.CredentialBalance(s.ctx, user1)
		s.Require().NoError(err)
		s.Equal(uint64(2), balance)
	})

	s.Run("first issued credential stays the profile", func() {
		profile, err := s.service.ProfileOf(s.ctx, user1)
		s.Require().NoError(err)
		s.Equal(domain.CredentialID(1), profile)
	})

	s.Run("emits one observation per credential", func() {
		s.Equal([]events.Type{
			events.TypeCredentialIssued,
			events.TypeCredentialIssued,
			events.TypeCredentialIssued,
		}, s.eventTypes())
		s.Equal(3.0, testutil.ToFloat64(s.metrics.CredentialsIssued))
	})
}

func (s *ServiceSuite) TestIssueCredentialAcceptsEmptyLocator() {
	id, err := s.service.IssueCredential(s.ctx, user1, "")
	s.Require().NoError(err)

	locator, err := s.service.LocatorOf(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(locator)
}

func (s *ServiceSuite) TestIssueCredentialRejectsZeroAddress() {
	_, err := s.service.IssueCredential(s.ctx, domain.ZeroAddress, "x")
	s.requireCode(err, dErrors.CodeInvalidArgument)

	count, err := s.service.CredentialCount(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServiceSuite) TestLatestProfilePolicy() {
	svc := New(s.ledger, s.wallet, s.log, WithProfilePolicy(models.ProfilePolicyLatest))

	_, err := svc.IssueCredential(s.ctx, user1, "a")
	s.Require().NoError(err)
	second, err := svc.IssueCredential(s.ctx, user1, "b")
	s.Require().NoError(err)

	profile, err := svc.ProfileOf(s.ctx, user1)
	s.Require().NoError(err)
	s.Equal(second, profile)
}

func (s *ServiceSuite) TestUnknownCredentialIsNotFound() {
	s.issue(user1)

	for _, id := range []domain.CredentialID{0, 2, 1000} {
		_, err := s.service.OwnerOf(s.ctx, id)
		s.requireCode(err, dErrors.CodeNotFound)
		_, err = s.service.LocatorOf(s.ctx, id)
		s.requireCode(err, dErrors.CodeNotFound)
	}
	s.Equal(3.0*2, testutil.ToFloat64(s.metrics.Failures.WithLabelValues("owner_of", "not_found"))+
		testutil.ToFloat64(s.metrics.Failures.WithLabelValues("locator_of", "not_found")))
}

func (s *ServiceSuite) TestBalanceOfAccountWithoutCredentials() {
	balance, err := s.service.CredentialBalance(s.ctx, user3)
	s.Require().NoError(err)
	s.Zero(balance)

	profile, err := s.service.ProfileOf(s.ctx, user3)
	s.Require().NoError(err)
	s.True(profile.IsNil())
}

func (s *ServiceSuite) TestTransferCredential() {
	id := s.issue(user1)

	s.Run("only the owner may transfer", func() {
		err := s.service.TransferCredential(s.ctx, user2, user3, id)
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Run("unknown credential is unauthorized", func() {
		err := s.service.TransferCredential(s.ctx, user1, user2, 99)
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Run("zero recipient is rejected", func() {
		err := s.service.TransferCredential(s.ctx, user1, domain.ZeroAddress, id)
		s.requireCode(err, dErrors.CodeInvalidArgument)
	})

	s.Run("moves ownership and leaves the old profile stale", func() {
		s.Require().NoError(s.service.TransferCredential(s.ctx, user1, user2, id))

		owner, err := s.service.OwnerOf(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(user2, owner)

		balance, err := s.service.CredentialBalance(s.ctx, user1)
		s.Require().NoError(err)
		s.Zero(balance)

		profile, err := s.service.ProfileOf(s.ctx, user1)
		s.Require().NoError(err)
		s.Equal(id, profile)
	})

	s.Run("previous owner can no longer post", func() {
		_, err := s.service.CreatePost(s.ctx, user1, "QmHash")
		s.requireCode(err, dErrors.CodeUnauthorized)
	})
}
