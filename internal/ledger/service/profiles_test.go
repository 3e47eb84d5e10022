package service

import (
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

func (s *ServiceSuite) TestSelectProfile() {
	first := s.issue(user1)
	second := s.issue(user1)

	s.Run("second issuance keeps the first profile", func() {
		profile, err := s.service.ProfileOf(s.ctx, user1)
		s.Require().NoError(err)
		s.Equal(first, profile)
	})

	s.Run("owner can switch and switch back", func() {
		s.Require().NoError(s.service.SelectProfile(s.ctx, user1, second))
		profile, err := s.service.ProfileOf(s.ctx, user1)
		s.Require().NoError(err)
		s.Equal(second, profile)

		s.Require().NoError(s.service.SelectProfile(s.ctx, user1, first))
		profile, err = s.service.ProfileOf(s.ctx, user1)
		s.Require().NoError(err)
		s.Equal(first, profile)
	})

	s.Run("reselecting is idempotent", func() {
		s.Require().NoError(s.service.SelectProfile(s.ctx, user1, first))
		s.Require().NoError(s.service.SelectProfile(s.ctx, user1, first))
		profile, err := s.service.ProfileOf(s.ctx, user1)
		s.Require().NoError(err)
		s.Equal(first, profile)
	})

	s.Run("non-owner is unauthorized", func() {
		err := s.service.SelectProfile(s.ctx, user2, second)
		s.requireCode(err, dErrors.CodeUnauthorized)
		s.Contains(err.Error(), "must own the credential to select it as profile")

		profile, err := s.service.ProfileOf(s.ctx, user2)
		s.Require().NoError(err)
		s.True(profile.IsNil())
	})

	s.Run("unissued ids are unauthorized, not not-found", func() {
		for _, id := range []domain.CredentialID{0, 3, 77} {
			err := s.service.SelectProfile(s.ctx, user1, id)
			s.requireCode(err, dErrors.CodeUnauthorized)
		}
	})
}
