package service

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mintpress/internal/content"
	"mintpress/internal/events"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
)

func (s *ServiceSuite) TestCreatePost() {
	s.issue(user1)

	s.Run("stores the post with a zero tip total", func() {
		id := s.createPost(user1, "SampleHash")
		s.Equal(domain.PostID(1), id)

		post, err := s.service.GetPost(s.ctx, id)
		s.Require().NoError(err)
		s.Equal("SampleHash", post.Hash)
		s.Equal(user1, post.Author)
		s.True(post.TipTotal.IsZero())
	})

	s.Run("ids follow creation order", func() {
		s.Equal(domain.PostID(2), s.createPost(user1, "second"))
		count, err := s.service.PostCount(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(2), count)
	})

	s.Run("emits PostCreated with a zero total", func() {
		list, err := s.service.ListEvents(s.ctx, 1, 10)
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal(events.TypePostCreated, list[0].Type)
		s.Equal(domain.PostID(1), list[0].PostID)
		s.Equal("0", list[0].TipTotal.String())
		s.Equal(user1, list[0].Account)
		s.Equal(2.0, testutil.ToFloat64(s.metrics.PostsCreated))
	})
}

func (s *ServiceSuite) TestCreatePostRequiresCredential() {
	_, err := s.service.CreatePost(s.ctx, user2, "SampleHash")
	s.requireCode(err, dErrors.CodeUnauthorized)
	s.Contains(err.Error(), "must hold a credential to post")

	s.Run("ownership is checked before the hash", func() {
		_, err := s.service.CreatePost(s.ctx, user2, "")
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	count, err := s.service.PostCount(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
	s.Empty(s.eventTypes())
}

func (s *ServiceSuite) TestCreatePostRejectsEmptyHash() {
	s.issue(user1)

	_, err := s.service.CreatePost(s.ctx, user1, "")
	s.requireCode(err, dErrors.CodeInvalidArgument)
	s.Contains(err.Error(), "content hash must not be empty")

	count, err := s.service.PostCount(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServiceSuite) TestCreatePostWithStrictCIDs() {
	svc := New(s.ledger, s.wallet, s.log, WithRequireCID(true))
	s.issue(user1)

	_, err := svc.CreatePost(s.ctx, user1, "SampleHash")
	s.requireCode(err, dErrors.CodeInvalidArgument)

	id, err := svc.CreatePost(s.ctx, user1, "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG")
	s.Require().NoError(err)
	s.Equal(domain.PostID(1), id)
}

func (s *ServiceSuite) TestCreatePostFromContent() {
	s.issue(user1)

	id, hash, err := s.service.CreatePostFromContent(s.ctx, user1, []byte("gm frens"))
	s.Require().NoError(err)
	want, err := content.Hash([]byte("gm frens"))
	s.Require().NoError(err)
	s.Equal(want, hash)

	post, err := s.service.GetPost(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(want, post.Hash)

	_, _, err = s.service.CreatePostFromContent(s.ctx, user1, nil)
	s.requireCode(err, dErrors.CodeInvalidArgument)
}

func (s *ServiceSuite) TestGetPostNotFound() {
	s.issue(user1)
	s.createPost(user1, "SampleHash")

	for _, id := range []domain.PostID{0, 2, 500} {
		_, err := s.service.GetPost(s.ctx, id)
		s.requireCode(err, dErrors.CodeNotFound)
	}
}

func (s *ServiceSuite) TestListAndBatchPosts() {
	s.issue(user1)
	for _, h := range []string{"a", "b", "c", "d"} {
		s.createPost(user1, h)
	}

	page, err := s.service.ListPosts(s.ctx, 1, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal("b", page[0].Hash)
	s.Equal("c", page[1].Hash)

	all, err := s.service.ListPosts(s.ctx, -5, 0)
	s.Require().NoError(err)
	s.Len(all, 4)

	batch, err := s.service.GetPosts(s.ctx, []domain.PostID{4, 9, 1})
	s.Require().NoError(err)
	s.Require().Len(batch, 2)
	s.Equal("a", batch[0].Hash)
	s.Equal("d", batch[1].Hash)

	tooMany := make([]domain.PostID, maxPageSize+1)
	_, err = s.service.GetPosts(s.ctx, tooMany)
	s.requireCode(err, dErrors.CodeBadRequest)
}
