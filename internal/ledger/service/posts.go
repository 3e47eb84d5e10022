package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"mintpress/internal/content"
	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/internal/ledger/store"
	"mintpress/pkg/domain"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/requestcontext"
)

// CreatePost records a post by author referencing contentHash. The author
// must hold at least one credential; that is checked before the hash.
func (s *Service) CreatePost(ctx context.Context, author domain.Address, contentHash string) (id domain.PostID, err error) {
	ctx, end := s.start(ctx, "create_post", attribute.String("account", author.String()))
	defer func() { end(err) }()

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		held, err := st.Credentials.CountByOwner(ctx, author)
		if err != nil {
			return internalError(err, "failed to count credentials")
		}
		if held == 0 {
			return dErrors.New(dErrors.CodeUnauthorized, "must hold a credential to post")
		}
		if contentHash == "" {
			return dErrors.New(dErrors.CodeInvalidArgument, "content hash must not be empty")
		}
		if s.requireCID {
			if err := content.Validate(contentHash); err != nil {
				return err
			}
		}

		next, err := st.Posts.NextID(ctx)
		if err != nil {
			return internalError(err, "failed to allocate post id")
		}
		post, err := models.NewPost(next, contentHash, author, now)
		if err != nil {
			return err
		}
		if err := st.Posts.Create(ctx, post); err != nil {
			return internalError(err, "failed to store post")
		}
		if _, err := st.Events.Append(ctx, events.PostCreated(next, contentHash, author, now)); err != nil {
			return internalError(err, "failed to record post")
		}
		id = next
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.IncrementPostsCreated()
	s.logger.InfoContext(ctx, "post created", s.logAttrs(ctx,
		"post_id", id,
		"author", author.String(),
		"hash", contentHash,
	)...)
	return id, nil
}

// CreatePostFromContent hashes body into a CIDv1 and posts that hash.
func (s *Service) CreatePostFromContent(ctx context.Context, author domain.Address, body []byte) (domain.PostID, string, error) {
	if len(body) == 0 {
		return 0, "", dErrors.New(dErrors.CodeInvalidArgument, "content must not be empty")
	}
	hash, err := content.Hash(body)
	if err != nil {
		return 0, "", internalError(err, "failed to hash content")
	}
	id, err := s.CreatePost(ctx, author, hash)
	return id, hash, err
}

// GetPost returns post id. Ids outside [1, PostCount] are NotFound.
func (s *Service) GetPost(ctx context.Context, id domain.PostID) (post *models.Post, err error) {
	ctx, end := s.start(ctx, "get_post", attribute.Int64("post_id", int64(id)))
	defer func() { end(err) }()

	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "post not found")
	}
	err = s.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		found, err := st.Posts.FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return dErrors.New(dErrors.CodeNotFound, "post not found")
			}
			return internalError(err, "failed to load post")
		}
		post = found
		return nil
	})
	return post, err
}

// GetPosts returns the existing posts among ids, ordered by id.
func (s *Service) GetPosts(ctx context.Context, ids []domain.PostID) (posts []*models.Post, err error) {
	ctx, end := s.start(ctx, "get_posts", attribute.Int("count", len(ids)))
	defer func() { end(err) }()

	if len(ids) > maxPageSize {
		return nil, dErrors.New(dErrors.CodeBadRequest, "too many post ids")
	}
	err = s.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		posts, err = st.Posts.FindByIDs(ctx, ids)
		return internalError(err, "failed to load posts")
	})
	return posts, err
}

// ListPosts pages through posts in id order.
func (s *Service) ListPosts(ctx context.Context, offset, limit int) (posts []*models.Post, err error) {
	ctx, end := s.start(ctx, "list_posts")
	defer func() { end(err) }()

	offset, limit = pageBounds(offset, limit)
	err = s.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		posts, err = st.Posts.List(ctx, offset, limit)
		return internalError(err, "failed to list posts")
	})
	return posts, err
}

// PostCount returns how many posts were ever created.
func (s *Service) PostCount(ctx context.Context) (n uint64, err error) {
	ctx, end := s.start(ctx, "post_count")
	defer func() { end(err) }()

	err = s.tx.View(ctx, func(ctx context.Context, st store.Stores) error {
		n, err = st.Posts.Count(ctx)
		return internalError(err, "failed to count posts")
	})
	return n, err
}
