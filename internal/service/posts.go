// Package service contains the application services for posts and comments.
package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minsu-cho/plaza/internal/convert"
	"github.com/minsu-cho/plaza/internal/errs"
	"github.com/minsu-cho/plaza/internal/model"
	"github.com/minsu-cho/plaza/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Anonymous placeholder identity stamped on content created without a
// session. The snapshot is never reconciled afterwards.
const (
	anonymousAuthor   = "anonymous"
	anonymousAuthorID = "anonymous"
)

// Session provides the authenticated principal for authorship stamping.
// Implemented by *session.Manager.
type Session interface {
	CurrentUser() *model.Principal
}

// PostService defines domain operations on posts.
type PostService interface {
	// Create validates the payload, stamps authorship, and returns the new
	// post's ID. ValidationError on empty trimmed fields, before any store call.
	Create(ctx context.Context, in model.CreatePost) (string, error)
	// List returns all posts ordered by creation time, newest first.
	List(ctx context.Context) ([]model.Post, error)
	// Get returns the post or nil when it does not exist.
	Get(ctx context.Context, id string) (*model.Post, error)
	// Delete removes the post. Ownership is not checked at this layer.
	Delete(ctx context.Context, id string) error
	// ToggleLike adds or removes the current principal from the post's liker
	// set and adjusts the counter. Callers re-fetch to observe the result.
	ToggleLike(ctx context.Context, id string) error
}

type PostServiceImpl struct {
	store   store.Store
	session Session
	logger  *zap.Logger
}

var _ PostService = (*PostServiceImpl)(nil)

// NewPostService constructs PostService with required dependencies.
func NewPostService(st store.Store, sess Session, logger *zap.Logger) *PostServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostServiceImpl{store: st, session: sess, logger: logger}
}

// Create writes a new post stamped with the current principal, or the
// anonymous placeholder when signed out.
func (s *PostServiceImpl) Create(ctx context.Context, in model.CreatePost) (string, error) {
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return "", errs.Validation("title and content are required")
	}
	author, authorID := stampAuthor(s.session.CurrentUser())
	id, err := s.store.Insert(ctx, store.Posts, convert.FromPostInput(in, author, authorID))
	if err != nil {
		return "", err
	}
	s.logger.Debug("post created", zap.String("id", id), zap.String("authorId", authorID))
	return id, nil
}

// List returns all posts, newest first. Each call re-queries the store.
func (s *PostServiceImpl) List(ctx context.Context) ([]model.Post, error) {
	docs, err := s.store.ListOrdered(ctx, store.Posts, store.FieldCreatedAt, store.Desc, nil)
	if err != nil {
		return nil, err
	}
	posts := make([]model.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, convert.ToPost(&docs[i]))
	}
	return posts, nil
}

// Get returns the post, or nil when it does not exist.
func (s *PostServiceImpl) Get(ctx context.Context, id string) (*model.Post, error) {
	doc, err := s.store.GetOne(ctx, store.Posts, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := convert.ToPost(doc)
	return &p, nil
}

// Delete removes the post. Comments are left in place (orphans are a known
// non-goal).
func (s *PostServiceImpl) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, store.Posts, id)
}

// ToggleLike applies the like toggle to the post.
func (s *PostServiceImpl) ToggleLike(ctx context.Context, id string) error {
	return toggleLike(ctx, s.store, s.session, store.Posts, id)
}

// toggleLike is the shared toggle algorithm for posts and comments: read the
// record's liker set, test membership, then send one combined atomic update.
// The read and the write are deliberately not linked transactionally; two
// concurrent toggles by the same principal race, which the backends tolerate
// per primitive but not jointly.
func toggleLike(ctx context.Context, st store.Store, sess Session, collection, id string) error {
	p := sess.CurrentUser()
	if p == nil {
		return errs.Auth("sign in required to like")
	}
	doc, err := st.GetOne(ctx, collection, id)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Store("toggle like", err)
	}
	if err != nil {
		return err
	}

	liked := false
	for _, m := range doc.LikedBy {
		if m == p.UID {
			liked = true
			break
		}
	}

	uid := p.UID
	delta := int64(1)
	u := store.Update{IncLikes: &delta, AddLiked: &uid}
	if liked {
		delta = -1
		u = store.Update{IncLikes: &delta, DelLiked: &uid}
	}
	return st.Update(ctx, collection, id, u)
}

func stampAuthor(p *model.Principal) (author, authorID string) {
	if p == nil {
		return anonymousAuthor, anonymousAuthorID
	}
	author = p.Label()
	if author == "" {
		author = anonymousAuthor
	}
	return author, p.UID
}
