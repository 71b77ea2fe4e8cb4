package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/minsu-cho/plaza/internal/convert"
	"github.com/minsu-cho/plaza/internal/errs"
	"github.com/minsu-cho/plaza/internal/model"
	"github.com/minsu-cho/plaza/internal/store"
)

// CommentService defines domain operations on comments scoped to a post.
type CommentService interface {
	// Create validates the payload, stamps authorship, and returns the new
	// comment's ID.
	Create(ctx context.Context, postID string, in model.CreateComment) (string, error)
	// List returns the post's comments ordered by creation time, oldest first.
	List(ctx context.Context, postID string) ([]model.Comment, error)
	// Delete removes the comment. Ownership is not checked at this layer.
	Delete(ctx context.Context, id string) error
	// ToggleLike applies the like toggle to the comment.
	ToggleLike(ctx context.Context, id string) error
}

type CommentServiceImpl struct {
	store   store.Store
	session Session
	logger  *zap.Logger
}

var _ CommentService = (*CommentServiceImpl)(nil)

// NewCommentService constructs CommentService with required dependencies.
func NewCommentService(st store.Store, sess Session, logger *zap.Logger) *CommentServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentServiceImpl{store: st, session: sess, logger: logger}
}

// Create writes a new comment under postID.
func (s *CommentServiceImpl) Create(ctx context.Context, postID string, in model.CreateComment) (string, error) {
	if postID == "" {
		return "", errs.Validation("post id is required")
	}
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return "", errs.Validation("content is required")
	}
	author, authorID := stampAuthor(s.session.CurrentUser())
	id, err := s.store.Insert(ctx, store.Comments, convert.FromCommentInput(in, postID, author, authorID))
	if err != nil {
		return "", err
	}
	s.logger.Debug("comment created", zap.String("id", id), zap.String("postId", postID))
	return id, nil
}

// List returns the post's comments, oldest first. Each call re-queries the
// store.
func (s *CommentServiceImpl) List(ctx context.Context, postID string) ([]model.Comment, error) {
	docs, err := s.store.ListOrdered(ctx, store.Comments, store.FieldCreatedAt, store.Asc,
		&store.Filter{Field: store.FieldPostID, Value: postID})
	if err != nil {
		return nil, err
	}
	comments := make([]model.Comment, 0, len(docs))
	for i := range docs {
		comments = append(comments, convert.ToComment(&docs[i]))
	}
	return comments, nil
}

// Get returns the comment, or nil when it does not exist.
func (s *CommentServiceImpl) Get(ctx context.Context, id string) (*model.Comment, error) {
	doc, err := s.store.GetOne(ctx, store.Comments, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := convert.ToComment(doc)
	return &c, nil
}

// Delete removes the comment.
func (s *CommentServiceImpl) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, store.Comments, id)
}

// ToggleLike applies the like toggle to the comment.
func (s *CommentServiceImpl) ToggleLike(ctx context.Context, id string) error {
	return toggleLike(ctx, s.store, s.session, store.Comments, id)
}

