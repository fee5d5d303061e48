package services

import (
	"context"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
)

// CommentRepository defines the comment persistence operations the service
// needs.
type CommentRepository interface {
	GetByID(ctx context.Context, q database.Querier, postID, id string) (*models.Comment, error)
	Create(ctx context.Context, q database.Querier, comment *models.Comment) (*models.Comment, error)
	UpdateContent(ctx context.Context, q database.Querier, id, content string) error
	Delete(ctx context.Context, q database.Querier, id string) error
	ListForPost(ctx context.Context, q database.Querier, postID string, opts repositories.ListOptions) ([]*models.Comment, error)
}

type CommentService struct {
	pool     database.Querier
	units    database.UnitSource
	comments CommentRepository
	posts    PostRepository
}

func NewCommentService(pool database.Querier, units database.UnitSource, comments CommentRepository, posts PostRepository) *CommentService {
	return &CommentService{pool: pool, units: units, comments: comments, posts: posts}
}

func (s *CommentService) Create(ctx context.Context, identity *models.Identity, postID, content string) (*models.Comment, error) {
	unit, err := s.units.Begin(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.posts.GetByID(ctx, unit, postID); err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Post not found.")
		}
		return nil, err
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  identity.ID,
		Content: content,
		Author:  identity.Name,
	}
	comment, err = s.comments.Create(ctx, unit, comment)
	if err != nil {
		return nil, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *CommentService) Get(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, s.pool, postID, commentID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Comment not found.")
		}
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) ListForPost(ctx context.Context, postID string, opts repositories.ListOptions) ([]*models.Comment, error) {
	comments, err := s.comments.ListForPost(ctx, s.pool, postID, opts)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, models.NewNotFoundError("No comments found.")
	}
	return comments, nil
}

// Update edits an owned comment's content.
func (s *CommentService) Update(ctx context.Context, identity *models.Identity, postID, commentID, content string) (*models.Comment, error) {
	unit, err := s.units.Begin(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := s.comments.GetByID(ctx, unit, postID, commentID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Comment not found.")
		}
		return nil, err
	}

	if comment.UserID != identity.ID {
		return nil, models.NewNotFoundError("Comment not found.")
	}

	if err := s.comments.UpdateContent(ctx, unit, commentID, content); err != nil {
		return nil, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}

	comment.Content = content
	return comment, nil
}

// Delete removes an owned comment.
func (s *CommentService) Delete(ctx context.Context, identity *models.Identity, postID, commentID string) error {
	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	comment, err := s.comments.GetByID(ctx, unit, postID, commentID)
	if err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Comment not found.")
		}
		return err
	}

	if comment.UserID != identity.ID {
		return models.NewNotFoundError("Comment not found.")
	}

	if err := s.comments.Delete(ctx, unit, commentID); err != nil {
		return err
	}

	return unit.Commit(ctx)
}
