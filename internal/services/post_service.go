package services

import (
	"context"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
)

// PostRepository defines the post persistence operations the service needs.
type PostRepository interface {
	GetByID(ctx context.Context, q database.Querier, id string) (*models.Post, error)
	Create(ctx context.Context, q database.Querier, post *models.Post) (*models.Post, error)
	Update(ctx context.Context, q database.Querier, id string, title, content *string) error
	Delete(ctx context.Context, q database.Querier, id string) error
	List(ctx context.Context, q database.Querier, opts repositories.ListOptions) ([]*models.Post, error)
}

type PostService struct {
	pool  database.Querier
	units database.UnitSource
	posts PostRepository
}

func NewPostService(pool database.Querier, units database.UnitSource, posts PostRepository) *PostService {
	return &PostService{pool: pool, units: units, posts: posts}
}

func (s *PostService) Create(ctx context.Context, identity *models.Identity, title, content string) (*models.Post, error) {
	unit, err := s.units.Begin(ctx)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:  identity.ID,
		Title:   title,
		Content: content,
		Author:  identity.Name,
	}
	post, err = s.posts.Create(ctx, unit, post)
	if err != nil {
		return nil, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}

	return post, nil
}

func (s *PostService) Get(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, s.pool, postID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Post not found.")
		}
		return nil, err
	}
	return post, nil
}

func (s *PostService) List(ctx context.Context, opts repositories.ListOptions) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx, s.pool, opts)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, models.NewNotFoundError("No matching records.")
	}
	return posts, nil
}

// Update edits a post's title and/or content. Only the owner may edit.
func (s *PostService) Update(ctx context.Context, identity *models.Identity, postID string, title, content *string) (*models.Post, error) {
	if title == nil && content == nil {
		return nil, models.NewValidationError("At least one field is required.")
	}

	unit, err := s.units.Begin(ctx)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, unit, postID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Post not found.")
		}
		return nil, err
	}

	if post.UserID != identity.ID {
		return nil, models.NewForbiddenError("Forbidden. Access denied.")
	}

	if err := s.posts.Update(ctx, unit, postID, title, content); err != nil {
		return nil, err
	}

	updated, err := s.posts.GetByID(ctx, unit, postID)
	if err != nil {
		return nil, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes an owned post; comments go with it through the cascade.
func (s *PostService) Delete(ctx context.Context, identity *models.Identity, postID string) error {
	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	post, err := s.posts.GetByID(ctx, unit, postID)
	if err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Post not found.")
		}
		return err
	}

	if post.UserID != identity.ID {
		return models.NewNotFoundError("Post not found.")
	}

	if err := s.posts.Delete(ctx, unit, postID); err != nil {
		return err
	}

	return unit.Commit(ctx)
}
