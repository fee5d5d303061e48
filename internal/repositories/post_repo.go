package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `p.id, p.user_id, p.title, p.content, u.name AS author, p.created_at, p.updated_at`

const postsFrom = `posts p JOIN users u ON u.id = p.user_id`

type PostRepository struct{}

func NewPostRepository() *PostRepository {
	return &PostRepository{}
}

func scanPostRow(scanner rowScanner) (*models.Post, error) {
	var post models.Post

	err := scanner.Scan(
		&post.ID, &post.UserID, &post.Title, &post.Content,
		&post.Author, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &post, nil
}

func scanPostRows(rows pgx.Rows) ([]*models.Post, error) {
	defer rows.Close()

	posts := make([]*models.Post, 0)

	for rows.Next() {
		post, err := scanPostRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepository) GetByID(ctx context.Context, q database.Querier, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM ` + postsFrom + ` WHERE p.id = $1`
	return scanPostRow(q.QueryRow(ctx, query, id))
}

func (r *PostRepository) Create(ctx context.Context, q database.Querier, post *models.Post) (*models.Post, error) {
	post.ID = uuid.New().String()
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	query := `
		INSERT INTO posts (id, user_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := q.Exec(ctx, query,
		post.ID, post.UserID, post.Title, post.Content, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return post, nil
}

// Update touches only the provided columns. Nil means leave as-is.
func (r *PostRepository) Update(ctx context.Context, q database.Querier, id string, title, content *string) error {
	query := `
		UPDATE posts
		SET title = COALESCE($2, title),
			content = COALESCE($3, content),
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, id, title, content)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, q database.Querier, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

func (r *PostRepository) List(ctx context.Context, q database.Querier, opts ListOptions) ([]*models.Post, error) {
	sqlQuery, args, err := buildListQuery(postsTable, opts)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanPostRows(rows)
}
