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

const commentColumns = `c.id, c.post_id, c.user_id, c.content, u.name AS author, c.created_at`

const commentsFrom = `comments c JOIN users u ON u.id = c.user_id`

type CommentRepository struct{}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{}
}

func scanCommentRow(scanner rowScanner) (*models.Comment, error) {
	var comment models.Comment

	err := scanner.Scan(
		&comment.ID, &comment.PostID, &comment.UserID,
		&comment.Content, &comment.Author, &comment.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &comment, nil
}

func scanCommentRows(rows pgx.Rows) ([]*models.Comment, error) {
	defer rows.Close()

	comments := make([]*models.Comment, 0)

	for rows.Next() {
		comment, err := scanCommentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return comments, nil
}

func (r *CommentRepository) GetByID(ctx context.Context, q database.Querier, postID, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM ` + commentsFrom + ` WHERE c.id = $1 AND c.post_id = $2`
	return scanCommentRow(q.QueryRow(ctx, query, id, postID))
}

func (r *CommentRepository) Create(ctx context.Context, q database.Querier, comment *models.Comment) (*models.Comment, error) {
	comment.ID = uuid.New().String()
	comment.CreatedAt = time.Now()

	query := `
		INSERT INTO comments (id, post_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := q.Exec(ctx, query,
		comment.ID, comment.PostID, comment.UserID, comment.Content, comment.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return comment, nil
}

func (r *CommentRepository) UpdateContent(ctx context.Context, q database.Querier, id, content string) error {
	tag, err := q.Exec(ctx, `UPDATE comments SET content = $2 WHERE id = $1`, id, content)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, q database.Querier, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

// ListForPost returns the post's comments shaped by the query options.
func (r *CommentRepository) ListForPost(ctx context.Context, q database.Querier, postID string, opts ListOptions) ([]*models.Comment, error) {
	sqlQuery, args, err := buildListQuery(commentsTable, opts, filter{expr: "c.post_id", op: "=", value: postID})
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanCommentRows(rows)
}
