package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/database"
	"github.com/greencoach/greencoach-service/internal/models"
)

// ErrCommentNotFound is returned when a comment does not exist
var ErrCommentNotFound = errors.New("comment not found")

// CommentRepository defines the interface for comment data access.
// Create and Delete keep posts.comment_count in step.
type CommentRepository interface {
	// Create inserts the comment and increments the post's comment count
	Create(ctx context.Context, comment *models.Comment) error

	GetByID(ctx context.Context, id int64) (*models.Comment, error)

	// ListByPost returns every comment of the post in creation order
	ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error)

	// AdjustLikes adds delta to the like count, never going below zero
	AdjustLikes(ctx context.Context, id int64, delta int) (*models.Comment, error)

	// DeleteWithReplies removes the comment and its replies and returns how many rows went
	DeleteWithReplies(ctx context.Context, id int64) (int, error)
}

const commentColumns = `id, post_id, parent_id, owner_id, author_name, content, like_count, created_at`

// PostgresCommentRepository implements CommentRepository using PostgreSQL
type PostgresCommentRepository struct {
	db *database.DB
}

// NewPostgresCommentRepository creates a new PostgreSQL comment repository
func NewPostgresCommentRepository(db *database.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// Create inserts the comment in the same transaction as the count bump
func (r *PostgresCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1`, comment.PostID)
	if err != nil {
		return fmt.Errorf("failed to update comment count: %w", err)
	}
	if err := expectOneRow(result, ErrPostNotFound); err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO comments (post_id, parent_id, owner_id, author_name, content, like_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		comment.PostID, nullInt64(comment.ParentID), nullUUID(comment.OwnerID),
		comment.AuthorName, comment.Content, comment.LikeCount, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment by ID
func (r *PostgresCommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

// ListByPost returns the post's comments oldest first
func (r *PostgresCommentRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = $1 ORDER BY created_at, id`, postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

// AdjustLikes moves the like count by delta, floored at zero
func (r *PostgresCommentRepository) AdjustLikes(ctx context.Context, id int64, delta int) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, `
		UPDATE comments SET like_count = GREATEST(like_count + $2, 0)
		WHERE id = $1
		RETURNING `+commentColumns, id, delta,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment likes: %w", err)
	}
	return c, nil
}

// DeleteWithReplies deletes replies first, then the comment, then lowers the post count
func (r *PostgresCommentRepository) DeleteWithReplies(ctx context.Context, id int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var postID int64
	if err := tx.QueryRowContext(ctx, `SELECT post_id FROM comments WHERE id = $1 FOR UPDATE`, id).Scan(&postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrCommentNotFound
		}
		return 0, fmt.Errorf("failed to lock comment: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE parent_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete replies: %w", err)
	}
	replies, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return 0, fmt.Errorf("failed to delete comment: %w", err)
	}

	removed := int(replies) + 1
	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET comment_count = GREATEST(comment_count - $2, 0) WHERE id = $1`, postID, removed,
	); err != nil {
		return 0, fmt.Errorf("failed to update comment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return removed, nil
}

func scanComment(row rowScanner) (*models.Comment, error) {
	c := &models.Comment{}
	var parent sql.NullInt64
	var owner uuid.NullUUID

	if err := row.Scan(&c.ID, &c.PostID, &parent, &owner, &c.AuthorName, &c.Content, &c.LikeCount, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ParentID = int64Ptr(parent)
	c.OwnerID = uuidPtr(owner)
	return c, nil
}

// MockCommentRepository is a mock implementation of CommentRepository for testing
type MockCommentRepository struct {
	CreateFunc            func(ctx context.Context, comment *models.Comment) error
	GetByIDFunc           func(ctx context.Context, id int64) (*models.Comment, error)
	ListByPostFunc        func(ctx context.Context, postID int64) ([]*models.Comment, error)
	AdjustLikesFunc       func(ctx context.Context, id int64, delta int) (*models.Comment, error)
	DeleteWithRepliesFunc func(ctx context.Context, id int64) (int, error)
}

// NewMockCommentRepository creates a mock with no comments
func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{
		CreateFunc: func(_ context.Context, c *models.Comment) error {
			c.ID = 1
			return nil
		},
		GetByIDFunc: func(_ context.Context, _ int64) (*models.Comment, error) {
			return nil, ErrCommentNotFound
		},
		ListByPostFunc: func(_ context.Context, _ int64) ([]*models.Comment, error) {
			return []*models.Comment{}, nil
		},
		AdjustLikesFunc: func(_ context.Context, _ int64, _ int) (*models.Comment, error) {
			return nil, ErrCommentNotFound
		},
		DeleteWithRepliesFunc: func(_ context.Context, _ int64) (int, error) {
			return 0, ErrCommentNotFound
		},
	}
}

// Create implements CommentRepository.Create
func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return m.CreateFunc(ctx, comment)
}

// GetByID implements CommentRepository.GetByID
func (m *MockCommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	return m.GetByIDFunc(ctx, id)
}

// ListByPost implements CommentRepository.ListByPost
func (m *MockCommentRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	return m.ListByPostFunc(ctx, postID)
}

// AdjustLikes implements CommentRepository.AdjustLikes
func (m *MockCommentRepository) AdjustLikes(ctx context.Context, id int64, delta int) (*models.Comment, error) {
	return m.AdjustLikesFunc(ctx, id, delta)
}

// DeleteWithReplies implements CommentRepository.DeleteWithReplies
func (m *MockCommentRepository) DeleteWithReplies(ctx context.Context, id int64) (int, error) {
	return m.DeleteWithRepliesFunc(ctx, id)
}
