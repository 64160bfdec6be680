package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greencoach/greencoach-service/internal/database"
	"github.com/greencoach/greencoach-service/internal/models"
)

// ErrPostNotFound is returned when a post does not exist
var ErrPostNotFound = errors.New("post not found")

// PostRepository defines the interface for community post data access
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int64) (*models.Post, error)

	// List returns up to limit posts, newest first
	List(ctx context.Context, limit int) ([]*models.Post, error)

	// AdjustLikes adds delta to the like count, never going below zero
	AdjustLikes(ctx context.Context, id int64, delta int) (*models.Post, error)
}

const postColumns = `
	id, owner_id, author_name, author_headline, author_avatar_url,
	text, media, like_count, comment_count, created_at`

// PostgresPostRepository implements PostRepository using PostgreSQL
type PostgresPostRepository struct {
	db *database.DB
}

// NewPostgresPostRepository creates a new PostgreSQL post repository
func NewPostgresPostRepository(db *database.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// Create inserts the post and fills in its generated ID
func (r *PostgresPostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	if post.Media == nil {
		post.Media = []models.Media{}
	}
	media, err := json.Marshal(post.Media)
	if err != nil {
		return fmt.Errorf("failed to encode media: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO posts (owner_id, author_name, author_headline, author_avatar_url, text, media, like_count, comment_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		nullUUID(post.OwnerID), post.AuthorName, post.AuthorHeadline, nullString(post.AuthorAvatarURL),
		post.Text, string(media), post.LikeCount, post.CommentCount, post.CreatedAt,
	).Scan(&post.ID)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by ID
func (r *PostgresPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// List returns the newest posts
func (r *PostgresPostRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

// AdjustLikes moves the like count by delta, floored at zero
func (r *PostgresPostRepository) AdjustLikes(ctx context.Context, id int64, delta int) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, `
		UPDATE posts SET like_count = GREATEST(like_count + $2, 0)
		WHERE id = $1
		RETURNING `+postColumns, id, delta,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to update post likes: %w", err)
	}
	return post, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	post := &models.Post{}
	var owner uuid.NullUUID
	var avatar sql.NullString
	var media []byte

	err := row.Scan(
		&post.ID, &owner, &post.AuthorName, &post.AuthorHeadline, &avatar,
		&post.Text, &media, &post.LikeCount, &post.CommentCount, &post.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	post.OwnerID = uuidPtr(owner)
	post.AuthorAvatarURL = stringPtr(avatar)
	if err := json.Unmarshal(media, &post.Media); err != nil {
		return nil, fmt.Errorf("failed to decode media: %w", err)
	}
	return post, nil
}

// MockPostRepository is a mock implementation of PostRepository for testing
type MockPostRepository struct {
	CreateFunc      func(ctx context.Context, post *models.Post) error
	GetByIDFunc     func(ctx context.Context, id int64) (*models.Post, error)
	ListFunc        func(ctx context.Context, limit int) ([]*models.Post, error)
	AdjustLikesFunc func(ctx context.Context, id int64, delta int) (*models.Post, error)
}

// NewMockPostRepository creates a mock with an empty feed
func NewMockPostRepository() *MockPostRepository {
	return &MockPostRepository{
		CreateFunc: func(_ context.Context, post *models.Post) error {
			post.ID = 1
			return nil
		},
		GetByIDFunc: func(_ context.Context, _ int64) (*models.Post, error) {
			return nil, ErrPostNotFound
		},
		ListFunc: func(_ context.Context, _ int) ([]*models.Post, error) {
			return []*models.Post{}, nil
		},
		AdjustLikesFunc: func(_ context.Context, _ int64, _ int) (*models.Post, error) {
			return nil, ErrPostNotFound
		},
	}
}

// Create implements PostRepository.Create
func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	return m.CreateFunc(ctx, post)
}

// GetByID implements PostRepository.GetByID
func (m *MockPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return m.GetByIDFunc(ctx, id)
}

// List implements PostRepository.List
func (m *MockPostRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	return m.ListFunc(ctx, limit)
}

// AdjustLikes implements PostRepository.AdjustLikes
func (m *MockPostRepository) AdjustLikes(ctx context.Context, id int64, delta int) (*models.Post, error) {
	return m.AdjustLikesFunc(ctx, id, delta)
}
