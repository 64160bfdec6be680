package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Media is an attachment on a post
type Media struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Post is a community feed entry
type Post struct {
	ID              int64
	OwnerID         *uuid.UUID
	AuthorName      string
	AuthorHeadline  string
	AuthorAvatarURL *string
	Text            string
	Media           []Media
	LikeCount       int
	CommentCount    int
	CreatedAt       time.Time
}

// Author is the display identity attached to a post
type Author struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Headline  string  `json:"headline"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// PostResponse is the feed representation of a post
type PostResponse struct {
	ID           int64     `json:"id"`
	Author       Author    `json:"author"`
	CreatedAt    time.Time `json:"createdAt"`
	Text         string    `json:"text"`
	Media        []Media   `json:"media"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	Liked        bool      `json:"liked"`
	Bookmarked   bool      `json:"bookmarked"`
}

// ToResponse converts a Post for the feed
func (p *Post) ToResponse() *PostResponse {
	media := p.Media
	if media == nil {
		media = []Media{}
	}
	return &PostResponse{
		ID: p.ID,
		Author: Author{
			ID:        ownerString(p.OwnerID),
			Name:      p.AuthorName,
			Headline:  p.AuthorHeadline,
			AvatarURL: p.AuthorAvatarURL,
		},
		CreatedAt:    p.CreatedAt,
		Text:         p.Text,
		Media:        media,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
	}
}

// Comment is a comment or a one-level reply on a post
type Comment struct {
	ID         int64
	PostID     int64
	ParentID   *int64
	OwnerID    *uuid.UUID
	AuthorName string
	Content    string
	LikeCount  int
	CreatedAt  time.Time
}

// CommentResponse is a comment with its direct replies
type CommentResponse struct {
	ID        int64              `json:"id"`
	PostID    int64              `json:"postId"`
	ParentID  *int64             `json:"parentId"`
	Author    string             `json:"author"`
	AuthorID  string             `json:"authorId"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"createdAt"`
	TimeText  string             `json:"timeText"`
	LikeCount int                `json:"likeCount"`
	Liked     bool               `json:"liked"`
	IsOwner   bool               `json:"isOwner"`
	Replies   []*CommentResponse `json:"replies"`
}

// ToResponse converts a Comment. viewer may be nil for anonymous callers.
func (c *Comment) ToResponse(viewer *uuid.UUID) *CommentResponse {
	return &CommentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Author:    c.AuthorName,
		AuthorID:  ownerString(c.OwnerID),
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		TimeText:  c.CreatedAt.UTC().Format(time.RFC3339),
		LikeCount: c.LikeCount,
		IsOwner:   viewer != nil && c.OwnerID != nil && *viewer == *c.OwnerID,
		Replies:   []*CommentResponse{},
	}
}

// ThreadComments groups comments ordered by creation time into root comments
// carrying their direct replies. Replies whose parent is missing are dropped.
func ThreadComments(comments []*Comment, viewer *uuid.UUID) []*CommentResponse {
	roots := make([]*CommentResponse, 0, len(comments))
	byID := make(map[int64]*CommentResponse, len(comments))
	for _, c := range comments {
		if c.ParentID == nil {
			r := c.ToResponse(viewer)
			roots = append(roots, r)
			byID[c.ID] = r
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c.ToResponse(viewer))
		}
	}
	return roots
}

// NotificationType classifies community notifications
type NotificationType string

// Notification types
const (
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
	NotificationReply   NotificationType = "REPLY"
	NotificationFollow  NotificationType = "FOLLOW"
	NotificationSystem  NotificationType = "SYSTEM"
)

// Notification tells a user that someone interacted with their content
type Notification struct {
	ID          int64            `json:"id"`
	RecipientID uuid.UUID        `json:"-"`
	Type        NotificationType `json:"type"`
	ActorID     string           `json:"actorId"`
	ActorName   *string          `json:"actorName,omitempty"`
	PostID      *int64           `json:"postId,omitempty"`
	CommentID   *int64           `json:"commentId,omitempty"`
	ReplyToName *string          `json:"replyToName,omitempty"`
	PreviewText *string          `json:"previewText,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	Read        bool             `json:"read"`
}

// NotificationMeta drives the unread badge
type NotificationMeta struct {
	IsLoggedIn  bool `json:"isLoggedIn"`
	UnreadCount int  `json:"unreadCount"`
}

// PreviewMaxRunes bounds notification preview text
const PreviewMaxRunes = 160

// TruncatePreview trims text and caps it at PreviewMaxRunes, appending an
// ellipsis when cut. Blank input yields nil.
func TruncatePreview(text string) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= PreviewMaxRunes {
		return &trimmed
	}
	cut := strings.TrimRightFunc(string(runes[:PreviewMaxRunes]), unicode.IsSpace) + "…"
	return &cut
}

func ownerString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
