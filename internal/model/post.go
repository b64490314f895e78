package model

import (
	"time"

	"github.com/hitoshi/blogman/internal/editorjs"
)

// PostStatus は投稿のライフサイクル上の状態を表す。
type PostStatus string

const (
	// PostStatusDraft は下書き。作成者のみが閲覧できる。
	PostStatusDraft PostStatus = "draft"
	// PostStatusPublished は公開済み。
	PostStatusPublished PostStatus = "published"
	// PostStatusArchived はアーカイブ済み。一覧には表示されないがスラッグで参照できる。
	PostStatusArchived PostStatus = "archived"
)

// IsValid は状態が定義済みの値かどうかを返す。
func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// Post はブログの投稿を表す。
// Slugは作成時に一度だけ割り当てられ、以後変更されない。
// CreatedAt/UpdatedAtはUTCで保持し、表示用のオフセットは射影時にのみ適用する。
type Post struct {
	ID         string
	Title      string
	Content    editorjs.Content
	Slug       string
	AuthorID   string
	AuthorName string
	Tags       []string
	Status     PostStatus
	IsActive   bool
	CoverImage *string
	Likes      []string // いいねしたユーザーID
	Comments   []Comment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsLikedBy はユーザーが投稿にいいねしているかを返す。
func (p *Post) IsLikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Comment は投稿へのコメントを表す。コメントは追記のみで、編集・削除はできない。
type Comment struct {
	ID         string
	PostID     string
	Content    string
	AuthorID   string
	AuthorName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
