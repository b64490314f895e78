// Package repository はデータ永続化のインターフェースとPostgreSQL実装を定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/blogman/internal/model"
)

var (
	// ErrSlugConflict は投稿の挿入時にスラッグの一意制約に違反したことを示す。
	// 呼び出し側はスラッグを再生成して再試行すること。
	ErrSlugConflict = errors.New("repository: slug already exists")

	// ErrEmailTaken はユーザー作成時にメールアドレスの一意制約に違反したことを示す。
	ErrEmailTaken = errors.New("repository: email already registered")
)

// PostFilter は投稿一覧の絞り込み条件。
type PostFilter struct {
	// PublicOnly はアクティブかつ公開済みの投稿に限定する。
	PublicOnly bool
	// AuthorID は指定した作成者の投稿に限定する。空の場合は絞り込まない。
	AuthorID string
	// SlugContains はスラッグに指定文字列を含む投稿に限定する（大文字小文字を区別しない）。
	SlugContains string
}

// PostRepository は投稿データの永続化インターフェース。
// いいね・コメント・アクティブ状態の更新は、読み込み→変更→書き戻しではなく
// 単一のアトミックな操作として提供する。
type PostRepository interface {
	// FindBySlug は指定スラッグの投稿を取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// ExistsBySlug は指定スラッグの投稿が存在するかを返す。
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// Insert は投稿を作成する。スラッグが重複する場合はErrSlugConflictを返す。
	Insert(ctx context.Context, post *model.Post) error

	// ToggleLike はユーザーのいいねを切り替え、切り替え後にいいねしているかを返す。
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)

	// AppendComment はコメントを追記する。
	AppendComment(ctx context.Context, comment *model.Comment) error

	// ToggleActive は投稿のアクティブ状態を反転し、更新後の投稿を返す。
	// 見つからない場合はnilを返す。
	ToggleActive(ctx context.Context, postID string) (*model.Post, error)

	// FindPage は条件に一致する投稿をcreated_at降順で取得し、総件数とともに返す。
	FindPage(ctx context.Context, filter PostFilter, limit, offset int) ([]*model.Post, int, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrEmailTakenを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}
