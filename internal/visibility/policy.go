// Package visibility は投稿の閲覧可否と、閲覧者に応じた投稿の射影（公開するフィールドの選択）を決定する。
//
// すべての投稿の読み取り経路は、IsVisibleで閲覧可否を判定してからProjectで射影する。
package visibility

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/blogman/internal/editorjs"
	"github.com/hitoshi/blogman/internal/model"
)

// Options は射影の設定。
type Options struct {
	// DisplayOffset は表示用のタイムゾーンオフセット。保存値には適用せず、射影時にのみ適用する。
	DisplayOffset time.Duration
}

// IsOwner は閲覧者が投稿の作成者であるかを返す。未認証の閲覧者は常にfalse。
func IsOwner(post *model.Post, viewer *model.Viewer) bool {
	return viewer != nil && post != nil && viewer.ID == post.AuthorID
}

// IsVisible は閲覧者が投稿を閲覧できるかを返す。
//   - 非アクティブな投稿は作成者のみが閲覧できる
//   - 下書きは作成者のみが閲覧できる
//
// 閲覧できない投稿は呼び出し側で「存在しない」として扱うこと。
func IsVisible(post *model.Post, viewer *model.Viewer) bool {
	if post == nil {
		return false
	}
	if !post.IsActive && !IsOwner(post, viewer) {
		return false
	}
	if post.Status == model.PostStatusDraft && !IsOwner(post, viewer) {
		return false
	}
	return true
}

// AuthorRef は投稿・コメントの作成者の参照。
type AuthorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CommentView はコメントの表示用の射影。
type CommentView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    AuthorRef `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostView は閲覧者に応じて射影された投稿。
// Fullがfalseの場合（未認証の閲覧者）は限定されたフィールドのみがエンコードされる。
type PostView struct {
	ID            string
	Title         string
	Content       editorjs.Content
	Slug          string
	Author        AuthorRef
	Tags          []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LikesCount    int
	CommentsCount int

	Full       bool
	Status     model.PostStatus
	IsActive   bool
	CoverImage *string
	Likes      []string
	Comments   []CommentView
	// IsLiked は認証済みの閲覧者の場合のみ設定される。
	IsLiked *bool
}

type publicPostJSON struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Content       editorjs.Content `json:"content"`
	Slug          string           `json:"slug"`
	Author        AuthorRef        `json:"author"`
	Tags          []string         `json:"tags"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	LikesCount    int              `json:"likesCount"`
	CommentsCount int              `json:"commentsCount"`
}

type fullPostJSON struct {
	publicPostJSON
	Status     model.PostStatus `json:"status"`
	IsActive   bool             `json:"isActive"`
	CoverImage *string          `json:"coverImage"`
	Likes      []string         `json:"likes"`
	Comments   []CommentView    `json:"comments"`
	IsLiked    *bool            `json:"isLiked,omitempty"`
}

// MarshalJSON は射影の種類に応じてフィールドを選んでエンコードする。
func (v PostView) MarshalJSON() ([]byte, error) {
	pub := publicPostJSON{
		ID:            v.ID,
		Title:         v.Title,
		Content:       v.Content,
		Slug:          v.Slug,
		Author:        v.Author,
		Tags:          v.Tags,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
		LikesCount:    v.LikesCount,
		CommentsCount: v.CommentsCount,
	}
	if !v.Full {
		return json.Marshal(pub)
	}
	return json.Marshal(fullPostJSON{
		publicPostJSON: pub,
		Status:         v.Status,
		IsActive:       v.IsActive,
		CoverImage:     v.CoverImage,
		Likes:          v.Likes,
		Comments:       v.Comments,
		IsLiked:        v.IsLiked,
	})
}

// Project は投稿を閲覧者に応じて射影する。閲覧可否の判定はIsVisibleで事前に行うこと。
//   - 認証済みの閲覧者にはcomments・likes・isLikedなどを含む完全な射影を返す
//   - 未認証の閲覧者には {id,title,content,slug,author,tags,createdAt,updatedAt,likesCount,commentsCount} のみを返す
//   - likesCount・commentsCountは常にlikes・commentsの件数から算出する
func Project(post *model.Post, viewer *model.Viewer, opts Options) PostView {
	zone := displayZone(opts.DisplayOffset)

	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}

	view := PostView{
		ID:            post.ID,
		Title:         post.Title,
		Content:       post.Content,
		Slug:          post.Slug,
		Author:        AuthorRef{ID: post.AuthorID, Name: post.AuthorName},
		Tags:          tags,
		CreatedAt:     post.CreatedAt.In(zone),
		UpdatedAt:     post.UpdatedAt.In(zone),
		LikesCount:    len(post.Likes),
		CommentsCount: len(post.Comments),
	}
	if viewer == nil {
		return view
	}

	likes := post.Likes
	if likes == nil {
		likes = []string{}
	}
	comments := make([]CommentView, len(post.Comments))
	for i, c := range post.Comments {
		comments[i] = CommentView{
			ID:        c.ID,
			Content:   c.Content,
			Author:    AuthorRef{ID: c.AuthorID, Name: c.AuthorName},
			CreatedAt: c.CreatedAt.In(zone),
			UpdatedAt: c.UpdatedAt.In(zone),
		}
	}
	liked := post.IsLikedBy(viewer.ID)

	view.Full = true
	view.Status = post.Status
	view.IsActive = post.IsActive
	view.CoverImage = post.CoverImage
	view.Likes = likes
	view.Comments = comments
	view.IsLiked = &liked
	return view
}

// ToPublicView は未認証の閲覧者向けの射影を返す。
func ToPublicView(post *model.Post, opts Options) PostView {
	return Project(post, nil, opts)
}

// displayZone はオフセットから固定のタイムゾーンを生成する。時刻の瞬間は変えず、表示上の地域時刻のみを変える。
func displayZone(offset time.Duration) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	hours := int(offset / time.Hour)
	minutes := int((offset % time.Hour) / time.Minute)
	name := fmt.Sprintf("UTC%+d", hours)
	if minutes != 0 {
		if minutes < 0 {
			minutes = -minutes
		}
		name = fmt.Sprintf("UTC%+d:%02d", hours, minutes)
	}
	return time.FixedZone(name, int(offset/time.Second))
}
