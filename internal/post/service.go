// Package post は投稿の作成・閲覧・いいね・コメント・公開状態の切り替えを提供する。
//
// 読み取り経路はすべてvisibility.IsVisibleで閲覧可否を判定し、
// visibility.Projectで閲覧者に応じた射影を返す。
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/blogman/internal/editorjs"
	"github.com/hitoshi/blogman/internal/metrics"
	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
	"github.com/hitoshi/blogman/internal/slug"
	"github.com/hitoshi/blogman/internal/storage"
	"github.com/hitoshi/blogman/internal/visibility"
)

const (
	maxTitleLength   = 300
	maxCommentLength = 5000
	maxTags          = 20
)

// ContentSanitizer は投稿本文とコメントのサニタイズを行う。
type ContentSanitizer interface {
	Sanitize(rawHTML string) string
	SanitizeContent(c editorjs.Content) editorjs.Content
}

// ContentRenderer はサニタイズ済みの本文をHTMLに変換する。
type ContentRenderer interface {
	RenderContent(c editorjs.Content) string
}

// CoverUploader はカバー画像を保存して公開URLを返す。
type CoverUploader interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Service は投稿に関するユースケースを提供する。
type Service struct {
	repo      repository.PostRepository
	sanitizer ContentSanitizer
	renderer  ContentRenderer
	uploader  CoverUploader
	assigner  *slug.Assigner
	metrics   metrics.MetricsCollector
	opts      visibility.Options
	now       func() time.Time
}

// Option はServiceの任意設定。
type Option func(*Service)

// WithSlugAssigner はスラッグの割り当てに使うAssignerを指定する。
func WithSlugAssigner(a *slug.Assigner) Option {
	return func(s *Service) { s.assigner = a }
}

// WithClock は現在時刻の取得関数を指定する。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics はメトリクスの記録先を指定する。
func WithMetrics(mc metrics.MetricsCollector) Option {
	return func(s *Service) { s.metrics = mc }
}

// NewService はServiceを生成する。uploaderがnilの場合、カバー画像付きの作成は検証エラーになる。
func NewService(
	repo repository.PostRepository,
	sanitizer ContentSanitizer,
	renderer ContentRenderer,
	uploader CoverUploader,
	opts visibility.Options,
	options ...Option,
) *Service {
	s := &Service{
		repo:      repo,
		sanitizer: sanitizer,
		renderer:  renderer,
		uploader:  uploader,
		assigner:  slug.NewAssigner(nil),
		metrics:   metrics.Nop{},
		opts:      opts,
		now:       time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// CreateInput は投稿作成の入力。
type CreateInput struct {
	Title      string
	Content    editorjs.Content
	Tags       []string
	CoverImage string // data URI。空の場合はカバー画像なし
	Status     model.PostStatus
}

// Create は投稿を作成し、作成者向けの射影を返す。
// スラッグはタイトルから導出し、挿入時に一意制約違反となった場合は
// slug.MaxAttempts回まで割り当てからやり直す。
func (s *Service) Create(ctx context.Context, viewer *model.Viewer, in CreateInput) (*visibility.PostView, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で入力してください", maxTitleLength))
	}
	if in.Content.IsEmpty() {
		return nil, model.NewValidationError("本文は必須です")
	}

	status := in.Status
	if status == "" {
		status = model.PostStatusDraft
	}
	if status != model.PostStatusDraft && status != model.PostStatusPublished {
		return nil, model.NewValidationError(fmt.Sprintf("作成時に指定できない状態です: %s", status))
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	var cover *string
	if in.CoverImage != "" {
		url, err := s.uploadCover(ctx, in.CoverImage)
		if err != nil {
			return nil, err
		}
		cover = &url
	}

	now := s.now().UTC()
	post := &model.Post{
		Title:      title,
		Content:    s.sanitizer.SanitizeContent(in.Content),
		AuthorID:   viewer.ID,
		AuthorName: viewer.Name,
		Tags:       tags,
		Status:     status,
		IsActive:   true,
		CoverImage: cover,
		Likes:      []string{},
		Comments:   []model.Comment{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.insertWithUniqueSlug(ctx, post); err != nil {
		return nil, err
	}

	s.metrics.RecordPostCreated()
	slog.Info("投稿を作成しました",
		slog.String("post_id", post.ID),
		slog.String("slug", post.Slug),
		slog.String("user_id", viewer.ID),
	)

	view := visibility.Project(post, viewer, s.opts)
	return &view, nil
}

// insertWithUniqueSlug はスラッグを割り当てて投稿を挿入する。
// 存在確認と挿入の間に別の投稿が同じスラッグを取得した場合は割り当てからやり直す。
func (s *Service) insertWithUniqueSlug(ctx context.Context, post *model.Post) error {
	base := slug.DeriveBase(post.Title)

	for attempt := 0; attempt < slug.MaxAttempts; attempt++ {
		candidate, err := s.assigner.AssignUnique(ctx, base, s.repo.ExistsBySlug)
		if errors.Is(err, slug.ErrExhausted) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to assign slug: %w", err)
		}

		post.Slug = candidate
		err = s.repo.Insert(ctx, post)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrSlugConflict) {
			return fmt.Errorf("failed to create post: %w", err)
		}

		s.metrics.RecordSlugRetry()
		slog.Warn("スラッグが競合したため再試行します",
			slog.String("slug", candidate),
			slog.Int("attempt", attempt+1),
		)
	}

	s.metrics.RecordSlugExhausted()
	slog.Error("一意なスラッグを生成できませんでした",
		slog.String("base", base),
		slog.String("error", slug.ErrExhausted.Error()),
	)
	return model.NewSlugGenerationExhaustedError()
}

// uploadCover はdata URI形式のカバー画像を保存し、公開URLを返す。
func (s *Service) uploadCover(ctx context.Context, dataURI string) (string, error) {
	if s.uploader == nil {
		return "", model.NewValidationError("カバー画像のアップロードは利用できません")
	}

	data, mimeType, err := storage.DecodeDataURI(dataURI)
	if err != nil {
		return "", model.NewValidationError("カバー画像はdata URI形式で指定してください")
	}

	url, err := s.uploader.Upload(ctx, data, mimeType)
	switch {
	case err == nil:
		return url, nil
	case errors.Is(err, storage.ErrUnsupportedMimeType):
		return "", model.NewUnsupportedMediaTypeError(mimeType)
	case errors.Is(err, storage.ErrNotImage):
		return "", model.NewValidationError("カバー画像を読み取れません")
	case errors.Is(err, storage.ErrFileTooLarge):
		return "", model.NewValidationError("カバー画像のサイズが大きすぎます")
	default:
		return "", fmt.Errorf("failed to upload cover image: %w", err)
	}
}

// normalizeTags はタグの前後の空白を除去し、空のタグと重複を取り除く。順序は最初の出現順を保つ。
func normalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, model.NewValidationError(fmt.Sprintf("タグは%d個まで指定できます", maxTags))
	}
	return out, nil
}

// List はアクティブかつ公開済みの投稿を新しい順に返す。
func (s *Service) List(ctx context.Context, viewer *model.Viewer, page PageRequest) (*PostPage, error) {
	return s.findPage(ctx, viewer, repository.PostFilter{PublicOnly: true}, page)
}

// Search はスラッグに指定文字列を含む（大文字小文字を区別しない）公開済みの投稿を返す。
func (s *Service) Search(ctx context.Context, viewer *model.Viewer, query string, page PageRequest) (*PostPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.NewValidationError("slugパラメータは必須です")
	}
	return s.findPage(ctx, viewer, repository.PostFilter{PublicOnly: true, SlugContains: query}, page)
}

// UserPosts は閲覧者自身の投稿を状態に関係なく返す。
func (s *Service) UserPosts(ctx context.Context, viewer *model.Viewer, page PageRequest) (*PostPage, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	return s.findPage(ctx, viewer, repository.PostFilter{AuthorID: viewer.ID}, page)
}

func (s *Service) findPage(ctx context.Context, viewer *model.Viewer, filter repository.PostFilter, page PageRequest) (*PostPage, error) {
	page = page.Normalize()

	posts, total, err := s.repo.FindPage(ctx, filter, page.Limit, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	views := make([]visibility.PostView, 0, len(posts))
	for _, p := range posts {
		if !visibility.IsVisible(p, viewer) {
			continue
		}
		views = append(views, s.project(p, viewer))
	}

	return &PostPage{
		Posts:      views,
		Pagination: NewPagination(total, page),
	}, nil
}

// Detail はスラッグで投稿を取得する。閲覧できない投稿は存在しない投稿と同じエラーを返す。
func (s *Service) Detail(ctx context.Context, viewer *model.Viewer, postSlug string) (*visibility.PostView, error) {
	p, err := s.visibleBySlug(ctx, viewer, postSlug)
	if err != nil {
		return nil, err
	}
	view := s.project(p, viewer)
	return &view, nil
}

// RenderHTML は投稿本文をサニタイズしてからHTMLに変換して返す。
func (s *Service) RenderHTML(ctx context.Context, viewer *model.Viewer, postSlug string) (string, error) {
	p, err := s.visibleBySlug(ctx, viewer, postSlug)
	if err != nil {
		return "", err
	}
	return s.renderer.RenderContent(s.sanitizer.SanitizeContent(p.Content)), nil
}

func (s *Service) visibleBySlug(ctx context.Context, viewer *model.Viewer, postSlug string) (*model.Post, error) {
	p, err := s.repo.FindBySlug(ctx, postSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if !visibility.IsVisible(p, viewer) {
		return nil, model.NewPostNotFoundError(postSlug)
	}
	return p, nil
}

// Like は閲覧者のいいねを切り替え、更新後の投稿を返す。
func (s *Service) Like(ctx context.Context, viewer *model.Viewer, postID string) (*visibility.PostView, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	if _, err := s.visibleByID(ctx, viewer, postID); err != nil {
		return nil, err
	}

	liked, err := s.repo.ToggleLike(ctx, postID, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}
	s.metrics.RecordLikeToggled(liked)

	return s.reload(ctx, viewer, postID)
}

// Comment は投稿にコメントを追記し、更新後の投稿を返す。
func (s *Service) Comment(ctx context.Context, viewer *model.Viewer, postID, content string) (*visibility.PostView, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, model.NewValidationError("コメントは必須です")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, model.NewValidationError(fmt.Sprintf("コメントは%d文字以内で入力してください", maxCommentLength))
	}
	if _, err := s.visibleByID(ctx, viewer, postID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	comment := &model.Comment{
		PostID:     postID,
		Content:    content,
		AuthorID:   viewer.ID,
		AuthorName: viewer.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.AppendComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to append comment: %w", err)
	}
	s.metrics.RecordCommentAdded()

	return s.reload(ctx, viewer, postID)
}

// ToggleStatus は投稿のアクティブ状態を反転する。作成者のみが実行できる。
// 閲覧できない投稿には存在しない投稿と同じエラーを返す。
func (s *Service) ToggleStatus(ctx context.Context, viewer *model.Viewer, postID string) (*visibility.PostView, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	p, err := s.visibleByID(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	if !visibility.IsOwner(p, viewer) {
		return nil, model.NewForbiddenError()
	}

	updated, err := s.repo.ToggleActive(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle post status: %w", err)
	}
	if updated == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	slog.Info("投稿の公開状態を切り替えました",
		slog.String("post_id", postID),
		slog.Bool("is_active", updated.IsActive),
	)

	view := s.project(updated, viewer)
	return &view, nil
}

func (s *Service) visibleByID(ctx context.Context, viewer *model.Viewer, postID string) (*model.Post, error) {
	p, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if !visibility.IsVisible(p, viewer) {
		return nil, model.NewPostNotFoundError(postID)
	}
	return p, nil
}

// reload は更新後の投稿を取得して射影する。
func (s *Service) reload(ctx context.Context, viewer *model.Viewer, postID string) (*visibility.PostView, error) {
	p, err := s.visibleByID(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	view := s.project(p, viewer)
	return &view, nil
}

// project は本文をサニタイズしてから閲覧者向けに射影する。
func (s *Service) project(p *model.Post, viewer *model.Viewer) visibility.PostView {
	sanitized := *p
	sanitized.Content = s.sanitizer.SanitizeContent(p.Content)
	return visibility.Project(&sanitized, viewer, s.opts)
}
