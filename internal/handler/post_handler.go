package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/editorjs"
	"github.com/hitoshi/blogman/internal/middleware"
	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/post"
	"github.com/hitoshi/blogman/internal/visibility"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	Create(ctx context.Context, viewer *model.Viewer, in post.CreateInput) (*visibility.PostView, error)
	List(ctx context.Context, viewer *model.Viewer, page post.PageRequest) (*post.PostPage, error)
	Search(ctx context.Context, viewer *model.Viewer, query string, page post.PageRequest) (*post.PostPage, error)
	UserPosts(ctx context.Context, viewer *model.Viewer, page post.PageRequest) (*post.PostPage, error)
	Detail(ctx context.Context, viewer *model.Viewer, slug string) (*visibility.PostView, error)
	RenderHTML(ctx context.Context, viewer *model.Viewer, slug string) (string, error)
	Like(ctx context.Context, viewer *model.Viewer, postID string) (*visibility.PostView, error)
	Comment(ctx context.Context, viewer *model.Viewer, postID, content string) (*visibility.PostView, error)
	ToggleStatus(ctx context.Context, viewer *model.Viewer, postID string) (*visibility.PostView, error)
}

// PostHandler は投稿関連のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// createPostRequest は投稿作成リクエストのボディ。
// contentはEditor.jsドキュメント（オブジェクト）またはHTML文字列を受け付ける。
type createPostRequest struct {
	Title      string           `json:"title"`
	Content    editorjs.Content `json:"content"`
	Tags       []string         `json:"tags"`
	CoverImage string           `json:"coverImage"`
	Status     model.PostStatus `json:"status"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type postHTMLResponse struct {
	Slug string `json:"slug"`
	HTML string `json:"html"`
}

// Create は投稿を作成する。
// POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.Create(r.Context(), middleware.ViewerFromContext(r.Context()), post.CreateInput{
		Title:      req.Title,
		Content:    req.Content,
		Tags:       req.Tags,
		CoverImage: req.CoverImage,
		Status:     req.Status,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// List は公開中の投稿一覧を新しい順に返す。
// GET /api/posts?page=1&limit=10
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePageRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.List(r.Context(), middleware.ViewerFromContext(r.Context()), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Search はスラッグに検索語を含む公開中の投稿を返す。
// GET /api/posts/search?slug=xxx&page=1&limit=10
func (h *PostHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePageRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Search(r.Context(), middleware.ViewerFromContext(r.Context()), r.URL.Query().Get("slug"), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// UserPosts は閲覧者自身の投稿をすべての状態について返す。
// GET /api/posts/user
func (h *PostHandler) UserPosts(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePageRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.UserPosts(r.Context(), middleware.ViewerFromContext(r.Context()), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Detail は投稿詳細を返す。
// GET /api/posts/{slug}
func (h *PostHandler) Detail(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Detail(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// HTML は投稿本文をサニタイズ済みHTMLとして返す。
// GET /api/posts/{slug}/html
func (h *PostHandler) HTML(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	html, err := h.service.RenderHTML(r.Context(), middleware.ViewerFromContext(r.Context()), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, postHTMLResponse{Slug: slug, HTML: html})
}

// Like はいいねを切り替える。
// POST /api/posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Like(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Comment はコメントを追加する。
// POST /api/posts/{id}/comment
func (h *PostHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.Comment(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// ToggleStatus は投稿のアクティブ状態を反転する。作成者のみ実行できる。
// PATCH /api/posts/{id}/status
func (h *PostHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ToggleStatus(r.Context(), middleware.ViewerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// parsePageRequest はクエリのpageとlimitを読み取る。
// 未指定の場合はデフォルト値、数値でない場合はバリデーションエラーを書き込んでfalseを返す。
func parsePageRequest(w http.ResponseWriter, r *http.Request) (post.PageRequest, bool) {
	var page post.PageRequest
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"page", &page.Page},
		{"limit", &page.Limit},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(p.name+"は整数で指定してください"))
			return post.PageRequest{}, false
		}
		*p.dst = n
	}
	return page.Normalize(), true
}
