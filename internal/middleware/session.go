// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/blogman/internal/auth"
	"github.com/hitoshi/blogman/internal/model"
)

// SessionCookieName はセッショントークンを格納するCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// viewerContextKey はリクエストコンテキストに閲覧者を格納するためのキー。
var viewerContextKey = contextKey("viewer")

// ViewerResolver はトークンから閲覧者を解決するインターフェース。
// auth.Serviceが実装する。
type ViewerResolver interface {
	ResolveViewer(ctx context.Context, token string) (*model.Viewer, error)
}

// TokenFromRequest はAuthorization: Bearerヘッダー、次にsession_id Cookieの順で
// セッショントークンを取り出す。どちらも無い場合は空文字を返す。
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// NewViewerMiddleware はリクエストのトークンから閲覧者を解決し、コンテキストに注入する
// ミドルウェアを返す。トークンが無い・無効な場合は匿名の閲覧者として次へ進む。
func NewViewerMiddleware(resolver ViewerResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			viewer, err := resolver.ResolveViewer(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthorized) {
					slog.Error("failed to resolve viewer",
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithViewer(r.Context(), viewer)))
		})
	}
}

// RequireViewer は閲覧者が解決されていないリクエストに401を返すミドルウェア。
// NewViewerMiddlewareの後に配置する。
func RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ViewerFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ViewerFromContext はリクエストコンテキストから閲覧者を取得する。
// 匿名の場合はnilを返す。
func ViewerFromContext(ctx context.Context) *model.Viewer {
	viewer, _ := ctx.Value(viewerContextKey).(*model.Viewer)
	return viewer
}

// ContextWithViewer はコンテキストに閲覧者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithViewer(ctx context.Context, viewer *model.Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewer)
}

// UserIDFromContext は閲覧者のユーザーIDを返す。匿名の場合は空文字を返す。
func UserIDFromContext(ctx context.Context) string {
	if viewer := ViewerFromContext(ctx); viewer != nil {
		return viewer.ID
	}
	return ""
}
