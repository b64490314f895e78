package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/metrics"
	"github.com/hitoshi/blogman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	ViewerResolver    middleware.ViewerResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 投稿
	PostService PostServiceInterface

	// 運用
	DB             Pinger
	MetricsHandler http.Handler

	// ローカル保存したアップロードファイルの配信。UploadsPathが空の場合は配信しない。
	UploadsPath    string
	UploadsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Viewer → Logging → Metrics → Compress
//	  /api/*: RateLimit(General)
//	  書き込み系: RequireViewer → RateLimit(Write)
//
// 閲覧者の解決は全ルートで行い、認証必須のルートのみRequireViewerで401を返す。
func NewRouter(deps *RouterDeps) (http.Handler, error) {
	compress, err := middleware.NewCompressMiddleware()
	if err != nil {
		return nil, fmt.Errorf("failed to create compress middleware: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.AuthConfig.CookieSecure}))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewViewerMiddleware(deps.ViewerResolver))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(compress)

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.UploadsPath != "" && deps.UploadsHandler != nil {
		r.Method(http.MethodGet, deps.UploadsPath+"/*", http.StripPrefix(deps.UploadsPath, deps.UploadsHandler))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/register", authHandler.Register)
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/login", authHandler.Login)

			r.With(middleware.RequireViewer).Post("/logout", authHandler.Logout)
			r.With(middleware.RequireViewer).Get("/me", authHandler.Me)
		})

		// 投稿
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.List)
			r.Get("/search", postHandler.Search)
			r.With(middleware.RequireViewer).Get("/user", postHandler.UserPosts)

			r.Get("/{slug}", postHandler.Detail)
			r.Get("/{slug}/html", postHandler.HTML)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireViewer)
				r.Use(deps.RateLimiter.WriteMiddleware())

				r.Post("/", postHandler.Create)
				r.Post("/{id}/like", postHandler.Like)
				r.Post("/{id}/comment", postHandler.Comment)
				r.Patch("/{id}/status", postHandler.ToggleStatus)
			})
		})
	})

	return r, nil
}
