package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/blogman/internal/auth"
	"github.com/hitoshi/blogman/internal/middleware"
	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/visibility"
)

// --- モック定義 ---

type mockViewerResolver struct {
	resolveFn func(ctx context.Context, token string) (*model.Viewer, error)
}

func (m *mockViewerResolver) ResolveViewer(ctx context.Context, token string) (*model.Viewer, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, token)
	}
	if token == "valid-token" {
		return testViewer, nil
	}
	return nil, auth.ErrUnauthorized
}

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(context.Context) error { return m.err }

// createTestRouter はモック依存でNewRouterを構成する。
func createTestRouter(t *testing.T, postSvc *mockPostService, db *mockPinger) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router, err := NewRouter(&RouterDeps{
		ViewerResolver:    &mockViewerResolver{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		AuthService:       &mockAuthService{},
		AuthConfig:        testAuthConfig,
		PostService:       postSvc,
		DB:                db,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics\n")
		}),
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router
}

func TestNewRouter_RouteTable(t *testing.T) {
	postSvc := &mockPostService{
		detailFn: func(_ context.Context, _ *model.Viewer, slug string) (*visibility.PostView, error) {
			return &visibility.PostView{Slug: slug}, nil
		},
		renderHTMLFn: func(context.Context, *model.Viewer, string) (string, error) {
			return "<p></p>", nil
		},
	}
	router := createTestRouter(t, postSvc, &mockPinger{})

	tests := []struct {
		method     string
		path       string
		body       string
		auth       bool
		wantStatus int
	}{
		{http.MethodGet, "/health", "", false, http.StatusOK},
		{http.MethodGet, "/metrics", "", false, http.StatusOK},
		{http.MethodGet, "/api/posts", "", false, http.StatusOK},
		{http.MethodGet, "/api/posts/search?slug=go", "", false, http.StatusOK},
		{http.MethodGet, "/api/posts/hello-abc123", "", false, http.StatusOK},
		{http.MethodGet, "/api/posts/hello-abc123/html", "", false, http.StatusOK},

		// 認証が必要なルート
		{http.MethodGet, "/api/posts/user", "", false, http.StatusUnauthorized},
		{http.MethodGet, "/api/posts/user", "", true, http.StatusOK},
		{http.MethodPost, "/api/posts", `{"title":"T","content":"x"}`, false, http.StatusUnauthorized},
		{http.MethodPost, "/api/posts", `{"title":"T","content":"x"}`, true, http.StatusCreated},
		{http.MethodPost, "/api/posts/post-1/like", "", false, http.StatusUnauthorized},
		{http.MethodPost, "/api/posts/post-1/like", "", true, http.StatusOK},
		{http.MethodPost, "/api/posts/post-1/comment", `{"content":"hi"}`, true, http.StatusCreated},
		{http.MethodPatch, "/api/posts/post-1/status", "", true, http.StatusOK},
		{http.MethodPost, "/api/auth/logout", "", false, http.StatusUnauthorized},
		{http.MethodPost, "/api/auth/logout", "", true, http.StatusNoContent},
		{http.MethodGet, "/api/auth/me", "", false, http.StatusUnauthorized},

		{http.MethodDelete, "/api/posts/post-1", "", true, http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", "", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		name := tt.method + " " + tt.path
		if tt.auth {
			name += " (認証済み)"
		}
		t.Run(name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.auth {
				req.Header.Set("Authorization", "Bearer valid-token")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestNewRouter_Health_DatabaseDown(t *testing.T) {
	router := createTestRouter(t, &mockPostService{}, &mockPinger{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestNewRouter_Health_Body(t *testing.T) {
	router := createTestRouter(t, &mockPostService{}, &mockPinger{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if strings.TrimSpace(w.Body.String()) != `{"status":"ok"}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestNewRouter_AnonymousViewerReachesService(t *testing.T) {
	var gotViewer *model.Viewer
	called := false
	postSvc := &mockPostService{
		detailFn: func(_ context.Context, viewer *model.Viewer, slug string) (*visibility.PostView, error) {
			called = true
			gotViewer = viewer
			return &visibility.PostView{Slug: slug}, nil
		},
	}
	router := createTestRouter(t, postSvc, &mockPinger{})

	// 無効なトークンは401ではなく匿名として扱う
	req := httptest.NewRequest(http.MethodGet, "/api/posts/hello", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v", w.Code, called)
	}
	if gotViewer != nil {
		t.Errorf("viewer = %+v, want nil", gotViewer)
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := createTestRouter(t, &mockPostService{}, &mockPinger{})

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestNewRouter_ServesUploads(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cover.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router, err := NewRouter(&RouterDeps{
		ViewerResolver: &mockViewerResolver{},
		RateLimiter:    rl,
		AuthService:    &mockAuthService{},
		PostService:    &mockPostService{},
		DB:             &mockPinger{},
		UploadsPath:    "/uploads",
		UploadsHandler: http.FileServer(http.Dir(dir)),
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/uploads/cover.png", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "png-bytes" {
		t.Errorf("body = %q, want %q", w.Body.String(), "png-bytes")
	}
}
