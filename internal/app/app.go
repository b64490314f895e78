package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/blogman/internal/auth"
	"github.com/hitoshi/blogman/internal/config"
	"github.com/hitoshi/blogman/internal/database"
	"github.com/hitoshi/blogman/internal/handler"
	"github.com/hitoshi/blogman/internal/logger"
	"github.com/hitoshi/blogman/internal/metrics"
	"github.com/hitoshi/blogman/internal/middleware"
	"github.com/hitoshi/blogman/internal/post"
	"github.com/hitoshi/blogman/internal/render"
	"github.com/hitoshi/blogman/internal/repository"
	"github.com/hitoshi/blogman/internal/security"
	"github.com/hitoshi/blogman/internal/storage"
	"github.com/hitoshi/blogman/internal/visibility"
	"github.com/hitoshi/blogman/internal/worker/cleanup"
)

const (
	dbPingTimeout          = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	sessionCleanupInterval = time.Hour
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。ctxのキャンセルでサーバーはグレースフルシャットダウンする。
func Run(ctx context.Context, w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	root.SetOut(w)
	return root.ExecuteContext(ctx)
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, w io.Writer) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", "serve"),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	router, err := buildRouter(ctx, cfg, db, rateLimiter)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 期限切れセッションの定期削除
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	go cleanup.NewCleanupJob(db, slog.Default()).Start(jobCtx, sessionCleanupInterval)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildRouter はリポジトリからハンドラーまでの依存関係を組み立てる。
func buildRouter(ctx context.Context, cfg *config.Config, db *sql.DB, rl *middleware.RateLimiter) (http.Handler, error) {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)

	// 3. 認証サービス
	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})

	// 4. 本文のサニタイズ・描画
	sanitizer := security.NewContentSanitizer()
	var renderOpts []render.Option
	if cfg.CodeHighlightStyle != "" {
		renderOpts = append(renderOpts, render.WithCodeHighlighter(render.NewChromaHighlighter(cfg.CodeHighlightStyle)))
	}
	renderer := render.New(renderOpts...)

	// 5. カバー画像の保存先
	store, uploadsHandler, err := newFileStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	uploader := storage.NewUploader(store, cfg.UploadMaxSize, collector)
	slog.Info("upload storage configured", slog.String("backend", store.Name()))

	// 6. 投稿サービス
	postService := post.NewService(postRepo, sanitizer, renderer, uploader,
		visibility.Options{DisplayOffset: cfg.DisplayUTCOffset},
		post.WithMetrics(collector),
	)

	// 7. ルーター
	deps := &handler.RouterDeps{
		ViewerResolver:    authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		Logger:            slog.Default(),
		Metrics:           collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PostService: postService,

		DB:             db,
		MetricsHandler: metrics.Handler(reg),
	}
	if uploadsHandler != nil {
		deps.UploadsPath = cfg.UploadPublicURL
		deps.UploadsHandler = uploadsHandler
	}

	router, err := handler.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}
	return router, nil
}

// newFileStore はSTORAGE_BACKENDに応じた保存先を返す。
// ローカル保存で公開URLがパスの場合は、そのパスで配信するハンドラーも返す。
func newFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, http.Handler, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		store, err := storage.NewS3Store(ctx, storage.S3Config(cfg.S3))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create s3 store: %w", err)
		}
		return store, nil, nil
	default:
		store := storage.NewLocalStore(cfg.UploadDir, cfg.UploadPublicURL)
		if !strings.HasPrefix(cfg.UploadPublicURL, "/") {
			return store, nil, nil
		}
		return store, http.FileServer(http.Dir(cfg.UploadDir)), nil
	}
}

// runMigrateUp は未適用のマイグレーションをすべて適用する。
func runMigrateUp(w io.Writer) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runMigrateDown はマイグレーションをstepsだけ戻す。
func runMigrateDown(w io.Writer, steps int) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("rolling back database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("steps", steps),
	)

	if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
		return fmt.Errorf("migration rollback failed: %w", err)
	}

	slog.Info("database migrations rolled back successfully")
	return nil
}

// runMigrateVersion は現在のマイグレーションバージョンをoutに書き出す。
func runMigrateVersion(w, out io.Writer) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	_, err = fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
	return err
}

// runCleanup は期限切れセッションの削除を1回実行する。
func runCleanup(ctx context.Context, w io.Writer, graceHours int) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	job := cleanup.NewCleanupJob(db, slog.Default())
	job.GraceHours = graceHours
	return job.Run(ctx)
}

// runHealthcheck はヘルスチェックを実行する。
// /health エンドポイントにHTTPリクエストを送り、200以外はエラーを返す。
func runHealthcheck(ctx context.Context, port string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://localhost:%s/health", port), nil)
	if err != nil {
		return fmt.Errorf("failed to build health check request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
