package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/blogman/internal/model"
)

// healthPingTimeout はヘルスチェック時のDB疎通確認のタイムアウト。
const healthPingTimeout = 2 * time.Second

// Pinger はデータベースの疎通確認を行うインターフェース。*sql.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler はDBへの疎通を確認して{"status":"ok"}を返すハンドラーを生成する。
// GET /health
func NewHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewInternalError())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
