package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/libgate/internal/model"
)

// DBPinger はヘルスチェックに必要なデータベース接続のインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	db DBPinger
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(db DBPinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health はサービスの稼働状態を返す。データベース接続も確認する。
// GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		slog.Error("health check failed", slog.String("error", err.Error()))
		writeAPIError(w, http.StatusServiceUnavailable, &model.APIError{
			Code:     "UNHEALTHY",
			Message:  "データベースに接続できません。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
