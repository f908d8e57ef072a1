package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/receiptly/internal/metrics"
	"github.com/hitoshi/receiptly/internal/middleware"
)

// Pinger はヘルスチェックがデータベース到達性を確認するためのインターフェース。
// *sql.DBがこれを満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック対象のDB。nilの場合は到達性確認をスキップする。
	DB Pinger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 抽出・レシート
	ExtractService ExtractServiceInterface
	ReceiptService ReceiptServiceInterface
	UploadMaxSize  int64

	// メトリクス
	Collector      metrics.MetricsCollector
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS → [Session → RateLimit(General)]
//
// 認証ルート（/auth/*、/me、/logout）とヘルスチェックはセッションミドルウェアの外に配置する。
// /meと/logoutはCookieを直接読み、未認証でも独自のレスポンスを返すため。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Collector, deps.AuthConfig)
	receiptHandler := NewReceiptHandler(deps.ExtractService, deps.ReceiptService, deps.UploadMaxSize)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.PingContext(r.Context()); err != nil {
				slog.Error("health check: database unreachable",
					slog.String("error", err.Error()),
				)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/config", authHandler.Config)
		r.Post("/google", authHandler.GoogleSignIn)
	})

	r.Get("/me", authHandler.Me)
	r.Post("/logout", authHandler.Logout)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// POST /api/extract - 抽出パイプライン（抽出専用レート制限を追加）
		r.With(deps.RateLimiter.ExtractMiddleware()).Post("/api/extract", receiptHandler.Extract)

		// レシート参照
		r.Route("/api/receipts", func(r chi.Router) {
			r.Get("/", receiptHandler.ListReceipts)
			r.Get("/{id}", receiptHandler.GetReceipt)
		})
	})

	return r
}
