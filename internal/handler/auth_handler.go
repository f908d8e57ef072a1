// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/receiptly/internal/metrics"
	"github.com/hitoshi/receiptly/internal/middleware"
	"github.com/hitoshi/receiptly/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, rawIDToken string) (*model.Session, *model.User, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, sessionID string) (*model.SessionUser, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	GoogleClientID string
	CookieDomain   string
	CookieSecure   bool
}

// AuthHandler はGoogleサインインとセッション管理のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	collector metrics.MetricsCollector
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		collector: collector,
		config:    config,
	}
}

// userBody はレスポンスに含めるユーザー表現。
type userBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// signInRequest はサインインのリクエストボディ。
type signInRequest struct {
	IDToken string `json:"id_token"`
}

// Config はGoogleサインインに必要な公開設定を返す。
// クライアントIDが未設定の場合はnullを返す（エラーにしない）。
// GET /auth/config
func (h *AuthHandler) Config(w http.ResponseWriter, r *http.Request) {
	var clientID *string
	if h.config.GoogleClientID != "" {
		clientID = &h.config.GoogleClientID
	}

	writeJSON(w, http.StatusOK, map[string]*string{
		"googleClientId": clientID,
	})
}

// GoogleSignIn はGoogleのIDトークンを検証し、セッションを発行する。
// 検証失敗の種類は区別せず一律401を返す。
// POST /auth/google
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		return
	}

	session, user, err := h.service.SignIn(r.Context(), req.IDToken)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeTokenInvalid {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
			return
		}
		slog.Error("sign-in failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.setSessionCookie(w, session)
	h.collector.RecordSignIn()

	writeJSON(w, http.StatusOK, map[string]userBody{
		"user": {ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

// Me は現在のログインユーザー情報を返す。
// 未認証の場合は401で{"user":null}を返す（エラーフォーマットではない）。
// ストレージ障害は未認証と区別し、500を返す。
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeNullUser(w)
		return
	}

	su, err := h.service.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if su == nil {
		writeNullUser(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]userBody{
		"user": {ID: su.UserID, Name: su.Name, Email: su.Email},
	})
}

// Logout はセッションを破棄し、Cookieをクリアする。
// Cookieなし・不明なセッションでも成功として扱う（冪等）。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// setSessionCookie はセッションCookieを設定する。
// Max-Ageはセッションの残り有効期間（秒）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *model.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeNullUser は未認証レスポンスを書き込む。
func writeNullUser(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]*userBody{"user": nil})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
