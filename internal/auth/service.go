// Package auth はIDトークン検証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/receiptly/internal/model"
	"github.com/hitoshi/receiptly/internal/repository"
)

// Service は認証に関するビジネスロジックを提供する。
// サインインはToken Verifier → User Directory → Session Storeの順に実行され、
// 各ステップの出力が次のステップの入力になる。
type Service struct {
	verifier    TokenVerifier
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	sessionTTL  time.Duration
}

// NewService はServiceを生成する。
func NewService(
	verifier TokenVerifier,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	sessionTTL time.Duration,
) *Service {
	return &Service{
		verifier:    verifier,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
	}
}

// SignIn はIDトークンを検証し、ユーザーを冪等にUPSERTしてセッションを発行する。
// 検証失敗はTOKEN_INVALIDとしてそのまま返す（リトライしない）。
func (s *Service) SignIn(ctx context.Context, rawIDToken string) (*model.Session, *model.User, error) {
	info, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, nil, err
	}

	user := &model.User{
		ID:    info.Subject,
		Name:  info.Name,
		Email: info.Email,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to upsert user: %v", model.NewPersistenceError(), err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user signed in",
		slog.String("user_id", user.ID),
	)

	return session, user, nil
}

// Logout はセッションを破棄する。
// セッションIDが空、または存在しない場合も成功として扱う（冪等）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentUser はセッションIDから現在のユーザーを取得する。
// 有効なセッションであればルックアップと同時に有効期限が延長される。
// 未認証・期限切れの場合はnilを返す（エラーにしない）。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.SessionUser, error) {
	if sessionID == "" {
		return nil, nil
	}

	su, err := s.sessionRepo.Lookup(ctx, sessionID, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup session: %w", err)
	}

	return su, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:         sessionID,
		UserID:     userID,
		ExpiresAt:  now.Add(s.sessionTTL),
		LastSeenAt: now,
		CreatedAt:  now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: failed to save session: %v", model.NewPersistenceError(), err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全な256ビットのセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
