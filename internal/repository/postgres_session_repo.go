package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/receiptly/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, last_seen, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.UserID, session.ExpiresAt, session.LastSeenAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Lookup は有効なセッションをユーザー情報とJOINして取得する。
// 検証成功と同時にexpires_atをnow+ttlへ延長し、last_seenを更新する。
// 同一セッションに対する並行Lookupは期限を互いに上書きし得るが、
// 期限は常に前進するため早期失効は起こらない（last-write-winsで十分）。
func (r *PostgresSessionRepo) Lookup(ctx context.Context, id string, ttl time.Duration) (*model.SessionUser, error) {
	su := &model.SessionUser{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE sessions s
		 SET expires_at = now() + $2::interval, last_seen = now()
		 FROM users u
		 WHERE s.id = $1 AND s.expires_at > now() AND u.id = s.user_id
		 RETURNING s.id, s.user_id, u.name, u.email, s.expires_at`,
		id, fmt.Sprintf("%d seconds", int64(ttl.Seconds())),
	).Scan(&su.SessionID, &su.UserID, &su.Name, &su.Email, &su.ExpiresAt)

	if err == sql.ErrNoRows {
		// 期限切れ行が残っていれば掃除する。失敗しても呼び出し元には影響させない。
		r.pruneExpired(ctx, id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lookup session: %w", err)
	}

	return su, nil
}

// DeleteByID は指定IDのセッションを削除する。存在しないIDでもエラーにしない。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// pruneExpired は期限切れセッション行をベストエフォートで削除する。
func (r *PostgresSessionRepo) pruneExpired(ctx context.Context, id string) {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1 AND expires_at <= now()`,
		id,
	)
	if err != nil {
		slog.Warn("failed to prune expired session",
			slog.String("error", err.Error()),
		)
	}
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
