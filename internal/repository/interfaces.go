// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/receiptly/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Upsert はユーザーを冪等に作成または更新する。
	// 既存レコードがある場合はnameとemailを無条件に上書きする（last-write-wins）。
	Upsert(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// Lookup は指定IDのセッションをユーザー情報とJOINして取得する。
	// 有効なセッションが見つかった場合はexpires_atをnow+ttlへ延長し、
	// last_seenを更新する（スライディング有効期限）。
	// 存在しない、または期限切れの場合はnilを返す。
	// 期限切れ行の削除はベストエフォートで行い、呼び出し元の結果には影響しない。
	Lookup(ctx context.Context, id string, ttl time.Duration) (*model.SessionUser, error)

	// DeleteByID は指定IDのセッションを削除する。
	// 存在しないIDの削除はエラーにならない（冪等）。
	DeleteByID(ctx context.Context, id string) error
}

// ReceiptRepository はレシートデータの永続化インターフェース。
type ReceiptRepository interface {
	// Create はレシートを作成し、採番されたIDをreceipt.IDに設定する。
	// itemsはJSONエンコードして保存される。
	Create(ctx context.Context, receipt *model.Receipt) error

	// ListByUserID は指定ユーザーのレシート一覧を新しい順に返す。
	// レシートが存在しない場合は空スライスを返す（エラーにしない）。
	ListByUserID(ctx context.Context, userID string) ([]*model.Receipt, error)

	// FindByUserAndID はユーザーIDとレシートIDでレシートを取得する。
	// 存在しない、または他ユーザー所有の場合はnilを返す
	// （所有チェックはクエリ内で行い、存在の有無を漏らさない）。
	FindByUserAndID(ctx context.Context, userID string, id int64) (*model.Receipt, error)
}
