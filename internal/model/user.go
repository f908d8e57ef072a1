// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IDには外部IdP（Google）のsubject識別子をそのまま使用する。
// ログインのたびに名前とメールアドレスが上書き更新される。
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
// 有効期限はスライディング方式で、検証に成功するたびに先へ延長される。
type Session struct {
	ID         string
	UserID     string
	ExpiresAt  time.Time
	LastSeenAt time.Time
	CreatedAt  time.Time
}

// SessionUser はセッション検証結果をユーザー情報と結合した読み取り専用ビュー。
// セッションルックアップがusersテーブルとJOINして返す。
type SessionUser struct {
	SessionID string
	UserID    string
	Name      string
	Email     string
	ExpiresAt time.Time
}
