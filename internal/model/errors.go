// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, extraction, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTokenInvalid           = "TOKEN_INVALID"
	ErrCodeServiceUnauthenticated = "SERVICE_UNAUTHENTICATED"
	ErrCodeMissingFile            = "MISSING_FILE"
	ErrCodeMissingUser            = "MISSING_USER"
	ErrCodeParseFailed            = "PARSE_FAILED"
	ErrCodeExtractFailed          = "EXTRACT_FAILED"
	ErrCodePersistenceError       = "PERSISTENCE_ERROR"
	ErrCodeDataCorrupt            = "DATA_CORRUPT"
	ErrCodeUserMismatch           = "USER_MISMATCH"
	ErrCodeReceiptNotFound        = "RECEIPT_NOT_FOUND"
)

// NewTokenInvalidError はIDトークン検証失敗エラーを生成する。
// 署名不一致・audience不一致・発行者不正・subject欠落のいずれも区別せず、
// 一律にこのエラーとして報告する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "IDトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "再度サインインしてください。",
	}
}

// NewServiceUnauthenticatedError は抽出サービスの認証情報が未設定の場合のエラーを生成する。
// ユーザーではなく運用者が対処すべきエラー。
func NewServiceUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnauthenticated,
		Message:  "抽出サービスのAPIキーが設定されていません。",
		Category: "system",
		Action:   "サーバーの設定を確認してください。",
	}
}

// NewMissingFileError はファイル未添付エラーを生成する。
func NewMissingFileError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingFile,
		Message:  "No file provided",
		Category: "validation",
		Action:   "レシート画像ファイルを添付してください。",
	}
}

// NewMissingUserError はユーザーID欠落エラーを生成する。
func NewMissingUserError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingUser,
		Message:  "ユーザーIDが指定されていません。",
		Category: "validation",
		Action:   "ログインし直してください。",
	}
}

// NewParseFailedError はパースステージの失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "文書のパースに失敗しました。",
		Category: "extraction",
		Action:   "ファイルが読み取り可能なレシート画像か確認し、しばらく待ってから再度お試しください。",
	}
}

// NewExtractFailedError は抽出ステージの失敗エラーを生成する。
func NewExtractFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeExtractFailed,
		Message:  "構造化フィールドの抽出に失敗しました。",
		Category: "extraction",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewPersistenceError はストレージ層の失敗エラーを生成する。
func NewPersistenceError() *APIError {
	return &APIError{
		Code:     ErrCodePersistenceError,
		Message:  "データの保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDataCorruptError は保存済みデータのデシリアライズ失敗エラーを生成する。
// 一時的な障害ではなくデータ整合性の問題として区別して報告する。
func NewDataCorruptError() *APIError {
	return &APIError{
		Code:     ErrCodeDataCorrupt,
		Message:  "保存されたレシートデータの読み取りに失敗しました。",
		Category: "system",
		Action:   "運用者に問い合わせてください。",
	}
}

// NewUserMismatchError はリクエストのユーザーIDがセッションと一致しない場合のエラーを生成する。
func NewUserMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeUserMismatch,
		Message:  "指定されたユーザーIDはセッションのユーザーと一致しません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewReceiptNotFoundError はレシートが見つからない場合のエラーを生成する。
// 他ユーザー所有のレシートも存在を漏らさないため同じエラーになる。
func NewReceiptNotFoundError(receiptID int64) *APIError {
	return &APIError{
		Code:     ErrCodeReceiptNotFound,
		Message:  fmt.Sprintf("指定されたレシートが見つかりません: %d", receiptID),
		Category: "validation",
		Action:   "レシートIDを確認してください。",
	}
}
