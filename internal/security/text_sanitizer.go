// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はリモート抽出サービスが返すテキストフィールドを
// 永続化前にサニタイズし、OCR結果に紛れ込んだマークアップが
// そのままUIに描画されることを防ぐ。
// bluemondayのStrictPolicyを使用し、すべてのHTMLタグを除去する。
package security

import "github.com/microcosm-cc/bluemonday"

// TextSanitizerService は抽出テキストのサニタイズ機能のインターフェースを定義する。
// 抽出結果の保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// 抽出結果はプレーンテキストのみを想定しているため、
// 許可リストが空のStrictPolicyで全タグを除去する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
