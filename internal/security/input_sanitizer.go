// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はタスクのタイトル・説明などユーザー入力のテキストを
// サニタイズし、格納型XSSからユーザーを保護する。
// bluemondayライブラリのStrictPolicyベースで、HTMLタグを一切許可しない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
// タスクの保存前（作成・更新）に使用される。
type InputSanitizerService interface {
	// Sanitize は入力テキストから全てのHTMLタグを除去し、
	// 前後の空白をトリムしたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// タスクのテキストフィールドはプレーンテキストのみを想定するため、
// 許可リストが空のStrictPolicyを使用する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストから全てのHTMLタグを除去する。
func (s *inputSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ InputSanitizerService = (*inputSanitizer)(nil)
