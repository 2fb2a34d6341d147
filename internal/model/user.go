// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashにはbcryptハッシュのみを保存し、平文パスワードは保持しない。
// usernameとemailはそれぞれグローバルに一意。
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string
	TermsAccepted bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identifier は認証主体としての識別子（ユーザー名）を返す。
// auth.Credentialインターフェースの実装。
func (u *User) Identifier() string {
	return u.Username
}

// CredentialHash は保存済みのパスワードハッシュを返す。
// auth.Credentialインターフェースの実装。
func (u *User) CredentialHash() string {
	return u.PasswordHash
}

// Enabled はアカウントが有効かどうかを返す。
// 登録時に利用規約へ同意したユーザーのみログイン可能とする。
func (u *User) Enabled() bool {
	return u.TermsAccepted
}
