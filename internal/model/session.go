package model

import "time"

// Session はユーザーのログインセッションを表す。
// Usernameはログイン時に解決されたプリンシパルであり、
// リクエストごとの「現在のユーザー」の根拠となる。
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
