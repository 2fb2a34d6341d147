// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/todorails/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// 検索キーはユーザー名とメールアドレス。認証もプリンシパル解決も
// ユーザー名を識別子とするため、ID検索は提供しない。
type UserRepository interface {
	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// ExistsByUsername は指定ユーザー名のユーザーが存在するかを返す。
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail は指定メールアドレスのユーザーが存在するかを返す。
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Save はユーザーを保存する。既存IDの場合は上書き更新する。
	Save(ctx context.Context, user *model.User) (*model.User, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
// GetByID以外の全ての取得系は所有者スコープで動作する。
type TaskRepository interface {
	// FindByOwner は指定ユーザーが所有する全タスクを返す。順序は保証しない。
	FindByOwner(ctx context.Context, owner *model.User) ([]*model.Task, error)

	// FindByOwnerAndID は所有者スコープでタスクを取得する。
	// 見つからない場合、または所有者が異なる場合はnilを返す。
	FindByOwnerAndID(ctx context.Context, owner *model.User, id string) (*model.Task, error)

	// FindByOwnerAndDueDateAndCompleted は期日と完了状態で絞り込んだ
	// 所有者のタスク一覧を返す。dueDateは日付単位で比較する。
	FindByOwnerAndDueDateAndCompleted(ctx context.Context, owner *model.User, dueDate time.Time, completed bool) ([]*model.Task, error)

	// CountByCompleted は全ユーザー横断で完了状態別のタスク数を返す。
	CountByCompleted(ctx context.Context, completed bool) (int, error)

	// GetByID は所有者スコープなしでタスクを取得する。
	// 所有権の事前検証専用であり、ハンドラーから直接呼ばない。
	// 見つからない場合はnilを返す。
	GetByID(ctx context.Context, id string) (*model.Task, error)

	// Save はタスクを保存する。既存IDの場合は上書き更新する。
	Save(ctx context.Context, task *model.Task) (*model.Task, error)

	// Delete はタスクを削除する。
	Delete(ctx context.Context, task *model.Task) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUsername は指定ユーザーの全セッションを削除する。
	DeleteByUsername(ctx context.Context, username string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
