package model

import "time"

// Priority はタスクの優先度を表す。
type Priority string

// 定義済み優先度
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task はユーザーが所有するタスクを表す。
// UserIDは作成時に確定し、以後変更されない。
// CompletionDateはCompletedがtrueになった時刻のみを保持し、
// 未完了の間はnil。
type Task struct {
	ID             string
	UserID         string
	Title          string
	Description    string
	Priority       Priority
	DueDate        time.Time // 日付単位（時刻部分は切り捨て）
	Type           string
	DateAdded      time.Time
	Completed      bool
	CompletionDate *time.Time
}

// TaskDraft はタスク作成時の入力を表す。
// 所有者と作成日時はライフサイクルサービス側で決定するため含まない。
type TaskDraft struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     time.Time
	Type        string
}

// TaskPatch はタスク更新・削除時の入力を表す。
// Ownerフィールドはクライアント申告値であり、所有権検証には使用しない。
// 検証は常に永続化済みレコードの所有者に対して行う。
type TaskPatch struct {
	ID          string
	Owner       string
	Title       string
	Description string
	Priority    Priority
	DueDate     time.Time
	Type        string
}
