// Package task はタスクのライフサイクル管理のドメインロジックを提供する。
//
// 全ての操作は明示的なプリンシパル（認証コラボレータが解決したユーザー名）を
// 受け取り、ユーザーディレクトリで*model.Userに解決してから所有者スコープで
// 実行する。クライアント入力に埋め込まれた所有者参照は信用せず、
// 必ず永続化済みレコードの所有者に対して再検証する。
//
// プリンシパルが解決できない場合はフェイルクローズ:
// 取得系は空・不在を返し、変更系はfalseを返す。
// 「存在しない」と「他ユーザーの所有」は観測上区別できない
// （存在情報を非所有者に漏らさないため）。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/todorails/internal/model"
	"github.com/hitoshi/todorails/internal/repository"
	"github.com/hitoshi/todorails/internal/security"
)

// MetricsRecorder はタスク関連メトリクスの記録インターフェース。
// nilの場合は記録しない。
type MetricsRecorder interface {
	RecordTaskCreated()
	RecordTaskCompleted()
}

// Service はタスクライフサイクルのサービス層。
type Service struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	sanitizer security.InputSanitizerService
	metrics   MetricsRecorder
	now       func() time.Time // テストで差し替え可能にする
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerとmetricsはnilを許容する。
func NewService(
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	sanitizer security.InputSanitizerService,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
		now:       time.Now,
	}
}

// resolvePrincipal はプリンシパル（ユーザー名）をユーザーに解決する。
// 未認証・未知のユーザー名の場合は(nil, nil)を返し、呼び出し側が
// フェイルクローズの挙動を選択する。
func (s *Service) resolvePrincipal(ctx context.Context, principal string) (*model.User, error) {
	if principal == "" {
		return nil, nil
	}
	user, err := s.userRepo.FindByUsername(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	return user, nil
}

// sanitize はサニタイザが設定されている場合に入力テキストを浄化する。
func (s *Service) sanitize(text string) string {
	if s.sanitizer == nil {
		return text
	}
	return s.sanitizer.Sanitize(text)
}

// Create は現在のプリンシパルを所有者とする新規タスクを作成する。
// 所有者と作成日時はサービス側で決定し、ドラフトの内容では上書きできない。
// プリンシパルが解決できない場合は作成を拒否する
// （所有者のないタスクは存在できない）。
func (s *Service) Create(ctx context.Context, principal string, draft model.TaskDraft) (*model.Task, error) {
	owner, err := s.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, model.NewUnauthorizedError()
	}

	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      owner.ID,
		Title:       s.sanitize(draft.Title),
		Description: s.sanitize(draft.Description),
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
		Type:        draft.Type,
		DateAdded:   s.now(),
	}

	saved, err := s.taskRepo.Save(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCreated()
	}

	slog.Info("task created",
		slog.String("task_id", saved.ID),
		slog.String("username", principal),
	)

	return saved, nil
}

// ListToday は期日が今日かつ未完了のタスク一覧を返す。順序は保証しない。
// プリンシパルが解決できない場合は空を返す。
func (s *Service) ListToday(ctx context.Context, principal string) ([]*model.Task, error) {
	owner, err := s.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, nil
	}

	tasks, err := s.taskRepo.FindByOwnerAndDueDateAndCompleted(ctx, owner, s.now(), false)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's tasks: %w", err)
	}
	return tasks, nil
}

// ListAll は完了状態を問わず現在のプリンシパルの全タスクを返す。
// プリンシパルが解決できない場合は空を返す。
func (s *Service) ListAll(ctx context.Context, principal string) ([]*model.Task, error) {
	owner, err := s.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, nil
	}

	tasks, err := s.taskRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// MarkDone はタスクを完了にする。
// タスクが存在しない・所有者が異なる・既に完了済みの場合はfalseを返す。
// 既に完了済みのタスクに対しては完了日時を再スタンプしない（冪等）。
func (s *Service) MarkDone(ctx context.Context, principal string, taskID string) (bool, error) {
	owner, err := s.resolvePrincipal(ctx, principal)
	if err != nil {
		return false, err
	}
	if owner == nil {
		return false, nil
	}

	task, err := s.taskRepo.FindByOwnerAndID(ctx, owner, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil || task.Completed {
		return false, nil
	}

	completedAt := s.now()
	task.Completed = true
	task.CompletionDate = &completedAt

	if _, err := s.taskRepo.Save(ctx, task); err != nil {
		return false, fmt.Errorf("failed to save task: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTaskCompleted()
	}

	slog.Info("task marked as done",
		slog.String("task_id", taskID),
		slog.String("username", principal),
	)

	return true, nil
}

// GetIncomplete は所有者スコープで未完了のタスクを取得する。
// 完了済みタスクは意図的に「見つからない」として隠す（エラーではない）。
func (s *Service) GetIncomplete(ctx context.Context, principal string, taskID string) (*model.Task, error) {
	owner, err := s.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, nil
	}

	task, err := s.taskRepo.FindByOwnerAndID(ctx, owner, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil || task.Completed {
		return nil, nil
	}
	return task, nil
}

// GetAny は完了状態を問わず所有者スコープでタスクを取得する。
// 見つからない・所有者が異なる場合はnilを返す。
func (s *Service) GetAny(ctx context.Context, principal string, taskID string) (*model.Task, error) {
	owner, err := s.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, nil
	}

	task, err := s.taskRepo.FindByOwnerAndID(ctx, owner, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// verifyOwnership は永続化済みレコードの所有者が現在のプリンシパルと
// 一致するかを検証する。パッチのOwnerフィールド（クライアント申告値）は
// 偽装可能なため一切参照しない。
// 対象が存在しない場合もfalse（存在情報を漏らさない）。
func (s *Service) verifyOwnership(ctx context.Context, owner *model.User, taskID string) (bool, error) {
	persisted, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to get task for ownership check: %w", err)
	}
	if persisted == nil {
		return false, nil
	}
	return persisted.UserID == owner.ID, nil
}

// Update はタスクの内容を更新する。
// 永続化済みレコードの所有者がプリンシパルと一致する場合のみ、
// タイトル・説明・優先度・期日・種別を上書きし、追加日時を現在時刻に
// リセットする。完了状態と完了日時は更新の対象外。
// 再取得は常に解決済みプリンシパルのスコープで行う。
// 同一タスクへの並行更新はcheck-then-writeの競合があり得るが、
// 単一レコード書き込みのアトミシティのみをストレージに委ねる設計とする。
func (s *Service) Update(ctx context.Context, principal string, patch model.TaskPatch) (bool, error) {
	owner, err := s.resolvePrincipal(ctx, principal)
	if err != nil {
		return false, err
	}
	if owner == nil {
		return false, nil
	}

	owned, err := s.verifyOwnership(ctx, owner, patch.ID)
	if err != nil {
		return false, err
	}
	if !owned {
		slog.Warn("task update refused",
			slog.String("task_id", patch.ID),
			slog.String("username", principal),
		)
		return false, nil
	}

	existing, err := s.taskRepo.FindByOwnerAndID(ctx, owner, patch.ID)
	if err != nil {
		return false, fmt.Errorf("failed to find task: %w", err)
	}
	if existing == nil {
		return false, nil
	}

	existing.Title = s.sanitize(patch.Title)
	existing.Description = s.sanitize(patch.Description)
	existing.Priority = patch.Priority
	existing.DueDate = patch.DueDate
	existing.Type = patch.Type
	existing.DateAdded = s.now()

	saved, err := s.taskRepo.Save(ctx, existing)
	if err != nil {
		return false, fmt.Errorf("failed to save task: %w", err)
	}

	return saved != nil, nil
}

// Delete はタスクを削除する。
// Updateと同一の所有権検証パターンを適用し、再取得も解決済み
// プリンシパルのスコープで行う。削除できた場合のみtrueを返す。
func (s *Service) Delete(ctx context.Context, principal string, patch model.TaskPatch) (bool, error) {
	owner, err := s.resolvePrincipal(ctx, principal)
	if err != nil {
		return false, err
	}
	if owner == nil {
		return false, nil
	}

	owned, err := s.verifyOwnership(ctx, owner, patch.ID)
	if err != nil {
		return false, err
	}
	if !owned {
		slog.Warn("task delete refused",
			slog.String("task_id", patch.ID),
			slog.String("username", principal),
		)
		return false, nil
	}

	existing, err := s.taskRepo.FindByOwnerAndID(ctx, owner, patch.ID)
	if err != nil {
		return false, fmt.Errorf("failed to find task: %w", err)
	}
	if existing == nil {
		return false, nil
	}

	if err := s.taskRepo.Delete(ctx, existing); err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	slog.Info("task deleted",
		slog.String("task_id", patch.ID),
		slog.String("username", principal),
	)

	return true, nil
}

// CountByCompletion は全ユーザー横断で完了状態別のタスク数を返す。
// プリンシパルのスコープ外で動作する管理用の集計。
func (s *Service) CountByCompletion(ctx context.Context, completed bool) (int, error) {
	count, err := s.taskRepo.CountByCompleted(ctx, completed)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}
