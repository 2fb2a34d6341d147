package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/todorails/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

const taskColumns = `id, user_id, title, description, priority, due_date, type, date_added, completed, completion_date`

// scanTask は現在行をmodel.Taskに読み込む。
func scanTask(scan func(dest ...any) error) (*model.Task, error) {
	task := &model.Task{}
	var completionDate sql.NullTime
	err := scan(
		&task.ID, &task.UserID, &task.Title, &task.Description,
		&task.Priority, &task.DueDate, &task.Type,
		&task.DateAdded, &task.Completed, &completionDate,
	)
	if err != nil {
		return nil, err
	}
	if completionDate.Valid {
		t := completionDate.Time
		task.CompletionDate = &t
	}
	return task, nil
}

// queryTasks は複数行クエリを実行しタスクのスライスを返す。
func (r *PostgresTaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// FindByOwner は指定ユーザーが所有する全タスクを返す。順序は保証しない。
func (r *PostgresTaskRepo) FindByOwner(ctx context.Context, owner *model.User) ([]*model.Task, error) {
	tasks, err := r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1`, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks by owner: %w", err)
	}
	return tasks, nil
}

// FindByOwnerAndID は所有者スコープでタスクを取得する。
// 見つからない場合、または所有者が異なる場合はnilを返す。
func (r *PostgresTaskRepo) FindByOwnerAndID(ctx context.Context, owner *model.User, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND id = $2`,
		owner.ID, id)
	task, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by owner and ID: %w", err)
	}
	return task, nil
}

// FindByOwnerAndDueDateAndCompleted は期日と完了状態で絞り込んだ
// 所有者のタスク一覧を返す。dueDateは日付単位で比較する。
func (r *PostgresTaskRepo) FindByOwnerAndDueDateAndCompleted(ctx context.Context, owner *model.User, dueDate time.Time, completed bool) ([]*model.Task, error) {
	tasks, err := r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE user_id = $1 AND due_date = $2::date AND completed = $3`,
		owner.ID, dueDate, completed)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks by due date: %w", err)
	}
	return tasks, nil
}

// CountByCompleted は全ユーザー横断で完了状態別のタスク数を返す。
func (r *PostgresTaskRepo) CountByCompleted(ctx context.Context, completed bool) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE completed = $1`, completed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks by completed: %w", err)
	}
	return count, nil
}

// GetByID は所有者スコープなしでタスクを取得する。
// 所有権の事前検証専用。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task by ID: %w", err)
	}
	return task, nil
}

// Save はタスクを保存する。既存IDの場合は上書き更新する。
func (r *PostgresTaskRepo) Save(ctx context.Context, task *model.Task) (*model.Task, error) {
	var completionDate sql.NullTime
	if task.CompletionDate != nil {
		completionDate = sql.NullTime{Time: *task.CompletionDate, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, priority, due_date, type, date_added, completed, completion_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   priority = EXCLUDED.priority,
		   due_date = EXCLUDED.due_date,
		   type = EXCLUDED.type,
		   date_added = EXCLUDED.date_added,
		   completed = EXCLUDED.completed,
		   completion_date = EXCLUDED.completion_date`,
		task.ID, task.UserID, task.Title, task.Description,
		task.Priority, task.DueDate, task.Type,
		task.DateAdded, task.Completed, completionDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return task, nil
}

// Delete はタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, task.ID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
