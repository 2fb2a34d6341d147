package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/todorails/internal/middleware"
	"github.com/hitoshi/todorails/internal/model"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
// 全操作は明示的なプリンシパル（認証済みユーザー名）を受け取る。
type TaskServiceInterface interface {
	Create(ctx context.Context, principal string, draft model.TaskDraft) (*model.Task, error)
	ListToday(ctx context.Context, principal string) ([]*model.Task, error)
	ListAll(ctx context.Context, principal string) ([]*model.Task, error)
	MarkDone(ctx context.Context, principal string, taskID string) (bool, error)
	GetIncomplete(ctx context.Context, principal string, taskID string) (*model.Task, error)
	GetAny(ctx context.Context, principal string, taskID string) (*model.Task, error)
	Update(ctx context.Context, principal string, patch model.TaskPatch) (bool, error)
	Delete(ctx context.Context, principal string, patch model.TaskPatch) (bool, error)
	CountByCompletion(ctx context.Context, completed bool) (int, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// taskRequest はタスク作成・更新リクエストのボディ。
type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"` // YYYY-MM-DD
	Type        string `json:"type"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       string     `json:"priority"`
	DueDate        string     `json:"due_date"`
	Type           string     `json:"type"`
	DateAdded      time.Time  `json:"date_added"`
	Completed      bool       `json:"completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// CreateTask は新規タスク作成を処理する。
// POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	if req.Title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("タイトルは必須です"))
		return
	}

	dueDate, perr := parseDueDate(req.DueDate)
	if perr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("期日はYYYY-MM-DD形式で指定してください"))
		return
	}

	task, err := h.service.Create(r.Context(), principal, model.TaskDraft{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		DueDate:     dueDate,
		Type:        req.Type,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTaskResponse(task))
}

// ListTasks はプリンシパルの全タスク一覧を返す。
// GET /api/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListAll(r.Context(), principal)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeTaskListResponse(w, tasks)
}

// ListTodayTasks は期日が今日の未完了タスク一覧を返す。
// GET /api/tasks/today
func (h *TaskHandler) ListTodayTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.ListToday(r.Context(), principal)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeTaskListResponse(w, tasks)
}

// GetTask は未完了タスクを取得する。完了済みタスクは不在扱い。
// GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")
	task, err := h.service.GetIncomplete(r.Context(), principal, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(task))
}

// GetTaskAny は完了状態を問わずタスクを取得する。
// GET /api/tasks/{id}/any
func (h *TaskHandler) GetTaskAny(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")
	task, err := h.service.GetAny(r.Context(), principal, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if task == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(task))
}

// MarkDone はタスクを完了状態に遷移させる。冪等。
// POST /api/tasks/{id}/done
func (h *TaskHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")
	transitioned, err := h.service.MarkDone(r.Context(), principal, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{
		"transitioned": transitioned,
	})
}

// UpdateTask はタスクの内容を更新する。
// PUT /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	dueDate, perr := parseDueDate(req.DueDate)
	if perr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("期日はYYYY-MM-DD形式で指定してください"))
		return
	}

	taskID := chi.URLParam(r, "id")
	updated, err := h.service.Update(r.Context(), principal, model.TaskPatch{
		ID:          taskID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		DueDate:     dueDate,
		Type:        req.Type,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !updated {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteTask はタスクを削除する。
// DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOr401(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "id")
	deleted, err := h.service.Delete(r.Context(), principal, model.TaskPatch{ID: taskID})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !deleted {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewTaskNotFoundError(taskID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CountTasks は完了状態別の全体タスク数を返す。
// GET /api/tasks/count?completed=true|false
func (h *TaskHandler) CountTasks(w http.ResponseWriter, r *http.Request) {
	completed := r.URL.Query().Get("completed") == "true"

	count, err := h.service.CountByCompletion(r.Context(), completed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"count": count,
	})
}

// --- ヘルパー関数 ---

// principalOr401 はコンテキストからプリンシパルを取得する。
// 取得できない場合は401を書き込みfalseを返す。
func principalOr401(w http.ResponseWriter, r *http.Request) (string, bool) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return principal, true
}

// parseDueDate はYYYY-MM-DD形式の期日をパースする。空文字はゼロ値を返す。
func parseDueDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// toTaskResponse はmodel.TaskからAPIレスポンスに変換する。
func toTaskResponse(task *model.Task) taskResponse {
	dueDate := ""
	if !task.DueDate.IsZero() {
		dueDate = task.DueDate.Format("2006-01-02")
	}
	return taskResponse{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Priority:       string(task.Priority),
		DueDate:        dueDate,
		Type:           task.Type,
		DateAdded:      task.DateAdded,
		Completed:      task.Completed,
		CompletionDate: task.CompletionDate,
	}
}

// writeTaskListResponse はタスク一覧をJSONで書き込む。空でも[]を返す。
func writeTaskListResponse(w http.ResponseWriter, tasks []*model.Task) {
	responses := make([]taskResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = toTaskResponse(task)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// writeInvalidBodyResponse はリクエストボディ解析失敗の統一レスポンスを書き込む。
func writeInvalidBodyResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeDuplicateUsername:
		return http.StatusConflict
	case model.ErrCodeTaskNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidRequest, model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
