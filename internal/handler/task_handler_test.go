package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/todorails/internal/middleware"
	"github.com/hitoshi/todorails/internal/model"
)

// --- モック定義 ---

// mockTaskService はTaskServiceInterfaceのモック実装。
type mockTaskService struct {
	createFn            func(ctx context.Context, principal string, draft model.TaskDraft) (*model.Task, error)
	listTodayFn         func(ctx context.Context, principal string) ([]*model.Task, error)
	listAllFn           func(ctx context.Context, principal string) ([]*model.Task, error)
	markDoneFn          func(ctx context.Context, principal string, taskID string) (bool, error)
	getIncompleteFn     func(ctx context.Context, principal string, taskID string) (*model.Task, error)
	getAnyFn            func(ctx context.Context, principal string, taskID string) (*model.Task, error)
	updateFn            func(ctx context.Context, principal string, patch model.TaskPatch) (bool, error)
	deleteFn            func(ctx context.Context, principal string, patch model.TaskPatch) (bool, error)
	countByCompletionFn func(ctx context.Context, completed bool) (int, error)
}

func (m *mockTaskService) Create(ctx context.Context, principal string, draft model.TaskDraft) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, principal, draft)
	}
	return nil, nil
}

func (m *mockTaskService) ListToday(ctx context.Context, principal string) ([]*model.Task, error) {
	if m.listTodayFn != nil {
		return m.listTodayFn(ctx, principal)
	}
	return nil, nil
}

func (m *mockTaskService) ListAll(ctx context.Context, principal string) ([]*model.Task, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, principal)
	}
	return nil, nil
}

func (m *mockTaskService) MarkDone(ctx context.Context, principal string, taskID string) (bool, error) {
	if m.markDoneFn != nil {
		return m.markDoneFn(ctx, principal, taskID)
	}
	return false, nil
}

func (m *mockTaskService) GetIncomplete(ctx context.Context, principal string, taskID string) (*model.Task, error) {
	if m.getIncompleteFn != nil {
		return m.getIncompleteFn(ctx, principal, taskID)
	}
	return nil, nil
}

func (m *mockTaskService) GetAny(ctx context.Context, principal string, taskID string) (*model.Task, error) {
	if m.getAnyFn != nil {
		return m.getAnyFn(ctx, principal, taskID)
	}
	return nil, nil
}

func (m *mockTaskService) Update(ctx context.Context, principal string, patch model.TaskPatch) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, principal, patch)
	}
	return false, nil
}

func (m *mockTaskService) Delete(ctx context.Context, principal string, patch model.TaskPatch) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, principal, patch)
	}
	return false, nil
}

func (m *mockTaskService) CountByCompletion(ctx context.Context, completed bool) (int, error) {
	if m.countByCompletionFn != nil {
		return m.countByCompletionFn(ctx, completed)
	}
	return 0, nil
}

// --- テストヘルパー ---

// withPrincipal はテスト用にリクエストコンテキストにプリンシパルを注入するヘルパー。
func withPrincipal(r *http.Request, principal string) *http.Request {
	ctx := middleware.ContextWithPrincipal(r.Context(), principal)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// --- POST /api/tasks テスト ---

func TestTaskHandler_CreateTask_Success(t *testing.T) {
	svc := &mockTaskService{
		createFn: func(ctx context.Context, principal string, draft model.TaskDraft) (*model.Task, error) {
			if principal != "alice" {
				t.Errorf("principal = %q, want %q", principal, "alice")
			}
			if draft.Title != "Buy milk" {
				t.Errorf("draft.Title = %q, want %q", draft.Title, "Buy milk")
			}
			if !draft.DueDate.Equal(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("draft.DueDate = %v, want 2026-08-29", draft.DueDate)
			}
			return &model.Task{
				ID:       "task-1",
				UserID:   "user-alice",
				Title:    draft.Title,
				Priority: draft.Priority,
				DueDate:  draft.DueDate,
			}, nil
		},
	}

	h := NewTaskHandler(svc)

	body := `{"title": "Buy milk", "priority": "low", "due_date": "2026-08-29"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withPrincipal(req, "alice")
	w := httptest.NewRecorder()

	h.CreateTask(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var resp taskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "task-1" {
		t.Errorf("resp.ID = %q, want %q", resp.ID, "task-1")
	}
	if resp.DueDate != "2026-08-29" {
		t.Errorf("resp.DueDate = %q, want %q", resp.DueDate, "2026-08-29")
	}
}

func TestTaskHandler_CreateTask_NoPrincipal_Returns401(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	body := `{"title": "Buy milk"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.CreateTask(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestTaskHandler_CreateTask_EmptyTitle_Returns400(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(`{"title": ""}`))
	req = withPrincipal(req, "alice")
	w := httptest.NewRecorder()

	h.CreateTask(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestTaskHandler_CreateTask_InvalidDueDate_Returns400(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	body := `{"title": "x", "due_date": "29-08-2026"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
	req = withPrincipal(req, "alice")
	w := httptest.NewRecorder()

	h.CreateTask(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- GET /api/tasks テスト ---

func TestTaskHandler_ListTasks_ReturnsEmptyArray(t *testing.T) {
	svc := &mockTaskService{
		listAllFn: func(ctx context.Context, principal string) ([]*model.Task, error) {
			return nil, nil
		},
	}
	h := NewTaskHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req = withPrincipal(req, "alice")
	w := httptest.NewRecorder()

	h.ListTasks(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	// 空でもnullではなく[]を返す
	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want %q", got, "[]\n")
	}
}

// --- GET /api/tasks/{id} テスト ---

func TestTaskHandler_GetTask_CompletedTask_Returns404(t *testing.T) {
	svc := &mockTaskService{
		getIncompleteFn: func(ctx context.Context, principal string, taskID string) (*model.Task, error) {
			// 完了済みタスクはサービス層でnilになる
			return nil, nil
		},
	}
	h := NewTaskHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-1", nil)
	req = withPrincipal(req, "alice")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.GetTask(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestTaskHandler_GetTaskAny_ReturnsCompletedTask(t *testing.T) {
	done := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc := &mockTaskService{
		getAnyFn: func(ctx context.Context, principal string, taskID string) (*model.Task, error) {
			return &model.Task{
				ID:             taskID,
				Title:          "済",
				Completed:      true,
				CompletionDate: &done,
			}, nil
		},
	}
	h := NewTaskHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-1/any", nil)
	req = withPrincipal(req, "alice")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.GetTaskAny(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp taskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Completed {
		t.Error("resp.Completed = false, want true")
	}
}

// --- POST /api/tasks/{id}/done テスト ---

func TestTaskHandler_MarkDone_ReturnsTransitioned(t *testing.T) {
	svc := &mockTaskService{
		markDoneFn: func(ctx context.Context, principal string, taskID string) (bool, error) {
			return true, nil
		},
	}
	h := NewTaskHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/task-1/done", nil)
	req = withPrincipal(req, "alice")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.MarkDone(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp["transitioned"] {
		t.Error("transitioned = false, want true")
	}
}

// --- PUT /api/tasks/{id} テスト ---

func TestTaskHandler_UpdateTask_NotOwned_Returns404(t *testing.T) {
	svc := &mockTaskService{
		updateFn: func(ctx context.Context, principal string, patch model.TaskPatch) (bool, error) {
			// 不在と非所有は同一の拒否結果
			return false, nil
		},
	}
	h := NewTaskHandler(svc)

	body := `{"title": "改ざん"}`
	req := httptest.NewRequest(http.MethodPut, "/api/tasks/task-1", bytes.NewBufferString(body))
	req = withPrincipal(req, "bob")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.UpdateTask(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestTaskHandler_UpdateTask_Success_Returns204(t *testing.T) {
	var captured model.TaskPatch
	svc := &mockTaskService{
		updateFn: func(ctx context.Context, principal string, patch model.TaskPatch) (bool, error) {
			captured = patch
			return true, nil
		},
	}
	h := NewTaskHandler(svc)

	body := `{"title": "新タイトル", "priority": "high", "due_date": "2026-09-01"}`
	req := httptest.NewRequest(http.MethodPut, "/api/tasks/task-1", bytes.NewBufferString(body))
	req = withPrincipal(req, "alice")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.UpdateTask(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if captured.ID != "task-1" {
		t.Errorf("patch.ID = %q, want %q", captured.ID, "task-1")
	}
	if captured.Priority != model.PriorityHigh {
		t.Errorf("patch.Priority = %q, want %q", captured.Priority, model.PriorityHigh)
	}
}

// --- DELETE /api/tasks/{id} テスト ---

func TestTaskHandler_DeleteTask_Success_Returns204(t *testing.T) {
	svc := &mockTaskService{
		deleteFn: func(ctx context.Context, principal string, patch model.TaskPatch) (bool, error) {
			return true, nil
		},
	}
	h := NewTaskHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/tasks/task-1", nil)
	req = withPrincipal(req, "alice")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.DeleteTask(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestTaskHandler_DeleteTask_NotOwned_Returns404(t *testing.T) {
	h := NewTaskHandler(&mockTaskService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/tasks/task-1", nil)
	req = withPrincipal(req, "bob")
	req = withChiURLParam(req, "id", "task-1")
	w := httptest.NewRecorder()

	h.DeleteTask(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// --- GET /api/tasks/count テスト ---

func TestTaskHandler_CountTasks_ParsesCompletedQuery(t *testing.T) {
	var capturedCompleted bool
	svc := &mockTaskService{
		countByCompletionFn: func(ctx context.Context, completed bool) (int, error) {
			capturedCompleted = completed
			return 7, nil
		},
	}
	h := NewTaskHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/count?completed=true", nil)
	req = withPrincipal(req, "alice")
	w := httptest.NewRecorder()

	h.CountTasks(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !capturedCompleted {
		t.Error("completed = false, want true")
	}

	var resp map[string]int
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["count"] != 7 {
		t.Errorf("count = %d, want 7", resp["count"])
	}
}
