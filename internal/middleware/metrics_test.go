package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- モック定義 ---

type mockHTTPMetricsRecorder struct {
	statuses  []int
	durations []time.Duration
}

func (m *mockHTTPMetricsRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockHTTPMetricsRecorder) RecordRequestDuration(duration time.Duration) {
	m.durations = append(m.durations, duration)
}

// --- テスト ---

func TestMetricsMiddleware_RecordsStatusAndDuration(t *testing.T) {
	recorder := &mockHTTPMetricsRecorder{}
	mw := NewMetricsMiddleware(recorder)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/ok", "/missing"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if len(recorder.statuses) != 2 {
		t.Fatalf("expected 2 recorded statuses, got %d", len(recorder.statuses))
	}
	if recorder.statuses[0] != http.StatusOK {
		t.Errorf("expected status 200, got %d", recorder.statuses[0])
	}
	if recorder.statuses[1] != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", recorder.statuses[1])
	}
	if len(recorder.durations) != 2 {
		t.Fatalf("expected 2 recorded durations, got %d", len(recorder.durations))
	}
	for i, d := range recorder.durations {
		if d < 0 {
			t.Errorf("duration[%d] should be non-negative, got %v", i, d)
		}
	}
}

// WriteHeaderを呼ばないハンドラーでも暗黙の200が記録されることを検証する。
func TestMetricsMiddleware_ImplicitOK(t *testing.T) {
	recorder := &mockHTTPMetricsRecorder{}
	mw := NewMetricsMiddleware(recorder)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no explicit WriteHeader"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(recorder.statuses) != 1 || recorder.statuses[0] != http.StatusOK {
		t.Fatalf("expected implicit 200 recorded, got %v", recorder.statuses)
	}
}

// Recoveryより外側に配置した場合、パニック起因の500も記録されることを検証する。
func TestMetricsMiddleware_OutsideRecovery_CountsPanics(t *testing.T) {
	recorder := &mockHTTPMetricsRecorder{}

	inner := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	handler := NewMetricsMiddleware(recorder)(inner)

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(recorder.statuses) != 1 || recorder.statuses[0] != http.StatusInternalServerError {
		t.Fatalf("expected 500 recorded after panic, got %v", recorder.statuses)
	}
}
