package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/todorails/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	loginFn          func(ctx context.Context, login, password string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	logoutAllFn      func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, login, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, login, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) LogoutAll(ctx context.Context, sessionID string) error {
	if m.logoutAllFn != nil {
		return m.logoutAllFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

type mockRegistrationService struct {
	registerFn func(ctx context.Context, username, email, password string) (*model.User, error)
}

func (m *mockRegistrationService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, email, password)
	}
	return nil, nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		CookieSecure:  false,
		SessionMaxAge: 86400,
	}
}

// --- POST /auth/register テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	reg := &mockRegistrationService{
		registerFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return &model.User{
				ID:       "user-1",
				Username: username,
				Email:    email,
			}, nil
		},
	}
	h := NewAuthHandler(&mockAuthService{}, reg, testAuthConfig())

	body := `{"username": "alice", "email": "alice@example.com", "password": "s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Username != "alice" {
		t.Errorf("resp.Username = %q, want %q", resp.Username, "alice")
	}
}

// TestAuthHandler_Register_NeverExposesPasswordHash はレスポンスに
// パスワード関連フィールドが含まれないことを検証する。
func TestAuthHandler_Register_NeverExposesPasswordHash(t *testing.T) {
	reg := &mockRegistrationService{
		registerFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Username:     username,
				PasswordHash: "$2a$12$secret-hash",
			}, nil
		},
	}
	h := NewAuthHandler(&mockAuthService{}, reg, testAuthConfig())

	body := `{"username": "alice", "password": "s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if strings.Contains(w.Body.String(), "secret-hash") {
		t.Error("レスポンスにパスワードハッシュが含まれている")
	}
}

func TestAuthHandler_Register_DuplicateUsername_Returns409(t *testing.T) {
	reg := &mockRegistrationService{
		registerFn: func(ctx context.Context, username, email, password string) (*model.User, error) {
			return nil, model.NewDuplicateUsernameError(username)
		},
	}
	h := NewAuthHandler(&mockAuthService{}, reg, testAuthConfig())

	body := `{"username": "alice", "password": "s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusConflict)
	}
}

func TestAuthHandler_Register_MissingFields_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockRegistrationService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"username": ""}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- POST /auth/login テスト ---

func TestAuthHandler_Login_SetsSessionCookie(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, login, password string) (*model.Session, error) {
			return &model.Session{
				ID:        "sess-1",
				Username:  "alice",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	h := NewAuthHandler(svc, &mockRegistrationService{}, testAuthConfig())

	body := `{"login": "alice", "password": "s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("セッションCookieが設定されていない")
	}
	if sessionCookie.Value != "sess-1" {
		t.Errorf("cookie value = %q, want %q", sessionCookie.Value, "sess-1")
	}
	if !sessionCookie.HttpOnly {
		t.Error("セッションCookieはHttpOnlyであるべき")
	}
}

func TestAuthHandler_Login_InvalidCredentials_Returns401(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, login, password string) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(svc, &mockRegistrationService{}, testAuthConfig())

	body := `{"login": "alice", "password": "wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("認証失敗時にCookieが設定された")
	}
}

// --- POST /auth/logout テスト ---

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	var loggedOut string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, &mockRegistrationService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if loggedOut != "sess-1" {
		t.Errorf("logged out session = %q, want %q", loggedOut, "sess-1")
	}

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			cleared = c
		}
	}
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("セッションCookieがクリアされていない")
	}
}

// --- POST /auth/logout/all テスト ---

func TestAuthHandler_LogoutAll_ClearsCookie(t *testing.T) {
	var loggedOut string
	svc := &mockAuthService{
		logoutAllFn: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, &mockRegistrationService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout/all", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()

	h.LogoutAll(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if loggedOut != "sess-1" {
		t.Errorf("logged out session = %q, want %q", loggedOut, "sess-1")
	}

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			cleared = c
		}
	}
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("セッションCookieがクリアされていない")
	}
}

func TestAuthHandler_LogoutAll_NoCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockRegistrationService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout/all", nil)
	w := httptest.NewRecorder()

	h.LogoutAll(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- GET /auth/me テスト ---

func TestAuthHandler_Me_ReturnsCurrentUser(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}, nil
		},
	}
	h := NewAuthHandler(svc, &mockRegistrationService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Username != "alice" {
		t.Errorf("resp.Username = %q, want %q", resp.Username, "alice")
	}
}

func TestAuthHandler_Me_NoCookie_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, &mockRegistrationService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
