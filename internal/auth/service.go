// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/todorails/internal/model"
	"github.com/hitoshi/todorails/internal/repository"
)

// Credential は認証主体としてのユーザーの能力インターフェース。
// ストレージ上のユーザー表現と認証の契約を分離する。
// model.Userが実装する。
type Credential interface {
	// Identifier は認証主体の識別子（ユーザー名）を返す。
	Identifier() string
	// CredentialHash は保存済みのパスワードハッシュを返す。
	CredentialHash() string
	// Enabled はアカウントが有効かどうかを返す。
	Enabled() bool
}

// LoginResolver はログイン識別子（ユーザー名またはメールアドレス）を
// ユーザーに解決するインターフェース。user.Serviceが実装する。
type LoginResolver interface {
	ResolveLogin(ctx context.Context, login string) (*model.User, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	resolver    LoginResolver
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      *PasswordHasher
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	resolver LoginResolver,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher *PasswordHasher,
	config ServiceConfig,
) *Service {
	return &Service{
		resolver:    resolver,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		config:      config,
	}
}

// Login はログイン識別子とパスワードを検証し、セッションを発行する。
// 識別子はユーザー名優先・メールアドレスフォールバックで解決される。
// 存在しないユーザー・パスワード不一致・無効アカウントは
// 全て同一のInvalidCredentialsエラーに集約する（存在情報の漏洩防止）。
func (s *Service) Login(ctx context.Context, login, password string) (*model.Session, error) {
	user, err := s.resolver.ResolveLogin(ctx, login)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeUserNotFound {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, fmt.Errorf("failed to resolve login: %w", err)
	}

	var cred Credential = user
	if !s.hasher.Verify(password, cred.CredentialHash()) {
		return nil, model.NewInvalidCredentialsError()
	}
	if !cred.Enabled() {
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, cred.Identifier())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("username", cred.Identifier()),
	)

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// LogoutAll はセッションの所有者を解決し、そのユーザーの全セッションを破棄する。
// 複数端末からのログインを一括で無効化する。
func (s *Service) LogoutAll(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session not found or expired")
	}

	if err := s.sessionRepo.DeleteByUsername(ctx, session.Username); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	slog.Info("user logged out from all sessions",
		slog.String("username", session.Username),
	)
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByUsername(ctx, session.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, username string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		Username:  username,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
