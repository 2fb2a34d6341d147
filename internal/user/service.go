// Package user はユーザー登録とユーザーディレクトリのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/todorails/internal/model"
	"github.com/hitoshi/todorails/internal/repository"
)

// PasswordHasher はパスワードの一方向ハッシュ化インターフェース。
// auth.PasswordHasherが実装する。
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// RegistrationDraft はユーザー登録時の入力を表す。
type RegistrationDraft struct {
	Username string
	Email    string
	Password string // 平文。ハッシュ化後は保持しない。
}

// Service はユーザー登録とディレクトリ参照のサービス層。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	metrics  MetricsRecorder
}

// MetricsRecorder はユーザー登録メトリクスの記録インターフェース。
// nilの場合は記録しない。
type MetricsRecorder interface {
	RecordUserRegistered()
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(userRepo repository.UserRepository, hasher PasswordHasher, metrics MetricsRecorder) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		metrics:  metrics,
	}
}

// Register は新規ユーザーを登録する。
// ユーザー名が既に存在する場合はいかなる変更も行わずDuplicateUsernameエラーを返す。
// パスワードはbcryptでハッシュ化し、利用規約同意フラグは無条件にtrueを設定する
// （登録行為そのものが同意を意味する）。
// メールアドレスの一意性はスキーマ制約としてのみ保証され、
// 登録時の事前チェックは行わない。
func (s *Service) Register(ctx context.Context, draft RegistrationDraft) (*model.User, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, draft.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username existence: %w", err)
	}
	if exists {
		return nil, model.NewDuplicateUsernameError(draft.Username)
	}

	hash, err := s.hasher.Hash(draft.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:            uuid.New().String(),
		Username:      draft.Username,
		Email:         draft.Email,
		PasswordHash:  hash,
		TermsAccepted: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	saved, err := s.userRepo.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordUserRegistered()
	}

	slog.Info("new user registered",
		slog.String("user_id", saved.ID),
		slog.String("username", saved.Username),
	)

	return saved, nil
}

// FindByUsername は指定ユーザー名のユーザーを返す。見つからない場合はnilを返す。
func (s *Service) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// FindByEmail は指定メールアドレスのユーザーを返す。見つからない場合はnilを返す。
func (s *Service) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// ResolveLogin はログイン識別子をユーザーに解決する。
// ユーザー名での検索を優先し、見つからない場合はメールアドレスとして再検索する。
// どちらにも一致しない場合はUserNotFoundエラーを返す。
func (s *Service) ResolveLogin(ctx context.Context, login string) (*model.User, error) {
	user, err := s.FindByUsername(ctx, login)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user, err = s.FindByEmail(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
