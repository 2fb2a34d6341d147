package handler

import (
	"context"

	"github.com/hitoshi/todorails/internal/model"
	"github.com/hitoshi/todorails/internal/user"
)

// RegistrationServiceAdapter は user.Service を
// RegistrationServiceInterface に適合させるアダプタ。
type RegistrationServiceAdapter struct {
	svc *user.Service
}

// NewRegistrationServiceAdapter はRegistrationServiceAdapterを生成する。
func NewRegistrationServiceAdapter(svc *user.Service) *RegistrationServiceAdapter {
	return &RegistrationServiceAdapter{svc: svc}
}

// Register は新規ユーザーを登録する。
func (a *RegistrationServiceAdapter) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	return a.svc.Register(ctx, user.RegistrationDraft{
		Username: username,
		Email:    email,
		Password: password,
	})
}

var _ RegistrationServiceInterface = (*RegistrationServiceAdapter)(nil)
