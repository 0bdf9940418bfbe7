package handler

import (
	"context"

	"account_service/internal/model"

	"github.com/stretchr/testify/mock"
)

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, req model.CreateUserRequest) (*model.ResponseUser, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*model.ResponseUser)
	return user, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, form model.LoginForm) (string, error) {
	args := m.Called(ctx, form)
	return args.String(0), args.Error(1)
}

func (m *mockAuthService) CurrentUser(ctx context.Context, subject string) (*model.User, error) {
	args := m.Called(ctx, subject)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetSelf(ctx context.Context, user *model.User) (*model.ResponseUser, error) {
	args := m.Called(ctx, user)
	view, _ := args.Get(0).(*model.ResponseUser)
	return view, args.Error(1)
}

func (m *mockUserService) UpdateSelf(ctx context.Context, user *model.User, req model.UpdateUserRequest) (*model.ResponseUser, error) {
	args := m.Called(ctx, user, req)
	view, _ := args.Get(0).(*model.ResponseUser)
	return view, args.Error(1)
}
