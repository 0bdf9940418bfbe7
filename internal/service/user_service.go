package service

import (
	"context"
	"errors"
	"fmt"

	"account_service/internal/avatar"
	"account_service/internal/model"
	"account_service/internal/repository"
	"account_service/internal/utils"
	"account_service/internal/validation"

	"go.uber.org/zap"
)

var ErrNoUpdateData = repository.ErrNoUpdateData

// UserService serves the authenticated user's own profile.
type UserService interface {
	GetSelf(ctx context.Context, user *model.User) (*model.ResponseUser, error)
	UpdateSelf(ctx context.Context, user *model.User, req model.UpdateUserRequest) (*model.ResponseUser, error)
}

type userService struct {
	userRepo repository.UserRepository
	avatars  *Avatars
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, avatars *Avatars, log *zap.Logger) UserService {
	return &userService{userRepo: userRepo, avatars: avatars, log: log}
}

func (s *userService) GetSelf(_ context.Context, user *model.User) (*model.ResponseUser, error) {
	return model.NewResponseUser(user, s.avatars.preview(user.ID)), nil
}

// UpdateSelf applies a partial update. The avatar original is saved before
// the row is touched, so a bad image leaves the account unchanged.
func (s *userService) UpdateSelf(ctx context.Context, user *model.User, req model.UpdateUserRequest) (*model.ResponseUser, error) {
	if err := validation.ValidateUpdate(req); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, ErrNoUpdateData
	}

	update := repository.UserUpdate{
		Username: req.Username,
		Phone:    req.Phone,
	}
	if req.Password != nil {
		hashedPassword, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		update.Password = &hashedPassword
	}

	var h *avatar.Handle
	if req.Avatar != nil {
		var err error
		if h, err = s.avatars.save(user.ID, *req.Avatar); err != nil {
			return nil, err
		}
		update.AvatarsDir = &h.Dir
	}

	if err := s.userRepo.Update(ctx, user.ID, update); err != nil {
		var conflict *repository.ConflictError
		switch {
		case errors.As(err, &conflict):
			return nil, err
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUnauthenticated
		default:
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	if h != nil {
		s.avatars.schedule(h)
	}

	updated, err := s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if updated == nil {
		return nil, ErrUnauthenticated
	}
	s.log.Info("user updated", zap.Int64("user_id", user.ID))
	return model.NewResponseUser(updated, s.avatars.preview(user.ID)), nil
}
