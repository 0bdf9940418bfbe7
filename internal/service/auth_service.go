package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"account_service/internal/model"
	"account_service/internal/repository"
	"account_service/internal/utils"
	"account_service/internal/validation"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("incorrect phone or password")
	ErrUnauthenticated    = errors.New("could not validate credentials")
	ErrInactiveUser       = errors.New("inactive user")
	ErrAvatarDecode       = errors.New("could not decode avatar")
)

// Recorder counts account events.
type Recorder interface {
	Registration(result string)
	Login(result string)
}

type nopRecorder struct{}

func (nopRecorder) Registration(string) {}
func (nopRecorder) Login(string)        {}

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, req model.CreateUserRequest) (*model.ResponseUser, error)
	Login(ctx context.Context, form model.LoginForm) (string, error)
	CurrentUser(ctx context.Context, subject string) (*model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtUtil  *utils.JWTUtil
	avatars  *Avatars
	metrics  Recorder
	log      *zap.Logger
}

// NewAuthService creates a new AuthService. rec may be nil.
func NewAuthService(userRepo repository.UserRepository, jwtUtil *utils.JWTUtil, avatars *Avatars, rec Recorder, log *zap.Logger) AuthService {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &authService{
		userRepo: userRepo,
		jwtUtil:  jwtUtil,
		avatars:  avatars,
		metrics:  rec,
		log:      log,
	}
}

// Register creates a new user account. When the account was created but the
// avatar could not be decoded, the view is returned together with
// ErrAvatarDecode.
func (s *authService) Register(ctx context.Context, req model.CreateUserRequest) (*model.ResponseUser, error) {
	if err := validation.ValidateCreate(req); err != nil {
		s.metrics.Registration("invalid")
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		s.metrics.Registration("error")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Phone:    req.Phone,
		Password: hashedPassword,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		var conflict *repository.ConflictError
		if errors.As(err, &conflict) {
			s.metrics.Registration("conflict")
			return nil, err
		}
		s.metrics.Registration("error")
		return nil, fmt.Errorf("failed to create user in repository: %w", err)
	}
	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))

	view := model.NewResponseUser(user, "")
	if req.Avatar == nil {
		s.metrics.Registration("created")
		return view, nil
	}

	h, err := s.avatars.save(user.ID, *req.Avatar)
	if err != nil {
		s.metrics.Registration("partial")
		s.log.Warn("user created, but avatar was rejected", zap.Int64("user_id", user.ID), zap.Error(err))
		return view, err
	}
	if err := s.userRepo.Update(ctx, user.ID, repository.UserUpdate{AvatarsDir: &h.Dir}); err != nil {
		s.metrics.Registration("partial")
		return view, fmt.Errorf("user created, but failed to store avatar location: %w", err)
	}
	s.avatars.schedule(h)

	s.metrics.Registration("created")
	view.Avatar = s.avatars.preview(user.ID)
	return view, nil
}

// dummyHash is compared against when the phone is unknown so that both
// rejection paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := utils.HashPassword("not-a-real-password")
	return hash
})

// Login authenticates a user and returns a JWT token
func (s *authService) Login(ctx context.Context, form model.LoginForm) (string, error) {
	if err := validation.ValidateLogin(form); err != nil {
		s.metrics.Login("invalid")
		return "", err
	}

	user, err := s.userRepo.FindByPhone(ctx, form.Username)
	if err != nil {
		s.metrics.Login("error")
		return "", fmt.Errorf("error finding user by phone: %w", err)
	}
	if user == nil {
		utils.CheckPasswordHash(form.Password, dummyHash())
		s.metrics.Login("rejected")
		return "", ErrInvalidCredentials
	}
	if !utils.CheckPasswordHash(form.Password, user.Password) {
		s.metrics.Login("rejected")
		return "", ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(strconv.FormatInt(user.Phone, 10))
	if err != nil {
		s.metrics.Login("error")
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	s.metrics.Login("issued")
	return token, nil
}

// CurrentUser resolves a token subject to an active user.
func (s *authService) CurrentUser(ctx context.Context, subject string) (*model.User, error) {
	phone, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("error finding user by phone: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}
