package service

import (
	"context"
	"errors"
	"strings"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/pkg/jwt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*model.User, error)
	EnsureUser(ctx context.Context, email, fullName, password string) (*model.User, bool, error)
	SetPassword(ctx context.Context, email, password string) error
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
	log      *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, log *zap.Logger) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens, log: log.Named("auth")}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Single session: a new token version invalidates older tokens
	version := uuid.New().String()
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, version); err != nil {
		return nil, apperror.Wrap(err)
	}

	// 5. Sign
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.FullName, version)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	s.log.Info("user logged in", zap.String("email", user.Email))
	return &LoginResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *authService) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperror.NewValidation("new password must be at least 6 characters")
	}
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return lookupErr(err, "user", email)
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if err := user.SetPassword(newPassword); err != nil {
		return apperror.Wrap(err)
	}
	// Existing sessions end with the password change
	user.TokenVersion = uuid.New().String()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return apperror.Wrap(err)
	}
	return nil
}

// ValidateToken checks the signature, then that the user is still active and
// the token belongs to its latest session.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jwt.ErrInvalidToken
		}
		return nil, apperror.Wrap(err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	return user, nil
}

// EnsureUser creates an active user unless the email is taken. The bool
// reports whether a user was created.
func (s *authService) EnsureUser(ctx context.Context, email, fullName, password string) (*model.User, bool, error) {
	email = normalizeEmail(email)
	if existing, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperror.Wrap(err)
	}

	user := &model.User{Email: email, FullName: strings.TrimSpace(fullName), IsActive: true}
	if err := validate(user); err != nil {
		return nil, false, err
	}
	if len(password) < minPasswordLength {
		return nil, false, apperror.NewValidation("password must be at least 6 characters")
	}
	if err := user.SetPassword(password); err != nil {
		return nil, false, apperror.Wrap(err)
	}
	user.CreatedBy = actorFrom(ctx)
	user.UpdatedBy = actorFrom(ctx)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, apperror.Wrap(err)
	}

	s.log.Info("user created", zap.String("email", user.Email))
	return user, true, nil
}

// SetPassword overwrites a password without the old one; operator tooling only.
func (s *authService) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLength {
		return apperror.NewValidation("password must be at least 6 characters")
	}
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return lookupErr(err, "user", email)
	}
	if err := user.SetPassword(password); err != nil {
		return apperror.Wrap(err)
	}
	user.TokenVersion = uuid.New().String()
	user.UpdatedBy = actorFrom(ctx)
	return apperror.Wrap(s.userRepo.Update(ctx, user))
}
