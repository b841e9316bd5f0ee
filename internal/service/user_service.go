package service

import (
	"context"
	"strings"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"github.com/google/uuid"
)

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,notblank"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"` // Optional
	FullName *string `json:"full_name" validate:"omitempty,notblank"`
	IsActive *bool   `json:"is_active"`
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.UserResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Build user
	user := &model.User{
		Email:    normalizeEmail(req.Email),
		FullName: strings.TrimSpace(req.FullName),
		IsActive: true,
	}
	user.CreatedBy = actorFrom(ctx)
	user.UpdatedBy = actorFrom(ctx)

	// 3. Set password
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperror.Wrap(err)
	}

	// 4. Save to database; the unique index reports a taken email
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, writeErr(err, "user", unique{repository.UserEmailConstraint, "email", user.Email})
	}

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest) (*model.UserResponse, error) {
	// 1. Validate request
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Find existing user
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "user", userID)
	}

	// 3. Update fields
	if req.Email != nil {
		user.Email = normalizeEmail(*req.Email)
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedBy = actorFrom(ctx)

	// 4. A new password also ends the current session
	if req.Password != nil && *req.Password != "" {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, apperror.Wrap(err)
		}
		user.TokenVersion = uuid.New().String()
	}

	// 5. Save
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, writeErr(err, "user", unique{repository.UserEmailConstraint, "email", user.Email})
	}

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return lookupErr(err, "user", userID)
	}
	return apperror.Wrap(s.userRepo.Delete(ctx, userID))
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "user", id)
	}
	response := user.ToResponse()
	return &response, nil
}
