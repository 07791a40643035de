package service

import (
	"context"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"impactlab/internal/domain/repository"
	"impactlab/internal/platform/logging"
	"strings"
)

type UserService struct {
	userRepo repository.UserRepository
	logger   logging.Logger
}

func NewUserService(userRepo repository.UserRepository, logger logging.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger.With("component", "users"),
	}
}

// UpdateUserRequest holds the fields an admin may change. Nil fields are
// left as they are.
type UpdateUserRequest struct {
	Name   *string           `json:"name,omitempty"`
	Role   *model.Role       `json:"role,omitempty"`
	Status *model.UserStatus `json:"status,omitempty"`
}

type UserPage struct {
	Users      []model.User `json:"users"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"totalPages"`
}

func (s *UserService) ListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.userRepo.List(ctx, limit, pageOffset(page, limit))
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: page, Limit: limit, TotalPages: pageCount(total, limit)}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// UpdateUser applies req. A role change takes effect at the user's next
// login; sessions already issued keep the old role until they expire.
func (s *UserService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, common.Errorf("name cannot be empty: %w", common.ErrValidation)
		}
		user.Name = *req.Name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, common.Errorf("unknown role %q: %w", *req.Role, common.ErrValidation)
		}
		user.Role = *req.Role
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, common.Errorf("unknown status %q: %w", *req.Status, common.ErrValidation)
		}
		user.Status = *req.Status
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user updated", "user_id", user.ID, "role", user.Role, "status", user.Status)
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}
