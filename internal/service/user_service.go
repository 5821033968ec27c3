package service

import (
	"context"

	"snapgram/internal/models"
	"snapgram/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput carries the only fields a user may change on their
// profile. Username and email are immutable after registration.
type UpdateProfileInput struct {
	UserID    uint
	Firstname string
	Lastname  string
	Bio       string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxNameLen = 100
	const maxBioLen = 500

	if len(in.Firstname) > maxNameLen {
		return nil, models.NewValidationError("Firstname too long (max 100 characters)")
	}
	if len(in.Lastname) > maxNameLen {
		return nil, models.NewValidationError("Lastname too long (max 100 characters)")
	}
	if len(in.Bio) > maxBioLen {
		return nil, models.NewValidationError("Bio too long (max 500 characters)")
	}

	user.Firstname = in.Firstname
	user.Lastname = in.Lastname
	user.Bio = in.Bio

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
