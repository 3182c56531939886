package service

import (
	"context"
	"time"

	"linkguard/internal/entities"
	"linkguard/internal/repository"
	"linkguard/internal/telegram"
)

// UserService tracks who has talked to the bot. It is the broadcast audience.
type UserService struct {
	repo repository.UserRepository
	now  func() time.Time
}

func NewUserService(repo repository.UserRepository) *UserService {
	return &UserService{repo: repo, now: time.Now}
}

// Touch records the user's display names and marks them active now.
func (s *UserService) Touch(ctx context.Context, user telegram.User) error {
	return s.repo.Upsert(ctx, &entities.User{
		UserID:     user.ID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastActive: s.now(),
	})
}

func (s *UserService) RecipientIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListIDs(ctx)
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
