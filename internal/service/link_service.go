package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"linkguard/internal/entities"
	"linkguard/internal/repository"
)

var (
	// ErrLinkNotFound covers unknown and revoked tokens alike.
	ErrLinkNotFound = errors.New("link expired or revoked")
	// ErrTokenCollision is returned when no unique token could be generated.
	ErrTokenCollision = errors.New("failed to generate unique token")
)

const maxTokenAttempts = 5

// GenerateToken returns 128 random bits as unpadded base64url (22 characters).
func GenerateToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(id[:]), nil
}

// LinkService is the registry of protected links.
type LinkService struct {
	repo     repository.LinkRepository
	newToken func() (string, error)
	now      func() time.Time
}

// NewLinkService creates a new link registry
func NewLinkService(repo repository.LinkRepository) *LinkService {
	return &LinkService{
		repo:     repo,
		newToken: GenerateToken,
		now:      time.Now,
	}
}

// Create stores a new active link for destination. Every call yields a fresh
// token, even for a destination that is already protected.
func (s *LinkService) Create(ctx context.Context, destination string, createdBy int64) (*entities.ProtectedLink, error) {
	for range maxTokenAttempts {
		token, err := s.newToken()
		if err != nil {
			return nil, err
		}

		link := &entities.ProtectedLink{
			Token:       token,
			Destination: destination,
			CreatedBy:   createdBy,
			CreatedAt:   s.now(),
			Active:      true,
			Clicks:      0,
		}

		err = s.repo.Create(ctx, link)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return link, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrTokenCollision, maxTokenAttempts)
}

// Resolve returns the active link for token.
func (s *LinkService) Resolve(ctx context.Context, token string) (*entities.ProtectedLink, error) {
	link, err := s.repo.FindActive(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// Revoke deactivates a link. Only its creator may revoke it unless asAdmin is set.
func (s *LinkService) Revoke(ctx context.Context, token string, requester int64, asAdmin bool) error {
	var createdBy *int64
	if !asAdmin {
		createdBy = &requester
	}

	err := s.repo.Deactivate(ctx, token, createdBy)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLinkNotFound
	}
	return err
}

// ListByCreator returns the links a user created, newest first.
func (s *LinkService) ListByCreator(ctx context.Context, userID int64) ([]*entities.ProtectedLink, error) {
	return s.repo.ListByCreator(ctx, userID)
}
