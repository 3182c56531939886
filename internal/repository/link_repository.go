package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkguard/internal/entities"
)

// LinkRepository defines the interface for protected link database operations
type LinkRepository interface {
	Create(ctx context.Context, link *entities.ProtectedLink) error
	FindActive(ctx context.Context, token string) (*entities.ProtectedLink, error)
	Deactivate(ctx context.Context, token string, createdBy *int64) error
	ListByCreator(ctx context.Context, userID int64) ([]*entities.ProtectedLink, error)
}

type linkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new protected link repository
func NewLinkRepository(db *sql.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts a new protected link. A token collision returns ErrDuplicate.
func (r *linkRepository) Create(ctx context.Context, link *entities.ProtectedLink) error {
	query := `
		INSERT INTO protected_links (token, destination, created_by, created_at, active, clicks)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		link.Token,
		link.Destination,
		link.CreatedBy,
		link.CreatedAt.UTC(),
		link.Active,
		link.Clicks,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// FindActive finds a link by token, only if it has not been revoked
func (r *linkRepository) FindActive(ctx context.Context, token string) (*entities.ProtectedLink, error) {
	query := `
		SELECT token, destination, created_by, created_at, active, clicks
		FROM protected_links
		WHERE token = $1 AND active = TRUE
	`

	var link entities.ProtectedLink
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&link.Token,
		&link.Destination,
		&link.CreatedBy,
		&link.CreatedAt,
		&link.Active,
		&link.Clicks,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	return &link, nil
}

// Deactivate marks an active link as revoked. When createdBy is set only that
// user's link matches.
func (r *linkRepository) Deactivate(ctx context.Context, token string, createdBy *int64) error {
	var query string
	var args []any

	if createdBy != nil {
		query = `UPDATE protected_links SET active = FALSE WHERE token = $1 AND active = TRUE AND created_by = $2`
		args = []any{token, *createdBy}
	} else {
		query = `UPDATE protected_links SET active = FALSE WHERE token = $1 AND active = TRUE`
		args = []any{token}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to revoke link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByCreator retrieves all links created by a user, newest first
func (r *linkRepository) ListByCreator(ctx context.Context, userID int64) ([]*entities.ProtectedLink, error) {
	query := `
		SELECT token, destination, created_by, created_at, active, clicks
		FROM protected_links
		WHERE created_by = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*entities.ProtectedLink
	for rows.Next() {
		var link entities.ProtectedLink
		if err := rows.Scan(
			&link.Token,
			&link.Destination,
			&link.CreatedBy,
			&link.CreatedAt,
			&link.Active,
			&link.Clicks,
		); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, &link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}
