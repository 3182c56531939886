package repository

import (
	"context"
	"database/sql"
	"fmt"

	"linkguard/internal/entities"
)

// UserRepository defines the interface for bot user database operations
type UserRepository interface {
	Upsert(ctx context.Context, user *entities.User) error
	ListIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int, error)
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert inserts the user or refreshes its display fields and activity time
func (r *userRepository) Upsert(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (user_id, username, first_name, last_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_active = EXCLUDED.last_active
	`

	_, err := r.db.ExecContext(ctx, query, user.UserID, user.Username, user.FirstName, user.LastActive.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// ListIDs returns the IDs of every known user
func (r *userRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return ids, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
