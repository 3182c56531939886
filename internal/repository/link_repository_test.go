package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkguard/internal/entities"
)

var linkColumns = []string{"token", "destination", "created_by", "created_at", "active", "clicks"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestLinkRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO protected_links").
		WithArgs("tok", "https://t.me/mygroup", int64(7), createdAt, true, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &entities.ProtectedLink{
		Token:       "tok",
		Destination: "https://t.me/mygroup",
		CreatedBy:   7,
		CreatedAt:   createdAt,
		Active:      true,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepository_CreateDuplicateToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectExec("INSERT INTO protected_links").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &entities.ProtectedLink{Token: "tok", CreatedAt: time.Now()})

	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestLinkRepository_FindActive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)
	createdAt := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM protected_links WHERE token = \\$1 AND active = TRUE").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(linkColumns).
			AddRow("tok", "https://t.me/mygroup", int64(7), createdAt, true, 0))

	link, err := repo.FindActive(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "https://t.me/mygroup", link.Destination)
	assert.True(t, link.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepository_FindActiveMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM protected_links").
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActive(context.Background(), "gone")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkRepository_DeactivateScopedToCreator(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)
	owner := int64(7)

	mock.ExpectExec("UPDATE protected_links SET active = FALSE").
		WithArgs("tok", owner).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "tok", &owner))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepository_DeactivateNoMatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)

	mock.ExpectExec("UPDATE protected_links SET active = FALSE").
		WithArgs("tok").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "tok", nil)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkRepository_ListByCreator(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLinkRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM protected_links WHERE created_by = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(linkColumns).
			AddRow("b", "https://t.me/two", int64(7), now, false, 0).
			AddRow("a", "https://t.me/one", int64(7), now.Add(-time.Hour), true, 0))

	links, err := repo.ListByCreator(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "b", links[0].Token)
	assert.False(t, links[0].Active)
}
