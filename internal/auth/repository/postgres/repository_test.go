package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fgimenez/mythril-ci/internal/auth/domain"
	repo "github.com/fgimenez/mythril-ci/internal/auth/repository/postgres"
	autherror "github.com/fgimenez/mythril-ci/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{
	"id", "email", "email_lowered", "first_name", "last_name", "terms_id", "tier",
	"password_hash", "active", "verification_code", "created_at", "updated_at",
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userColumns).AddRow(
		u.ID, u.Email, u.EmailLowered, u.FirstName, u.LastName, u.TermsID, u.Tier,
		u.PasswordHash, u.Active, u.VerificationCode, u.CreatedAt, u.UpdatedAt)
}

func testUser() *domain.User {
	now := time.Now()
	return &domain.User{
		ID:           "user-123",
		Email:        "Test@Example.com",
		EmailLowered: "test@example.com",
		FirstName:    "David",
		LastName:     "Martin",
		TermsID:      "no_terms",
		Tier:         domain.TierStandard,
		PasswordHash: "hash",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TestGetByEmail covers the GetByEmail repository method.
func TestGetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewRepository(mock)
	ctx := context.Background()
	expectedUser := testUser()

	t.Run("success lowers the email", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, email_lowered").
			WithArgs("test@example.com").
			WillReturnRows(userRow(expectedUser))

		user, err := r.GetByEmail(ctx, "Test@Example.COM")
		require.NoError(t, err)
		assert.Equal(t, expectedUser.ID, user.ID)
		assert.Equal(t, domain.TierStandard, user.Tier)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, email_lowered").
			WithArgs("missing@example.com").
			WillReturnError(pgx.ErrNoRows)

		user, err := r.GetByEmail(ctx, "missing@example.com")
		require.NoError(t, err) // Should return nil user, nil error
		assert.Nil(t, user)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, email_lowered").
			WithArgs("test@example.com").
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.GetByEmail(ctx, "test@example.com")
		assert.Error(t, err)
	})
}

// TestGetByID covers the GetByID repository method.
func TestGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewRepository(mock)
	ctx := context.Background()
	expectedUser := testUser()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, email_lowered").
			WithArgs(expectedUser.ID).
			WillReturnRows(userRow(expectedUser))

		user, err := r.GetByID(ctx, expectedUser.ID)
		require.NoError(t, err)
		assert.Equal(t, expectedUser.Email, user.Email)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, email_lowered").
			WithArgs("missing-id").
			WillReturnError(pgx.ErrNoRows)

		user, err := r.GetByID(ctx, "missing-id")
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

// TestCreate covers the Create repository method.
func TestCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewRepository(mock)
	ctx := context.Background()
	u := testUser()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO users").
			WithArgs(u.ID, u.Email, u.EmailLowered, u.FirstName, u.LastName, u.TermsID, u.Tier,
				u.PasswordHash, u.Active, u.VerificationCode, u.CreatedAt, u.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := r.Create(ctx, u)
		assert.NoError(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO users").
			WithArgs(u.ID, u.Email, u.EmailLowered, u.FirstName, u.LastName, u.TermsID, u.Tier,
				u.PasswordHash, u.Active, u.VerificationCode, u.CreatedAt, u.UpdatedAt).
			WillReturnError(fmt.Errorf("db error"))

		err := r.Create(ctx, u)
		assert.Error(t, err)
	})
}

// TestUpdate covers the Update repository method.
func TestUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewRepository(mock)
	ctx := context.Background()
	u := testUser()

	mock.ExpectExec("UPDATE users").
		WithArgs(u.ID, u.FirstName, u.LastName, u.TermsID, u.Tier,
			u.PasswordHash, u.Active, u.VerificationCode, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = r.Update(ctx, u)
	assert.NoError(t, err)
}

// TestList covers the List repository method.
func TestList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewRepository(mock)
	ctx := context.Background()
	u := testUser()

	t.Run("returns page and total", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WithArgs("%test%").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))
		mock.ExpectQuery("SELECT id, email, email_lowered").
			WithArgs("%test%", 10, 100).
			WillReturnRows(userRow(u))

		users, total, err := r.List(ctx, "Test", 10, 100)
		require.NoError(t, err)
		assert.Equal(t, 42, total)
		require.Len(t, users, 1)
		assert.Equal(t, u.ID, users[0].ID)
	})

	t.Run("escapes LIKE metacharacters in the filter", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WithArgs(`%a\%b\_c\\d%`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT id, email, email_lowered").
			WithArgs(`%a\%b\_c\\d%`, 0, 100).
			WillReturnRows(pgxmock.NewRows(userColumns))

		users, total, err := r.List(ctx, `A%b_c\d`, 0, 100)
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, users)
	})

	t.Run("count error", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").
			WithArgs("%test%").
			WillReturnError(fmt.Errorf("db error"))

		_, _, err := r.List(ctx, "test", 0, 100)
		assert.Error(t, err)
	})
}

// TestStoreSession covers the session Store method.
func TestStoreSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewRepository(mock)
	ctx := context.Background()
	s := &domain.Session{
		ID:            "session-1",
		UserID:        "user-123",
		RefreshToken:  "refresh-token",
		AccessTokenID: "jti-1",
		IssuedAt:      time.Now(),
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(s.ID, s.UserID, s.RefreshToken, s.AccessTokenID, s.IssuedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := r.Store(ctx, s)
		assert.NoError(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(s.ID, s.UserID, s.RefreshToken, s.AccessTokenID, s.IssuedAt).
			WillReturnError(fmt.Errorf("db error"))

		err := r.Store(ctx, s)
		assert.Error(t, err)
	})
}

// TestRotate covers the atomic rotation of a refresh token.
func TestRotate(t *testing.T) {
	ctx := context.Background()
	next := &domain.Session{
		ID:            "session-2",
		UserID:        "user-123",
		RefreshToken:  "new-refresh-token",
		AccessTokenID: "jti-2",
		IssuedAt:      time.Now(),
	}

	t.Run("success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		r := repo.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("DELETE FROM sessions").
			WithArgs("old-refresh-token").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("user-123"))
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(next.ID, next.UserID, next.RefreshToken, next.AccessTokenID, next.IssuedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err = r.Rotate(ctx, "old-refresh-token", next)
		assert.NoError(t, err)
	})

	t.Run("token already consumed", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		r := repo.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("DELETE FROM sessions").
			WithArgs("replayed-token").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		err = r.Rotate(ctx, "replayed-token", next)
		assert.True(t, errors.Is(err, autherror.ErrRefreshTokenNotFound))
	})

	t.Run("token owned by someone else", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		r := repo.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("DELETE FROM sessions").
			WithArgs("stolen-token").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("other-user"))
		mock.ExpectRollback()

		err = r.Rotate(ctx, "stolen-token", next)
		assert.True(t, errors.Is(err, autherror.ErrRefreshTokenNotFound))
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		r := repo.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery("DELETE FROM sessions").
			WithArgs("old-refresh-token").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("user-123"))
		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(next.ID, next.UserID, next.RefreshToken, next.AccessTokenID, next.IssuedAt).
			WillReturnError(fmt.Errorf("db error"))
		mock.ExpectRollback()

		err = r.Rotate(ctx, "old-refresh-token", next)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, autherror.ErrRefreshTokenNotFound))
	})
}

// TestDeleteByAccessTokenID covers logout.
func TestDeleteByAccessTokenID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewRepository(mock)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("jti-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = r.DeleteByAccessTokenID(ctx, "jti-1")
	assert.NoError(t, err)
}

// TestDeleteAllByUserID covers cascade revocation.
func TestDeleteAllByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewRepository(mock)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("user-123").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err = r.DeleteAllByUserID(ctx, "user-123")
	assert.NoError(t, err)
}
