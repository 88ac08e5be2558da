package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fgimenez/mythril-ci/internal/auth/domain"
	autherror "github.com/fgimenez/mythril-ci/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, email, email_lowered, first_name, last_name, terms_id, tier,
		password_hash, active, verification_code, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.EmailLowered, &u.FirstName, &u.LastName, &u.TermsID,
		&u.Tier, &u.PasswordHash, &u.Active, &u.VerificationCode, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email_lowered = $1
		LIMIT 1;
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, strings.ToLower(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
		LIMIT 1;
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, email_lowered, first_name, last_name, terms_id, tier,
			password_hash, active, verification_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.Email, user.EmailLowered, user.FirstName, user.LastName, user.TermsID,
		user.Tier, user.PasswordHash, user.Active, user.VerificationCode, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *Repository) Update(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, terms_id = $4, tier = $5,
			password_hash = $6, active = $7, verification_code = $8, updated_at = $9
		WHERE id = $1
	`, user.ID, user.FirstName, user.LastName, user.TermsID, user.Tier,
		user.PasswordHash, user.Active, user.VerificationCode, user.UpdatedAt)

	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns one page of users whose lowered email contains the filter,
// plus the total number of matches. LIKE metacharacters in the filter match
// literally.
func (r *Repository) List(ctx context.Context, emailFilter string, offset, limit int) ([]domain.User, int, error) {
	filter := "%" + likeEscaper.Replace(strings.ToLower(emailFilter)) + "%"

	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE email_lowered LIKE $1;`, filter).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email_lowered LIKE $1
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3;
	`
	rows, err := r.db.Query(ctx, query, filter, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read user rows: %w", err)
	}

	return users, total, nil
}

const insertSessionQuery = `
	INSERT INTO sessions (id, user_id, refresh_token, access_token_id, issued_at)
	VALUES ($1, $2, $3, $4, $5)
`

func (r *Repository) Store(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx, insertSessionQuery,
		s.ID, s.UserID, s.RefreshToken, s.AccessTokenID, s.IssuedAt)
	return err
}

// Rotate consumes the old refresh token and inserts the replacement in one
// transaction. The DELETE .. RETURNING is the single-winner point: a second
// concurrent caller presenting the same token deletes zero rows and gets
// ErrRefreshTokenNotFound, never a second pair.
func (r *Repository) Rotate(ctx context.Context, oldRefreshToken string, next *domain.Session) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerID string
	err = tx.QueryRow(ctx,
		`DELETE FROM sessions WHERE refresh_token = $1 RETURNING user_id;`,
		oldRefreshToken).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return autherror.ErrRefreshTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to consume refresh token: %w", err)
	}

	// A token presented with credentials of a different user is treated as
	// unknown rather than leaking whose it was.
	if ownerID != next.UserID {
		return autherror.ErrRefreshTokenNotFound
	}

	if _, err := tx.Exec(ctx, insertSessionQuery,
		next.ID, next.UserID, next.RefreshToken, next.AccessTokenID, next.IssuedAt); err != nil {
		return fmt.Errorf("failed to store rotated session: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repository) DeleteByAccessTokenID(ctx context.Context, accessTokenID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE access_token_id = $1;`, accessTokenID)
	return err
}

func (r *Repository) DeleteAllByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1;`, userID)
	return err
}
