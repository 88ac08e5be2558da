package domain

import "context"

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/fgimenez/mythril-ci/internal/auth/domain UserRepository
//go:generate mockgen -destination=../../mocks/mock_session_repository.go -package=mocks github.com/fgimenez/mythril-ci/internal/auth/domain SessionRepository

// UserRepository resolves and mutates user accounts. Lookups return
// (nil, nil) when no user matches.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, emailFilter string, offset, limit int) ([]User, int, error)
}

// SessionRepository persists refresh-token sessions. Rotate must be atomic
// with respect to the old refresh token: of any number of concurrent calls
// presenting the same token, exactly one succeeds and the rest get
// ErrRefreshTokenNotFound.
type SessionRepository interface {
	Store(ctx context.Context, session *Session) error
	Rotate(ctx context.Context, oldRefreshToken string, next *Session) error
	DeleteByAccessTokenID(ctx context.Context, accessTokenID string) error
	DeleteAllByUserID(ctx context.Context, userID string) error
}
