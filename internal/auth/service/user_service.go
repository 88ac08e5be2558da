package service

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/fgimenez/mythril-ci/config"
	"github.com/fgimenez/mythril-ci/internal/auth/domain"
	"github.com/fgimenez/mythril-ci/internal/auth/dto"
	autherror "github.com/fgimenez/mythril-ci/internal/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const listPageSize = 100

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type UserService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	tokens   TokenGenerator
	cfg      *config.Config
}

func NewUserService(users domain.UserRepository, sessions domain.SessionRepository,
	tokens TokenGenerator, cfg *config.Config) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		cfg:      cfg,
	}
}

// Lookup resolves the user behind a verified access token. Missing users
// map to nil, nil; the caller decides what that means.
func (s *UserService) Lookup(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	if !emailPattern.MatchString(input.Email) {
		return nil, autherror.Validation("invalid email address")
	}
	if !slices.Contains(s.cfg.ValidTermsIDs, input.TermsID) {
		return nil, autherror.Validation("invalid terms id")
	}

	existing, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	now := time.Now()
	user := &domain.User{
		ID:               uuid.NewString(),
		Email:            input.Email,
		EmailLowered:     strings.ToLower(input.Email),
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		TermsID:          input.TermsID,
		Tier:             domain.TierStandard,
		Active:           false,
		VerificationCode: uuid.NewString(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) Activate(ctx context.Context, userID string, input dto.ActivateInput) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrUserNotFound
	}
	if user.Active {
		return autherror.ErrUserAlreadyActive
	}
	if !validPassword(input.Password) {
		return autherror.Validation("password does not meet requirements")
	}
	if input.VerificationCode == "" || input.VerificationCode != user.VerificationCode {
		return autherror.ErrWrongVerificationCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hash)
	user.Active = true
	user.VerificationCode = ""
	user.UpdatedAt = time.Now()

	return s.users.Update(ctx, user)
}

// validPassword wants at least 8 characters mixing letters and digits.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}

func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if user == nil || !user.Active ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, autherror.ErrInvalidCredentials
	}

	pair, err := s.tokens.Generate(user.ID, user.Email, string(user.Tier))
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		RefreshToken:  pair.RefreshToken,
		AccessTokenID: pair.AccessTokenID,
		IssuedAt:      time.Now(),
	}
	if err := s.sessions.Store(ctx, session); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh rotates a session: the access token only has to be structurally
// ours (it may be expired), the refresh token has to still be live in the
// store. A token that was already rotated or revoked reads as not found,
// which is exactly the replay signal.
func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	claims, err := s.tokens.ParseAccessToken(input.AccessToken)
	if err != nil {
		return nil, autherror.ErrMalformedAccessToken
	}

	pair, err := s.tokens.Generate(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		return nil, err
	}

	next := &domain.Session{
		ID:            uuid.NewString(),
		UserID:        claims.UserID,
		RefreshToken:  pair.RefreshToken,
		AccessTokenID: pair.AccessTokenID,
		IssuedAt:      time.Now(),
	}
	if err := s.sessions.Rotate(ctx, input.RefreshToken, next); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout drops the caller's session. Idempotent: a session that is already
// gone is still a successful logout.
func (s *UserService) Logout(ctx context.Context, accessTokenID string) error {
	return s.sessions.DeleteByAccessTokenID(ctx, accessTokenID)
}

// UpdateUser applies an administrative profile update and revokes every
// live session of the target. The revocation is the point: a profile change
// (tier included) must not leave tokens minted under the old profile alive.
func (s *UserService) UpdateUser(ctx context.Context, userID string, input dto.UpdateUserInput) (*domain.User, error) {
	if !slices.Contains(s.cfg.ValidTermsIDs, input.TermsID) {
		return nil, autherror.Validation("invalid terms id")
	}
	tier := domain.Tier(input.Type)
	if !tier.Valid() {
		return nil, autherror.Validation("invalid user type")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.TermsID = input.TermsID
	user.Tier = tier
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteAllByUserID(ctx, userID); err != nil {
		slog.Warn("failed to revoke sessions after profile update", "user_id", userID, "error", err)
		return nil, err
	}

	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, emailFilter string, offset int) (*dto.UserListOutput, error) {
	if offset < 0 {
		return nil, autherror.Validation("offset must not be negative")
	}

	users, total, err := s.users.List(ctx, emailFilter, offset, listPageSize)
	if err != nil {
		return nil, err
	}

	out := &dto.UserListOutput{
		Users:  make([]dto.UserOutput, 0, len(users)),
		Offset: offset,
		Length: total,
	}
	for i := range users {
		out.Users = append(out.Users, dto.NewUserOutput(&users[i]))
	}

	return out, nil
}
