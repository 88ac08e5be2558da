package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/fgimenez/mythril-ci/internal/auth/service TokenGenerator

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPair is a freshly minted credential set. AccessTokenID is the jti of
// the access token; the session row records it so logout can find the
// caller's session from the bearer credential alone.
type TokenPair struct {
	AccessToken   string
	AccessTokenID string
	RefreshToken  string
}

type TokenGenerator interface {
	Generate(userID, email, role string) (*TokenPair, error)
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
	ParseAccessToken(tokenString string) (*JWTCustomClaims, error)
}

type TokenService struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func NewTokenService(accessSecret string, accessMinutes int) *TokenService {
	return &TokenService{
		AccessTokenSecret: accessSecret,
		AccessTokenExpiry: time.Duration(accessMinutes) * time.Minute,
	}
}

// Generate mints a short-lived HS256 access token and an opaque refresh
// token. The refresh token is pure entropy; it only means something to the
// session store.
func (ts *TokenService) Generate(userID, email, role string) (*TokenPair, error) {
	now := time.Now()
	accessTokenID := uuid.NewString()

	accessClaims := JWTCustomClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        accessTokenID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(ts.AccessTokenSecret))
	if err != nil {
		return nil, err
	}

	refreshToken, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:   accessToken,
		AccessTokenID: accessTokenID,
		RefreshToken:  refreshToken,
	}, nil
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyAccessToken parses and fully validates the given access token,
// expiry included. Used by the request-time auth gate.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.parse(tokenString, true)
}

// ParseAccessToken checks shape and signature but ignores expiry. The
// refresh flow accepts an expired access token as long as it is genuinely
// ours; a token that fails here is malformed, not merely stale.
func (ts *TokenService) ParseAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.parse(tokenString, false)
}

func (ts *TokenService) parse(tokenString string, validateClaims bool) (*JWTCustomClaims, error) {
	var opts []jwt.ParserOption
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ts.AccessTokenSecret), nil
	}, opts...)

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
