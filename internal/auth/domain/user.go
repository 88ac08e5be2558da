package domain

import "time"

// Tier selects which rate-limit thresholds apply to a user.
type Tier string

const (
	TierStandard  Tier = "standard"
	TierUnlimited Tier = "unlimited"
	TierAdmin     Tier = "admin"
)

func (t Tier) Valid() bool {
	switch t {
	case TierStandard, TierUnlimited, TierAdmin:
		return true
	}
	return false
}

type User struct {
	ID               string
	Email            string
	EmailLowered     string
	FirstName        string
	LastName         string
	TermsID          string
	Tier             Tier
	PasswordHash     string
	Active           bool
	VerificationCode string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Session is one live refresh-token generation. A row exists exactly as
// long as the session is valid; rotation replaces the row, logout and
// cascade revocation delete it.
type Session struct {
	ID            string
	UserID        string
	RefreshToken  string
	AccessTokenID string
	IssuedAt      time.Time
}
