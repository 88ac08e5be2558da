package dto

import (
	"github.com/fgimenez/mythril-ci/internal/auth/domain"
)

type UserOutput struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	TermsID   string `json:"termsId"`
	Type      string `json:"type"`
}

func NewUserOutput(u *domain.User) UserOutput {
	return UserOutput{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		TermsID:   u.TermsID,
		Type:      string(u.Tier),
	}
}

type UpdateUserInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	TermsID   string `json:"termsId"`
	Type      string `json:"type"`
}

type UserListOutput struct {
	Users  []UserOutput `json:"users"`
	Offset int          `json:"offset"`
	Length int          `json:"length"`
}
