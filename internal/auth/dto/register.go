package dto

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	TermsID   string `json:"termsId"`
}

type ActivateInput struct {
	Password         string `json:"password"`
	VerificationCode string `json:"verificationCode"`
}
