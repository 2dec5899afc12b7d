package jwt

import "errors"

var (
	ErrEmptyToken    = errors.New("token string is empty")
	ErrInvalidToken  = errors.New("token is not valid")
	ErrTokenExpired  = errors.New("token expired")
	ErrMissingSecret = errors.New("signing secret is empty")
)

type TokenResponse struct {
	AccessToken string
	ExpiresAt   int64
}

type RegisterUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	Id           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password"`
}
