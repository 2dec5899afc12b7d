package auth

import (
	"context"
	"strings"

	internaljwt "chat-widget/internal/jwt"
)

// Service authenticates the single configured console admin.
type Service struct {
	admin  internaljwt.User
	issuer *internaljwt.Issuer
}

// New hashes password once so logins compare against bcrypt, never the
// plaintext.
func New(email, password string, issuer *internaljwt.Issuer) (*Service, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, newError(ErrorCodeValidation, "admin email and password are required", nil)
	}

	admin, err := internaljwt.NewUser(internaljwt.RegisterUser{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to prepare admin", err)
	}
	admin.Id = "admin"

	return &Service{admin: admin, issuer: issuer}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)

	if email == "" || password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	if email != s.admin.Email || !internaljwt.ValidatePassword(s.admin.PasswordHash, password) {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	tokens, err := s.issuer.CreateToken(s.admin)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   s.issuer.TTL(),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
