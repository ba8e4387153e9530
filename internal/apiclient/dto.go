package apiclient

import (
	"errors"
	"strings"

	"catalogshell/client/internal/session"
)

// RegisterRequest описывает тело запроса /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest описывает тело запроса /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse соответствует ответу /auth/login и /auth/register.
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// ErrorResponse: тело ответа с ошибкой.
type ErrorResponse struct {
	Message string `json:"message"`
}

// AuthResult: проверенный результат аутентификации.
type AuthResult struct {
	Token string
	Role  session.Role
}

// Validate преобразует DTO в AuthResult, требуя непустой токен.
func (dto AuthResponse) Validate(op string) (AuthResult, error) {
	token := strings.TrimSpace(dto.Token)
	if token == "" {
		return AuthResult{}, &Error{Op: op, Kind: KindInvalidResponse, Err: errors.New("empty token")}
	}
	return AuthResult{Token: token, Role: session.ParseRole(dto.Role)}, nil
}
