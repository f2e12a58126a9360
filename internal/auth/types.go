package auth

import "time"

// AdminClaims represents the JWT claims carried by an admin session token
type AdminClaims struct {
	Role string `json:"role"`
}

// LoginRequest represents an admin login request
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful admin login
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // seconds
	TokenType string `json:"token_type"` // always "Bearer"
}

// Config holds authentication configuration
type Config struct {
	JWTSecret     string        `json:"jwt_secret"`
	AdminPassword string        `json:"admin_password"`
	TokenDuration time.Duration `json:"token_duration"`
}

// DefaultConfig returns default authentication configuration
func DefaultConfig() Config {
	return Config{
		TokenDuration: 8 * time.Hour,
	}
}

// AuthError carries a stable machine code next to the human message
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

// Common authentication errors
var (
	ErrInvalidCredentials = AuthError{Code: "INVALID_CREDENTIALS", Message: "invalid password"}
	ErrInvalidToken       = AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenExpired       = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrUnauthorized       = AuthError{Code: "UNAUTHORIZED", Message: "unauthorized access"}
	ErrForbidden          = AuthError{Code: "FORBIDDEN", Message: "access forbidden"}
)
