package auth

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Service authenticates the single admin account and issues session tokens.
// The configured password is hashed at startup so only the bcrypt digest
// stays in memory.
type Service struct {
	jwt       *JWTManager
	passwords *PasswordManager
	adminHash string
	logger    zerolog.Logger
}

// NewService creates the admin auth service from configuration
func NewService(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("admin password is required")
	}

	passwords := NewPasswordManager(DefaultBcryptCost)
	hash, err := passwords.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	return &Service{
		jwt:       NewJWTManager(cfg.JWTSecret, cfg.TokenDuration),
		passwords: passwords,
		adminHash: hash,
		logger:    logger.With().Str("component", "auth").Logger(),
	}, nil
}

// Login checks the admin password and returns a fresh session token
func (s *Service) Login(password string) (*LoginResponse, error) {
	if !s.passwords.VerifyPassword(password, s.adminHash) {
		s.logger.Warn().Msg("admin login rejected")
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAdminToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("token generation failed")
		return nil, err
	}

	s.logger.Info().Msg("admin logged in")
	return &LoginResponse{
		Token:     token,
		ExpiresIn: s.jwt.TokenDurationSeconds(),
		TokenType: "Bearer",
	}, nil
}

// JWT exposes the token manager for middleware and websocket upgrades
func (s *Service) JWT() *JWTManager {
	return s.jwt
}
