package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/clock"
	appctx "freshledger/internal/core/context"
	"freshledger/internal/core/tx"
	"freshledger/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts  int
	LockDuration      time.Duration
	PasswordMinLength int
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:  5,
		LockDuration:      15 * time.Minute,
		PasswordMinLength: 8,
	}
}

// Service authenticates operators and issues tokens.
type Service struct {
	repo      OperatorRepository
	txManager tx.Manager
	jwt       *JWTService
	clock     clock.Clock
	config    ServiceConfig
}

// NewService creates a new auth service.
func NewService(repo OperatorRepository, txManager tx.Manager, jwt *JWTService, clk clock.Clock, config ServiceConfig) *Service {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{repo: repo, txManager: txManager, jwt: jwt, clock: clk, config: config}
}

// HashPassword returns a bcrypt hash of password.
func (s *Service) HashPassword(password string) (string, error) {
	if len(password) < s.config.PasswordMinLength {
		return "", apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Bootstrap makes sure the configured operator exists with the given
// password hash. Called once at startup.
func (s *Service) Bootstrap(ctx context.Context, username, passwordHash string) error {
	username = NormalizeUsername(username)
	if username == "" || passwordHash == "" {
		return apperror.NewValidation("operator username and password hash are required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return apperror.NewValidation("operator password hash is not a bcrypt hash").WithCause(err)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		op, err := s.repo.GetByUsername(ctx, username)
		switch {
		case apperror.IsNotFound(err):
			op = NewOperator(username, passwordHash, s.clock.Now())
			if err := s.repo.Create(ctx, op); err != nil {
				return fmt.Errorf("create operator: %w", err)
			}
			logger.Info(ctx, "operator created", "username", username)
			return nil
		case err != nil:
			return fmt.Errorf("get operator: %w", err)
		}

		if op.PasswordHash == passwordHash && op.IsActive {
			return nil
		}
		op.PasswordHash = passwordHash
		op.IsActive = true
		op.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, op); err != nil {
			return fmt.Errorf("update operator: %w", err)
		}
		logger.Info(ctx, "operator credentials rotated", "username", username)
		return nil
	})
}

// Login authenticates an operator and returns an access token.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Token, *Operator, error) {
	username := NormalizeUsername(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, nil, apperror.NewValidation("username and password are required")
	}

	op, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, nil, fmt.Errorf("get operator: %w", err)
	}

	now := s.clock.Now()
	if err := op.CanLogin(now); err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(creds.Password)); err != nil {
		op.RecordFailedLogin(now, s.config.MaxLoginAttempts, s.config.LockDuration)
		if uerr := s.repo.Update(ctx, op); uerr != nil {
			logger.Warn(ctx, "failed to record failed login", "username", username, "error", uerr)
		}
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	signed, expiresAt, err := s.jwt.GenerateAccessToken(op)
	if err != nil {
		return nil, nil, fmt.Errorf("generate token: %w", err)
	}

	op.RecordSuccessfulLogin(now)
	if err := s.repo.Update(ctx, op); err != nil {
		logger.Warn(ctx, "failed to record login", "username", username, "error", err)
	}

	logger.Info(ctx, "operator logged in", "operator_id", op.ID, "username", op.Username)

	return &Token{AccessToken: signed, ExpiresAt: expiresAt, TokenType: "Bearer"}, op, nil
}

// ValidateToken validates an access token.
func (s *Service) ValidateToken(token string) (*appctx.UserContext, error) {
	return s.jwt.ValidateToken(token)
}
