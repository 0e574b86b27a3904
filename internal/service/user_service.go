package service

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robcowart/udnm/internal/auth"
	"github.com/robcowart/udnm/internal/config"
	"github.com/robcowart/udnm/internal/database"
	"github.com/robcowart/udnm/internal/database/models"
	"go.uber.org/zap"
)

const jwtSecretKey = "jwt_secret"

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSetupComplete is returned when first-run setup is attempted twice
	ErrSetupComplete = errors.New("setup already complete")
)

// UserService handles operator accounts and API tokens
type UserService struct {
	db      *database.Database
	cfg     *config.Config
	tokens  *auth.TokenIssuer
	logger  *zap.Logger
	setupMu sync.Mutex
}

// NewUserService creates a new user service
func NewUserService(db *database.Database, cfg *config.Config, logger *zap.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		tokens: auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT),
		logger: logger,
	}
}

// Tokens returns the issuer used to sign and validate API tokens
func (s *UserService) Tokens() *auth.TokenIssuer {
	return s.tokens
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username string
	Password string
	Role     string
}

// CreateUser creates a new user
func (s *UserService) CreateUser(req *CreateUserRequest) (*models.User, error) {
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         req.Role,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Operator created", zap.String("username", user.Username), zap.String("role", user.Role))
	return user, nil
}

// AuthenticateUser authenticates a user and returns a JWT token
func (s *UserService) AuthenticateUser(username, password string) (string, error) {
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}

// SetupRequest represents initial setup request
type SetupRequest struct {
	Username string
	Password string
}

// SetupResponse contains setup response data
type SetupResponse struct {
	User  *models.User
	Token string
}

// PerformInitialSetup creates the first admin operator. A JWT secret is
// generated and persisted when none was configured.
func (s *UserService) PerformInitialSetup(req *SetupRequest) (*SetupResponse, error) {
	s.setupMu.Lock()
	defer s.setupMu.Unlock()

	isComplete, err := s.db.IsSetupComplete()
	if err != nil {
		return nil, fmt.Errorf("failed to check setup status: %w", err)
	}
	if isComplete {
		return nil, ErrSetupComplete
	}

	if !s.tokens.HasSecret() {
		secret, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		if err := s.db.SetSystemConfig(jwtSecretKey, secret); err != nil {
			return nil, fmt.Errorf("failed to store JWT secret: %w", err)
		}
		s.tokens.SetSecret(secret)
	}

	user, err := s.CreateUser(&CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     "admin",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &SetupResponse{
		User:  user,
		Token: token,
	}, nil
}

// IsSetupComplete checks if initial setup has been completed
func (s *UserService) IsSetupComplete() (bool, error) {
	return s.db.IsSetupComplete()
}

// LoadJWTSecret loads the JWT secret from the database unless one is
// configured explicitly
func (s *UserService) LoadJWTSecret() error {
	if s.tokens.HasSecret() {
		return nil
	}

	secret, err := s.db.GetSystemConfig(jwtSecretKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // Not an error if not found
		}
		return fmt.Errorf("failed to get JWT secret: %w", err)
	}

	s.tokens.SetSecret(secret)
	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
