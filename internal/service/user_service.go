package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Leonardo-max-el/app-certigen/internal/auth"
	"github.com/Leonardo-max-el/app-certigen/internal/config"
	"github.com/Leonardo-max-el/app-certigen/internal/database"
	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
)

// UserService handles admin user operations
type UserService struct {
	db  *database.Database
	cfg *config.Config
}

// NewUserService creates a new user service
func NewUserService(db *database.Database, cfg *config.Config) *UserService {
	return &UserService{
		db:  db,
		cfg: cfg,
	}
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username string
	Password string
	Role     string
}

// CreateUser creates a new admin user
func (s *UserService) CreateUser(req *CreateUserRequest) (*models.User, error) {
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, fmt.Errorf("weak password: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         req.Role,
		CreatedAt:    time.Now(),
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// AuthenticateUser authenticates an admin user and returns a JWT token
func (s *UserService) AuthenticateUser(username, password string) (string, error) {
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("invalid credentials")
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.GenerateToken(
		user.ID,
		user.Username,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}

// SetupRequest represents the initial admin provisioning request
type SetupRequest struct {
	Username string
	Password string
}

// SetupResponse contains provisioning response data
type SetupResponse struct {
	User  *models.User
	Token string
}

// PerformInitialSetup provisions the first admin account. It is the
// explicit deployment-time bootstrap step: credentials are supplied by the
// operator, never defaulted, and the call refuses once any user exists.
func (s *UserService) PerformInitialSetup(req *SetupRequest) (*SetupResponse, error) {
	isComplete, err := s.db.IsSetupComplete()
	if err != nil {
		return nil, fmt.Errorf("failed to check setup status: %w", err)
	}
	if isComplete {
		return nil, fmt.Errorf("setup already complete")
	}

	// Generate the JWT secret if the deployment did not supply one
	if s.cfg.JWT.Secret == "" {
		secret, err := auth.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		s.cfg.JWT.Secret = secret
		if err := s.db.SetSystemConfig("jwt_secret", secret); err != nil {
			return nil, fmt.Errorf("failed to store JWT secret: %w", err)
		}
	}

	user, err := s.CreateUser(&CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     auth.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	token, err := auth.GenerateToken(
		user.ID,
		user.Username,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &SetupResponse{
		User:  user,
		Token: token,
	}, nil
}

// IsSetupComplete checks if initial provisioning has been completed
func (s *UserService) IsSetupComplete() (bool, error) {
	return s.db.IsSetupComplete()
}

// LoadJWTSecret loads a previously generated JWT secret from the database
func (s *UserService) LoadJWTSecret() error {
	secret, err := s.db.GetSystemConfig("jwt_secret")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // Not an error if not found
		}
		return fmt.Errorf("failed to get JWT secret: %w", err)
	}

	s.cfg.JWT.Secret = secret
	return nil
}
