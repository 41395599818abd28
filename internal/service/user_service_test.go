package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leonardo-max-el/app-certigen/internal/auth"
	"github.com/Leonardo-max-el/app-certigen/internal/config"
	"github.com/Leonardo-max-el/app-certigen/internal/database"
)

// setupTestDB creates a migrated test database and a matching configuration
func setupTestDB(t *testing.T) (*database.Database, *config.Config) {
	t.Helper()

	dir := t.TempDir()

	templatePath := filepath.Join(dir, "plantilla.docx")
	require.NoError(t, os.WriteFile(templatePath, []byte("template"), 0o644))

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: filepath.Join(dir, "test.db"),
			},
		},
		JWT: config.JWTConfig{
			Secret:     "test-secret-key",
			Expiration: 24 * time.Hour,
			Issuer:     "certigen-test",
		},
		Certificate: config.CertificateConfig{
			TemplatePath:     templatePath,
			PublicBaseURL:    "https://certs.example.org",
			QRSize:           128,
			DateLocale:       "es_ES",
			ConverterTimeout: time.Minute,
		},
		Import: config.ImportConfig{
			MaxFileSize:       config.DefaultMaxFileSize,
			MaxReportedErrors: config.DefaultMaxReportedErrors,
		},
	}

	db, err := database.New(cfg)
	require.NoError(t, err, "Failed to create test database")
	require.NoError(t, db.Migrate(), "Failed to run migrations")

	return db, cfg
}

func TestPerformInitialSetup(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	userService := NewUserService(db, cfg)

	t.Run("Setup starts incomplete", func(t *testing.T) {
		complete, err := userService.IsSetupComplete()
		require.NoError(t, err)
		assert.False(t, complete)
	})

	t.Run("First setup creates admin and returns token", func(t *testing.T) {
		resp, err := userService.PerformInitialSetup(&SetupRequest{
			Username: "admin",
			Password: "password123",
		})
		require.NoError(t, err)
		assert.Equal(t, "admin", resp.User.Username)
		assert.Equal(t, auth.RoleAdmin, resp.User.Role)
		assert.NotEmpty(t, resp.Token)

		claims, err := auth.ValidateToken(resp.Token, cfg.JWT.Secret)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, claims.Role)
	})

	t.Run("Second setup refuses", func(t *testing.T) {
		_, err := userService.PerformInitialSetup(&SetupRequest{
			Username: "other",
			Password: "password123",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already complete")
	})
}

func TestPerformInitialSetup_GeneratesJWTSecret(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	cfg.JWT.Secret = ""
	userService := NewUserService(db, cfg)

	_, err := userService.PerformInitialSetup(&SetupRequest{
		Username: "admin",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.JWT.Secret)

	stored, err := db.GetSystemConfig("jwt_secret")
	require.NoError(t, err)
	assert.Equal(t, cfg.JWT.Secret, stored)

	t.Run("LoadJWTSecret restores it on restart", func(t *testing.T) {
		restarted := &config.Config{JWT: config.JWTConfig{}}
		fresh := NewUserService(db, restarted)
		require.NoError(t, fresh.LoadJWTSecret())
		assert.Equal(t, stored, restarted.JWT.Secret)
	})
}

func TestLoadJWTSecret_NotStored(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	userService := NewUserService(db, cfg)
	assert.NoError(t, userService.LoadJWTSecret())
}

func TestAuthenticateUser(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	userService := NewUserService(db, cfg)
	_, err := userService.PerformInitialSetup(&SetupRequest{
		Username: "admin",
		Password: "password123",
	})
	require.NoError(t, err)

	t.Run("Valid credentials return token", func(t *testing.T) {
		token, err := userService.AuthenticateUser("admin", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("Wrong password fails", func(t *testing.T) {
		_, err := userService.AuthenticateUser("admin", "wrongpassword1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("Unknown username fails the same way", func(t *testing.T) {
		_, err := userService.AuthenticateUser("nobody", "password123")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid credentials")
	})
}

func TestCreateUser(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	userService := NewUserService(db, cfg)

	t.Run("Weak password rejected", func(t *testing.T) {
		_, err := userService.CreateUser(&CreateUserRequest{
			Username: "admin",
			Password: "short",
			Role:     auth.RoleAdmin,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weak password")
	})

	t.Run("Password is stored hashed", func(t *testing.T) {
		user, err := userService.CreateUser(&CreateUserRequest{
			Username: "admin2",
			Password: "password123",
			Role:     auth.RoleAdmin,
		})
		require.NoError(t, err)
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.NoError(t, auth.VerifyPassword("password123", user.PasswordHash))
	})
}
