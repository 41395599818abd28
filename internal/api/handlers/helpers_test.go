package handlers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/config"
	"github.com/Leonardo-max-el/app-certigen/internal/database"
	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
	"github.com/Leonardo-max-el/app-certigen/internal/render"
	"github.com/Leonardo-max-el/app-certigen/internal/service"
)

// testEnv bundles a migrated database with the services the handlers wrap.
// The certificate pipeline runs against stub render and convert stages.
type testEnv struct {
	db                 *database.Database
	cfg                *config.Config
	logger             *zap.Logger
	userService        *service.UserService
	participantService *service.ParticipantService
	importService      *service.ImportService
	certService        *service.CertificateService
}

type stubRenderer struct{}

func (stubRenderer) Render(templatePath string, fields render.Fields) ([]byte, error) {
	return []byte("docx bytes"), nil
}

type stubConverter struct{}

func (stubConverter) Convert(inputPath string) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

func newTestEnv(t *testing.T) *testEnv {
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
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()

	return &testEnv{
		db:                 db,
		cfg:                cfg,
		logger:             logger,
		userService:        service.NewUserService(db, cfg),
		participantService: service.NewParticipantService(db, cfg),
		importService:      service.NewImportService(db, logger),
		certService:        service.NewCertificateService(db, cfg, stubRenderer{}, stubConverter{}, logger),
	}
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// asSubject sets the auth context the way the auth middleware would.
func asSubject(subjectID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("subject_id", subjectID)
		c.Next()
	}
}

func createParticipant(t *testing.T, env *testEnv, name, dni, code, category string) *models.Participant {
	t.Helper()
	p := &models.Participant{
		ID:        uuid.New().String(),
		FullName:  name,
		Code:      code,
		DNI:       dni,
		Category:  category,
		CreatedAt: time.Now(),
	}
	require.NoError(t, env.db.CreateParticipant(p))
	return p
}
