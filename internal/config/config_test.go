package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
server:
  port: 8080
  host: "0.0.0.0"

database:
  type: "sqlite"
  sqlite:
    path: "/tmp/certigen.db"

jwt:
  secret: "test-secret"
  expiration: 24h
  issuer: "certigen"

certificate:
  template_path: "/opt/certigen/plantilla.docx"
  public_base_url: "https://certs.example.org"

logging:
  level: "info"
  format: "json"
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Load valid configuration", func(t *testing.T) {
		path := writeTestConfig(t, testConfigYAML)

		cfg, err := Load(path, nil)
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "sqlite", cfg.Database.Type)
		assert.Equal(t, "test-secret", cfg.JWT.Secret)
		assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
		assert.Equal(t, "/opt/certigen/plantilla.docx", cfg.Certificate.TemplatePath)
		assert.Equal(t, "https://certs.example.org", cfg.Certificate.PublicBaseURL)
	})

	t.Run("Defaults fill omitted certificate and import settings", func(t *testing.T) {
		path := writeTestConfig(t, testConfigYAML)

		cfg, err := Load(path, nil)
		require.NoError(t, err)

		assert.Equal(t, DefaultQRSize, cfg.Certificate.QRSize)
		assert.Equal(t, DefaultConverterTimeout, cfg.Certificate.ConverterTimeout)
		assert.Equal(t, DefaultDateLocale, cfg.Certificate.DateLocale)
		assert.Equal(t, int64(DefaultMaxFileSize), cfg.Import.MaxFileSize)
		assert.Equal(t, DefaultMaxReportedErrors, cfg.Import.MaxReportedErrors)
	})

	t.Run("Missing file fails", func(t *testing.T) {
		_, err := Load("/nonexistent/config.yaml", nil)
		assert.Error(t, err)
	})

	t.Run("Invalid YAML fails", func(t *testing.T) {
		path := writeTestConfig(t, "server: [not a mapping")
		_, err := Load(path, nil)
		assert.Error(t, err)
	})

	t.Run("Environment variables override file values", func(t *testing.T) {
		t.Setenv("CERTIGEN_SERVER_PORT", "9090")
		t.Setenv("CERTIGEN_CERT_PUBLIC_BASE_URL", "https://override.example.org")
		t.Setenv("CERTIGEN_LOG_LEVEL", "debug")

		path := writeTestConfig(t, testConfigYAML)

		cfg, err := Load(path, nil)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "https://override.example.org", cfg.Certificate.PublicBaseURL)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Database: DatabaseConfig{
				Type:   "sqlite",
				SQLite: SQLiteConfig{Path: "/tmp/test.db"},
			},
			Certificate: CertificateConfig{
				TemplatePath:     "/opt/plantilla.docx",
				PublicBaseURL:    "https://certs.example.org",
				QRSize:           256,
				ConverterTimeout: time.Minute,
			},
			Import:  ImportConfig{MaxFileSize: 1024, MaxReportedErrors: 10},
			Logging: LoggingConfig{Level: "info"},
		}
	}

	t.Run("Valid configuration passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("Invalid port fails", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("Invalid database type fails", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Type = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Missing SQLite path fails", func(t *testing.T) {
		cfg := valid()
		cfg.Database.SQLite.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Missing template path fails", func(t *testing.T) {
		cfg := valid()
		cfg.Certificate.TemplatePath = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Missing public base URL fails", func(t *testing.T) {
		cfg := valid()
		cfg.Certificate.PublicBaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("QR size out of range fails", func(t *testing.T) {
		cfg := valid()
		cfg.Certificate.QRSize = 32
		assert.Error(t, cfg.Validate())

		cfg.Certificate.QRSize = 4096
		assert.Error(t, cfg.Validate())
	})

	t.Run("Converter timeout below one second fails", func(t *testing.T) {
		cfg := valid()
		cfg.Certificate.ConverterTimeout = 100 * time.Millisecond
		assert.Error(t, cfg.Validate())
	})

	t.Run("TLS enabled without cert fails", func(t *testing.T) {
		cfg := valid()
		cfg.Server.TLSEnabled = true
		assert.Error(t, cfg.Validate())
	})

	t.Run("Invalid log level fails", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})
}

func TestGetDSN(t *testing.T) {
	t.Run("SQLite DSN is the file path", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{
				Type:   "sqlite",
				SQLite: SQLiteConfig{Path: "/var/lib/certigen/data.db"},
			},
		}
		assert.Equal(t, "/var/lib/certigen/data.db", cfg.GetDSN())
	})

	t.Run("PostgreSQL DSN contains connection parameters", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{
				Type: "postgres",
				Postgres: PostgresConfig{
					Host:     "localhost",
					Port:     5432,
					Database: "certigen",
					User:     "certigen",
					Password: "secret",
					SSLMode:  "disable",
				},
			},
		}
		dsn := cfg.GetDSN()
		assert.Contains(t, dsn, "host=localhost")
		assert.Contains(t, dsn, "port=5432")
		assert.Contains(t, dsn, "dbname=certigen")
		assert.Contains(t, dsn, "sslmode=disable")
	})
}
