// Package config provides configuration management for the app-certigen
// application. It handles loading configuration from YAML files, applying
// environment variable and command line flag overrides, and validating
// configuration values for server, database, JWT, certificate generation,
// import, logging, and security settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Certificate CertificateConfig `yaml:"certificate"`
	Import      ImportConfig      `yaml:"import"`
	Logging     LoggingConfig     `yaml:"logging"`
	Security    SecurityConfig    `yaml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	Host         string        `yaml:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled"`
	TLSCert      string        `yaml:"tls_cert"`
	TLSKey       string        `yaml:"tls_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Expiration time.Duration `yaml:"expiration"`
	Issuer     string        `yaml:"issuer"`
}

// CertificateConfig holds certificate generation configuration
type CertificateConfig struct {
	// TemplatePath is the .docx template merged for every certificate.
	TemplatePath string `yaml:"template_path"`
	// PublicBaseURL is the deployment's public origin used to build the
	// verification URL embedded in the QR code.
	PublicBaseURL string `yaml:"public_base_url"`
	// QRSize is the generated QR image edge length in pixels.
	QRSize int `yaml:"qr_size"`
	// DateLocale selects the locale for the printed issue date (e.g. es_ES).
	DateLocale string `yaml:"date_locale"`
	// ConverterTimeout bounds a single document conversion.
	ConverterTimeout time.Duration `yaml:"converter_timeout"`
	// ConverterPaths are explicit conversion engine locations tried before
	// PATH lookup and the conventional install directories.
	ConverterPaths []string `yaml:"converter_paths"`
}

// ImportConfig holds roster import configuration
type ImportConfig struct {
	MaxFileSize       int64 `yaml:"max_file_size"`
	MaxReportedErrors int   `yaml:"max_reported_errors"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSEnabled bool     `yaml:"cors_enabled"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Default sizing for the import and QR settings when the file omits them.
const (
	DefaultMaxFileSize       = 5 * 1024 * 1024
	DefaultMaxReportedErrors = 10
	DefaultQRSize            = 256
	DefaultConverterTimeout  = 60 * time.Second
	DefaultDateLocale        = "es_ES"
)

// Load reads and parses the configuration file, then applies environment
// variable and command line flag overrides
func Load(path string, flags *Flags) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if flags != nil {
		cfg.applyFlagOverrides(flags)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Certificate.QRSize == 0 {
		c.Certificate.QRSize = DefaultQRSize
	}
	if c.Certificate.ConverterTimeout == 0 {
		c.Certificate.ConverterTimeout = DefaultConverterTimeout
	}
	if c.Certificate.DateLocale == "" {
		c.Certificate.DateLocale = DefaultDateLocale
	}
	if c.Import.MaxFileSize == 0 {
		c.Import.MaxFileSize = DefaultMaxFileSize
	}
	if c.Import.MaxReportedErrors == 0 {
		c.Import.MaxReportedErrors = DefaultMaxReportedErrors
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvOverrides() {
	// Server overrides
	if port := os.Getenv("CERTIGEN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("CERTIGEN_SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Database overrides
	if dbType := os.Getenv("CERTIGEN_DB_TYPE"); dbType != "" {
		c.Database.Type = dbType
	}
	if dbPath := os.Getenv("CERTIGEN_DB_SQLITE_PATH"); dbPath != "" {
		c.Database.SQLite.Path = dbPath
	}
	if pgHost := os.Getenv("CERTIGEN_DB_POSTGRES_HOST"); pgHost != "" {
		c.Database.Postgres.Host = pgHost
	}
	if pgPort := os.Getenv("CERTIGEN_DB_POSTGRES_PORT"); pgPort != "" {
		if p, err := strconv.Atoi(pgPort); err == nil {
			c.Database.Postgres.Port = p
		}
	}
	if pgDB := os.Getenv("CERTIGEN_DB_POSTGRES_DATABASE"); pgDB != "" {
		c.Database.Postgres.Database = pgDB
	}
	if pgUser := os.Getenv("CERTIGEN_DB_POSTGRES_USER"); pgUser != "" {
		c.Database.Postgres.User = pgUser
	}
	if pgPass := os.Getenv("CERTIGEN_DB_POSTGRES_PASSWORD"); pgPass != "" {
		c.Database.Postgres.Password = pgPass
	}

	// JWT overrides
	if jwtSecret := os.Getenv("CERTIGEN_JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	// Certificate overrides
	if tmpl := os.Getenv("CERTIGEN_CERT_TEMPLATE_PATH"); tmpl != "" {
		c.Certificate.TemplatePath = tmpl
	}
	if baseURL := os.Getenv("CERTIGEN_CERT_PUBLIC_BASE_URL"); baseURL != "" {
		c.Certificate.PublicBaseURL = baseURL
	}

	// Logging overrides
	if logLevel := os.Getenv("CERTIGEN_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// applyFlagOverrides applies command line flag overrides, which take
// precedence over both the file and environment variables
func (c *Config) applyFlagOverrides(f *Flags) {
	if v, set := f.GetServerPort(); set {
		c.Server.Port = v
	}
	if v, set := f.GetServerHost(); set {
		c.Server.Host = v
	}
	if v, set := f.GetDBType(); set {
		c.Database.Type = v
	}
	if v, set := f.GetDBSQLitePath(); set {
		c.Database.SQLite.Path = v
	}
	if v, set := f.GetDBPostgresHost(); set {
		c.Database.Postgres.Host = v
	}
	if v, set := f.GetDBPostgresPort(); set {
		c.Database.Postgres.Port = v
	}
	if v, set := f.GetDBPostgresDatabase(); set {
		c.Database.Postgres.Database = v
	}
	if v, set := f.GetDBPostgresUser(); set {
		c.Database.Postgres.User = v
	}
	if v, set := f.GetDBPostgresPassword(); set {
		c.Database.Postgres.Password = v
	}
	if v, set := f.GetJWTSecret(); set {
		c.JWT.Secret = v
	}
	if v, set := f.GetCertTemplatePath(); set {
		c.Certificate.TemplatePath = v
	}
	if v, set := f.GetCertPublicBaseURL(); set {
		c.Certificate.PublicBaseURL = v
	}
	if v, set := f.GetCertQRSize(); set {
		c.Certificate.QRSize = v
	}
	if v, set := f.GetCertDateLocale(); set {
		c.Certificate.DateLocale = v
	}
	if v, set := f.GetCertConverterTimeout(); set {
		if d, err := time.ParseDuration(v); err == nil {
			c.Certificate.ConverterTimeout = d
		}
	}
	if v, set := f.GetLogLevel(); set {
		c.Logging.Level = v
	}
	if v, set := f.GetLogFormat(); set {
		c.Logging.Format = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCert == "" || c.Server.TLSKey == "" {
			return fmt.Errorf("TLS enabled but cert or key not specified")
		}
	}

	// Validate database config
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("invalid database type: %s (must be 'sqlite' or 'postgres')", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.SQLite.Path == "" {
		return fmt.Errorf("SQLite path not specified")
	}
	if c.Database.Type == "postgres" {
		if c.Database.Postgres.Host == "" || c.Database.Postgres.Database == "" {
			return fmt.Errorf("PostgreSQL host and database must be specified")
		}
	}

	// Validate certificate config
	if c.Certificate.TemplatePath == "" {
		return fmt.Errorf("certificate template path not specified")
	}
	if c.Certificate.PublicBaseURL == "" {
		return fmt.Errorf("certificate public base URL not specified")
	}
	if c.Certificate.QRSize < 64 || c.Certificate.QRSize > 2048 {
		return fmt.Errorf("invalid QR size: %d (must be between 64 and 2048)", c.Certificate.QRSize)
	}
	if c.Certificate.ConverterTimeout < time.Second {
		return fmt.Errorf("converter timeout too small: %s", c.Certificate.ConverterTimeout)
	}

	// Validate import config
	if c.Import.MaxFileSize < 1 {
		return fmt.Errorf("invalid import max file size: %d", c.Import.MaxFileSize)
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the database connection string based on the configured type
func (c *Config) GetDSN() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Postgres.Host,
			c.Database.Postgres.Port,
			c.Database.Postgres.User,
			c.Database.Postgres.Password,
			c.Database.Postgres.Database,
			c.Database.Postgres.SSLMode,
		)
	default:
		return ""
	}
}
