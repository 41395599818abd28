package config

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// Flags holds all command line flag values
type Flags struct {
	// General
	configFile *string
	version    *bool

	// Server
	serverPort *int
	serverHost *string

	// Database
	dbType             *string
	dbSQLitePath       *string
	dbPostgresHost     *string
	dbPostgresPort     *int
	dbPostgresDatabase *string
	dbPostgresUser     *string
	dbPostgresPassword *string

	// JWT
	jwtSecret *string

	// Certificate
	certTemplatePath     *string
	certPublicBaseURL    *string
	certQRSize           *int
	certDateLocale       *string
	certConverterTimeout *string

	// Logging
	logLevel  *string
	logFormat *string
}

// ParseFlags defines and parses all command line flags
func ParseFlags() (*Flags, string, bool) {
	f := &Flags{}

	// General flags
	f.configFile = flag.StringP("config", "c", "config.yaml", "Path to configuration file")
	f.version = flag.BoolP("version", "v", false, "Print version and exit")

	// Server flags
	f.serverPort = flag.Int("server.port", 0, "HTTP server port")
	f.serverHost = flag.String("server.host", "", "HTTP server bind address")

	// Database flags
	f.dbType = flag.String("db.type", "", "Database type (sqlite or postgres)")
	f.dbSQLitePath = flag.String("db.sqlite.path", "", "SQLite database file path")
	f.dbPostgresHost = flag.String("db.postgres.host", "", "PostgreSQL host")
	f.dbPostgresPort = flag.Int("db.postgres.port", 0, "PostgreSQL port")
	f.dbPostgresDatabase = flag.String("db.postgres.database", "", "PostgreSQL database name")
	f.dbPostgresUser = flag.String("db.postgres.user", "", "PostgreSQL user")
	f.dbPostgresPassword = flag.String("db.postgres.password", "", "PostgreSQL password")

	// JWT flags
	f.jwtSecret = flag.String("jwt.secret", "", "JWT secret key")

	// Certificate flags
	f.certTemplatePath = flag.String("cert.template-path", "", "Path to the .docx certificate template")
	f.certPublicBaseURL = flag.String("cert.public-base-url", "", "Public base URL embedded in verification QR codes")
	f.certQRSize = flag.Int("cert.qr-size", 0, "QR image size in pixels")
	f.certDateLocale = flag.String("cert.date-locale", "", "Locale for the printed issue date (e.g. es_ES)")
	f.certConverterTimeout = flag.String("cert.converter-timeout", "", "Document conversion timeout (e.g. 60s)")

	// Logging flags
	f.logLevel = flag.StringP("log.level", "l", "", "Log level (debug, info, warn, error)")
	f.logFormat = flag.String("log.format", "", "Log format (json or console)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "app-certigen - event participation certificate service\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfiguration priority (highest to lowest):\n")
		fmt.Fprintf(os.Stderr, "  1. Command line flags\n")
		fmt.Fprintf(os.Stderr, "  2. Environment variables (CERTIGEN_*)\n")
		fmt.Fprintf(os.Stderr, "  3. Configuration file (default: config.yaml)\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  # Start with custom config file\n")
		fmt.Fprintf(os.Stderr, "  %s --config /etc/certigen/config.yaml\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Override port and template\n")
		fmt.Fprintf(os.Stderr, "  %s --server.port 9000 --cert.template-path ./plantillas/certificado.docx\n\n", os.Args[0])
	}

	flag.Parse()

	return f, *f.configFile, *f.version
}

// GetServerPort returns the server port flag value and whether it was set
func (f *Flags) GetServerPort() (int, bool) {
	return *f.serverPort, flag.Lookup("server.port").Changed
}

// GetServerHost returns the server host flag value and whether it was set
func (f *Flags) GetServerHost() (string, bool) {
	return *f.serverHost, flag.Lookup("server.host").Changed
}

// GetDBType returns the database type flag value and whether it was set
func (f *Flags) GetDBType() (string, bool) {
	return *f.dbType, flag.Lookup("db.type").Changed
}

// GetDBSQLitePath returns the SQLite path flag value and whether it was set
func (f *Flags) GetDBSQLitePath() (string, bool) {
	return *f.dbSQLitePath, flag.Lookup("db.sqlite.path").Changed
}

// GetDBPostgresHost returns the PostgreSQL host flag value and whether it was set
func (f *Flags) GetDBPostgresHost() (string, bool) {
	return *f.dbPostgresHost, flag.Lookup("db.postgres.host").Changed
}

// GetDBPostgresPort returns the PostgreSQL port flag value and whether it was set
func (f *Flags) GetDBPostgresPort() (int, bool) {
	return *f.dbPostgresPort, flag.Lookup("db.postgres.port").Changed
}

// GetDBPostgresDatabase returns the PostgreSQL database flag value and whether it was set
func (f *Flags) GetDBPostgresDatabase() (string, bool) {
	return *f.dbPostgresDatabase, flag.Lookup("db.postgres.database").Changed
}

// GetDBPostgresUser returns the PostgreSQL user flag value and whether it was set
func (f *Flags) GetDBPostgresUser() (string, bool) {
	return *f.dbPostgresUser, flag.Lookup("db.postgres.user").Changed
}

// GetDBPostgresPassword returns the PostgreSQL password flag value and whether it was set
func (f *Flags) GetDBPostgresPassword() (string, bool) {
	return *f.dbPostgresPassword, flag.Lookup("db.postgres.password").Changed
}

// GetJWTSecret returns the JWT secret flag value and whether it was set
func (f *Flags) GetJWTSecret() (string, bool) {
	return *f.jwtSecret, flag.Lookup("jwt.secret").Changed
}

// GetCertTemplatePath returns the template path flag value and whether it was set
func (f *Flags) GetCertTemplatePath() (string, bool) {
	return *f.certTemplatePath, flag.Lookup("cert.template-path").Changed
}

// GetCertPublicBaseURL returns the public base URL flag value and whether it was set
func (f *Flags) GetCertPublicBaseURL() (string, bool) {
	return *f.certPublicBaseURL, flag.Lookup("cert.public-base-url").Changed
}

// GetCertQRSize returns the QR size flag value and whether it was set
func (f *Flags) GetCertQRSize() (int, bool) {
	return *f.certQRSize, flag.Lookup("cert.qr-size").Changed
}

// GetCertDateLocale returns the date locale flag value and whether it was set
func (f *Flags) GetCertDateLocale() (string, bool) {
	return *f.certDateLocale, flag.Lookup("cert.date-locale").Changed
}

// GetCertConverterTimeout returns the converter timeout flag value and whether it was set
func (f *Flags) GetCertConverterTimeout() (string, bool) {
	return *f.certConverterTimeout, flag.Lookup("cert.converter-timeout").Changed
}

// GetLogLevel returns the log level flag value and whether it was set
func (f *Flags) GetLogLevel() (string, bool) {
	return *f.logLevel, flag.Lookup("log.level").Changed
}

// GetLogFormat returns the log format flag value and whether it was set
func (f *Flags) GetLogFormat() (string, bool) {
	return *f.logFormat, flag.Lookup("log.format").Changed
}
