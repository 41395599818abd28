// Package database provides database connection management, migrations, and
// data access methods for the app-certigen application.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/Leonardo-max-el/app-certigen/internal/config"
	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
	"github.com/google/uuid"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Database represents the database connection and operations
type Database struct {
	db     *sql.DB
	dbType string
}

// New creates a new database connection
func New(cfg *config.Config) (*Database, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "sqlite":
		db, err = sql.Open("sqlite3", cfg.Database.SQLite.Path+"?_foreign_keys=on")
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite only allows one writer at a time
		db.SetMaxOpenConns(1)
	case "postgres":
		db, err = sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		dbType: cfg.Database.Type,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	var migrationFiles []string
	if d.dbType == "postgres" {
		migrationFiles = []string{
			"migrations/000001_init_schema.postgres.up.sql",
		}
	} else {
		migrationFiles = []string{
			"migrations/000001_init_schema.up.sql",
		}
	}

	for _, migrationFile := range migrationFiles {
		content, err := migrationsFS.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migrationFile, err)
		}

		// Remove comments and split into statements
		var statements []string
		lines := strings.Split(string(content), "\n")
		var currentStmt strings.Builder

		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "--") || line == "" {
				continue
			}

			currentStmt.WriteString(line)
			currentStmt.WriteString("\n")

			if strings.HasSuffix(line, ";") {
				stmt := strings.TrimSpace(currentStmt.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				currentStmt.Reset()
			}
		}

		for _, stmt := range statements {
			if _, err := d.db.Exec(stmt); err != nil {
				// Ignore re-creation errors for idempotent migrations
				if !strings.Contains(err.Error(), "duplicate column") && !strings.Contains(err.Error(), "already exists") {
					return fmt.Errorf("migration %s failed: %w\nStatement: %s", migrationFile, err, stmt)
				}
			}
		}
	}

	return nil
}

// DB returns the underlying database connection for direct queries
func (d *Database) DB() *sql.DB {
	return d.db
}

// IsUniqueViolation reports whether err was raised by a uniqueness
// constraint. Both drivers only expose this through the error text.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite3
		strings.Contains(msg, "duplicate key value") // pq
}

// User operations

// CreateUser creates a new admin user
func (d *Database) CreateUser(user *models.User) error {
	query := `INSERT INTO users (id, username, password_hash, role, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	if d.dbType == "postgres" {
		query = `INSERT INTO users (id, username, password_hash, role, created_at)
		         VALUES ($1, $2, $3, $4, $5)`
	}

	_, err := d.db.Exec(query, user.ID, user.Username, user.PasswordHash, user.Role, user.CreatedAt)
	return err
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`
	}

	var user models.User
	err := d.db.QueryRow(query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IsSetupComplete checks if initial admin provisioning has been completed
func (d *Database) IsSetupComplete() (bool, error) {
	query := `SELECT COUNT(*) FROM users`
	var count int
	err := d.db.QueryRow(query).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Participant operations

// CreateParticipant creates a new participant
func (d *Database) CreateParticipant(p *models.Participant) error {
	query := `INSERT INTO participants (id, full_name, code, dni, category, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO participants (id, full_name, code, dni, category, created_at)
		         VALUES ($1, $2, $3, $4, $5, $6)`
	}

	_, err := d.db.Exec(query, p.ID, p.FullName, p.Code, p.DNI, p.Category, p.CreatedAt)
	return err
}

// GetParticipant retrieves a participant by ID
func (d *Database) GetParticipant(id string) (*models.Participant, error) {
	query := `SELECT id, full_name, code, dni, category, created_at FROM participants WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, full_name, code, dni, category, created_at FROM participants WHERE id = $1`
	}

	var p models.Participant
	err := d.db.QueryRow(query, id).Scan(&p.ID, &p.FullName, &p.Code, &p.DNI, &p.Category, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParticipantByDNI retrieves a participant by national ID
func (d *Database) GetParticipantByDNI(dni string) (*models.Participant, error) {
	query := `SELECT id, full_name, code, dni, category, created_at FROM participants WHERE dni = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, full_name, code, dni, category, created_at FROM participants WHERE dni = $1`
	}

	var p models.Participant
	err := d.db.QueryRow(query, dni).Scan(&p.ID, &p.FullName, &p.Code, &p.DNI, &p.Category, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetParticipantByLogin retrieves a participant by the DNI + code pair
func (d *Database) GetParticipantByLogin(dni, code string) (*models.Participant, error) {
	query := `SELECT id, full_name, code, dni, category, created_at FROM participants WHERE dni = ? AND code = ?`
	if d.dbType == "postgres" {
		query = `SELECT id, full_name, code, dni, category, created_at FROM participants WHERE dni = $1 AND code = $2`
	}

	var p models.Participant
	err := d.db.QueryRow(query, dni, code).Scan(&p.ID, &p.FullName, &p.Code, &p.DNI, &p.Category, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountParticipants returns the number of registered participants
func (d *Database) CountParticipants() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM participants`).Scan(&count)
	return count, err
}

// Certificate operations

// CreateCertificate inserts a certificate row. Inserting with an empty PDF
// reserves the participant's one-to-one slot; the UNIQUE constraint on
// participant_id is what makes concurrent reservations safe.
func (d *Database) CreateCertificate(cert *models.Certificate) error {
	query := `INSERT INTO certificates (id, participant_id, public_id, pdf, generated_at, times_downloaded, last_download)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO certificates (id, participant_id, public_id, pdf, generated_at, times_downloaded, last_download)
		         VALUES ($1, $2, $3, $4, $5, $6, $7)`
	}

	_, err := d.db.Exec(query,
		cert.ID, cert.ParticipantID, cert.PublicID, cert.PDF,
		cert.GeneratedAt, cert.TimesDownloaded, cert.LastDownload,
	)
	return err
}

// GetCertificate retrieves a certificate by ID
func (d *Database) GetCertificate(id string) (*models.Certificate, error) {
	query := certSelect + ` WHERE id = ?`
	if d.dbType == "postgres" {
		query = certSelect + ` WHERE id = $1`
	}
	return d.scanCertificate(d.db.QueryRow(query, id))
}

// GetCertificateByParticipant retrieves a certificate by participant ID
func (d *Database) GetCertificateByParticipant(participantID string) (*models.Certificate, error) {
	query := certSelect + ` WHERE participant_id = ?`
	if d.dbType == "postgres" {
		query = certSelect + ` WHERE participant_id = $1`
	}
	return d.scanCertificate(d.db.QueryRow(query, participantID))
}

// GetCertificateByPublicID retrieves a certificate by its public issuance identifier
func (d *Database) GetCertificateByPublicID(publicID string) (*models.Certificate, error) {
	query := certSelect + ` WHERE public_id = ?`
	if d.dbType == "postgres" {
		query = certSelect + ` WHERE public_id = $1`
	}
	return d.scanCertificate(d.db.QueryRow(query, publicID))
}

const certSelect = `SELECT id, participant_id, public_id, pdf, generated_at, times_downloaded, last_download FROM certificates`

func (d *Database) scanCertificate(row *sql.Row) (*models.Certificate, error) {
	var cert models.Certificate
	err := row.Scan(
		&cert.ID, &cert.ParticipantID, &cert.PublicID, &cert.PDF,
		&cert.GeneratedAt, &cert.TimesDownloaded, &cert.LastDownload,
	)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// SetCertificateArtifact attaches the generated PDF to a reservation. The
// write is conditional on the artifact still being empty so concurrent
// generators converge on a single persisted payload (first writer wins).
func (d *Database) SetCertificateArtifact(id string, pdf []byte) error {
	query := `UPDATE certificates SET pdf = ? WHERE id = ? AND (pdf IS NULL OR length(pdf) = 0)`
	if d.dbType == "postgres" {
		query = `UPDATE certificates SET pdf = $1 WHERE id = $2 AND (pdf IS NULL OR length(pdf) = 0)`
	}

	_, err := d.db.Exec(query, pdf, id)
	return err
}

// DeleteCertificate deletes a certificate by ID, releasing the reservation
func (d *Database) DeleteCertificate(id string) error {
	query := `DELETE FROM certificates WHERE id = ?`
	if d.dbType == "postgres" {
		query = `DELETE FROM certificates WHERE id = $1`
	}

	res, err := d.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// RecordDownload increments the download counter, stamps the last download
// time, and appends the audit log entry for one successful retrieval. Both
// writes happen in a single transaction so the counter always matches the
// number of log rows.
func (d *Database) RecordDownload(certificateID, ipAddress string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()

	update := `UPDATE certificates SET times_downloaded = times_downloaded + 1, last_download = ? WHERE id = ?`
	if d.dbType == "postgres" {
		update = `UPDATE certificates SET times_downloaded = times_downloaded + 1, last_download = $1 WHERE id = $2`
	}
	res, err := tx.Exec(update, now, certificateID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	insert := `INSERT INTO download_logs (id, certificate_id, downloaded_at, ip_address) VALUES (?, ?, ?, ?)`
	if d.dbType == "postgres" {
		insert = `INSERT INTO download_logs (id, certificate_id, downloaded_at, ip_address) VALUES ($1, $2, $3, $4)`
	}
	ip := sql.NullString{String: ipAddress, Valid: ipAddress != ""}
	if _, err := tx.Exec(insert, uuid.New().String(), certificateID, now, ip); err != nil {
		return err
	}

	return tx.Commit()
}

// CountDownloadLogs returns the number of audit entries for a certificate
func (d *Database) CountDownloadLogs(certificateID string) (int, error) {
	query := `SELECT COUNT(*) FROM download_logs WHERE certificate_id = ?`
	if d.dbType == "postgres" {
		query = `SELECT COUNT(*) FROM download_logs WHERE certificate_id = $1`
	}

	var count int
	err := d.db.QueryRow(query, certificateID).Scan(&count)
	return count, err
}

// CountCertificates returns the number of certificate records
func (d *Database) CountCertificates() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM certificates`).Scan(&count)
	return count, err
}

// SumDownloads returns the total of all certificate download counters
func (d *Database) SumDownloads() (int, error) {
	var total int
	err := d.db.QueryRow(`SELECT COALESCE(SUM(times_downloaded), 0) FROM certificates`).Scan(&total)
	return total, err
}

// CertificateOverview pairs a certificate with its participant for the
// admin dashboard listing.
type CertificateOverview struct {
	PublicID        string       `json:"public_id"`
	ParticipantName string       `json:"participant_name"`
	ParticipantDNI  string       `json:"participant_dni"`
	Category        string       `json:"category"`
	Generated       bool         `json:"generated"`
	GeneratedAt     time.Time    `json:"generated_at"`
	TimesDownloaded int          `json:"times_downloaded"`
	LastDownload    sql.NullTime `json:"last_download"`
}

// ListCertificateOverviews retrieves all certificates joined with their
// participants, most recent first
func (d *Database) ListCertificateOverviews() ([]*CertificateOverview, error) {
	query := `SELECT c.public_id, p.full_name, p.dni, p.category,
	                 (c.pdf IS NOT NULL AND length(c.pdf) > 0),
	                 c.generated_at, c.times_downloaded, c.last_download
	          FROM certificates c
	          JOIN participants p ON p.id = c.participant_id
	          ORDER BY c.generated_at DESC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overviews []*CertificateOverview
	for rows.Next() {
		var o CertificateOverview
		err := rows.Scan(
			&o.PublicID, &o.ParticipantName, &o.ParticipantDNI, &o.Category,
			&o.Generated, &o.GeneratedAt, &o.TimesDownloaded, &o.LastDownload,
		)
		if err != nil {
			return nil, err
		}
		overviews = append(overviews, &o)
	}

	return overviews, rows.Err()
}

// System config operations

// SetSystemConfig sets a system configuration value
func (d *Database) SetSystemConfig(key, value string) error {
	query := `INSERT OR REPLACE INTO system_config (key, value, updated_at) VALUES (?, ?, ?)`
	if d.dbType == "postgres" {
		query = `INSERT INTO system_config (key, value, updated_at)
		         VALUES ($1, $2, $3)
		         ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3`
	}

	_, err := d.db.Exec(query, key, value, time.Now())
	return err
}

// GetSystemConfig retrieves a system configuration value
func (d *Database) GetSystemConfig(key string) (string, error) {
	query := `SELECT value FROM system_config WHERE key = ?`
	if d.dbType == "postgres" {
		query = `SELECT value FROM system_config WHERE key = $1`
	}

	var value string
	err := d.db.QueryRow(query, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}
