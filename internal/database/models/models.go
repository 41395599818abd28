// Package models defines the data structures for database entities in
// app-certigen: event participants, their issued certificates, the
// per-download audit log, and admin users.
package models

import (
	"database/sql"
	"time"
)

// Participant categories accepted by the roster import.
const (
	CategorySpeaker   = "speaker"
	CategoryAttendee  = "attendee"
	CategoryOrganizer = "organizer"
	CategorySponsor   = "sponsor"
)

// CategoryLabels maps a canonical category to the label printed on the
// certificate. The event certificates are issued in Spanish.
var CategoryLabels = map[string]string{
	CategorySpeaker:   "Ponente",
	CategoryAttendee:  "Asistente",
	CategoryOrganizer: "Organizador",
	CategorySponsor:   "Sponsor",
}

// ValidCategory reports whether cat is one of the known categories.
func ValidCategory(cat string) bool {
	_, ok := CategoryLabels[cat]
	return ok
}

// Participant represents a registered event participant. Participants are
// created by roster import and authenticate with the DNI + code pair.
type Participant struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Code      string    `db:"code" json:"code"`
	DNI       string    `db:"dni" json:"dni"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Certificate is the issuance record for a participant, at most one per
// participant. PublicID is the only identifier ever exposed in public URLs.
// PDF may be empty while the record is a reservation (generation pending or
// failed); such a record must never be served.
type Certificate struct {
	ID              string       `db:"id" json:"id"`
	ParticipantID   string       `db:"participant_id" json:"participant_id"`
	PublicID        string       `db:"public_id" json:"public_id"`
	PDF             []byte       `db:"pdf" json:"-"`
	GeneratedAt     time.Time    `db:"generated_at" json:"generated_at"`
	TimesDownloaded int          `db:"times_downloaded" json:"times_downloaded"`
	LastDownload    sql.NullTime `db:"last_download" json:"last_download"`
}

// HasArtifact reports whether the certificate carries a usable PDF. A
// zero-byte payload counts as absent.
func (c *Certificate) HasArtifact() bool {
	return len(c.PDF) > 0
}

// DownloadLog is an append-only audit entry, one per successful retrieval.
type DownloadLog struct {
	ID            string         `db:"id" json:"id"`
	CertificateID string         `db:"certificate_id" json:"certificate_id"`
	DownloadedAt  time.Time      `db:"downloaded_at" json:"downloaded_at"`
	IPAddress     sql.NullString `db:"ip_address" json:"ip_address"`
}

// User represents an admin account.
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// SystemConfig represents system-wide configuration stored in the database.
type SystemConfig struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}
