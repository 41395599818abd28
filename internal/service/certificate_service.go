package service

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/config"
	"github.com/Leonardo-max-el/app-certigen/internal/database"
	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
	"github.com/Leonardo-max-el/app-certigen/internal/render"
)

var (
	// ErrTemplateMissing means the certificate template asset is absent.
	ErrTemplateMissing = errors.New("certificate template not found")
	// ErrPersistence means the artifact write did not survive a re-read.
	ErrPersistence = errors.New("certificate artifact was not persisted")
)

// TemplateRenderer merges the certificate template with participant fields.
type TemplateRenderer interface {
	Render(templatePath string, fields render.Fields) ([]byte, error)
}

// DocumentConverter turns an intermediate document into final PDF bytes.
type DocumentConverter interface {
	Convert(inputPath string) ([]byte, error)
}

// CertificateService owns the certificate issuance pipeline and the
// download audit trail.
type CertificateService struct {
	db        *database.Database
	cfg       *config.Config
	renderer  TemplateRenderer
	converter DocumentConverter
	logger    *zap.Logger
}

// NewCertificateService creates a new certificate service
func NewCertificateService(db *database.Database, cfg *config.Config, renderer TemplateRenderer, converter DocumentConverter, logger *zap.Logger) *CertificateService {
	return &CertificateService{
		db:        db,
		cfg:       cfg,
		renderer:  renderer,
		converter: converter,
		logger:    logger,
	}
}

// ObtainArtifact returns the participant's certificate PDF, generating and
// persisting it on first call. Repeat calls are served from the stored
// artifact without re-rendering. A row with an empty artifact (a dangling
// reservation from a failed or interrupted attempt) is regenerated in
// place rather than duplicated.
func (s *CertificateService) ObtainArtifact(p *models.Participant) ([]byte, error) {
	cert, err := s.db.GetCertificateByParticipant(p.ID)
	switch {
	case err == nil:
		if cert.HasArtifact() {
			s.logger.Debug("Serving existing certificate",
				zap.String("participant_id", p.ID),
				zap.Int("pdf_bytes", len(cert.PDF)),
			)
			return cert.PDF, nil
		}
		s.logger.Info("Certificate record exists without artifact, regenerating",
			zap.String("participant_id", p.ID),
		)
	case errors.Is(err, sql.ErrNoRows):
		cert, err = s.reserve(p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to look up certificate: %w", err)
	}

	pdf, err := s.generate(p, cert)
	if err != nil {
		s.releaseReservation(cert)
		return nil, err
	}

	return pdf, nil
}

// reserve creates the certificate record before the artifact exists. The
// UNIQUE constraint on participant_id is the sole duplicate-reservation
// guard: losing a concurrent insert means another invocation owns the
// record, so this one re-reads and continues from it.
func (s *CertificateService) reserve(p *models.Participant) (*models.Certificate, error) {
	cert := &models.Certificate{
		ID:            uuid.New().String(),
		ParticipantID: p.ID,
		PublicID:      uuid.New().String(),
		GeneratedAt:   time.Now(),
	}

	err := s.db.CreateCertificate(cert)
	if err == nil {
		s.logger.Info("Reserved certificate record",
			zap.String("participant_id", p.ID),
			zap.String("public_id", cert.PublicID),
		)
		return cert, nil
	}

	if database.IsUniqueViolation(err) {
		existing, readErr := s.db.GetCertificateByParticipant(p.ID)
		if readErr != nil {
			return nil, fmt.Errorf("failed to re-read certificate after reservation conflict: %w", readErr)
		}
		s.logger.Info("Concurrent reservation detected, reusing existing record",
			zap.String("participant_id", p.ID),
		)
		return existing, nil
	}

	return nil, fmt.Errorf("failed to reserve certificate: %w", err)
}

// generate runs the render and conversion pipeline for a reserved record
// and persists the resulting PDF.
func (s *CertificateService) generate(p *models.Participant, cert *models.Certificate) ([]byte, error) {
	templatePath := s.cfg.Certificate.TemplatePath
	if _, err := os.Stat(templatePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, templatePath)
	}

	verifyURL := s.VerificationURL(cert.PublicID)

	qrPNG, err := render.QRPNG(verifyURL, s.cfg.Certificate.QRSize)
	if err != nil {
		return nil, err
	}
	qrPath, err := writeTemp("certigen-qr-*.png", qrPNG)
	if err != nil {
		return nil, err
	}
	defer os.Remove(qrPath)

	fields := certificateFields(p, cert, time.Now(), s.cfg.Certificate.DateLocale, qrPath)

	s.logger.Info("Rendering certificate",
		zap.String("participant", p.FullName),
		zap.String("short_code", fields.ShortCode),
	)

	docxBytes, err := s.renderer.Render(templatePath, fields)
	if err != nil {
		return nil, err
	}
	docxPath, err := writeTemp("certigen-*.docx", docxBytes)
	if err != nil {
		return nil, err
	}
	defer os.Remove(docxPath)

	pdf, err := s.converter.Convert(docxPath)
	if err != nil {
		return nil, err
	}

	if err := s.db.SetCertificateArtifact(cert.ID, pdf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Re-read to confirm the write, and to converge on whatever payload
	// actually won if another generation raced this one.
	fresh, err := s.db.GetCertificate(cert.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: re-read failed: %v", ErrPersistence, err)
	}
	if !fresh.HasArtifact() {
		return nil, fmt.Errorf("%w: re-read returned an empty payload", ErrPersistence)
	}

	s.logger.Info("Certificate generated",
		zap.String("participant", p.FullName),
		zap.String("public_id", cert.PublicID),
		zap.Int("pdf_bytes", len(fresh.PDF)),
	)

	return fresh.PDF, nil
}

// releaseReservation deletes a failed reservation so the next attempt
// starts fresh. The record is kept if another invocation managed to attach
// an artifact in the meantime.
func (s *CertificateService) releaseReservation(cert *models.Certificate) {
	fresh, err := s.db.GetCertificate(cert.ID)
	if err != nil {
		return
	}
	if fresh.HasArtifact() {
		return
	}
	if err := s.db.DeleteCertificate(cert.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("Failed to release certificate reservation",
			zap.String("certificate_id", cert.ID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Released certificate reservation", zap.String("certificate_id", cert.ID))
}

// VerificationURL builds the public URL encoded in the certificate's QR.
func (s *CertificateService) VerificationURL(publicID string) string {
	base := strings.TrimRight(s.cfg.Certificate.PublicBaseURL, "/")
	return fmt.Sprintf("%s/certificate/%s/", base, publicID)
}

// GetCertificateByPublicID resolves a public issuance identifier to the
// certificate and its participant.
func (s *CertificateService) GetCertificateByPublicID(publicID string) (*models.Certificate, *models.Participant, error) {
	cert, err := s.db.GetCertificateByPublicID(publicID)
	if err != nil {
		return nil, nil, err
	}
	participant, err := s.db.GetParticipant(cert.ParticipantID)
	if err != nil {
		return nil, nil, err
	}
	return cert, participant, nil
}

// GetCertificateByParticipant retrieves a participant's certificate record.
func (s *CertificateService) GetCertificateByParticipant(participantID string) (*models.Certificate, error) {
	return s.db.GetCertificateByParticipant(participantID)
}

// HasCertificate reports whether the participant already has a generated
// certificate (a reservation without artifact does not count).
func (s *CertificateService) HasCertificate(participantID string) (bool, error) {
	cert, err := s.db.GetCertificateByParticipant(participantID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cert.HasArtifact(), nil
}

// RecordDownload registers one successful retrieval: counter increment,
// last-download stamp, and one audit log row. Both retrieval paths
// (participant panel and public QR link) call this with identical
// semantics.
func (s *CertificateService) RecordDownload(cert *models.Certificate, ipAddress string) error {
	if err := s.db.RecordDownload(cert.ID, ipAddress); err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	s.logger.Info("Download recorded",
		zap.String("public_id", cert.PublicID),
		zap.String("ip", ipAddress),
	)
	return nil
}

// certificateFields builds the fixed-shape field map merged into the
// template: upper-cased name and category label, the first 8 hex
// characters of the issuance identifier as a short display code, and the
// locale-formatted issue date.
func certificateFields(p *models.Participant, cert *models.Certificate, now time.Time, locale, qrPath string) render.Fields {
	label, ok := models.CategoryLabels[p.Category]
	if !ok {
		label = p.Category
	}

	shortCode := cert.PublicID
	if len(shortCode) > 8 {
		shortCode = shortCode[:8]
	}

	return render.Fields{
		FullName:      strings.ToUpper(p.FullName),
		CategoryLabel: strings.ToUpper(label),
		ShortCode:     strings.ToUpper(shortCode),
		FormattedDate: render.FormatDate(now, locale),
		QRImagePath:   qrPath,
	}
}

// writeTemp writes data to a fresh temp file and returns its path.
func writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}
