package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
	"github.com/Leonardo-max-el/app-certigen/internal/service"
)

// CertificateHandler serves the public certificate retrieval paths reached
// through the QR verification link
type CertificateHandler struct {
	certService *service.CertificateService
	logger      *zap.Logger
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(certService *service.CertificateService, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{
		certService: certService,
		logger:      logger,
	}
}

// Download serves a certificate by its public issuance identifier. Both
// the verification URL and its /download/ variant resolve here; each
// successful retrieval is audited. Only the public identifier is ever
// exposed, never the participant's identity key.
// @Summary Public certificate download
// @Description Download a certificate PDF by its public identifier
// @Produce application/pdf
// @Param publicID path string true "Public issuance identifier"
// @Success 200 {file} binary
// @Router /certificate/{publicID} [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	publicID := c.Param("publicID")

	cert, participant, err := h.certService.GetCertificateByPublicID(publicID)
	if err != nil {
		h.logger.Warn("Public certificate lookup failed", zap.String("public_id", publicID))
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	}

	// A reservation without artifact must never be served
	if !cert.HasArtifact() {
		h.logger.Warn("Public retrieval of a certificate without artifact", zap.String("public_id", publicID))
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	}

	if err := h.certService.RecordDownload(cert, c.ClientIP()); err != nil {
		h.logger.Error("Failed to record public download", zap.String("public_id", publicID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record download"})
		return
	}

	servePDF(c, participant, cert.PDF)
}

// servePDF writes the certificate bytes with the download headers shared
// by the public and participant retrieval paths.
func servePDF(c *gin.Context, participant *models.Participant, pdf []byte) {
	filename := fmt.Sprintf("certificado_%s.pdf", sanitizeFilename(participant.FullName))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Length", fmt.Sprintf("%d", len(pdf)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// sanitizeFilename sanitizes a string to be safe for use as a filename
func sanitizeFilename(name string) string {
	// Replace invalid filename characters with underscores
	invalidChars := regexp.MustCompile(`[/\\:*?"<>|]`)
	sanitized := invalidChars.ReplaceAllString(name, "_")

	// Replace spaces with underscores
	sanitized = strings.ReplaceAll(sanitized, " ", "_")

	// Trim leading/trailing dots and spaces
	sanitized = strings.Trim(sanitized, ". ")

	// Limit length to 200 characters
	if len(sanitized) > 200 {
		sanitized = sanitized[:200]
	}

	if sanitized == "" {
		sanitized = "certificado"
	}

	return sanitized
}
