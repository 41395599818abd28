package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/service"
)

// ParticipantHandler serves the authenticated participant panel
type ParticipantHandler struct {
	participantService *service.ParticipantService
	certService        *service.CertificateService
	logger             *zap.Logger
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(participantService *service.ParticipantService, certService *service.CertificateService, logger *zap.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: participantService,
		certService:        certService,
		logger:             logger,
	}
}

// Me returns the authenticated participant's profile and whether their
// certificate has been generated
// @Summary Participant panel data
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/participant/me [get]
func (h *ParticipantHandler) Me(c *gin.Context) {
	participantID := c.GetString("subject_id")

	participant, err := h.participantService.GetParticipant(participantID)
	if err != nil {
		h.logger.Error("Failed to get participant", zap.String("id", participantID), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}

	hasCertificate, err := h.certService.HasCertificate(participantID)
	if err != nil {
		h.logger.Error("Failed to check certificate status", zap.String("id", participantID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check certificate status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participant":     participant,
		"has_certificate": hasCertificate,
	})
}

// DownloadCertificate generates (or retrieves) the authenticated
// participant's certificate and streams the PDF. Generation failures reach
// the participant as one generic message; the cause is kept in the logs.
// @Summary Download own certificate
// @Produce application/pdf
// @Success 200 {file} binary
// @Router /api/v1/participant/certificate/download [get]
func (h *ParticipantHandler) DownloadCertificate(c *gin.Context) {
	participantID := c.GetString("subject_id")

	participant, err := h.participantService.GetParticipant(participantID)
	if err != nil {
		h.logger.Error("Failed to get participant", zap.String("id", participantID), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
		return
	}

	pdf, err := h.certService.ObtainArtifact(participant)
	if err != nil {
		h.logger.Error("Certificate generation failed",
			zap.String("participant_id", participantID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate certificate, please try again later"})
		return
	}

	cert, err := h.certService.GetCertificateByParticipant(participantID)
	if err != nil {
		h.logger.Error("Failed to load certificate record after generation",
			zap.String("participant_id", participantID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate certificate, please try again later"})
		return
	}

	if err := h.certService.RecordDownload(cert, c.ClientIP()); err != nil {
		h.logger.Error("Failed to record download",
			zap.String("participant_id", participantID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record download"})
		return
	}

	servePDF(c, participant, pdf)
}
