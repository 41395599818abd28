package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/config"
	"github.com/Leonardo-max-el/app-certigen/internal/database"
	"github.com/Leonardo-max-el/app-certigen/internal/service"
)

// AdminHandler serves the admin dashboard and roster import
type AdminHandler struct {
	db            *database.Database
	importService *service.ImportService
	cfg           *config.Config
	logger        *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *database.Database, importService *service.ImportService, cfg *config.Config, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		db:            db,
		importService: importService,
		cfg:           cfg,
		logger:        logger,
	}
}

// Dashboard returns aggregate counts and the certificate listing
// @Summary Admin dashboard
// @Description Participant count, certificate count, download total, and per-certificate overview
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	participants, err := h.db.CountParticipants()
	if err != nil {
		h.logger.Error("Failed to count participants", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	certificates, err := h.db.CountCertificates()
	if err != nil {
		h.logger.Error("Failed to count certificates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	downloads, err := h.db.SumDownloads()
	if err != nil {
		h.logger.Error("Failed to sum downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	overviews, err := h.db.ListCertificateOverviews()
	if err != nil {
		h.logger.Error("Failed to list certificates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_participants": participants,
		"total_certificates": certificates,
		"total_downloads":    downloads,
		"certificates":       overviews,
	})
}

// ImportRoster ingests a spreadsheet roster and reports the batch summary
// @Summary Bulk participant import
// @Description Upload an .xlsx/.xls roster (name, code, DNI, category)
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Roster spreadsheet"
// @Success 200 {object} service.ImportResult
// @Router /api/v1/admin/import [post]
func (h *AdminHandler) ImportRoster(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roster file required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx and .xls files are accepted"})
		return
	}

	if fileHeader.Size > h.cfg.Import.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the maximum allowed size"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded roster", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}
	defer file.Close()

	result, err := h.importService.ImportRoster(file)
	if err != nil {
		h.logger.Error("Roster import failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to process roster file"})
		return
	}

	h.logger.Info("Roster imported",
		zap.String("filename", fileHeader.Filename),
		zap.Int("created", result.Created),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("errors", len(result.Errors)),
	)

	// Report at most the first N row errors alongside the full count
	reported := result.Errors
	if len(reported) > h.cfg.Import.MaxReportedErrors {
		reported = reported[:h.cfg.Import.MaxReportedErrors]
	}

	c.JSON(http.StatusOK, gin.H{
		"created":     result.Created,
		"duplicates":  result.Duplicates,
		"error_count": len(result.Errors),
		"errors":      reported,
	})
}
