package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
)

func TestParticipantHandler_Me(t *testing.T) {
	env := newTestEnv(t)
	handler := NewParticipantHandler(env.participantService, env.certService, env.logger)

	p := createParticipant(t, env, "Maria Lopez", "11111111", "EVT-001", models.CategorySpeaker)

	router := setupTestRouter()
	router.GET("/me", asSubject(p.ID), handler.Me)

	t.Run("Profile without certificate", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Participant    models.Participant `json:"participant"`
			HasCertificate bool               `json:"has_certificate"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Maria Lopez", resp.Participant.FullName)
		assert.Equal(t, "11111111", resp.Participant.DNI)
		assert.False(t, resp.HasCertificate)
	})

	t.Run("Profile reports generated certificate", func(t *testing.T) {
		_, err := env.certService.ObtainArtifact(p)
		require.NoError(t, err)

		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			HasCertificate bool `json:"has_certificate"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.HasCertificate)
	})

	t.Run("Unknown subject returns 404", func(t *testing.T) {
		other := setupTestRouter()
		other.GET("/me", asSubject("missing-id"), handler.Me)

		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		w := httptest.NewRecorder()
		other.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestParticipantHandler_DownloadCertificate(t *testing.T) {
	env := newTestEnv(t)
	handler := NewParticipantHandler(env.participantService, env.certService, env.logger)

	p := createParticipant(t, env, "Juan Perez", "22222222", "EVT-002", models.CategoryAttendee)

	router := setupTestRouter()
	router.GET("/download", asSubject(p.ID), handler.DownloadCertificate)

	t.Run("First download generates the certificate", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/download", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="certificado_Juan_Perez.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, []byte("%PDF-1.4 stub"), w.Body.Bytes())
	})

	t.Run("Repeat download serves the same artifact and audits again", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/download", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []byte("%PDF-1.4 stub"), w.Body.Bytes())

		cert, err := env.db.GetCertificateByParticipant(p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, cert.TimesDownloaded)

		logs, err := env.db.CountDownloadLogs(cert.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, logs)
	})

	t.Run("Generation failure yields one generic message", func(t *testing.T) {
		original := env.cfg.Certificate.TemplatePath
		env.cfg.Certificate.TemplatePath = "/nonexistent/plantilla.docx"
		defer func() { env.cfg.Certificate.TemplatePath = original }()

		other := createParticipant(t, env, "Ana Torres", "33333333", "EVT-003", models.CategoryOrganizer)

		failing := setupTestRouter()
		failing.GET("/download", asSubject(other.ID), handler.DownloadCertificate)

		req, _ := http.NewRequest(http.MethodGet, "/download", nil)
		w := httptest.NewRecorder()
		failing.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "could not generate certificate")
		assert.NotContains(t, w.Body.String(), "template")
	})
}
