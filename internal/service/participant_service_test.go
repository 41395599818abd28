package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leonardo-max-el/app-certigen/internal/auth"
	"github.com/Leonardo-max-el/app-certigen/internal/database"
	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
)

func createTestParticipant(t *testing.T, db *database.Database, dni, code string) *models.Participant {
	t.Helper()
	p := &models.Participant{
		ID:        uuid.New().String(),
		FullName:  "Maria Lopez",
		Code:      code,
		DNI:       dni,
		Category:  models.CategorySpeaker,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.CreateParticipant(p))
	return p
}

func TestAuthenticateParticipant(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	participantService := NewParticipantService(db, cfg)
	p := createTestParticipant(t, db, "12345678", "EVT-001")

	t.Run("Valid DNI and code return participant token", func(t *testing.T) {
		token, err := participantService.AuthenticateParticipant("12345678", "EVT-001")
		require.NoError(t, err)

		claims, err := auth.ValidateToken(token, cfg.JWT.Secret)
		require.NoError(t, err)
		assert.Equal(t, p.ID, claims.SubjectID)
		assert.Equal(t, auth.RoleParticipant, claims.Role)
	})

	t.Run("Wrong code fails", func(t *testing.T) {
		_, err := participantService.AuthenticateParticipant("12345678", "EVT-999")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("Unknown DNI fails the same way", func(t *testing.T) {
		_, err := participantService.AuthenticateParticipant("00000000", "EVT-001")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid credentials")
	})
}

func TestGetParticipant(t *testing.T) {
	db, cfg := setupTestDB(t)
	defer db.Close()

	participantService := NewParticipantService(db, cfg)
	p := createTestParticipant(t, db, "87654321", "EVT-002")

	got, err := participantService.GetParticipant(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.DNI, got.DNI)

	_, err = participantService.GetParticipant("missing")
	assert.Error(t, err)
}
