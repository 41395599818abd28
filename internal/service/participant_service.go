// Package service implements the application's business logic: participant
// and admin authentication, roster import, certificate issuance, and the
// download audit trail.
package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Leonardo-max-el/app-certigen/internal/auth"
	"github.com/Leonardo-max-el/app-certigen/internal/config"
	"github.com/Leonardo-max-el/app-certigen/internal/database"
	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
)

// ParticipantService handles participant authentication and lookups
type ParticipantService struct {
	db  *database.Database
	cfg *config.Config
}

// NewParticipantService creates a new participant service
func NewParticipantService(db *database.Database, cfg *config.Config) *ParticipantService {
	return &ParticipantService{
		db:  db,
		cfg: cfg,
	}
}

// AuthenticateParticipant validates the DNI + code pair and returns a
// participant-scoped JWT token
func (s *ParticipantService) AuthenticateParticipant(dni, code string) (string, error) {
	participant, err := s.db.GetParticipantByLogin(dni, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("invalid credentials")
		}
		return "", fmt.Errorf("failed to get participant: %w", err)
	}

	token, err := auth.GenerateToken(
		participant.ID,
		participant.DNI,
		auth.RoleParticipant,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}

// GetParticipant retrieves a participant by ID
func (s *ParticipantService) GetParticipant(id string) (*models.Participant, error) {
	return s.db.GetParticipant(id)
}
