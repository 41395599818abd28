package service

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/database"
	"github.com/Leonardo-max-el/app-certigen/internal/database/models"
)

// categorySynonyms normalizes roster category text to the canonical
// enumeration. Rosters arrive with Spanish labels.
var categorySynonyms = map[string]string{
	"speaker":     models.CategorySpeaker,
	"ponente":     models.CategorySpeaker,
	"attendee":    models.CategoryAttendee,
	"asistente":   models.CategoryAttendee,
	"organizer":   models.CategoryOrganizer,
	"organizador": models.CategoryOrganizer,
	"sponsor":     models.CategorySponsor,
}

// NormalizeCategory maps free-form category text to the canonical value,
// case and whitespace insensitive. Returns false for unrecognized text.
func NormalizeCategory(raw string) (string, bool) {
	cat, ok := categorySynonyms[strings.ToLower(strings.TrimSpace(raw))]
	return cat, ok
}

// ImportResult summarizes one roster import batch.
type ImportResult struct {
	Created    int      `json:"created"`
	Duplicates int      `json:"duplicates"`
	Errors     []string `json:"errors"`
}

// ImportService performs bulk participant imports from spreadsheet rosters.
type ImportService struct {
	db     *database.Database
	logger *zap.Logger
}

// NewImportService creates a new import service
func NewImportService(db *database.Database, logger *zap.Logger) *ImportService {
	return &ImportService{
		db:     db,
		logger: logger,
	}
}

// ImportRoster reads a spreadsheet with columns name, code, DNI, category
// (header row ignored) and upserts participants keyed on DNI. Existing
// participants are counted as duplicates and left untouched. Row-level
// problems are collected; the batch always completes.
func (s *ImportService) ImportRoster(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet rows: %w", err)
	}

	result := &ImportResult{Errors: []string{}}

	for i, row := range rows {
		if i == 0 {
			// Header row, not validated
			continue
		}
		rowNum := i + 1

		if isEmptyRow(row) {
			continue
		}

		s.importRow(row, rowNum, result)
	}

	s.logger.Info("Roster import complete",
		zap.Int("created", result.Created),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("errors", len(result.Errors)),
	)

	return result, nil
}

func (s *ImportService) importRow(row []string, rowNum int, result *ImportResult) {
	name := cell(row, 0)
	code := cell(row, 1)
	dni := cell(row, 2)
	rawCategory := cell(row, 3)

	if name == "" || code == "" || dni == "" || rawCategory == "" {
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: incomplete data (name, code, DNI and category are required)", rowNum))
		return
	}

	category, ok := NormalizeCategory(rawCategory)
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: unknown participant category %q", rowNum, rawCategory))
		return
	}

	// Upsert keyed on DNI only: a participant that already exists is
	// counted as a duplicate and no fields are updated.
	_, err := s.db.GetParticipantByDNI(dni)
	if err == nil {
		result.Duplicates++
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
		return
	}

	participant := &models.Participant{
		ID:        uuid.New().String(),
		FullName:  name,
		Code:      code,
		DNI:       dni,
		Category:  category,
		CreatedAt: time.Now(),
	}

	if err := s.db.CreateParticipant(participant); err != nil {
		// A concurrent import may have won the insert between the lookup
		// and here; a DNI conflict is still just a duplicate.
		if database.IsUniqueViolation(err) && strings.Contains(err.Error(), "dni") {
			result.Duplicates++
			return
		}
		result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
		return
	}

	result.Created++
}

// cell returns the trimmed cell at index i, or "" past the row's end.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
