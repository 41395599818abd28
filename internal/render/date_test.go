package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	date := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)

	t.Run("Spanish locale uses the long printed form", func(t *testing.T) {
		assert.Equal(t, "28 de agosto de 2026", FormatDate(date, "es_ES"))
	})

	t.Run("Spanish single-digit day has no padding", func(t *testing.T) {
		d := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2 de enero de 2026", FormatDate(d, "es_ES"))
	})

	t.Run("English locale uses month-first form", func(t *testing.T) {
		assert.Equal(t, "August 28, 2026", FormatDate(date, "en_US"))
	})
}
