package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_AlwaysUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Now().Location())
}

func TestStartOfDay(t *testing.T) {
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, input := range []time.Time{
		midnight,
		time.Date(2026, 3, 10, 12, 30, 45, 0, time.UTC),
		time.Date(2026, 3, 10, 23, 59, 59, 999999999, time.UTC),
	} {
		assert.Equal(t, midnight, StartOfDay(input))
	}

	// Non-UTC inputs normalize before truncation.
	lagos := time.FixedZone("WAT", 60*60)
	assert.Equal(t,
		time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		StartOfDay(time.Date(2026, 3, 10, 0, 30, 0, 0, lagos)))
}

func TestEndOfDay(t *testing.T) {
	input := time.Date(2026, 3, 10, 8, 15, 0, 0, time.UTC)
	end := EndOfDay(input)

	assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 999999999, time.UTC), end)
	assert.True(t, end.Before(StartOfDay(input).AddDate(0, 0, 1)))
}
