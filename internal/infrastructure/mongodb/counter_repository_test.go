package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCounterKey tests the per-day counter document ID
func TestCounterKey(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		loc = time.Local
	}

	tests := []struct {
		name   string
		at     time.Time
		expect string
	}{
		{"Morning", time.Date(2026, 8, 29, 9, 15, 0, 0, loc), "SR-20260829"},
		{"Just before midnight", time.Date(2026, 8, 29, 23, 59, 59, 0, loc), "SR-20260829"},
		{"Just after midnight", time.Date(2026, 8, 30, 0, 0, 1, 0, loc), "SR-20260830"},
		{"Single digit month and day", time.Date(2026, 1, 5, 12, 0, 0, 0, loc), "SR-20260105"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, counterKey(tt.at))
		})
	}
}

// TestFormatRequestNumber tests suffix padding and widening
func TestFormatRequestNumber(t *testing.T) {
	tests := []struct {
		name   string
		seq    int
		expect string
	}{
		{"First of the day", 1, "SR-20260829-001"},
		{"Two digits", 42, "SR-20260829-042"},
		{"Last padded suffix", 999, "SR-20260829-999"},
		{"Widens past 999", 1000, "SR-20260829-1000"},
		{"Keeps widening", 12345, "SR-20260829-12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, formatRequestNumber("SR-20260829", tt.seq))
		})
	}
}
