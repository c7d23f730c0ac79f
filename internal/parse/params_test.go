package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lu123321/counseling-app/internal/model"
)

func TestDate(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expectErr bool
	}{
		{"valid date", "2024-01-20", false},
		{"valid date with spaces", " 2024-02-29 ", false},
		{"wrong separator", "2024/01/20", true},
		{"missing day", "2024-01", true},
		{"empty", "", true},
		{"nonexistent day", "2023-02-29", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Date(tc.raw, time.UTC)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 0, d.Hour())
		})
	}
}

func TestMonth(t *testing.T) {
	year, month, err := Month("2024", "2")
	assert.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.February, month)

	_, _, err = Month("2024", "13")
	assert.Error(t, err)

	_, _, err = Month("", "1")
	assert.Error(t, err)
}

func TestTypeFilter(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  model.EventType
		expectErr bool
	}{
		{"empty selects all", "", 0, false},
		{"zero selects all", "0", 0, false},
		{"all keyword", "all", 0, false},
		{"consultation", "1", model.TypeConsultation, false},
		{"rest", "6", model.TypeRest, false},
		{"out of range", "9", 0, true},
		{"not a number", "consult", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TypeFilter(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
