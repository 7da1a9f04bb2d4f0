package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2025-06-23", "2025-06-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2025, 6, 29, 0, 0, 0, 0, time.UTC), r.End)
	assert.Equal(t, "2025-06-23 to 2025-06-29", r.String())

	_, err = ParseDateRange("2025/06/23", "2025-06-29")
	assert.Error(t, err)

	_, err = ParseDateRange("2025-06-23", "tomorrow")
	assert.Error(t, err)
}

func TestPreviousWeek(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{
			name: "wednesday",
			now:  time.Date(2025, 7, 2, 15, 4, 5, 0, time.UTC),
			want: "2025-06-23 to 2025-06-29",
		},
		{
			name: "monday",
			now:  time.Date(2025, 6, 30, 0, 0, 1, 0, time.UTC),
			want: "2025-06-23 to 2025-06-29",
		},
		{
			name: "sunday",
			now:  time.Date(2025, 7, 6, 23, 59, 0, 0, time.UTC),
			want: "2025-06-23 to 2025-06-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PreviousWeek(tt.now)
			assert.Equal(t, tt.want, r.String())
			assert.Equal(t, time.Monday, r.Start.Weekday())
			assert.Equal(t, time.Sunday, r.End.Weekday())
		})
	}
}

func TestISODate(t *testing.T) {
	assert.Equal(t, "2025-06-23", ISODate("20250623"))
	assert.Equal(t, "2025-6-23", ISODate("2025-6-23"))
}

func TestDateRange_Days(t *testing.T) {
	week, err := ParseDateRange("2025-06-23", "2025-06-29")
	require.NoError(t, err)
	assert.Equal(t, 7, week.Days())

	single, err := ParseDateRange("2025-06-23", "2025-06-23")
	require.NoError(t, err)
	assert.Equal(t, 1, single.Days())

	reversed, err := ParseDateRange("2025-06-29", "2025-06-23")
	require.NoError(t, err)
	assert.Equal(t, 0, reversed.Days())

	all, err := ParseDateRange("0001-01-01", "9999-12-31")
	require.NoError(t, err)
	assert.Equal(t, 3652059, all.Days())
}
