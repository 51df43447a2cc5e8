package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsScanner/internal/domain"
)

func TestDateWindow_Range(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, loc)

	days, err := DateWindow(0, "2024-02-27", "2024-03-02", now, loc)
	require.NoError(t, err)
	require.Len(t, days, 5, "leap day included")
	assert.Equal(t, time.Date(2024, 2, 27, 0, 0, 0, 0, loc), days[0])
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, loc), days[2])
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, loc), days[4])
}

func TestDateWindow_Year(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	past, err := DateWindow(2023, "", "", now, time.UTC)
	require.NoError(t, err)
	assert.Len(t, past, 365)

	current, err := DateWindow(2024, "", "", now, time.UTC)
	require.NoError(t, err)
	assert.Len(t, current, 153, "current year stops at today")
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), current[len(current)-1])
}

func TestDateWindow_SingleDay(t *testing.T) {
	days, err := DateWindow(0, "2024-05-10", "2024-05-10", time.Now(), time.UTC)
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestDateWindow_Errors(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		year     int
		from, to string
	}{
		{name: "nothing"},
		{name: "only from", from: "2024-01-01"},
		{name: "year and range", year: 2024, from: "2024-01-01", to: "2024-01-02"},
		{name: "bad layout", from: "01/01/2024", to: "2024-01-02"},
		{name: "inverted", from: "2024-02-01", to: "2024-01-01"},
		{name: "future year", year: 2030},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DateWindow(tc.year, tc.from, tc.to, now, time.UTC)
			assert.ErrorIs(t, err, domain.ErrConfig)
		})
	}
}
