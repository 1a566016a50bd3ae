package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-10-10T10:10:10Z", want},
		{"2024-10-10T12:10:10+02:00", want},
		{"2024-10-10T10:10:10.5Z", want.Add(500 * time.Millisecond)},
		{strconv.FormatInt(want.Unix(), 10), want},
		{"2024-10-10", time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		require.True(t, ok, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	for _, bad := range []string{"", "yesterday", "-5", "0"} {
		_, ok := ParseTime(bad)
		assert.False(t, ok, bad)
	}
}

func TestTradingDay(t *testing.T) {
	in := time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), TradingDay(in))
}
