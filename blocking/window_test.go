package blocking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/blocking"
)

func date(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestComputeBlockUntil(t *testing.T) {
	tests := []struct {
		name     string
		now      string
		duration blocking.Duration
		want     string
	}{
		{name: "day", now: "2025-03-12T10:15:00Z", duration: blocking.Day, want: "2025-03-12T23:59:59.999Z"},
		{name: "day just before midnight", now: "2025-03-12T23:59:59.5Z", duration: blocking.Day, want: "2025-03-12T23:59:59.999Z"},
		{name: "day uses UTC", now: "2025-03-12T22:30:00-05:00", duration: blocking.Day, want: "2025-03-13T23:59:59.999Z"},
		{name: "week from wednesday", now: "2025-03-12T10:00:00Z", duration: blocking.Week, want: "2025-03-16T23:59:59.999Z"},
		{name: "week from saturday", now: "2025-03-15T10:00:00Z", duration: blocking.Week, want: "2025-03-16T23:59:59.999Z"},
		{name: "week from sunday", now: "2025-03-16T10:00:00Z", duration: blocking.Week, want: "2025-03-23T23:59:59.999Z"},
		{name: "week across month", now: "2025-03-31T08:00:00Z", duration: blocking.Week, want: "2025-04-06T23:59:59.999Z"},
		{name: "month", now: "2025-03-12T10:00:00Z", duration: blocking.Month, want: "2025-03-31T23:59:59.999Z"},
		{name: "month february leap year", now: "2024-02-10T10:00:00Z", duration: blocking.Month, want: "2024-02-29T23:59:59.999Z"},
		{name: "month december", now: "2025-12-05T10:00:00Z", duration: blocking.Month, want: "2025-12-31T23:59:59.999Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := blocking.ComputeBlockUntil(date(tt.now), tt.duration)
			require.NoError(t, err)
			assert.True(t, date(tt.want).Equal(got), "want %s got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestComputeBlockUntilInvalid(t *testing.T) {
	_, err := blocking.ComputeBlockUntil(time.Now(), blocking.Duration("year"))
	assert.True(t, auth.HasTextCode(err, blocking.TextCodeInvalidDuration))
}

func TestParseDuration(t *testing.T) {
	for _, want := range blocking.Durations {
		d, err := blocking.ParseDuration(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}

	for _, bad := range []string{"", "hour", "7d", "Week", " week", "DAY", "month "} {
		_, err := blocking.ParseDuration(bad)
		assert.True(t, auth.HasTextCode(err, blocking.TextCodeInvalidDuration), bad)
	}
}

func TestStatusShouldBlock(t *testing.T) {
	now := date("2025-03-12T10:00:00Z")
	until := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, blocking.Status{BlockRiskSettings: true, BlockUntil: &until}.ShouldBlock(now))
	assert.False(t, blocking.Status{BlockRiskSettings: true, BlockUntil: &past}.ShouldBlock(now))
	assert.False(t, blocking.Status{BlockRiskSettings: false, BlockUntil: &until}.ShouldBlock(now))
	assert.False(t, blocking.Status{BlockRiskSettings: true}.ShouldBlock(now))
}
