package timewindow

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := map[string]int64{
		"30m": 1_800_000,
		"1h":  3_600_000,
		"4h":  14_400_000,
		"12h": 43_200_000,
		"24h": 86_400_000,
		"7d":  604_800_000,
		"30d": 2_592_000_000,
	}
	for token, want := range cases {
		t.Run(token, func(t *testing.T) {
			w := Resolve(0, 0, token, now)
			assert.Equal(t, now.UnixMilli(), w.End)
			assert.Greater(t, w.End, w.Start)
			assert.Equal(t, want, w.End-w.Start)
		})
	}
}

func TestResolveUnknownTokenFallsBackTo24h(t *testing.T) {
	now := time.Now()
	w := Resolve(0, 0, "3w", now)
	assert.Equal(t, int64(86_400_000), w.End-w.Start)
	assert.False(t, Valid("3w"))
	assert.True(t, Valid("7d"))
}

func TestResolveExplicitPairNeedsBothValues(t *testing.T) {
	now := time.Now()
	assert.Equal(t, Window{Start: 1000, End: 5000}, Resolve(1000, 5000, "30m", now))

	w := Resolve(1000, 0, "30m", now)
	assert.Equal(t, now.UnixMilli(), w.End)
	assert.Equal(t, int64(1_800_000), w.End-w.Start)
}

func TestFromQuery(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	p := FromQuery(url.Values{"start": {"100"}, "end": {"200"}}, "30m", now)
	assert.True(t, p.Absolute)
	assert.Equal(t, Window{Start: 100, End: 200}, p.Window)

	p = FromQuery(url.Values{"start": {"abc"}, "end": {"200"}, "timeRange": {"1h"}}, "30m", now)
	assert.False(t, p.Absolute)
	assert.Equal(t, "1h", p.Range)
	assert.Equal(t, int64(3_600_000), p.Window.End-p.Window.Start)

	p = FromQuery(url.Values{}, "7d", now)
	assert.Equal(t, "7d", p.Range)
	assert.Equal(t, 7*24*time.Hour, p.Window.Duration())
}

func TestInterval(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Interval("30m"))
	assert.Equal(t, 10*time.Minute, Interval("1h"))
	assert.Equal(t, 30*time.Minute, Interval("4h"))
	assert.Equal(t, time.Hour, Interval("12h"))
	assert.Equal(t, time.Hour, Interval("24h"))
	assert.Equal(t, 24*time.Hour, Interval("7d"))
	assert.Equal(t, time.Hour, Interval("bogus"))

	assert.Equal(t, "5 minutes", IntervalLabel("30m"))
	assert.Equal(t, "1 hour", IntervalLabel("24h"))
	assert.Equal(t, "1 day", IntervalLabel("30d"))
}
