// Package timewindow turns dashboard query parameters into absolute
// millisecond windows.
package timewindow

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultRange applies when a token is not recognized.
const DefaultRange = "24h"

var ranges = map[string]time.Duration{
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"12h": 12 * time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

var intervals = map[string]time.Duration{
	"30m": 5 * time.Minute,
	"1h":  10 * time.Minute,
	"4h":  30 * time.Minute,
	"12h": time.Hour,
	"24h": time.Hour,
	"7d":  24 * time.Hour,
	"30d": 24 * time.Hour,
}

// Window is an inclusive [Start, End] range in epoch milliseconds.
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (w Window) Duration() time.Duration {
	return time.Duration(w.End-w.Start) * time.Millisecond
}

// Params is the parsed form of start/end/timeRange.
type Params struct {
	Range    string
	Window   Window
	Absolute bool
}

// Valid reports whether token is one of the known range tokens.
func Valid(token string) bool {
	_, ok := ranges[token]
	return ok
}

// RangeDuration returns the span of token, falling back to 24h.
func RangeDuration(token string) time.Duration {
	if d, ok := ranges[token]; ok {
		return d
	}
	return ranges[DefaultRange]
}

// Resolve uses the explicit pair when both values are non-zero, otherwise
// the token counted back from now.
func Resolve(start, end int64, token string, now time.Time) Window {
	if start != 0 && end != 0 {
		return Window{Start: start, End: end}
	}
	nowMs := now.UnixMilli()
	return Window{Start: nowMs - RangeDuration(token).Milliseconds(), End: nowMs}
}

// FromQuery reads start, end and timeRange from q. Unparseable numbers count
// as absent.
func FromQuery(q url.Values, defaultRange string, now time.Time) Params {
	token := strings.TrimSpace(q.Get("timeRange"))
	if token == "" {
		token = defaultRange
	}
	start := parseMillis(q.Get("start"))
	end := parseMillis(q.Get("end"))
	return Params{
		Range:    token,
		Window:   Resolve(start, end, token, now),
		Absolute: start != 0 && end != 0,
	}
}

// Interval returns the timeline bucket width for token.
func Interval(token string) time.Duration {
	if d, ok := intervals[token]; ok {
		return d
	}
	return time.Hour
}

// IntervalLabel renders Interval the way Postgres interval literals read.
func IntervalLabel(token string) string {
	switch d := Interval(token); {
	case d >= 24*time.Hour:
		return pluralize(int(d/(24*time.Hour)), "day")
	case d >= time.Hour:
		return pluralize(int(d/time.Hour), "hour")
	default:
		return pluralize(int(d/time.Minute), "minute")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

func parseMillis(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return v
}
