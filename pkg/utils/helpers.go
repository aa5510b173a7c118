package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseNumber reports whether s is a plain decimal number ("12", " -3.5",
// "1e3") and returns its value. Hex, infinities and NaN are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9', c == '.', c == '+', c == '-', c == 'e', c == 'E':
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseLimit parses a positive row limit. An empty string yields def; the
// result is capped at max when max > 0.
func ParseLimit(s string, def, max int) (int, error) {
	limit := def
	if s = strings.TrimSpace(s); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed <= 0 {
			return 0, fmt.Errorf("limit %q is not a positive integer", s)
		}
		limit = parsed
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit, nil
}

// timeLayouts are tried in order by ParseTime after unix seconds.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts unix seconds (optionally fractional), RFC3339 or a bare
// date. Times without a zone are UTC. An empty string yields the zero time.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if secs, ok := ParseNumber(s); ok {
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// UnixSeconds converts t to fractional unix seconds, the unit the history
// table stores timestamps in.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
