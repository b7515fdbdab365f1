package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/furrow/pkg/core"
)

// Directives are string values starting with '$'. A literal leading '$' is written as "$$".
const (
	directiveServerTimestamp = "$server_timestamp"
	directiveNow             = "$now"
)

// resolveValue expands directives and, for time fields, parses RFC 3339 strings.
func resolveValue(v any, timeField bool, now time.Time) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	if strings.HasPrefix(s, "$$") {
		return s[1:], nil
	}
	if strings.HasPrefix(s, "$") {
		return resolveDirective(s, now)
	}
	if timeField {
		return parseTime(s)
	}
	return s, nil
}

// resolveTime resolves a value that must end up as a timestamp.
func resolveTime(s string, now time.Time) (any, error) {
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "$$") {
		return resolveDirective(s, now)
	}
	return parseTime(s)
}

func resolveDirective(s string, now time.Time) (any, error) {
	if s == directiveServerTimestamp {
		return core.ServerTimestamp, nil
	}
	if !strings.HasPrefix(s, directiveNow) {
		return nil, fmt.Errorf("%w: unknown directive %q (use $$ for a literal $)", core.ErrValidation, s)
	}

	rest := s[len(directiveNow):]
	if rest == "" {
		return now.UTC(), nil
	}

	sign := time.Duration(1)
	switch rest[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("%w: malformed directive %q", core.ErrValidation, s)
	}

	d, err := parseOffset(rest[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: directive %q: %v", core.ErrValidation, s, err)
	}
	return now.Add(sign * d).UTC(), nil
}

// parseOffset accepts time.ParseDuration syntax plus a whole number of days ("2d").
func parseOffset(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not an RFC 3339 timestamp", core.ErrValidation, s)
	}
	return t.UTC(), nil
}
