package speedrun

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders a run time as h:mm:ss.mmm, dropping the hour field
// when it is zero and the milliseconds when they are zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Millisecond)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond

	var out string
	if h > 0 {
		out = fmt.Sprintf("%d:%02d:%02d", h, m, s)
	} else {
		out = fmt.Sprintf("%d:%02d", m, s)
	}
	if ms > 0 {
		out += fmt.Sprintf(".%03d", ms)
	}
	return out
}

// ParseISODuration parses the ISO 8601 durations the API reports, such as
// PT1H2M3.456S or P1DT2H.
func ParseISODuration(s string) (time.Duration, error) {
	rest, ok := strings.CutPrefix(strings.ToUpper(s), "P")
	if !ok || rest == "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var total time.Duration
	inTime := false
	num := ""
	for _, r := range rest {
		switch {
		case r == 'T':
			if inTime || num != "" {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			inTime = true
		case (r >= '0' && r <= '9') || r == '.':
			num += string(r)
		default:
			if num == "" {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			v, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			unit, err := durationUnit(r, inTime)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			total += time.Duration(math.Round(v * float64(unit)))
			num = ""
		}
	}
	if num != "" {
		return 0, fmt.Errorf("invalid duration %q: trailing number", s)
	}
	return total, nil
}

func durationUnit(r rune, inTime bool) (time.Duration, error) {
	switch {
	case !inTime && r == 'D':
		return 24 * time.Hour, nil
	case inTime && r == 'H':
		return time.Hour, nil
	case inTime && r == 'M':
		return time.Minute, nil
	case inTime && r == 'S':
		return time.Second, nil
	default:
		return 0, fmt.Errorf("unsupported unit %q", r)
	}
}
