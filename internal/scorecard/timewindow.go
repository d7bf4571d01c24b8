package scorecard

import (
	"fmt"
	"strings"
	"time"
)

// RangeToken is a symbolic reporting window selector
type RangeToken string

const (
	RangeLast7Days    RangeToken = "LAST_N_DAYS:7"
	RangeLast30Days   RangeToken = "LAST_N_DAYS:30"
	RangeLast90Days   RangeToken = "LAST_N_DAYS:90"
	RangeLast180Days  RangeToken = "LAST_N_DAYS:180"
	RangeLast365Days  RangeToken = "LAST_N_DAYS:365"
	RangeLast3Months  RangeToken = "LAST_3_MONTHS"
	RangeLast6Months  RangeToken = "LAST_6_MONTHS"
	RangeLast12Months RangeToken = "LAST_12_MONTHS"
	RangeThisMonth    RangeToken = "THIS_MONTH"
	RangeLastMonth    RangeToken = "LAST_MONTH"
	RangeAllTime      RangeToken = "ALL_TIME"

	// DefaultRange is used for empty and unrecognized tokens
	DefaultRange = RangeLast30Days
)

var (
	rollingDays = map[RangeToken]int{
		RangeLast7Days:   7,
		RangeLast30Days:  30,
		RangeLast90Days:  90,
		RangeLast180Days: 180,
		RangeLast365Days: 365,
	}
	rollingMonths = map[RangeToken]int{
		RangeLast3Months:  3,
		RangeLast6Months:  6,
		RangeLast12Months: 12,
	}
)

// RangeTokens returns every accepted token in display order
func RangeTokens() []RangeToken {
	return []RangeToken{
		RangeLast7Days,
		RangeLast30Days,
		RangeLast90Days,
		RangeLast180Days,
		RangeLast365Days,
		RangeLast3Months,
		RangeLast6Months,
		RangeLast12Months,
		RangeThisMonth,
		RangeLastMonth,
		RangeAllTime,
	}
}

// ParseRangeToken matches raw against the accepted tokens, ignoring case and
// surrounding whitespace
func ParseRangeToken(raw string) (RangeToken, bool) {
	candidate := RangeToken(strings.ToUpper(strings.TrimSpace(raw)))
	for _, t := range RangeTokens() {
		if t == candidate {
			return t, true
		}
	}
	return "", false
}

// Precision selects how a window boundary is rendered
type Precision int

const (
	// PrecisionDate renders day boundaries for fields compared at day granularity
	PrecisionDate Precision = iota
	// PrecisionInstant renders second boundaries in UTC
	PrecisionInstant
)

const (
	dateLayout    = "2006-01-02"
	instantLayout = "2006-01-02T15:04:05Z"
)

// TimeWindow is either unbounded or the half-open interval [from, to)
type TimeWindow struct {
	from    time.Time
	to      time.Time
	bounded bool
}

// Unbounded returns the window covering all time
func Unbounded() TimeWindow {
	return TimeWindow{}
}

// NewTimeWindow builds a bounded window; from must be strictly before to
func NewTimeWindow(from, to time.Time) (TimeWindow, error) {
	if !from.Before(to) {
		return TimeWindow{}, fmt.Errorf("invalid window: from %s is not before to %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return TimeWindow{from: from, to: to, bounded: true}, nil
}

// IsBounded reports whether the window restricts anything
func (w TimeWindow) IsBounded() bool {
	return w.bounded
}

// Bounds returns the instant boundaries; ok is false for an unbounded window
func (w TimeWindow) Bounds() (from, to time.Time, ok bool) {
	return w.from, w.to, w.bounded
}

// DateBounds returns day-aligned boundaries in the window's location. from is
// floored to midnight and to is raised to the next midnight unless already on one,
// so a window ending mid-day still covers that day.
func (w TimeWindow) DateBounds() (from, to time.Time, ok bool) {
	if !w.bounded {
		return time.Time{}, time.Time{}, false
	}
	from = startOfDay(w.from)
	to = startOfDay(w.to)
	if !to.Equal(w.to) {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, true
}

// Boundaries renders both boundaries at the requested precision
func (w TimeWindow) Boundaries(p Precision) (from, to string, ok bool) {
	if !w.bounded {
		return "", "", false
	}
	if p == PrecisionDate {
		f, t, _ := w.DateBounds()
		return f.Format(dateLayout), t.Format(dateLayout), true
	}
	return w.from.UTC().Format(instantLayout), w.to.UTC().Format(instantLayout), true
}

// Filter renders "field >= from AND field < to" with quoted literals, or an empty
// string when the window is unbounded
func (w TimeWindow) Filter(field string, p Precision) string {
	from, to, ok := w.Boundaries(p)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s >= '%s' AND %s < '%s'", field, from, field, to)
}

// Contains reports whether t falls inside the window
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.bounded {
		return true
	}
	return !t.Before(w.from) && t.Before(w.to)
}

// Resolution is the outcome of resolving a raw range selector
type Resolution struct {
	Requested string
	Token     RangeToken
	Window    TimeWindow
	// Defaulted is set when the requested token was not recognized
	Defaulted bool
}

// Resolve turns a raw selector into a window relative to now. Unknown selectors
// resolve to DefaultRange.
func Resolve(raw string, now time.Time) Resolution {
	token, ok := ParseRangeToken(raw)
	res := Resolution{Requested: raw, Token: token}
	if !ok {
		res.Token = DefaultRange
		res.Defaulted = true
	}
	res.Window = windowFor(res.Token, now)
	return res
}

func windowFor(token RangeToken, now time.Time) TimeWindow {
	today := startOfDay(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var from, to time.Time
	to = now

	switch {
	case token == RangeAllTime:
		return Unbounded()
	case token == RangeThisMonth:
		from = monthStart
	case token == RangeLastMonth:
		from = monthStart.AddDate(0, -1, 0)
		to = monthStart
	case rollingMonths[token] > 0:
		from = today.AddDate(0, -rollingMonths[token], 0)
	case rollingDays[token] > 0:
		from = today.AddDate(0, 0, -rollingDays[token])
	default:
		from = today.AddDate(0, 0, -rollingDays[DefaultRange])
	}

	// THIS_MONTH evaluated exactly at the first instant of a month
	if !from.Before(to) {
		to = from.Add(time.Second)
	}
	return TimeWindow{from: from, to: to, bounded: true}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
