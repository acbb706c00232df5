package clock

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"

	secondsPerDay = 24 * 60 * 60
)

// Comparison is the result of Compare.
type Comparison int

const (
	Before Comparison = -1
	Equal  Comparison = 0
	After  Comparison = 1
)

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// TimeOfDay is a local wall-clock time with second precision, stored as
// seconds since midnight.
type TimeOfDay int

var (
	BusinessOpen  = NewTime(6, 0, 0)
	BusinessClose = NewTime(20, 0, 0)
)

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses YYYY-MM-DD and rejects impossible dates such as 2024-02-30.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return DateOf(t), nil
}

// Midnight returns the start of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Midnight(time.UTC).AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool {
	return d.Midnight(time.UTC).Before(other.Midnight(time.UTC))
}

func (d Date) Equal(other Date) bool {
	return d == other
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.Midnight(time.UTC).Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func NewTime(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// TimeOfDayOf returns the wall-clock time of t, dropping sub-second precision.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTime(t.Hour(), t.Minute(), t.Second())
}

// ParseTime parses HH:MM:SS.
func ParseTime(s string) (TimeOfDay, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil || len(s) != len(timeLayout) {
		return 0, fmt.Errorf("invalid time %q (use HH:MM:SS)", s)
	}
	return TimeOfDayOf(t), nil
}

// FromMicroseconds converts a Postgres time value (microseconds since midnight).
func FromMicroseconds(us int64) TimeOfDay {
	return TimeOfDay(us / int64(time.Second/time.Microsecond))
}

func (t TimeOfDay) Microseconds() int64 {
	return int64(t) * int64(time.Second/time.Microsecond)
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// On combines the time with a date in loc.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return d.Midnight(loc).Add(time.Duration(t) * time.Second)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTime(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AddMinutes adds minutes to t, wrapping around midnight. It never changes
// the day; rolling over to the next date is the caller's concern.
func AddMinutes(t TimeOfDay, minutes int) TimeOfDay {
	s := (int(t) + minutes*60) % secondsPerDay
	if s < 0 {
		s += secondsPerDay
	}
	return TimeOfDay(s)
}

// IsWithinBusinessWindow reports whether 06:00:00 <= t < 20:00:00.
func IsWithinBusinessWindow(t TimeOfDay) bool {
	return t >= BusinessOpen && t < BusinessClose
}

func Compare(a, b TimeOfDay) Comparison {
	switch {
	case a < b:
		return Before
	case a > b:
		return After
	default:
		return Equal
	}
}
