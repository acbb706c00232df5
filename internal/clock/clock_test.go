package clock

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMinutes(t *testing.T) {
	tests := []struct {
		name    string
		start   TimeOfDay
		minutes int
		want    TimeOfDay
	}{
		{"ninety minutes", NewTime(6, 0, 0), 90, NewTime(7, 30, 0)},
		{"past business close", NewTime(19, 0, 0), 90, NewTime(20, 30, 0)},
		{"wraps midnight", NewTime(23, 30, 0), 90, NewTime(1, 0, 0)},
		{"negative", NewTime(0, 30, 0), -60, NewTime(23, 30, 0)},
		{"keeps seconds", NewTime(8, 15, 42), 1, NewTime(8, 16, 42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMinutes(tt.start, tt.minutes))
		})
	}
}

func TestIsWithinBusinessWindow(t *testing.T) {
	assert.False(t, IsWithinBusinessWindow(NewTime(5, 59, 59)))
	assert.True(t, IsWithinBusinessWindow(NewTime(6, 0, 0)))
	assert.True(t, IsWithinBusinessWindow(NewTime(19, 59, 59)))
	assert.False(t, IsWithinBusinessWindow(NewTime(20, 0, 0)))
	assert.False(t, IsWithinBusinessWindow(NewTime(5, 0, 0)))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, Before, Compare(NewTime(6, 0, 0), NewTime(7, 0, 0)))
	assert.Equal(t, Equal, Compare(NewTime(7, 0, 0), NewTime(7, 0, 0)))
	assert.Equal(t, After, Compare(NewTime(7, 0, 1), NewTime(7, 0, 0)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.February, 29), d)
	assert.Equal(t, "2024-02-29", d.String())

	for _, bad := range []string{"", "2024-02-30", "2024/01/01", "24-01-01", "2024-13-01"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseTime(t *testing.T) {
	tod, err := ParseTime("19:59:59")
	require.NoError(t, err)
	assert.Equal(t, NewTime(19, 59, 59), tod)
	assert.Equal(t, "19:59:59", tod.String())

	for _, bad := range []string{"", "25:00:00", "9:00", "09:00", "noon", "6:00:00", " 06:00:00"} {
		_, err := ParseTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateAddDays(t *testing.T) {
	assert.Equal(t, NewDate(2025, time.January, 1), NewDate(2024, time.December, 31).AddDays(1))
	assert.Equal(t, NewDate(2024, time.March, 1), NewDate(2024, time.February, 29).AddDays(1))
	assert.True(t, NewDate(2024, time.March, 1).Before(NewDate(2024, time.March, 2)))
	assert.False(t, NewDate(2024, time.March, 2).Before(NewDate(2024, time.March, 2)))
}

func TestMicrosecondsRoundTrip(t *testing.T) {
	tod := NewTime(13, 45, 10)
	assert.Equal(t, tod, FromMicroseconds(tod.Microseconds()))
}

func TestOn(t *testing.T) {
	got := NewTime(9, 30, 0).On(NewDate(2024, time.May, 6), time.UTC)
	assert.Equal(t, time.Date(2024, time.May, 6, 9, 30, 0, 0, time.UTC), got)
}

func TestJSON(t *testing.T) {
	type payload struct {
		Date Date      `json:"date"`
		Time TimeOfDay `json:"time"`
	}

	b, err := json.Marshal(payload{Date: NewDate(2024, time.May, 6), Time: NewTime(7, 30, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-05-06","time":"07:30:00"}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-12-31","time":"19:00:00"}`), &p))
	assert.Equal(t, NewDate(2024, time.December, 31), p.Date)
	assert.Equal(t, NewTime(19, 0, 0), p.Time)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"31-12-2024"}`), &p))
}
