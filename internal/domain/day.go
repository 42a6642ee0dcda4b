package domain

import (
	"errors"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

var ErrInvalidDay = errors.New("invalid date")

// Day is a calendar date counted in days since 1970-01-01 UTC. It is the key
// of every availability entry and of order delivery dates, so two timestamps
// on the same UTC date always map to the same Day.
type Day int32

func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

func Today() Day {
	return DayOf(time.Now())
}

// ParseDay accepts YYYY-MM-DD or a full RFC3339 timestamp.
func ParseDay(s string) (Day, error) {
	if t, err := time.Parse(dayLayout, s); err == nil {
		return DayOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return DayOf(t), nil
}

func (d Day) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

func (d Day) String() string {
	return d.Time().Format(dayLayout)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
