package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayout is the calendar-day format carried on windows.
const dateLayout = "2006-01-02"

// Window is an activation window on a specific calendar day.
//
// Times are 24h "HH:MM" strings and Date is "YYYY-MM-DD", all interpreted
// in the cabinet's timezone. The firmware consumes the window as two
// absolute instants, so the date is part of the window, not an annotation;
// the sync path resolves Date+StartTime and Date+EndTime before pushing.
type Window struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Date      string `json:"date"`
}

// Validate checks the window: both times must parse as 24h HH:MM, the date
// as YYYY-MM-DD, and the end must be strictly after the start. Windows do
// not span midnight.
func (w Window) Validate() error {
	start, err := parseClock(w.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start time %q: %v", ErrInvalidWindow, w.StartTime, err)
	}
	end, err := parseClock(w.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end time %q: %v", ErrInvalidWindow, w.EndTime, err)
	}
	if end <= start {
		return fmt.Errorf("%w: end %q must be after start %q", ErrInvalidWindow, w.EndTime, w.StartTime)
	}
	if _, err := time.Parse(dateLayout, w.Date); err != nil {
		return fmt.Errorf("%w: date %q: want YYYY-MM-DD", ErrInvalidWindow, w.Date)
	}
	return nil
}

// Bounds resolves the window to its absolute start and end instants in loc.
func (w Window) Bounds(loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, w.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date %q: want YYYY-MM-DD", ErrInvalidWindow, w.Date)
	}
	start, err := parseClock(w.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start time %q: %v", ErrInvalidWindow, w.StartTime, err)
	}
	end, err := parseClock(w.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end time %q: %v", ErrInvalidWindow, w.EndTime, err)
	}

	at := func(minutes int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc)
	}
	return at(start), at(end), nil
}

// Contains reports whether the instant t falls inside the window on its
// date. The start is inclusive, the end exclusive.
func (w Window) Contains(t time.Time) bool {
	start, err := parseClock(w.StartTime)
	if err != nil {
		return false
	}
	end, err := parseClock(w.EndTime)
	if err != nil {
		return false
	}
	if w.Date != "" {
		day, err := time.Parse(dateLayout, w.Date)
		if err != nil {
			return false
		}
		ty, tm, td := t.Date()
		dy, dm, dd := day.Date()
		if ty != dy || tm != dm || td != dd {
			return false
		}
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= start && minutes < end
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("want HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute")
	}
	return h*60 + m, nil
}

// Schedule is the structured store record of a device's activation window.
//
// ID is the scheduler node ID shared with the realtime store
// (schedule_<deviceID> by convention). Date is the calendar day the
// window applies to, as YYYY-MM-DD.
type Schedule struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"deviceId"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Window returns the schedule's activation window.
func (s *Schedule) Window() Window {
	return Window{StartTime: s.StartTime, EndTime: s.EndTime, Date: s.Date}
}
