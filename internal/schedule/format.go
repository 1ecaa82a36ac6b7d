package schedule

import (
	"fmt"
	"time"
)

// FormatFirmwareTime renders t in the timestamp format the cabinet firmware
// writes and expects on scheduler nodes:
//
//	June 1, 2024 at 07:00:00 UTC+0
//
// The offset is hours from UTC without leading zeros; zones on half-hour
// offsets append the minutes (UTC+5:30).
func FormatFirmwareTime(t time.Time) string {
	stamp := t.Format("January 2, 2006 at 15:04:05")

	_, offsetSeconds := t.Zone()
	sign := "+"
	if offsetSeconds < 0 {
		sign = "-"
		offsetSeconds = -offsetSeconds
	}
	hours := offsetSeconds / 3600
	minutes := (offsetSeconds % 3600) / 60

	offset := fmt.Sprintf("%s%d", sign, hours)
	if minutes != 0 {
		offset = fmt.Sprintf("%s%d:%02d", sign, hours, minutes)
	}

	return fmt.Sprintf("%s UTC%s", stamp, offset)
}
