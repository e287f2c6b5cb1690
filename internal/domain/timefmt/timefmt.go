// Package timefmt renders playback durations for display.
package timefmt

import "fmt"

// FromSeconds formats a number of seconds as a zero-padded HH:MM:SS string.
// Hours are not capped at 24. Negative input is clamped to zero.
func FromSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// Remaining formats the time left in an item as -HH:MM:SS.
// A progress beyond the duration renders as -00:00:00.
func Remaining(duration, progress int) string {
	return "-" + FromSeconds(duration-progress)
}
