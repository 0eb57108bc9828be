package journey

import (
	"fmt"
	"strings"
)

func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.1f meters", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatDuration renders whole seconds as "1 hr 5 min 3 sec", dropping zero
// units. A zero total still prints "0 sec".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%d hr", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%d min", m))
	}
	if s > 0 || seconds == 0 {
		parts = append(parts, fmt.Sprintf("%d sec", s))
	}
	return strings.Join(parts, " ")
}
