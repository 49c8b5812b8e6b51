// Package format renders sizes and timestamps the way the runtime's own
// tooling prints them.
package format

import (
	"fmt"
	"time"
)

// Size renders a byte count as "4.5 GB" or "500 MB".
func Size(bytes int64) string {
	if bytes >= 1_000_000_000 {
		return fmt.Sprintf("%.1f GB", float64(bytes)/1_000_000_000)
	}
	return fmt.Sprintf("%.0f MB", float64(bytes)/1_000_000)
}

// TimeAgo renders how long ago t was, coarsely ("2 days ago", "5 hours ago").
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	diff := time.Since(t)

	days := int(diff.Hours() / 24)
	switch {
	case days > 30:
		months := days / 30
		return fmt.Sprintf("%d %s ago", months, plural("month", months))
	case days > 0:
		return fmt.Sprintf("%d %s ago", days, plural("day", days))
	default:
		hours := int(diff.Hours())
		if hours < 1 {
			minutes := int(diff.Minutes())
			if minutes < 1 {
				return "just now"
			}
			return fmt.Sprintf("%d %s ago", minutes, plural("minute", minutes))
		}
		return fmt.Sprintf("%d %s ago", hours, plural("hour", hours))
	}
}

// Until renders how far in the future t is ("5 minutes from now"), or
// "expired" once it has passed.
func Until(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	minutes := int(time.Until(t).Minutes())
	if minutes <= 0 {
		return "expired"
	}
	return fmt.Sprintf("%d %s from now", minutes, plural("minute", minutes))
}

// Processor renders GPU/CPU placement from total and VRAM-resident sizes.
func Processor(size, sizeVRAM int64) string {
	if size <= 0 {
		return "CPU"
	}
	return fmt.Sprintf("%.0f%% GPU", float64(sizeVRAM)/float64(size)*100)
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
