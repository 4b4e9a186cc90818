package common

import (
	"fmt"
	"math"
	"strings"
)

const Placeholder = "-"

const detailSeparator = " · "

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders a byte count with 1024-based units. Values of ten
// units or more, and plain bytes, are printed without decimals.
func FormatBytes(bytes float64) string {
	if math.IsNaN(bytes) || math.IsInf(bytes, 0) || bytes <= 0 {
		return Placeholder
	}
	value := bytes
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 || value >= 10 {
		return fmt.Sprintf("%.0f %s", value, byteUnits[unit])
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}

// FormatRate renders a transfer rate in bytes per second, or an empty
// string when the rate is not positive.
func FormatRate(bytesPerSecond float64) string {
	if math.IsNaN(bytesPerSecond) || bytesPerSecond <= 0 {
		return ""
	}
	formatted := FormatBytes(bytesPerSecond)
	if formatted == Placeholder {
		return ""
	}
	return formatted + "/s"
}

// FormatDuration renders seconds compactly, e.g. "2d 3h", "1h 23m",
// "12m 5s" or "45s".
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 1 {
		return Placeholder
	}
	// Values past the int64 range would wrap negative.
	if seconds >= math.MaxInt64 {
		return Placeholder
	}
	total := int64(seconds)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// JoinDetail joins the non-empty parts with a middle dot.
func JoinDetail(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, detailSeparator)
}

// FirstNonEmpty returns the first argument that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
