package ui

import (
	"fmt"
	"strings"
)

// PadString pads a string to the specified width with spaces
func PadString(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// TruncateString truncates a string to maxWidth with ellipsis
func TruncateString(s string, maxWidth int) string {
	if len(s) <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return s[:maxWidth]
	}
	return s[:maxWidth-3] + "..."
}

// RightAlign right-aligns a string within the given width
func RightAlign(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// FillBar draws a fixed-width usage bar, e.g. "[#####.....]" for half full.
func FillBar(used, total, width int) string {
	if width <= 0 {
		return "[]"
	}
	filled := 0
	if total > 0 {
		filled = used * width / total
	}
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// Percent formats used/total as a whole percentage.
func Percent(used, total int) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", used*100/total)
}
