package cli

import (
	"fmt"
	"time"
)

// FormatDate formats a date for table display.
func FormatDate(t time.Time) string {
	return t.Format("02-Jan-2006")
}

// FormatPrice formats a per-share option price.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatStrike formats a strike price, dropping trailing zero decimals.
func FormatStrike(strike float64) string {
	if strike == float64(int64(strike)) {
		return fmt.Sprintf("%.0f", strike)
	}
	return fmt.Sprintf("%.2f", strike)
}

// FormatDelta formats an option delta.
func FormatDelta(delta float64) string {
	return fmt.Sprintf("%.4f", delta)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
