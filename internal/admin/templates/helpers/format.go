package helpers

import (
	"strconv"
	"strings"
	"time"
)

// Price renders a rupee amount with Indian digit grouping (₹45,00,000).
func Price(amount int64) string {
	if amount <= 0 {
		return "Price on request"
	}
	digits := strconv.FormatInt(amount, 10)
	if len(digits) <= 3 {
		return "₹" + digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return "₹" + strings.Join(groups, ",") + "," + tail
}

// Date formats the timestamp in the provided layout (defaults to 2006-01-02 15:04 MST).
func Date(ts time.Time, layout string) string {
	if layout == "" {
		layout = "2006-01-02 15:04 MST"
	}
	return ts.In(time.Local).Format(layout)
}

// Relative returns a coarse "time ago" string relative to now.
func Relative(ts, now time.Time) string {
	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return strconv.Itoa(int(diff.Minutes())) + "m ago"
	case diff < 24*time.Hour:
		return strconv.Itoa(int(diff.Hours())) + "h ago"
	default:
		return ts.Format("2006-01-02")
	}
}

// NoticeClass maps notice tones to alert classes.
func NoticeClass(tone string) string {
	switch tone {
	case "success":
		return "notice notice-success"
	case "error":
		return "notice notice-error"
	default:
		return "notice notice-info"
	}
}

// BadgeClass maps semantic tones to badge classes.
func BadgeClass(tone string) string {
	switch tone {
	case "success", "warning", "danger":
		return "badge badge-" + tone
	default:
		return "badge"
	}
}
