package warden

import (
	"fmt"
	"time"
)

// RelativeTime formats t relative to now for list display: "Just now",
// "5m ago", "3h ago", "2d ago".
func RelativeTime(t, now time.Time) string {
	minutes := int(now.Sub(t).Minutes())
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/(24*60))
	}
}
