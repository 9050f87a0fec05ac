package warden

// Theme holds ANSI 256 color indices for TUI rendering. -1 means no color.
type Theme struct {
	UserMsg  int
	System   int
	ToolCall int
	Error    int
	Muted    int
	Accent   int
}

// DefaultTheme returns the default color theme.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:  39,  // blue
		System:   42,  // green
		ToolCall: 214, // orange
		Error:    203, // red
		Muted:    245, // gray
		Accent:   51,  // cyan
	}
}
