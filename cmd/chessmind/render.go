package main

import "github.com/muesli/termenv"

// One shared profile; NO_COLOR and dumb terminals degrade to plain text.
var profile = termenv.EnvColorProfile()

func green(s string) string {
	return termenv.String(s).Foreground(profile.Color("2")).String()
}

func red(s string) string {
	return termenv.String(s).Foreground(profile.Color("1")).String()
}

func faint(s string) string {
	return termenv.String(s).Faint().String()
}

// clip shortens s to width bytes. Cells are padded before they are
// colored, so escape sequences never disturb column alignment.
func clip(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
