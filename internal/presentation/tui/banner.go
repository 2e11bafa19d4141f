package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the Sculpt ASCII art banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	lines := []struct {
		text  string
		color string
	}{
		{"  ___          _      _   ", "#818cf8"},
		{" / __| __ _  _| |_ __| |_ ", "#a78bfa"},
		{" \\__ \\/ _| || | | '_ \\  _|", "#c084fc"},
		{" |___/\\__|\\_,_|_| .__/\\__|", "#e879f9"},
		{"                |_|       ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String(" v"+version).Faint())
	fmt.Fprintln(w)
}
