package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintLogo renders the colored planloom logo.
func PrintLogo(w io.Writer) {
	frame := color.New(color.FgCyan)
	tasks := color.New(color.FgYellow)
	threads := color.New(color.FgCyan, color.Faint)
	sep := color.New(color.FgCyan)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +--------------------------+")
	tasks.Fprintln(w, "   |  o  o  o  o  o  o  o  o  |")
	threads.Fprintln(w, "   |  |  |  |  |  |  |  |  |  |")
	sep.Fprintln(w, "   |==========================|")
	brand.Fprintln(w, "   |  P  L  A  N  L  O  O  M  |")
	sep.Fprintln(w, "   |==========================|")
	threads.Fprintln(w, "   |  |  |  |  |  |  |  |  |  |")
	tasks.Fprintln(w, "   |  o  o  o  o  o  o  o  o  |")
	frame.Fprintln(w, "   +--------------------------+")
	tag.Fprintf(w, "   %s Dependency-aware wave planning\n", Dim("🧵"))
	fmt.Fprintln(w)
}

// StatusIcon returns a colored status icon for compact table display.
func StatusIcon(status string) string {
	switch status {
	case "completed":
		return Green("✓")
	case "ready":
		return Cyan("●")
	case "blocked":
		return Dim("◌")
	default:
		return Dim("?")
	}
}

// WaveStatus returns a colored wave status string.
func WaveStatus(status string) string {
	switch status {
	case "done":
		return Green("done")
	case "ready":
		return BoldCyan("ready")
	case "partial":
		return Yellow("partial")
	default:
		return Dim("blocked")
	}
}

// Minutes formats a duration in minutes as 0m, 45m, 2h or 1h30m.
func Minutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	if m%60 == 0 {
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}
