package output

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	// Outcome colors
	Updated  = color.New(color.FgGreen)
	UpToDate = color.New(color.Faint)
	Skipped  = color.New(color.FgYellow)
	Failed   = color.New(color.FgRed)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// IsTerminal returns true if stdout is a terminal
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// OutcomeColor returns the color used for an outcome kind
// ("updated", "added", "outdated", "up-to-date", "skipped", "failed").
func OutcomeColor(kind string) *color.Color {
	switch kind {
	case "updated", "added":
		return Updated
	case "outdated":
		return Info
	case "up-to-date":
		return UpToDate
	case "skipped":
		return Skipped
	case "failed":
		return Failed
	default:
		return color.New(color.Reset)
	}
}

// FormatOutcome formats an outcome kind as a colored [kind] tag
func FormatOutcome(kind string) string {
	return OutcomeColor(kind).Sprintf("[%s]", kind)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Printf("→ "+format+"\n", args...)
}

// Sprintf returns a colored string without printing
func Sprintf(c *color.Color, format string, args ...interface{}) string {
	return c.Sprintf(format, args...)
}

// Box prints a boxed message
func Box(title, content string) {
	fmt.Println()
	Header.Println("┌─ " + title + " ─")
	fmt.Println("│")
	fmt.Println("│  " + content)
	fmt.Println("│")
	Header.Println("└────────────────")
	fmt.Println()
}
