package utils

import (
	"os"
	"runtime"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"

	BrightBlue = "\033[94m"
)

// ColorOutput controls whether colors are enabled
var ColorOutput = true

// init initializes color output based on environment
func init() {
	// Disable colors on Windows by default (unless explicitly enabled)
	if runtime.GOOS == "windows" {
		ColorOutput = false
	}

	if os.Getenv("NO_COLOR") != "" {
		ColorOutput = false
	}

	if os.Getenv("FORCE_COLOR") != "" {
		ColorOutput = true
	}
}

// Colorize applies color to text if colors are enabled
func Colorize(color, text string) string {
	if !ColorOutput {
		return text
	}
	return color + text + Reset
}

// Success formats text with success color (green)
func Success(text string) string {
	return Colorize(Green, text)
}

// Warning formats text with warning color (yellow)
func Warning(text string) string {
	return Colorize(Yellow, text)
}

// Error formats text with error color (red)
func Error(text string) string {
	return Colorize(Red, text)
}

// Dim formats text with a muted color (gray)
func Dim(text string) string {
	return Colorize(Gray, text)
}

// Highlight formats text with highlight color (bright blue)
func Highlight(text string) string {
	return Colorize(BrightBlue, text)
}

// StatusText colors a CI status string by its meaning. Unknown statuses are
// returned uncolored.
func StatusText(status string) string {
	switch status {
	case "success", "fixed", "finished":
		return Success(status)
	case "failed", "error", "failing", "infrastructure_fail", "timedout", "errored":
		return Error(status)
	case "running", "on_hold", "queued", "created", "setup", "pending", "retried":
		return Warning(status)
	case "canceled", "not_run", "blocked", "skipped", "not_running", "unauthorized":
		return Dim(status)
	default:
		return status
	}
}

// SetColorOutput enables or disables color output
func SetColorOutput(enabled bool) {
	ColorOutput = enabled
}

// IsColorEnabled returns whether color output is enabled
func IsColorEnabled() bool {
	return ColorOutput
}
