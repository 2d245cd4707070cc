package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logo is printed at the top of interactive commands
const Logo = `
   ┌─┐┬ ┬┌─┐┌┬┐┌─┐┌─┐┌─┐┌─┐┌┬┐
   ├─┘├─┤│ │ │ │ │├─┘│ │└─┐ │
   ┴  ┴ ┴└─┘ ┴ └─┘┴  └─┘└─┘ ┴
`

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	quiet   bool
	noColor bool
)

// SetOutput redirects everything the package prints
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetColor turns ANSI colors on or off
func SetColor(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = !enabled
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		plain := noColor
		mu.Unlock()
		if plain {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func emit(always bool, format string, args ...interface{}) {
	mu.Lock()
	w, skip := out, quiet && !always
	mu.Unlock()
	if skip {
		return
	}
	fmt.Fprintf(w, format, args...)
}

// PrintLogo prints the logo
func PrintLogo() {
	emit(false, "%s\n", Cyan(Logo))
}

// PrintError prints an error message in red. It is shown even in quiet mode.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	emit(true, "%s\n", Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	emit(false, "%s\n", Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	emit(false, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	emit(false, "%s\n", Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	emit(false, "%s\n", Magenta(msg))
}

// PrintBlock prints multi-line text dimmed and indented, such as a caption
func PrintBlock(text string) {
	for _, line := range strings.Split(text, "\n") {
		emit(false, "    %s\n", Dim(line))
	}
}
