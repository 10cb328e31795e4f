package ui

import (
	"fmt"
	"io"
	"os"
	"sort"

	"clipharvest/pkg/models"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════════╗
    ║  ██████╗██╗     ██╗██████╗ ██╗  ██╗ █████╗ ██████╗ ██╗   ██╗ ║
    ║ ██╔════╝██║     ██║██╔══██╗██║  ██║██╔══██╗██╔══██╗██║   ██║ ║
    ║ ██║     ██║     ██║██████╔╝███████║███████║██████╔╝██║   ██║ ║
    ║ ██║     ██║     ██║██╔═══╝ ██╔══██║██╔══██║██╔══██╗╚██╗ ██╔╝ ║
    ║ ╚██████╗███████╗██║██║     ██║  ██║██║  ██║██║  ██║ ╚████╔╝  ║
    ║  ╚═════╝╚══════╝╚═╝╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝  ╚═══╝   ║
    ║           SHORT-FORM VIDEO HARVEST AND LABEL AUDIT            ║
    ╚═══════════════════════════════════════════════════════════╝
`

var (
	out       io.Writer = os.Stdout
	quietMode bool
	noColor   bool
)

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
		if noColor {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(quiet bool) {
	quietMode = quiet
}

// SetNoColor disables ANSI colors
func SetNoColor(disabled bool) {
	noColor = disabled
}

// SetOutput redirects terminal output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	out = w
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if quietMode {
		return
	}
	fmt.Fprint(out, Cyan(ASCIILogo))
}

// PrintError prints an error message in red. Errors are printed even in quiet mode.
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if quietMode {
		return
	}
	fmt.Fprintln(out, Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	if quietMode {
		return
	}
	fmt.Fprintf(out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if quietMode {
		return
	}
	if len(args) > 0 {
		fmt.Fprintln(out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if quietMode {
		return
	}
	fmt.Fprintln(out, Magenta(msg))
}

// PrintOutcomes prints one line per outcome with its count, sorted by outcome name.
func PrintOutcomes(title string, results []models.ItemResult) {
	if quietMode {
		return
	}
	counts := models.CountOutcomes(results)
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)

	fmt.Fprintln(out, Magenta(title))
	for _, o := range outcomes {
		fmt.Fprintf(out, "  %s %s\n", Cyan(fmt.Sprintf("%-18s", o)), Yellow(fmt.Sprintf("%d", counts[models.Outcome(o)])))
	}
	fmt.Fprintf(out, "  %s %s\n", Dim(fmt.Sprintf("%-18s", "total")), Dim(fmt.Sprintf("%d", len(results))))
}
