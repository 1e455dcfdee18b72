package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ASCII banner for the CLI
const ASCIILogo = `
  ╔══════════════════════════════════════════════════════════╗
  ║ ███████╗███████╗███████╗██████╗ ██████╗  ██████╗ ████████╗ ║
  ║ ██╔════╝██╔════╝██╔════╝██╔══██╗██╔══██╗██╔═══██╗╚══██╔══╝ ║
  ║ █████╗  █████╗  █████╗  ██║  ██║██████╔╝██║   ██║   ██║    ║
  ║ ██╔══╝  ██╔══╝  ██╔══╝  ██║  ██║██╔══██╗██║   ██║   ██║    ║
  ║ ██║     ███████╗███████╗██████╔╝██████╔╝╚██████╔╝   ██║    ║
  ║ ╚═╝     ╚══════╝╚══════╝╚═════╝ ╚═════╝  ╚═════╝    ╚═╝    ║
  ║             FEED ENGAGEMENT AUTOMATION UTILITY             ║
  ╚══════════════════════════════════════════════════════════╝
`

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
		return fmt.Sprintf(colorString, text)
	}
}

// quietMode suppresses everything except errors
var quietMode bool

// SetQuietMode toggles suppression of non-error output
func SetQuietMode(quiet bool) {
	quietMode = quiet
}

// IsInteractive reports whether stdout is attached to a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the terminal width, or a safe default when stdout
// is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// PrintLogo prints the ASCII banner with color
func PrintLogo() {
	if quietMode {
		return
	}
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if quietMode {
		return
	}
	fmt.Println(Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	if quietMode {
		return
	}
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if quietMode {
		return
	}
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if quietMode {
		return
	}
	fmt.Println(Magenta(msg))
}
