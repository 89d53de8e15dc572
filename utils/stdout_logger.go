package utils

import (
	"io"
	"os"

	"github.com/fatih/color"
)

var stdout io.Writer = os.Stdout

// SetOutput redirects the Print helpers, e.g. to a buffer in tests.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	stdout = w
}

func PrintSuccess(message string) { FprintSuccess(stdout, message) }
func PrintError(message string)   { FprintError(stdout, message) }
func PrintInfo(message string)    { FprintInfo(stdout, message) }
func PrintWarn(message string)    { FprintWarn(stdout, message) }

func FprintSuccess(w io.Writer, message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(w, "✓ %s\n", message)
}

func FprintError(w io.Writer, message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(w, "✗ %s\n", message)
}

func FprintInfo(w io.Writer, message string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(w, "ℹ %s\n", message)
}

func FprintWarn(w io.Writer, message string) {
	magenta := color.New(color.FgMagenta)
	magenta.Fprintf(w, "⚠ %s\n", message)
}
