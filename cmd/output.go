package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const (
	msgServiceStarted = "SafeLinks decoder service started. Press Ctrl+C to stop."
	msgServiceStopped = "SafeLinks decoder service stopped."
	msgNothingDecoded = "No valid SafeLink URL found. Use --help for usage instructions."
)

func printBanner(w io.Writer, domains []string) {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Fprintln(w, msgServiceStarted)
	for _, domain := range domains {
		fmt.Fprintf(w, "  watching for *.%s\n", domain)
	}
}

func printStopped(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, msgServiceStopped)
}

// printDecoded is the per-decode line of service mode.
func printDecoded(w io.Writer, url string) {
	green := color.New(color.FgGreen)
	_, _ = green.Fprint(w, "Decoded SafeLink to: ")
	fmt.Fprintln(w, url)
}

func printNothingDecoded(w io.Writer) {
	yellow := color.New(color.FgYellow)
	_, _ = yellow.Fprintln(w, msgNothingDecoded)
}
