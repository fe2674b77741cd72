package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/KamdynS/heartcrew/tools/heart"
)

const rule = "=================================================="

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

func printBanner(w io.Writer) {
	fmt.Fprintln(w, headingStyle.Render("## Heart Diagnosis & Treatment Crew AI with ML Integration"))
	fmt.Fprintln(w, "--------------------------------------------------------")
	fmt.Fprintln(w, "This system combines medical expertise with machine learning predictions")
	fmt.Fprintln(w)
}

// printChecks prints one line per tool. short cuts outputs to fifty runes.
func printChecks(w io.Writer, results []heart.CheckResult, short bool) {
	for _, r := range results {
		out := r.Output
		if short {
			if rs := []rune(out); len(rs) > 50 {
				out = string(rs[:50]) + "..."
			}
		}
		if r.OK {
			fmt.Fprintf(w, "%s %s: %s\n", okStyle.Render("✅"), r.Tool, out)
		} else {
			fmt.Fprintf(w, "%s %s: %s\n", failStyle.Render("❌"), r.Tool, out)
		}
	}
}

// renderMarkdown renders the doctors' answer for the terminal, falling back
// to the raw text when rendering fails.
func renderMarkdown(md string, plain bool) string {
	if plain {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
