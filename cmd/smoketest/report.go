package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	idStyle    = lipgloss.NewStyle().Width(14)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func status(r Result) string {
	switch {
	case r.Passed():
		return passStyle.Render("PASS")
	case r.Skipped():
		return skipStyle.Render("SKIP")
	default:
		return failStyle.Render("FAIL")
	}
}

// Render writes a per-case table and a pass/fail/skip summary
func Render(w io.Writer, runID string, results []Result) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("smoketest " + runID))
	b.WriteString("\n\n")

	var passed, failed, skipped int
	var total time.Duration
	for _, r := range results {
		total += r.Duration
		switch {
		case r.Passed():
			passed++
		case r.Skipped():
			skipped++
		default:
			failed++
		}

		detail := r.Note
		if r.Err != nil {
			detail = r.Err.Error()
		}
		fmt.Fprintf(&b, "%s %s %s %s\n",
			status(r),
			idStyle.Render(r.Case.ID),
			noteStyle.Render(fmt.Sprintf("%6s", r.Duration.Round(time.Millisecond))),
			detail)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s  %s  %s",
		passStyle.Render(fmt.Sprintf("%d passed", passed)),
		failStyle.Render(fmt.Sprintf("%d failed", failed)),
		skipStyle.Render(fmt.Sprintf("%d skipped", skipped)),
		noteStyle.Render(total.Round(time.Millisecond).String()))

	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

// List prints the known cases
func List(w io.Writer, cases []Case) {
	for _, c := range cases {
		fmt.Fprintf(w, "%s %s %s\n", idStyle.Render(c.ID), noteStyle.Render(fmt.Sprintf("%-4s", c.Kind)), c.Name)
	}
}
