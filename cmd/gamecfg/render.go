package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"gamecfg/internal/data/validate"
)

var (
	styleFail = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	stylePass = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleRule = lipgloss.NewStyle().Faint(true)
)

func renderDiagnostics(w io.Writer, ds validate.Diagnostics) {
	if !ds.Failed() {
		fmt.Fprintln(w, stylePass.Render("Validation passed."))
		return
	}
	fmt.Fprintln(w, styleFail.Render(fmt.Sprintf("Validation failed (%d):", len(ds))))
	for _, d := range ds {
		fmt.Fprintf(w, " - %s %s\n", d, styleRule.Render("["+string(d.Rule)+"]"))
	}
}
