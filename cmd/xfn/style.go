package main

import (
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-isatty"
)

type Styles struct {
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Skip    lipgloss.Style
	Faint   lipgloss.Style
	Error   lipgloss.Style
	Name    lipgloss.Style
	Added   lipgloss.Style
	Removed lipgloss.Style
}

func plainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{
		Pass:    s,
		Fail:    s,
		Skip:    s,
		Faint:   s,
		Error:   s,
		Name:    s,
		Added:   s,
		Removed: s,
	}
}

func colorStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{
		Pass:    s.Foreground(lipgloss.Color("2")).Bold(true),
		Fail:    s.Foreground(lipgloss.Color("1")).Bold(true),
		Skip:    s.Foreground(lipgloss.Color("3")),
		Faint:   s.Faint(true),
		Error:   s.Foreground(lipgloss.Color("9")),
		Name:    s.Foreground(lipgloss.Color("6")),
		Added:   s.Foreground(lipgloss.Color("2")),
		Removed: s.Foreground(lipgloss.Color("1")),
	}
}

// getStyles selects the styles according to the color mode. In auto mode,
// colors are only used when stdout is a terminal.
func getStyles(mode string) Styles {
	switch mode {
	case colorAlways:
		return colorStyles()
	case colorNever:
		return plainStyles()
	default:
	}
	if isTerminal(os.Stdout) {
		return colorStyles()
	}
	return plainStyles()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// renderDiff colors the lines of a diff produced by the suite runner.
func (s Styles) renderDiff(diff string) string {
	var str strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			line = s.Added.Render(strings.TrimSuffix(line, "\n")) + "\n"
		case strings.HasPrefix(line, "-"):
			line = s.Removed.Render(strings.TrimSuffix(line, "\n")) + "\n"
		default:
		}
		str.WriteString("    ")
		str.WriteString(line)
	}
	return str.String()
}
