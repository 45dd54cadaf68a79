package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles render listing decorations. Output that is not a terminal gets
// plain text.
type styles struct {
	title lipgloss.Style
	dim   lipgloss.Style
	tag   lipgloss.Style
	alert lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true),
		dim:   r.NewStyle().Faint(true),
		tag:   r.NewStyle().Foreground(lipgloss.Color("6")),
		alert: r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	}
}
