package formatter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/dejavu/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Source renders a provenance label, strongest sources brightest.
func (p *Palette) Source(prov models.Provenance) string {
	label := "[" + prov.String() + "]"
	switch prov {
	case models.ProvenanceVerified:
		return p.ok.Render(label)
	case models.ProvenanceStructuredAndText:
		return p.title.Render(label)
	case models.ProvenanceStructured:
		return p.warn.Render(label)
	default:
		return p.help.Render(label)
	}
}

// Styles returns the default palette.
func Styles() *Palette { return styles }
