package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Palette colors terminal output; a disabled palette returns text unchanged
type Palette struct {
	enabled bool
}

// NewPalette enables color only when w is a terminal and NO_COLOR is unset
func NewPalette(w io.Writer) Palette {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return Palette{}
	}
	return Palette{enabled: term.IsTerminal(int(f.Fd()))}
}

func (p Palette) paint(code, text string) string {
	if !p.enabled {
		return text
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", code, text)
}

func (p Palette) Cyan(s string) string    { return p.paint("36", s) }
func (p Palette) Yellow(s string) string  { return p.paint("33", s) }
func (p Palette) Red(s string) string     { return p.paint("31", s) }
func (p Palette) Green(s string) string   { return p.paint("32", s) }
func (p Palette) Magenta(s string) string { return p.paint("35", s) }
func (p Palette) Dim(s string) string     { return p.paint("2", s) }

// PrintError prints an error message in red, with an optional detail
func PrintError(w io.Writer, msg string, detail ...string) {
	p := NewPalette(w)
	if len(detail) > 0 && detail[0] != "" {
		fmt.Fprintln(w, p.Red(msg+": "+detail[0]))
		return
	}
	fmt.Fprintln(w, p.Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, NewPalette(w).Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(w io.Writer, label string, value string) {
	p := NewPalette(w)
	fmt.Fprintf(w, "%s: %s\n", p.Cyan(label), p.Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, NewPalette(w).Yellow(msg))
}
