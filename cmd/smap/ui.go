package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/HugoDaniel/smap/internal/sourcemap"
)

type theme struct {
	source   *color.Color
	position *color.Color
	name     *color.Color
	caret    *color.Color
	faint    *color.Color
}

// newTheme returns the colors of the output, or plain text when colorize is
// false.
func newTheme(colorize bool) *theme {
	t := &theme{
		source:   color.New(color.FgCyan),
		position: color.New(color.FgYellow),
		name:     color.New(color.FgMagenta),
		caret:    color.New(color.FgGreen, color.Bold),
		faint:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{t.source, t.position, t.name, t.caret, t.faint} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return t
}

func (t *theme) location(source string, line, column int) string {
	return t.source.Sprint(source) + t.position.Sprintf(":%d:%d", line, column)
}

// original formats the original position of an entry.
func (t *theme) original(m sourcemap.SourceMap, e sourcemap.MappingEntry) string {
	if !e.HasSource() {
		return t.faint.Sprint("-")
	}
	source := "?"
	if u, ok := sourcemap.SourceURLFor(m, e); ok {
		source = u.String()
	}
	s := t.location(source, e.SourceLine, e.SourceColumn)
	if name, ok := e.Name(); ok {
		s += " " + t.name.Sprint(name)
	}
	if sourcemap.IsIgnored(m, e.SourceIndex()) {
		s += " " + t.faint.Sprint("[ignored]")
	}
	return s
}

// printSnippet prints a source line with a caret under the column.
func (t *theme) printSnippet(w io.Writer, s sourcemap.Snippet) {
	var pad strings.Builder
	for _, r := range s.Text[:s.Offset] {
		if r == '\t' {
			pad.WriteRune('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	fmt.Fprintf(w, "    %s\n", s.Text)
	fmt.Fprintf(w, "    %s%s\n", pad.String(), t.caret.Sprint("^"))
}
