// Package test provides fixtures for source map tests: a VLQ encoder, a
// mappings encoder and a JSON document builder.
package test

import (
	"strings"

	"github.com/mailru/easyjson/jwriter"
)

// Base64 alphabet used for VLQ encoding in source maps
const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqBaseShift       = 5
	vlqBase            = 1 << vlqBaseShift
	vlqBaseMask        = vlqBase - 1
	vlqContinuationBit = vlqBase
	vlqSignBit         = 1
)

// EncodeVLQ encodes a signed integer as a VLQ base64 string.
func EncodeVLQ(value int32) string {
	var buf strings.Builder

	// Convert to VLQ signed representation:
	// - Positive numbers: value << 1
	// - Negative numbers: ((-value) << 1) | 1
	var vlq uint32
	if value < 0 {
		vlq = uint32(-int64(value))<<1 | vlqSignBit
	} else {
		vlq = uint32(value) << 1
	}

	for {
		digit := vlq & vlqBaseMask
		vlq >>= vlqBaseShift
		if vlq > 0 {
			digit |= vlqContinuationBit
		}
		buf.WriteByte(base64Alphabet[digit])
		if vlq == 0 {
			break
		}
	}
	return buf.String()
}

// Segment is one mapping in absolute coordinates. Source < 0 encodes a
// generated-only segment, Name < 0 an unnamed one.
type Segment struct {
	Column       int
	Source       int
	SourceLine   int
	SourceColumn int
	Name         int
}

// Unmapped returns a generated-only segment.
func Unmapped(column int) Segment {
	return Segment{Column: column, Source: -1, Name: -1}
}

// Mapped returns an unnamed segment.
func Mapped(column, source, sourceLine, sourceColumn int) Segment {
	return Segment{Column: column, Source: source, SourceLine: sourceLine, SourceColumn: sourceColumn, Name: -1}
}

// Named returns a named segment.
func Named(column, source, sourceLine, sourceColumn, name int) Segment {
	return Segment{Column: column, Source: source, SourceLine: sourceLine, SourceColumn: sourceColumn, Name: name}
}

// EncodeMappings delta-encodes segments given per generated line.
func EncodeMappings(lines [][]Segment) string {
	var buf strings.Builder
	prevSource, prevSourceLine, prevSourceColumn, prevName := 0, 0, 0, 0

	for i, line := range lines {
		if i > 0 {
			buf.WriteByte(';')
		}
		prevColumn := 0
		for j, s := range line {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(EncodeVLQ(int32(s.Column - prevColumn)))
			prevColumn = s.Column
			if s.Source < 0 {
				continue
			}
			buf.WriteString(EncodeVLQ(int32(s.Source - prevSource)))
			buf.WriteString(EncodeVLQ(int32(s.SourceLine - prevSourceLine)))
			buf.WriteString(EncodeVLQ(int32(s.SourceColumn - prevSourceColumn)))
			prevSource, prevSourceLine, prevSourceColumn = s.Source, s.SourceLine, s.SourceColumn
			if s.Name >= 0 {
				buf.WriteString(EncodeVLQ(int32(s.Name - prevName)))
				prevName = s.Name
			}
		}
	}
	return buf.String()
}

// Map describes a flat source map document.
type Map struct {
	File       string
	SourceRoot string
	Sources    []string
	// Content entries that are nil are written as JSON null.
	SourcesContent []*string
	Names          []string
	Mappings       string
	IgnoreList     []int
}

// Section is one entry of a sectioned document.
type Section struct {
	Line, Column int
	// Map is the JSON of the nested document.
	Map []byte
}

// Content returns a pointer for Map.SourcesContent.
func Content(s string) *string { return &s }

// JSON renders the document.
func (m Map) JSON() []byte {
	w := &jwriter.Writer{}
	w.RawString(`{"version":3`)
	if m.File != "" {
		w.RawString(`,"file":`)
		w.String(m.File)
	}
	if m.SourceRoot != "" {
		w.RawString(`,"sourceRoot":`)
		w.String(m.SourceRoot)
	}
	w.RawString(`,"sources":`)
	writeStrings(w, m.Sources)
	if m.SourcesContent != nil {
		w.RawString(`,"sourcesContent":[`)
		for i, c := range m.SourcesContent {
			if i > 0 {
				w.RawByte(',')
			}
			if c == nil {
				w.RawString("null")
			} else {
				w.String(*c)
			}
		}
		w.RawByte(']')
	}
	if m.Names != nil {
		w.RawString(`,"names":`)
		writeStrings(w, m.Names)
	}
	w.RawString(`,"mappings":`)
	w.String(m.Mappings)
	if m.IgnoreList != nil {
		w.RawString(`,"ignoreList":[`)
		for i, v := range m.IgnoreList {
			if i > 0 {
				w.RawByte(',')
			}
			w.Int(v)
		}
		w.RawByte(']')
	}
	w.RawByte('}')
	return w.Buffer.BuildBytes()
}

// SectionedJSON renders an index map over the given sections.
func SectionedJSON(file string, sections ...Section) []byte {
	w := &jwriter.Writer{}
	w.RawString(`{"version":3`)
	if file != "" {
		w.RawString(`,"file":`)
		w.String(file)
	}
	w.RawString(`,"sections":[`)
	for i, s := range sections {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawString(`{"offset":{"line":`)
		w.Int(s.Line)
		w.RawString(`,"column":`)
		w.Int(s.Column)
		w.RawString(`},"map":`)
		w.Raw(s.Map, nil)
		w.RawByte('}')
	}
	w.RawString(`]}`)
	return w.Buffer.BuildBytes()
}

func writeStrings(w *jwriter.Writer, ss []string) {
	w.RawByte('[')
	for i, s := range ss {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(s)
	}
	w.RawByte(']')
}
