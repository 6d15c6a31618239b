package sourcemap

import (
	"errors"
	"fmt"
	"math"

	null "gopkg.in/guregu/null.v3"
)

var (
	// ErrInvalidSegment is returned for segments that do not have 1, 4 or 5 fields.
	ErrInvalidSegment = errors.New("invalid mappings segment")
	// ErrSourceIndexOutOfRange is returned when a segment points past the sources.
	ErrSourceIndexOutOfRange = errors.New("source index out of range")
	// ErrNameIndexOutOfRange is returned when a segment points past the names.
	ErrNameIndexOutOfRange = errors.New("name index out of range")
)

// DecodeError locates a fault inside a mappings string.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mappings offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SourceMapData is a fully decoded source map with sections flattened away.
type SourceMapData struct {
	File    string
	Sources []string
	// SourcesContent is nil when no section embeds content, otherwise it is
	// parallel to Sources and invalid entries must be resolved externally.
	SourcesContent  []null.String
	HasNameMappings bool
	// Mappings is in generation order.
	Mappings   []MappingEntry
	IgnoreList []int
}

// bounds is the coordinate frame of one section: where it starts and the
// exclusive position at which the next section takes over.
type bounds struct {
	lineOffset   int
	columnOffset int
	stopLine     int
	stopColumn   int
}

var unbounded = bounds{stopLine: math.MaxInt, stopColumn: math.MaxInt}

// project maps a section offset into the absolute generated space.
func (b bounds) project(off Offset) (line, column int) {
	line = b.lineOffset + off.Line
	column = off.Column
	if off.Line == 0 {
		column += b.columnOffset
	}
	return line, column
}

func (b bounds) contains(line, column int) bool {
	return line < b.stopLine || (line == b.stopLine && column < b.stopColumn)
}

// accumulator carries the running state between sections.
type accumulator struct {
	lastEntry     int32
	sourcesOffset int
}

// Flatten decodes a document into a single generation-ordered entry list.
// It returns (nil, nil) when the document has no mappings at all.
func Flatten(doc Document) (*SourceMapData, error) {
	if doc == nil {
		return nil, nil
	}
	f := &flattener{data: &SourceMapData{File: doc.OutFile()}}
	if _, err := f.visit(doc, unbounded, accumulator{lastEntry: -1}); err != nil {
		return nil, err
	}
	if len(f.data.Mappings) == 0 {
		return nil, nil
	}
	return f.data, nil
}

type flattener struct {
	data *SourceMapData
}

func (f *flattener) visit(doc Document, b bounds, acc accumulator) (accumulator, error) {
	switch d := doc.(type) {
	case *FlatMap:
		return f.readFlat(d, b, acc)
	case *SectionedMap:
		return f.readSections(d, b, acc)
	default:
		return acc, fmt.Errorf("unknown document type %T", doc)
	}
}

func (f *flattener) readSections(m *SectionedMap, b bounds, acc accumulator) (accumulator, error) {
	for i, s := range m.Sections {
		line, column := b.project(s.Offset)
		child := bounds{
			lineOffset:   line,
			columnOffset: column,
			stopLine:     b.stopLine,
			stopColumn:   b.stopColumn,
		}
		if i+1 < len(m.Sections) {
			nextLine, nextColumn := b.project(m.Sections[i+1].Offset)
			if child.contains(nextLine, nextColumn) {
				child.stopLine, child.stopColumn = nextLine, nextColumn
			}
		}

		var err error
		acc, err = f.visit(s.Map, child, acc)
		if err != nil {
			return acc, fmt.Errorf("section %d: %w", i, err)
		}
	}
	return acc, nil
}

func (f *flattener) readFlat(m *FlatMap, b bounds, acc accumulator) (accumulator, error) {
	acc.sourcesOffset = len(f.data.Sources)
	f.appendSources(m, acc.sourcesOffset)

	it := newStringIterator(m.Mappings)
	line, column := b.lineOffset, b.columnOffset
	var (
		sourceIndex  int
		sourceLine   int
		sourceColumn int
		nameIndex    int
		fields       [5]int32
	)

segments:
	for it.HasNext() {
		switch it.Peek() {
		case ',':
			it.Next()
			continue
		case ';':
			it.Next()
			line++
			column = 0
			continue
		}

		start := it.Offset()
		n := 0
		for !it.isSegmentEnd() {
			if n == len(fields) {
				return acc, &DecodeError{Offset: start, Err: ErrInvalidSegment}
			}
			v, err := DecodeVLQ(it)
			if err != nil {
				return acc, &DecodeError{Offset: it.Offset(), Err: err}
			}
			fields[n] = v
			n++
		}

		column += int(fields[0])
		if !b.contains(line, column) {
			break segments
		}

		var entry MappingEntry
		switch n {
		case 1:
			entry = newUnmapped(line, column)
		case 4, 5:
			sourceIndex += int(fields[1])
			sourceLine += int(fields[2])
			sourceColumn += int(fields[3])
			if sourceIndex < 0 || sourceIndex >= len(m.Sources) {
				return acc, &DecodeError{Offset: start, Err: ErrSourceIndexOutOfRange}
			}
			if n == 4 {
				entry = newUnnamed(line, column, sourceIndex+acc.sourcesOffset, sourceLine, sourceColumn)
				break
			}
			nameIndex += int(fields[4])
			if nameIndex < 0 || nameIndex >= len(m.Names) {
				return acc, &DecodeError{Offset: start, Err: ErrNameIndexOutOfRange}
			}
			entry = newNamed(m.Names[nameIndex], line, column, sourceIndex+acc.sourcesOffset, sourceLine, sourceColumn)
		default:
			return acc, &DecodeError{Offset: start, Err: ErrInvalidSegment}
		}
		acc.lastEntry = f.append(entry, acc.lastEntry)
	}
	return acc, nil
}

// appendSources concatenates the section sources, keeping the content and
// ignore list parallel to them.
func (f *flattener) appendSources(m *FlatMap, offset int) {
	d := f.data
	d.Sources = append(d.Sources, m.Sources...)

	if m.SourcesContent != nil && d.SourcesContent == nil {
		d.SourcesContent = make([]null.String, offset, offset+len(m.Sources))
	}
	if d.SourcesContent != nil {
		for i := range m.Sources {
			var content null.String
			if i < len(m.SourcesContent) {
				content = m.SourcesContent[i]
			}
			d.SourcesContent = append(d.SourcesContent, content)
		}
	}

	// Out of range entries are dropped.
	for _, i := range m.IgnoreList {
		if i >= 0 && i < len(m.Sources) {
			d.IgnoreList = append(d.IgnoreList, i+offset)
		}
	}
}

// append stores e and links it after last. It returns the position of e.
func (f *flattener) append(e MappingEntry, last int32) int32 {
	id := int32(len(f.data.Mappings))
	e.id = id
	if last >= 0 {
		f.data.Mappings[last].next = id
	}
	f.data.Mappings = append(f.data.Mappings, e)
	if e.Kind == KindNamed {
		f.data.HasNameMappings = true
	}
	return id
}
