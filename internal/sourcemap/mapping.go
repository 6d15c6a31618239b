package sourcemap

import "fmt"

// Unmapped is the source index reported by entries without a source.
const Unmapped = -1

// EntryKind tells which of the three mapping forms an entry has.
type EntryKind uint8

const (
	// KindUnmapped covers generated code with no original source.
	KindUnmapped EntryKind = iota
	// KindUnnamed points at a source position.
	KindUnnamed
	// KindNamed points at a source position and carries the original name.
	KindNamed
)

func (k EntryKind) String() string {
	switch k {
	case KindUnmapped:
		return "unmapped"
	case KindUnnamed:
		return "unnamed"
	case KindNamed:
		return "named"
	default:
		return "unknown"
	}
}

// MappingEntry is one decoded segment of a source map.
//
// Entries are plain values. The generation-order successor is stored as a
// position in the decoded entry slice, assigned once by the flattener.
type MappingEntry struct {
	Kind            EntryKind
	GeneratedLine   int
	GeneratedColumn int
	sourceIndex     int
	SourceLine      int
	SourceColumn    int
	name            string

	id   int32
	next int32
}

func newUnmapped(line, column int) MappingEntry {
	return MappingEntry{
		Kind:            KindUnmapped,
		GeneratedLine:   line,
		GeneratedColumn: column,
		sourceIndex:     Unmapped,
		next:            -1,
	}
}

func newUnnamed(line, column, source, sourceLine, sourceColumn int) MappingEntry {
	return MappingEntry{
		Kind:            KindUnnamed,
		GeneratedLine:   line,
		GeneratedColumn: column,
		sourceIndex:     source,
		SourceLine:      sourceLine,
		SourceColumn:    sourceColumn,
		next:            -1,
	}
}

func newNamed(name string, line, column, source, sourceLine, sourceColumn int) MappingEntry {
	e := newUnnamed(line, column, source, sourceLine, sourceColumn)
	e.Kind = KindNamed
	e.name = name
	return e
}

// SourceIndex returns the index into the document sources, or Unmapped.
func (e MappingEntry) SourceIndex() int {
	if e.Kind == KindUnmapped {
		return Unmapped
	}
	return e.sourceIndex
}

// HasSource reports whether the entry points at an original position.
func (e MappingEntry) HasSource() bool { return e.Kind != KindUnmapped }

// Name returns the original identifier name of a named entry.
func (e MappingEntry) Name() (string, bool) {
	if e.Kind != KindNamed {
		return "", false
	}
	return e.name, true
}

// ID is the position of the entry in its decoded entry slice.
func (e MappingEntry) ID() int { return int(e.id) }

// Same reports whether both values denote the same decoded entry.
func (e MappingEntry) Same(other MappingEntry) bool {
	return e.id == other.id && e.GeneratedLine == other.GeneratedLine &&
		e.GeneratedColumn == other.GeneratedColumn
}

func (e MappingEntry) String() string {
	switch e.Kind {
	case KindUnmapped:
		return fmt.Sprintf("%d:%d", e.GeneratedLine, e.GeneratedColumn)
	case KindNamed:
		return fmt.Sprintf("%d:%d -> #%d %d:%d (%s)", e.GeneratedLine, e.GeneratedColumn,
			e.sourceIndex, e.SourceLine, e.SourceColumn, e.name)
	default:
		return fmt.Sprintf("%d:%d -> #%d %d:%d", e.GeneratedLine, e.GeneratedColumn,
			e.sourceIndex, e.SourceLine, e.SourceColumn)
	}
}

// Mappings is the query surface shared by plain and composed indices.
type Mappings interface {
	// Len returns the number of entries in the index.
	Len() int
	// IndexOf returns the floor position of (line, column), or -1.
	IndexOf(line, column int) int
	// ByIndex returns the entry at a position returned by IndexOf.
	ByIndex(index int) (MappingEntry, bool)
	// Get is IndexOf followed by ByIndex.
	Get(line, column int) (MappingEntry, bool)
	// Next returns the entry following e in the index order.
	Next(e MappingEntry) (MappingEntry, bool)
	// NextOnTheSameLine returns the entry after index if it shares its line.
	NextOnTheSameLine(index int, skipEqualColumns bool) (MappingEntry, bool)
	// MappingsInLine returns every entry on line in ascending column order.
	MappingsInLine(line int) []MappingEntry
	// ProcessMappingsInLine calls visit for each entry on line with its
	// successor on the same line, or nil for the last one.
	ProcessMappingsInLine(line int, visit func(current MappingEntry, next *MappingEntry)) bool
	// Line and Column return the coordinates the index is ordered by.
	Line(e MappingEntry) int
	Column(e MappingEntry) int
}
