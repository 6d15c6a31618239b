package sourcemap

import (
	"slices"
	"sync"

	"github.com/HugoDaniel/smap/internal/resolver"
)

// SourceMap is the query surface of a decoded source map.
type SourceMap interface {
	// OutFile is the "file" field of the map.
	OutFile() string
	// Sources returns the canonical URL of every source.
	Sources() []resolver.URL
	// RawSources returns the sources as written in the map.
	RawSources() []string
	HasNameMappings() bool
	GeneratedMappings() Mappings
	// SourceMappings returns the entries of one source ordered by source
	// position, or nil when the source has none.
	SourceMappings(sourceIndex int) Mappings
	Resolver() *resolver.Resolver
	// SourceContent returns the embedded content of a source.
	SourceContent(sourceIndex int) (string, bool)
	IgnoreList() []int
}

// OneLevel is a source map decoded from a single document.
type OneLevel struct {
	indexed  *Indexed
	resolver *resolver.Resolver

	lines sync.Map // source index -> *LineIndex
}

var _ SourceMap = (*OneLevel)(nil)

// NewOneLevel wraps an indexed document and the resolver for its sources.
func NewOneLevel(indexed *Indexed, r *resolver.Resolver) *OneLevel {
	return &OneLevel{indexed: indexed, resolver: r}
}

// Data returns the decoded document.
func (m *OneLevel) Data() *SourceMapData { return m.indexed.Data }

func (m *OneLevel) OutFile() string              { return m.indexed.Data.File }
func (m *OneLevel) Sources() []resolver.URL      { return m.resolver.CanonicalizedURLs() }
func (m *OneLevel) RawSources() []string         { return m.indexed.Data.Sources }
func (m *OneLevel) HasNameMappings() bool        { return m.indexed.Data.HasNameMappings }
func (m *OneLevel) GeneratedMappings() Mappings  { return m.indexed.Generated }
func (m *OneLevel) Resolver() *resolver.Resolver { return m.resolver }
func (m *OneLevel) IgnoreList() []int            { return m.indexed.Data.IgnoreList }

func (m *OneLevel) SourceMappings(sourceIndex int) Mappings {
	if sourceIndex < 0 || sourceIndex >= len(m.indexed.BySource) {
		return nil
	}
	if x := m.indexed.BySource[sourceIndex]; x != nil {
		return x
	}
	return nil
}

func (m *OneLevel) SourceContent(sourceIndex int) (string, bool) {
	contents := m.indexed.Data.SourcesContent
	if sourceIndex < 0 || sourceIndex >= len(contents) || !contents[sourceIndex].Valid {
		return "", false
	}
	return contents[sourceIndex].String, true
}

func (m *OneLevel) lineIndex(sourceIndex int) (*LineIndex, bool) {
	if idx, ok := m.lines.Load(sourceIndex); ok {
		return idx.(*LineIndex), true
	}
	content, ok := m.SourceContent(sourceIndex)
	if !ok {
		return nil, false
	}
	idx, _ := m.lines.LoadOrStore(sourceIndex, NewLineIndex(content))
	return idx.(*LineIndex), true
}

// FindSourceIndex returns the source index of a canonical URL, or -1.
func FindSourceIndex(m SourceMap, u resolver.URL) int {
	return m.Resolver().FindSourceIndex(u)
}

// FindSourceIndexByFile returns the source index of a local file or URL, or -1.
func FindSourceIndexByFile(m SourceMap, file string, localOnly bool) int {
	return m.Resolver().FindSourceIndexByFile(file, localOnly)
}

// FindSourceMappings returns the source-ordered entries of a URL, or nil.
func FindSourceMappings(m SourceMap, u resolver.URL) Mappings {
	m = Snapshot(m)
	i := FindSourceIndex(m, u)
	if i < 0 {
		return nil
	}
	return m.SourceMappings(i)
}

// SourceContentFor returns the embedded content of the source of e.
func SourceContentFor(m SourceMap, e MappingEntry) (string, bool) {
	if !e.HasSource() {
		return "", false
	}
	return m.SourceContent(e.SourceIndex())
}

// RawSourceFor returns the source of e as written in the map.
func RawSourceFor(m SourceMap, e MappingEntry) (string, bool) {
	if !e.HasSource() {
		return "", false
	}
	return m.Resolver().RawSource(e.SourceIndex())
}

// SourceURLFor returns the canonical URL of the source of e.
func SourceURLFor(m SourceMap, e MappingEntry) (resolver.URL, bool) {
	if !e.HasSource() {
		return resolver.URL{}, false
	}
	return m.Resolver().URLAt(e.SourceIndex())
}

// ProcessSourceMappingsInLine visits the entries of a source line.
func ProcessSourceMappingsInLine(m SourceMap, sourceIndex, line int, visit func(current MappingEntry, next *MappingEntry)) bool {
	mappings := m.SourceMappings(sourceIndex)
	if mappings == nil {
		return false
	}
	return mappings.ProcessMappingsInLine(line, visit)
}

// SourceLineByRawLocation returns the source line of the generated
// position, or -1.
func SourceLineByRawLocation(m SourceMap, line, column int) int {
	e, ok := m.GeneratedMappings().Get(line, column)
	if !ok || !e.HasSource() {
		return -1
	}
	return e.SourceLine
}

// IsIgnored reports whether a source is on the ignore list.
func IsIgnored(m SourceMap, sourceIndex int) bool {
	return slices.Contains(m.IgnoreList(), sourceIndex)
}

// SourceLineText returns one line of the embedded content of a source.
func SourceLineText(m SourceMap, sourceIndex, line int) (string, bool) {
	idx, ok := sourceLines(m, sourceIndex)
	if !ok {
		return "", false
	}
	return idx.Line(line)
}

// Snippet is a line of embedded source content with a marked column.
type Snippet struct {
	Text string
	// Offset is the byte offset in Text of the UTF-16 column of the entry.
	Offset int
}

// SourceSnippet returns the source line an entry points at.
func SourceSnippet(m SourceMap, e MappingEntry) (Snippet, bool) {
	if !e.HasSource() {
		return Snippet{}, false
	}
	idx, ok := sourceLines(m, e.SourceIndex())
	if !ok {
		return Snippet{}, false
	}
	text, ok := idx.Line(e.SourceLine)
	if !ok {
		return Snippet{}, false
	}
	offset := idx.LineColumnUTF16ToByteOffset(e.SourceLine, e.SourceColumn) - idx.lineStarts[e.SourceLine]
	return Snippet{Text: text, Offset: offset}, true
}

func sourceLines(m SourceMap, sourceIndex int) (*LineIndex, bool) {
	if o, ok := Snapshot(m).(*OneLevel); ok {
		return o.lineIndex(sourceIndex)
	}
	content, ok := m.SourceContent(sourceIndex)
	if !ok {
		return nil, false
	}
	return NewLineIndex(content), true
}
