// Package api provides the public API for decoding and querying source maps.
//
// This package is intended for programmatic use of the decoder.
// For CLI usage, see cmd/smap.
//
// All lines and columns are zero-based. Columns count UTF-16 code units.
package api

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/HugoDaniel/smap/internal/resolver"
	"github.com/HugoDaniel/smap/internal/sourcemap"
)

// ErrNoMappings is returned by Parse for a null document or a map without
// mappings.
var ErrNoMappings = errors.New("source map has no mappings")

// PathCase selects how source paths are compared.
type PathCase uint8

const (
	// PathCaseAuto compares paths the way the host file system usually does.
	PathCaseAuto PathCase = iota
	PathCaseSensitive
	PathCaseInsensitive
)

// Options controls decoding and source resolution.
type Options struct {
	// BaseURL is the URL or local path the map was loaded from.
	// Relative sources are resolved against it.
	BaseURL string

	// KeepFileScheme keeps absolute "file:" sources as they are written
	// instead of turning them into local file URLs.
	KeepFileScheme bool

	// ResolveAgainstMapURL resolves relative sources against BaseURL itself
	// instead of against its directory.
	ResolveAgainstMapURL bool

	PathCase PathCase

	// Fs is used to read map files and to check which sources exist.
	// Defaults to the OS file system.
	Fs afero.Fs

	// Logger receives decode failures. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

func (o Options) toInternal() sourcemap.Options {
	opts := sourcemap.DefaultOptions()
	opts.TrimFileScheme = !o.KeepFileScheme
	opts.BaseIsFile = !o.ResolveAgainstMapURL
	switch o.PathCase {
	case PathCaseSensitive:
		opts.CaseSensitive = true
	case PathCaseInsensitive:
		opts.CaseSensitive = false
	}
	if o.Fs != nil {
		opts.Fs = o.Fs
	}
	opts.Logger = o.Logger
	if o.BaseURL != "" {
		base, ok := resolver.Parse(o.BaseURL)
		if !ok {
			base = resolver.NewLocalFileURL(o.BaseURL)
		}
		opts.BaseURL = &base
	}
	return opts
}

// Map is a decoded source map.
type Map struct {
	m    sourcemap.SourceMap
	file *sourcemap.FileBacked
}

// Parse decodes a source map document.
func Parse(text []byte, opts Options) (*Map, error) {
	m, err := sourcemap.Decode(text, opts.toInternal())
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNoMappings
	}
	return &Map{m: m}, nil
}

// ParseSafely decodes a source map document and returns nil instead of an
// error. Failures are logged to Options.Logger.
func ParseSafely(text []byte, opts Options) *Map {
	m := sourcemap.DecodeSafely(text, opts.toInternal())
	if m == nil {
		return nil
	}
	return &Map{m: m}
}

// Open returns a map read lazily from a file. A file that cannot be read or
// decoded behaves like an empty map. When Options.BaseURL is empty, sources
// are resolved against the file location.
func Open(path string, opts Options) *Map {
	internal := opts.toInternal()
	f := sourcemap.Open(internal.Fs, path, internal)
	return &Map{m: f, file: f}
}

// Compose returns a map from the generated code of child to the sources of
// parent, where parent maps the sources child was generated from.
func Compose(child, parent *Map) *Map {
	return &Map{m: sourcemap.NewNested(child.m, parent.m)}
}

// snapshot returns the map a single query runs against.
func (m *Map) snapshot() sourcemap.SourceMap {
	return sourcemap.Snapshot(m.m)
}

// Release drops the decoded data of a map opened with Open. The file is
// read again on the next query. It does nothing for other maps.
func (m *Map) Release() {
	if m.file != nil {
		m.file.Release()
	}
}

// File returns the "file" field of the map.
func (m *Map) File() string {
	return m.m.OutFile()
}

// Source describes one entry of the map's sources.
type Source struct {
	// URL is the resolved location of the source.
	URL string

	// Raw is the source as written in the map.
	Raw string

	// Ignored reports whether the source is on the ignore list.
	Ignored bool

	// HasContent reports whether the map embeds the source content.
	HasContent bool
}

// Sources returns the sources of the map in index order.
func (m *Map) Sources() []Source {
	s := m.snapshot()
	urls := s.Sources()
	raw := s.RawSources()
	sources := make([]Source, len(raw))
	for i := range raw {
		_, hasContent := s.SourceContent(i)
		sources[i] = Source{
			URL:        urls[i].String(),
			Raw:        raw[i],
			Ignored:    sourcemap.IsIgnored(s, i),
			HasContent: hasContent,
		}
	}
	return sources
}

// SourceIndex finds a source given as a URL, a local path or as written in
// the map. It returns -1 when the map has no such source.
func (m *Map) SourceIndex(source string) int {
	return sourceIndex(m.snapshot(), source)
}

func sourceIndex(s sourcemap.SourceMap, source string) int {
	r := s.Resolver()
	if i := r.FindSourceIndexByFile(source, false); i >= 0 {
		return i
	}
	return r.FindSourceIndexByRaw(source)
}

// SourceContent returns the embedded content of a source.
func (m *Map) SourceContent(source string) (string, bool) {
	s := m.snapshot()
	i := sourceIndex(s, source)
	if i < 0 {
		return "", false
	}
	return s.SourceContent(i)
}

// OriginalPosition is a position in an original source.
type OriginalPosition struct {
	Source    string
	RawSource string
	Line      int
	Column    int
	Name      string
	Ignored   bool
}

// Mapping relates a generated position to an original one. Source is empty
// for generated code without an original position.
type Mapping struct {
	GeneratedLine   int
	GeneratedColumn int
	Source          string
	SourceLine      int
	SourceColumn    int
	Name            string
}

// GeneratedPosition is a position in the generated code.
type GeneratedPosition struct {
	Line   int
	Column int
}

// OriginalPositionFor returns the original position of the closest mapping
// at or before a generated position on the same line.
func (m *Map) OriginalPositionFor(line, column int) (OriginalPosition, bool) {
	s := m.snapshot()
	e, ok := s.GeneratedMappings().Get(line, column)
	if !ok || !e.HasSource() {
		return OriginalPosition{}, false
	}
	return originalPosition(s, e), true
}

func originalPosition(s sourcemap.SourceMap, e sourcemap.MappingEntry) OriginalPosition {
	pos := OriginalPosition{
		Line:    e.SourceLine,
		Column:  e.SourceColumn,
		Ignored: sourcemap.IsIgnored(s, e.SourceIndex()),
	}
	if u, ok := sourcemap.SourceURLFor(s, e); ok {
		pos.Source = u.String()
	}
	pos.RawSource, _ = sourcemap.RawSourceFor(s, e)
	pos.Name, _ = e.Name()
	return pos
}

// GeneratedPositionFor returns the generated position of the closest mapping
// at or before a position in a source.
func (m *Map) GeneratedPositionFor(source string, line, column int) (GeneratedPosition, bool) {
	s := m.snapshot()
	i := sourceIndex(s, source)
	if i < 0 {
		return GeneratedPosition{}, false
	}
	mappings := s.SourceMappings(i)
	if mappings == nil {
		return GeneratedPosition{}, false
	}
	e, ok := mappings.Get(line, column)
	if !ok {
		return GeneratedPosition{}, false
	}
	return GeneratedPosition{Line: e.GeneratedLine, Column: e.GeneratedColumn}, true
}

// AllGeneratedPositionsFor returns the generated positions of every mapping
// on a source line, ordered by source column.
func (m *Map) AllGeneratedPositionsFor(source string, line int) []GeneratedPosition {
	s := m.snapshot()
	i := sourceIndex(s, source)
	if i < 0 {
		return nil
	}
	var positions []GeneratedPosition
	sourcemap.ProcessSourceMappingsInLine(s, i, line, func(current sourcemap.MappingEntry, _ *sourcemap.MappingEntry) {
		positions = append(positions, GeneratedPosition{Line: current.GeneratedLine, Column: current.GeneratedColumn})
	})
	return positions
}

// MappingsInLine returns the mappings of a generated line ordered by column.
func (m *Map) MappingsInLine(line int) []Mapping {
	s := m.snapshot()
	entries := s.GeneratedMappings().MappingsInLine(line)
	mappings := make([]Mapping, len(entries))
	for i, e := range entries {
		mappings[i] = mapping(s, e)
	}
	return mappings
}

// Mappings returns every mapping in generated order.
func (m *Map) Mappings() []Mapping {
	s := m.snapshot()
	generated := s.GeneratedMappings()
	mappings := make([]Mapping, 0, generated.Len())
	for i := 0; i < generated.Len(); i++ {
		if e, ok := generated.ByIndex(i); ok {
			mappings = append(mappings, mapping(s, e))
		}
	}
	return mappings
}

func mapping(s sourcemap.SourceMap, e sourcemap.MappingEntry) Mapping {
	mapping := Mapping{
		GeneratedLine:   e.GeneratedLine,
		GeneratedColumn: e.GeneratedColumn,
	}
	if e.HasSource() {
		pos := originalPosition(s, e)
		mapping.Source = pos.Source
		mapping.SourceLine = pos.Line
		mapping.SourceColumn = pos.Column
		mapping.Name = pos.Name
	}
	return mapping
}

// Snippet is the line of embedded source content a generated position maps
// to. Offset is the byte offset in Text of the original column.
type Snippet struct {
	Text   string
	Offset int
}

// SnippetFor returns the original source line of a generated position.
func (m *Map) SnippetFor(line, column int) (Snippet, bool) {
	s := m.snapshot()
	e, ok := s.GeneratedMappings().Get(line, column)
	if !ok {
		return Snippet{}, false
	}
	snippet, ok := sourcemap.SourceSnippet(s, e)
	if !ok {
		return Snippet{}, false
	}
	return Snippet{Text: snippet.Text, Offset: snippet.Offset}, true
}
