package sourcemap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mailru/easyjson/jlexer"
	null "gopkg.in/guregu/null.v3"
)

// DefaultZeroCopyThreshold is the mappings length from which the parsed
// document keeps a view into the caller's buffer instead of a copy.
const DefaultZeroCopyThreshold = 64 * 1024

// maxSectionDepth bounds the nesting of sectioned maps.
const maxSectionDepth = 64

var (
	// ErrMalformedDocument is returned for input that is not a readable JSON object.
	ErrMalformedDocument = errors.New("malformed source map document")
	// ErrUnsupportedVersion is returned for flat maps whose version is not 3.
	ErrUnsupportedVersion = errors.New("unsupported source map version")
	// ErrMissingField is returned when a flat map lacks sources or mappings.
	ErrMissingField = errors.New("missing required source map field")
	// ErrInvalidSection is returned for section entries that cannot be used.
	ErrInvalidSection = errors.New("invalid source map section")
)

// Document is the parsed, not yet decoded form of a source map.
// It is either a *FlatMap or a *SectionedMap.
type Document interface {
	OutFile() string
	isDocument()
}

// FlatMap is a single source map with an undecoded mappings string.
type FlatMap struct {
	Version        int
	File           string
	SourceRoot     string
	Sources        []string
	SourcesContent []null.String
	Names          []string
	// Mappings may alias the buffer given to ParseDocument.
	Mappings   string
	IgnoreList []int
}

// Offset is a generated position at which a section starts.
type Offset struct {
	Line   int
	Column int
}

// Section is one entry of a sectioned map.
type Section struct {
	Offset Offset
	Map    Document
}

// SectionedMap is an index map made of nested maps.
type SectionedMap struct {
	Version  int
	File     string
	Sections []Section
}

func (m *FlatMap) OutFile() string      { return m.File }
func (m *SectionedMap) OutFile() string { return m.File }

func (*FlatMap) isDocument()      {}
func (*SectionedMap) isDocument() {}

// ParseOptions tunes ParseDocument.
type ParseOptions struct {
	// ZeroCopyThreshold is the mappings length from which the text is not
	// copied. Zero means DefaultZeroCopyThreshold, negative disables views.
	ZeroCopyThreshold int
}

func (o ParseOptions) threshold() int {
	switch {
	case o.ZeroCopyThreshold == 0:
		return DefaultZeroCopyThreshold
	case o.ZeroCopyThreshold < 0:
		return int(^uint(0) >> 1)
	default:
		return o.ZeroCopyThreshold
	}
}

// ParseDocument reads a source map document. A JSON null yields (nil, nil).
//
// Large mappings strings are returned as views into text, so the caller must
// not modify text while the document or anything decoded from it is in use.
func ParseDocument(text []byte, opts ParseOptions) (Document, error) {
	p := &parser{
		in:        &jlexer.Lexer{Data: text},
		threshold: opts.threshold(),
	}
	if p.in.IsNull() {
		p.in.Skip()
		return nil, p.lexError()
	}
	doc, err := p.parseMap(0)
	if err != nil {
		return nil, err
	}
	if err := p.lexError(); err != nil {
		return nil, err
	}
	return doc, nil
}

type parser struct {
	in        *jlexer.Lexer
	threshold int
}

func (p *parser) lexError() error {
	if err := p.in.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return nil
}

func (p *parser) parseMap(depth int) (Document, error) {
	if depth > maxSectionDepth {
		return nil, fmt.Errorf("%w: sections nested deeper than %d", ErrInvalidSection, maxSectionDepth)
	}

	in := p.in
	var (
		flat        FlatMap
		sections    []Section
		sectioned   bool
		hasSources  bool
		hasMappings bool
		err         error
	)

	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "version":
			flat.Version = in.Int()
		case "file":
			flat.File = in.String()
		case "sourceRoot":
			flat.SourceRoot = normalizeSourceRoot(in.String())
		case "sources":
			flat.Sources = p.readStrings()
			hasSources = true
		case "sourcesContent":
			flat.SourcesContent = p.readContents()
		case "names":
			flat.Names = p.readStrings()
		case "mappings":
			flat.Mappings = p.readMappings()
			hasMappings = true
		case "ignoreList", "x_google_ignoreList":
			flat.IgnoreList = p.readInts()
		case "sections":
			sectioned = true
			sections, err = p.readSections(depth)
			if err != nil {
				return nil, err
			}
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')

	if err := p.lexError(); err != nil {
		return nil, err
	}

	if sectioned {
		return &SectionedMap{Version: flat.Version, File: flat.File, Sections: sections}, nil
	}

	if flat.Version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, flat.Version)
	}
	if !hasSources {
		return nil, fmt.Errorf("%w: sources", ErrMissingField)
	}
	if !hasMappings {
		return nil, fmt.Errorf("%w: mappings", ErrMissingField)
	}
	flat.Sources = joinSourceRoot(flat.SourceRoot, flat.Sources)
	return &flat, nil
}

func (p *parser) readSections(depth int) ([]Section, error) {
	in := p.in
	var sections []Section
	in.Delim('[')
	for !in.IsDelim(']') {
		s, err := p.readSection(depth)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", len(sections), err)
		}
		sections = append(sections, s)
		in.WantComma()
	}
	in.Delim(']')
	return sections, nil
}

func (p *parser) readSection(depth int) (Section, error) {
	in := p.in
	var (
		s         Section
		hasOffset bool
	)
	if in.IsNull() {
		return s, fmt.Errorf("%w: null section", ErrInvalidSection)
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		switch key {
		case "offset":
			s.Offset = p.readOffset()
			hasOffset = true
		case "map":
			if in.IsNull() {
				return s, fmt.Errorf("%w: null map", ErrInvalidSection)
			}
			doc, err := p.parseMap(depth + 1)
			if err != nil {
				return s, err
			}
			s.Map = doc
		case "url":
			return s, fmt.Errorf("%w: url sections are not supported", ErrInvalidSection)
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')

	if err := p.lexError(); err != nil {
		return s, err
	}
	switch {
	case !hasOffset:
		return s, fmt.Errorf("%w: missing offset", ErrInvalidSection)
	case s.Map == nil:
		return s, fmt.Errorf("%w: missing map", ErrInvalidSection)
	case s.Offset.Line < 0 || s.Offset.Column < 0:
		return s, fmt.Errorf("%w: negative offset %d:%d", ErrInvalidSection, s.Offset.Line, s.Offset.Column)
	}
	return s, nil
}

func (p *parser) readOffset() Offset {
	in := p.in
	var off Offset
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		switch key {
		case "line":
			off.Line = in.Int()
		case "column":
			off.Column = in.Int()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	return off
}

// readMappings keeps large payloads as a view over the input buffer.
func (p *parser) readMappings() string {
	s := p.in.UnsafeString()
	if len(s) < p.threshold {
		return strings.Clone(s)
	}
	return s
}

func (p *parser) readStrings() []string {
	in := p.in
	out := []string{}
	in.Delim('[')
	for !in.IsDelim(']') {
		if in.IsNull() {
			in.Skip()
			out = append(out, "")
		} else {
			out = append(out, in.String())
		}
		in.WantComma()
	}
	in.Delim(']')
	return out
}

func (p *parser) readContents() []null.String {
	in := p.in
	out := []null.String{}
	in.Delim('[')
	for !in.IsDelim(']') {
		if in.IsNull() {
			in.Skip()
			out = append(out, null.String{})
		} else {
			out = append(out, null.StringFrom(normalizeLineEndings(in.String())))
		}
		in.WantComma()
	}
	in.Delim(']')
	return out
}

func (p *parser) readInts() []int {
	in := p.in
	out := []int{}
	in.Delim('[')
	for !in.IsDelim(']') {
		out = append(out, in.Int())
		in.WantComma()
	}
	in.Delim(']')
	return out
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeLineEndings(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	return lineEndings.Replace(s)
}

func normalizeSourceRoot(root string) string {
	if root == "/" {
		return root
	}
	return strings.TrimRight(root, "/")
}

func joinSourceRoot(root string, sources []string) []string {
	for i, name := range sources {
		name = strings.ReplaceAll(name, `\`, "/")
		switch {
		case root == "":
		case root == "/":
			name = "/" + name
		default:
			name = root + "/" + name
		}
		sources[i] = name
	}
	return sources
}
