package sourcemap

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	null "gopkg.in/guregu/null.v3"

	"github.com/HugoDaniel/smap/internal/test"
)

func parseFlat(t *testing.T, text string) *FlatMap {
	t.Helper()
	doc, err := ParseDocument([]byte(text), ParseOptions{})
	require.NoError(t, err)
	flat, ok := doc.(*FlatMap)
	require.True(t, ok, "expected a flat map, got %T", doc)
	return flat
}

func TestParseDocumentFlat(t *testing.T) {
	t.Parallel()

	flat := parseFlat(t, `{
		"mappings": "AAAA,CAAC",
		"names": ["foo"],
		"sources": ["a.js", "dir\\b.js", null],
		"file": "out.js",
		"x_unknown": {"nested": [1, 2, {"deep": true}]},
		"version": 3
	}`)

	assert.Equal(t, 3, flat.Version)
	assert.Equal(t, "out.js", flat.OutFile())
	assert.Equal(t, []string{"a.js", "dir/b.js", ""}, flat.Sources)
	assert.Equal(t, []string{"foo"}, flat.Names)
	assert.Equal(t, "AAAA,CAAC", flat.Mappings)
	assert.Nil(t, flat.SourcesContent)
	assert.Nil(t, flat.IgnoreList)
}

func TestParseDocumentSourceRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		root     string
		expected []string
	}{
		{"no root", "", []string{"a.js", "lib/b.js"}},
		{"slash root", "/", []string{"/a.js", "/lib/b.js"}},
		{"trailing slashes", "src//", []string{"src/a.js", "src/lib/b.js"}},
		{"url root", "http://example.com/app/", []string{"http://example.com/app/a.js", "http://example.com/app/lib/b.js"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			text := test.Map{SourceRoot: tt.root, Sources: []string{"a.js", `lib\b.js`}, Mappings: "AAAA"}.JSON()
			flat := parseFlat(t, string(text))
			assert.Equal(t, tt.expected, flat.Sources)
		})
	}
}

func TestParseDocumentSourceRootAfterSources(t *testing.T) {
	t.Parallel()

	flat := parseFlat(t, `{"version":3,"sources":["a.js"],"mappings":"AAAA","sourceRoot":"src/"}`)
	assert.Equal(t, []string{"src/a.js"}, flat.Sources)
	assert.Equal(t, "src", flat.SourceRoot)
}

func TestParseDocumentSourcesContent(t *testing.T) {
	t.Parallel()

	flat := parseFlat(t, `{"version":3,"sources":["a.js","b.js","c.js"],"mappings":"",
		"sourcesContent":["one\r\ntwo\rthree\n", null, "plain"]}`)

	assert.Equal(t, []null.String{
		null.StringFrom("one\ntwo\nthree\n"),
		{},
		null.StringFrom("plain"),
	}, flat.SourcesContent)
}

func TestParseDocumentIgnoreList(t *testing.T) {
	t.Parallel()

	for _, field := range []string{"ignoreList", "x_google_ignoreList"} {
		field := field
		t.Run(field, func(t *testing.T) {
			t.Parallel()
			flat := parseFlat(t, `{"version":3,"sources":["a.js","b.js"],"mappings":"","`+field+`":[1]}`)
			assert.Equal(t, []int{1}, flat.IgnoreList)
		})
	}
}

func TestParseDocumentNull(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(" null "), ParseOptions{})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestParseDocumentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		err  error
	}{
		{"version 2", `{"version":2,"sources":[],"mappings":""}`, ErrUnsupportedVersion},
		{"no version", `{"sources":[],"mappings":""}`, ErrUnsupportedVersion},
		{"no mappings", `{"version":3,"sources":[]}`, ErrMissingField},
		{"null mappings", `{"version":3,"sources":[],"mappings":null}`, ErrMissingField},
		{"no sources", `{"version":3,"mappings":""}`, ErrMissingField},
		{"not json", `{"version":3,`, ErrMalformedDocument},
		{"empty", ``, ErrMalformedDocument},
		{"array", `[]`, ErrMalformedDocument},
		{"section without map", `{"version":3,"sections":[{"offset":{"line":0,"column":0}}]}`, ErrInvalidSection},
		{"section without offset", `{"version":3,"sections":[{"map":{"version":3,"sources":[],"mappings":""}}]}`, ErrInvalidSection},
		{"section with url", `{"version":3,"sections":[{"offset":{"line":0,"column":0},"url":"a.map"}]}`, ErrInvalidSection},
		{"null section", `{"version":3,"sections":[null]}`, ErrInvalidSection},
		{"negative offset", `{"version":3,"sections":[{"offset":{"line":-1,"column":0},"map":{"version":3,"sources":[],"mappings":""}}]}`, ErrInvalidSection},
		{"bad nested version", `{"version":3,"sections":[{"offset":{"line":0,"column":0},"map":{"version":4,"sources":[],"mappings":""}}]}`, ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := ParseDocument([]byte(tt.text), ParseOptions{})
			assert.ErrorIs(t, err, tt.err)
			assert.Nil(t, doc)
		})
	}
}

func TestParseDocumentSectioned(t *testing.T) {
	t.Parallel()

	first := test.Map{Sources: []string{"a.js"}, Mappings: "AAAA"}.JSON()
	second := test.Map{Sources: []string{"b.js"}, Mappings: "AAAA"}.JSON()
	text := test.SectionedJSON("bundle.js",
		test.Section{Line: 0, Column: 0, Map: first},
		test.Section{Line: 10, Column: 4, Map: second},
	)
	// outer sources and mappings are ignored for sectioned maps
	text = []byte(strings.Replace(string(text), `"sections"`, `"sources":["x"],"mappings":"!!","sections"`, 1))

	doc, err := ParseDocument(text, ParseOptions{})
	require.NoError(t, err)
	sectioned, ok := doc.(*SectionedMap)
	require.True(t, ok)

	assert.Equal(t, "bundle.js", sectioned.OutFile())
	require.Len(t, sectioned.Sections, 2)
	assert.Equal(t, Offset{Line: 10, Column: 4}, sectioned.Sections[1].Offset)
	assert.Equal(t, []string{"b.js"}, sectioned.Sections[1].Map.(*FlatMap).Sources)
}

func TestParseDocumentMappingsView(t *testing.T) {
	t.Parallel()

	mappings := strings.Repeat("AAAA,", 100) + "AAAA"
	text := test.Map{Sources: []string{"a.js"}, Mappings: mappings}.JSON()
	start := strings.Index(string(text), mappings)
	require.Positive(t, start)

	view, err := ParseDocument(text, ParseOptions{ZeroCopyThreshold: 16})
	require.NoError(t, err)
	viewed := view.(*FlatMap).Mappings
	assert.Equal(t, mappings, viewed)
	assert.Equal(t, unsafe.Pointer(&text[start]), unsafe.Pointer(unsafe.StringData(viewed)),
		"large mappings alias the input buffer")

	owned, err := ParseDocument(text, ParseOptions{ZeroCopyThreshold: -1})
	require.NoError(t, err)
	copied := owned.(*FlatMap).Mappings
	assert.Equal(t, mappings, copied)
	assert.NotEqual(t, unsafe.Pointer(&text[start]), unsafe.Pointer(unsafe.StringData(copied)))
}
