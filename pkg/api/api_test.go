package api

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugoDaniel/smap/internal/test"
)

func bundleMap() []byte {
	return test.Map{
		File:           "bundle.js",
		Sources:        []string{"../src/a.ts", "../src/b.ts"},
		SourcesContent: []*string{test.Content("let x = 1;\nlet y = x;"), nil},
		Names:          []string{"x"},
		Mappings: test.EncodeMappings([][]test.Segment{
			{test.Named(0, 0, 0, 4, 0), test.Mapped(7, 0, 0, 8), test.Mapped(10, 1, 0, 0)},
			{test.Mapped(0, 0, 1, 4)},
		}),
		IgnoreList: []int{1},
	}.JSON()
}

func testOptions() Options {
	logger, _ := logtest.NewNullLogger()
	return Options{
		BaseURL:  "/proj/dist/bundle.js.map",
		PathCase: PathCaseSensitive,
		Fs:       afero.NewMemMapFs(),
		Logger:   logger,
	}
}

func parseBundle(t *testing.T) *Map {
	t.Helper()
	m, err := Parse(bundleMap(), testOptions())
	require.NoError(t, err)
	return m
}

func TestParse(t *testing.T) {
	t.Parallel()

	m := parseBundle(t)
	assert.Equal(t, "bundle.js", m.File())
	assert.Equal(t, []Source{
		{URL: "file:///proj/src/a.ts", Raw: "../src/a.ts", HasContent: true},
		{URL: "file:///proj/src/b.ts", Raw: "../src/b.ts", Ignored: true},
	}, m.Sources())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		err  error
	}{
		{"null document", `null`, ErrNoMappings},
		{"no mappings", `{"version":3,"sources":["a.js"],"mappings":""}`, ErrNoMappings},
		{"not json", `{"version":3,`, nil},
		{"broken mappings", `{"version":3,"sources":["a.js"],"mappings":"AAA"}`, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := Parse([]byte(tt.text), testOptions())
			assert.Nil(t, m)
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestParseSafely(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	opts := testOptions()
	opts.Logger = logger

	assert.Nil(t, ParseSafely([]byte(`{"version":3,"sources":["a.js"],"mappings":"AAA"}`), opts))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	assert.NotNil(t, ParseSafely(bundleMap(), opts))
}

func TestOriginalPositionFor(t *testing.T) {
	t.Parallel()

	m := parseBundle(t)
	tests := []struct {
		line, column int
		want         OriginalPosition
		found        bool
	}{
		{0, 0, OriginalPosition{Source: "file:///proj/src/a.ts", RawSource: "../src/a.ts", Line: 0, Column: 4, Name: "x"}, true},
		{0, 5, OriginalPosition{Source: "file:///proj/src/a.ts", RawSource: "../src/a.ts", Line: 0, Column: 4, Name: "x"}, true},
		{0, 8, OriginalPosition{Source: "file:///proj/src/a.ts", RawSource: "../src/a.ts", Line: 0, Column: 8}, true},
		{0, 30, OriginalPosition{Source: "file:///proj/src/b.ts", RawSource: "../src/b.ts", Ignored: true}, true},
		{1, 3, OriginalPosition{Source: "file:///proj/src/a.ts", RawSource: "../src/a.ts", Line: 1, Column: 4}, true},
		{2, 0, OriginalPosition{}, false},
	}

	for _, tt := range tests {
		pos, ok := m.OriginalPositionFor(tt.line, tt.column)
		assert.Equal(t, tt.found, ok, "%d:%d", tt.line, tt.column)
		assert.Equal(t, tt.want, pos, "%d:%d", tt.line, tt.column)
	}
}

func TestGeneratedPositionFor(t *testing.T) {
	t.Parallel()

	m := parseBundle(t)
	// the source can be named by URL, local path or as written in the map
	for _, source := range []string{"file:///proj/src/a.ts", "/proj/src/a.ts", "../src/a.ts"} {
		pos, ok := m.GeneratedPositionFor(source, 1, 6)
		assert.True(t, ok, source)
		assert.Equal(t, GeneratedPosition{Line: 1, Column: 0}, pos, source)
	}

	pos, ok := m.GeneratedPositionFor("/proj/src/a.ts", 0, 9)
	assert.True(t, ok)
	assert.Equal(t, GeneratedPosition{Line: 0, Column: 7}, pos)

	// before the first mapping of the source
	pos, ok = m.GeneratedPositionFor("/proj/src/a.ts", 0, 2)
	assert.True(t, ok)
	assert.Equal(t, GeneratedPosition{Line: 0, Column: 0}, pos)

	_, ok = m.GeneratedPositionFor("/proj/src/b.ts", 0, 0)
	assert.True(t, ok)
	_, ok = m.GeneratedPositionFor("/proj/src/c.ts", 0, 0)
	assert.False(t, ok)
}

func TestAllGeneratedPositionsFor(t *testing.T) {
	t.Parallel()

	m := parseBundle(t)
	assert.Equal(t, []GeneratedPosition{{0, 0}, {0, 7}}, m.AllGeneratedPositionsFor("/proj/src/a.ts", 0))
	assert.Empty(t, m.AllGeneratedPositionsFor("/proj/src/a.ts", 5))
	assert.Nil(t, m.AllGeneratedPositionsFor("/proj/src/c.ts", 0))
}

func TestMappings(t *testing.T) {
	t.Parallel()

	m := parseBundle(t)
	line := m.MappingsInLine(0)
	require.Len(t, line, 3)
	assert.Equal(t, Mapping{GeneratedColumn: 0, Source: "file:///proj/src/a.ts", SourceColumn: 4, Name: "x"}, line[0])
	assert.Equal(t, Mapping{GeneratedColumn: 10, Source: "file:///proj/src/b.ts"}, line[2])
	assert.Empty(t, m.MappingsInLine(7))

	all := m.Mappings()
	require.Len(t, all, 4)
	assert.Equal(t, Mapping{GeneratedLine: 1, Source: "file:///proj/src/a.ts", SourceLine: 1, SourceColumn: 4}, all[3])
}

func TestSourceContentAndSnippet(t *testing.T) {
	t.Parallel()

	m := parseBundle(t)
	content, ok := m.SourceContent("/proj/src/a.ts")
	assert.True(t, ok)
	assert.Equal(t, "let x = 1;\nlet y = x;", content)
	_, ok = m.SourceContent("/proj/src/b.ts")
	assert.False(t, ok)

	snippet, ok := m.SnippetFor(0, 7)
	require.True(t, ok)
	assert.Equal(t, "let x = 1;", snippet.Text)
	assert.Equal(t, "1;", snippet.Text[snippet.Offset:])

	// b.ts has no embedded content
	_, ok = m.SnippetFor(0, 10)
	assert.False(t, ok)
}

func TestPathCase(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.PathCase = PathCaseInsensitive
	m, err := Parse(bundleMap(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, m.SourceIndex("/PROJ/src/A.ts"))

	assert.Equal(t, -1, parseBundle(t).SourceIndex("/PROJ/src/A.ts"))
}

func TestOpen(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.BaseURL = ""
	require.NoError(t, afero.WriteFile(opts.Fs, "/proj/dist/bundle.js.map", bundleMap(), 0o644))

	m := Open("/proj/dist/bundle.js.map", opts)
	assert.Equal(t, "bundle.js", m.File())
	assert.Equal(t, "file:///proj/src/a.ts", m.Sources()[0].URL)

	m.Release()
	pos, ok := m.OriginalPositionFor(1, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, pos.Line)

	missing := Open("/proj/dist/missing.js.map", opts)
	assert.Empty(t, missing.File())
	assert.Empty(t, missing.Sources())
	_, ok = missing.OriginalPositionFor(0, 0)
	assert.False(t, ok)
}

// rewritingFs serves the next of contents each time path is opened, as if
// the file were rewritten between reads.
type rewritingFs struct {
	afero.Fs
	path     string
	contents [][]byte

	mu    sync.Mutex
	opens int
}

func (fs *rewritingFs) Open(name string) (afero.File, error) {
	if name == fs.path {
		fs.mu.Lock()
		err := afero.WriteFile(fs.Fs, name, fs.contents[fs.opens%len(fs.contents)], 0o644)
		fs.opens++
		fs.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return fs.Fs.Open(name)
}

func (fs *rewritingFs) Opens() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.opens
}

var halfWritten = []byte(`{"version":3,"file":"bundle.js","sources":["../src/a.ts"`)

func TestOpenKeepsFailedRead(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	opts := testOptions()
	opts.BaseURL = ""
	opts.Logger = logger
	fs := &rewritingFs{Fs: opts.Fs, path: "/proj/dist/bundle.js.map", contents: [][]byte{halfWritten, bundleMap()}}
	opts.Fs = fs

	m := Open("/proj/dist/bundle.js.map", opts)
	for i := 0; i < 5; i++ {
		assert.Empty(t, m.Sources())
		assert.Empty(t, m.File())
		assert.Empty(t, m.Mappings())
		_, ok := m.OriginalPositionFor(0, 0)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, fs.Opens(), "a failed read is kept until released")
	assert.Len(t, hook.AllEntries(), 1)

	m.Release()
	sources := m.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "file:///proj/src/a.ts", sources[0].URL)
	assert.Equal(t, 2, fs.Opens())
}

func TestOpenQueriesDuringRelease(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.BaseURL = ""
	opts.Fs = &rewritingFs{Fs: opts.Fs, path: "/proj/dist/bundle.js.map", contents: [][]byte{halfWritten, bundleMap()}}
	m := Open("/proj/dist/bundle.js.map", opts)
	minified, err := Parse(test.Map{
		File:     "bundle.min.js",
		Sources:  []string{"bundle.js"},
		Mappings: test.EncodeMappings([][]test.Segment{{test.Mapped(0, 0, 0, 0)}}),
	}.JSON(), testOptions())
	require.NoError(t, err)
	composed := Compose(minified, m)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if g == 0 {
					m.Release()
					continue
				}
				for _, q := range []*Map{m, composed} {
					assert.Contains(t, []int{0, 2}, len(q.Sources()))
					if pos, ok := q.OriginalPositionFor(0, 0); ok {
						assert.Equal(t, "../src/a.ts", pos.RawSource)
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestCompose(t *testing.T) {
	t.Parallel()

	minified, err := Parse(test.Map{
		File:     "bundle.min.js",
		Sources:  []string{"bundle.js"},
		Mappings: test.EncodeMappings([][]test.Segment{{test.Mapped(0, 0, 0, 7), test.Mapped(3, 0, 1, 2)}}),
	}.JSON(), testOptions())
	require.NoError(t, err)

	m := Compose(minified, parseBundle(t))
	assert.Equal(t, "bundle.min.js", m.File())

	pos, ok := m.OriginalPositionFor(0, 1)
	require.True(t, ok)
	assert.Equal(t, OriginalPosition{Source: "file:///proj/src/a.ts", RawSource: "../src/a.ts", Line: 0, Column: 8}, pos)

	pos, ok = m.OriginalPositionFor(0, 3)
	require.True(t, ok)
	assert.Equal(t, 1, pos.Line)
	assert.Equal(t, 4, pos.Column)

	gen, ok := m.GeneratedPositionFor("/proj/src/a.ts", 0, 8)
	require.True(t, ok)
	assert.Equal(t, GeneratedPosition{Line: 0, Column: 0}, gen)
}
