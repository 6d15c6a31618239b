package sourcemap

import (
	"sync"

	"github.com/spf13/afero"

	"github.com/HugoDaniel/smap/internal/resolver"
)

// FileBacked is a source map read from a file. The outcome of reading it,
// a decoded map or none, is kept until Release drops it, after which the
// next query reads the file again.
type FileBacked struct {
	fs   afero.Fs
	path string
	opts Options

	mu     sync.Mutex
	loaded *OneLevel
	done   bool
	reads  int
}

var _ SourceMap = (*FileBacked)(nil)

// Open returns a map backed by the file at path. Nothing is read until the
// first query. When opts.BaseURL is nil the file location is used.
func Open(fs afero.Fs, path string, opts Options) *FileBacked {
	if opts.BaseURL == nil {
		base := resolver.NewLocalFileURL(path)
		opts.BaseURL = &base
	}
	if opts.Fs == nil {
		opts.Fs = fs
	}
	return &FileBacked{fs: fs, path: path, opts: opts}
}

// Path returns the file the map is read from.
func (f *FileBacked) Path() string { return f.path }

// Load returns the decoded map, reading the file if needed. It returns nil
// when the file cannot be read or holds no usable map.
func (f *FileBacked) Load() *OneLevel {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return f.loaded
	}
	text, err := afero.ReadFile(f.fs, f.path)
	f.reads++
	f.done = true
	if err != nil {
		f.opts.logger().WithError(err).WithField("path", f.path).Warn("cannot read source map")
		return nil
	}
	f.loaded = DecodeSafely(text, f.opts)
	return f.loaded
}

// Release drops the decoded map.
func (f *FileBacked) Release() {
	f.mu.Lock()
	f.loaded, f.done = nil, false
	f.mu.Unlock()
}

// Reads returns how many times the file has been read.
func (f *FileBacked) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *FileBacked) current() SourceMap {
	if m := f.Load(); m != nil {
		return m
	}
	return emptyMap
}

// Snapshot returns the map currently behind m. A query that calls several
// accessors goes through one snapshot so a concurrent Release cannot mix two
// reads of a file.
func Snapshot(m SourceMap) SourceMap {
	switch m := m.(type) {
	case *FileBacked:
		return m.current()
	case *Nested:
		return m.composition()
	}
	return m
}

func (f *FileBacked) OutFile() string              { return f.current().OutFile() }
func (f *FileBacked) Sources() []resolver.URL      { return f.current().Sources() }
func (f *FileBacked) RawSources() []string         { return f.current().RawSources() }
func (f *FileBacked) HasNameMappings() bool        { return f.current().HasNameMappings() }
func (f *FileBacked) GeneratedMappings() Mappings  { return f.current().GeneratedMappings() }
func (f *FileBacked) Resolver() *resolver.Resolver { return f.current().Resolver() }
func (f *FileBacked) IgnoreList() []int            { return f.current().IgnoreList() }

func (f *FileBacked) SourceMappings(sourceIndex int) Mappings {
	return f.current().SourceMappings(sourceIndex)
}

func (f *FileBacked) SourceContent(sourceIndex int) (string, bool) {
	return f.current().SourceContent(sourceIndex)
}

// emptyMap answers every query of a file without a usable map.
var emptyMap = NewOneLevel(
	NewIndexed(&SourceMapData{}),
	resolver.New(nil, resolver.Options{}),
)
