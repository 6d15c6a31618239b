package resolver

import (
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/afero"
)

// SourceFileResolver lets callers find a source index when the built-in
// lookups fail. Implementations return -1 when they cannot decide.
type SourceFileResolver interface {
	ResolveURLs(index URLIndex) int
	ResolveRaw(rawSources []string) int
}

// URLIndex is the read-only canonical URL table handed to a SourceFileResolver.
type URLIndex interface {
	Lookup(u URL) (int, bool)
	Len() int
}

// Options configures a Resolver.
type Options struct {
	// Base is the URL the source map was loaded from.
	Base           *URL
	TrimFileScheme bool
	// BaseIsFile resolves relative sources against the directory of Base.
	BaseIsFile    bool
	CaseSensitive bool
	// Fs is used for existence and canonical path checks.
	Fs afero.Fs
}

// DefaultCaseSensitive reports whether paths on this platform usually are
// case sensitive.
func DefaultCaseSensitive() bool {
	switch runtime.GOOS {
	case "windows", "darwin", "ios":
		return false
	default:
		return true
	}
}

// Resolver maps between source indices and canonical URLs.
type Resolver struct {
	rawSources []string
	opts       Options

	urlsOnce sync.Once
	urls     []URL

	indexOnce sync.Once
	index     map[string]int
}

var _ URLIndex = (*Resolver)(nil)

// New creates a Resolver over the sources of a decoded map.
func New(rawSources []string, opts Options) *Resolver {
	return &Resolver{rawSources: rawSources, opts: opts}
}

// RawSources returns the sources as written in the map.
func (r *Resolver) RawSources() []string { return r.rawSources }

// Len returns the number of sources.
func (r *Resolver) Len() int { return len(r.rawSources) }

// CanonicalizedURLs returns the canonical URL of every source, computed on
// first use.
func (r *Resolver) CanonicalizedURLs() []URL {
	r.urlsOnce.Do(func() {
		urls := make([]URL, len(r.rawSources))
		for i, raw := range r.rawSources {
			urls[i] = Canonicalize(raw, r.opts.Base, r.opts.TrimFileScheme, r.opts.BaseIsFile, r.opts.Fs)
		}
		r.urls = urls
	})
	return r.urls
}

func (r *Resolver) urlIndex() map[string]int {
	r.indexOnce.Do(func() {
		urls := r.CanonicalizedURLs()
		index := make(map[string]int, len(urls))
		for i, u := range urls {
			k := u.key(r.opts.CaseSensitive)
			// the first of duplicated sources wins
			if _, ok := index[k]; !ok {
				index[k] = i
			}
		}
		r.index = index
	})
	return r.index
}

// URLAt returns the canonical URL of a source.
func (r *Resolver) URLAt(i int) (URL, bool) {
	if i < 0 || i >= len(r.rawSources) {
		return URL{}, false
	}
	return r.CanonicalizedURLs()[i], true
}

// RawSource returns a source as written in the map.
func (r *Resolver) RawSource(i int) (string, bool) {
	if i < 0 || i >= len(r.rawSources) {
		return "", false
	}
	return r.rawSources[i], true
}

// Lookup finds the source index of a canonical URL.
func (r *Resolver) Lookup(u URL) (int, bool) {
	i, ok := r.urlIndex()[u.key(r.opts.CaseSensitive)]
	return i, ok
}

// FindSourceIndex returns the index of u, or -1.
func (r *Resolver) FindSourceIndex(u URL) int {
	if i, ok := r.Lookup(u); ok {
		return i
	}
	return -1
}

// FindSourceIndexByRaw canonicalizes raw the same way the map sources were
// and returns its index, or -1.
func (r *Resolver) FindSourceIndexByRaw(raw string) int {
	return r.FindSourceIndex(Canonicalize(raw, r.opts.Base, r.opts.TrimFileScheme, r.opts.BaseIsFile, r.opts.Fs))
}

// FindSourceIndexByFile finds the source for a file given as a URL or a
// local path. It tries the URL itself (unless localOnly), then the local
// file URL, then compares canonical paths of all local sources.
func (r *Resolver) FindSourceIndexByFile(file string, localOnly bool) int {
	u, isURL := Parse(file)
	if isURL && !localOnly {
		if i := r.FindSourceIndex(u.TrimQuery()); i >= 0 {
			return i
		}
	}

	var localPath string
	switch {
	case isURL && u.Scheme == fileScheme:
		localPath = u.FilePath()
	case !isURL:
		localPath = file
	default:
		return -1
	}

	local := NewLocalFileURL(localPath)
	if i := r.FindSourceIndex(local); i >= 0 {
		return i
	}

	canonical := NewLocalFileURL(r.canonicalFilePath(localPath))
	if canonical.Equal(local) {
		return -1
	}
	for i, candidate := range r.CanonicalizedURLs() {
		if candidate.IsLocalFile() && r.samePath(candidate, canonical) {
			return i
		}
	}
	return -1
}

func (r *Resolver) samePath(a, b URL) bool {
	a, b = a.TrimQuery(), b.TrimQuery()
	if r.opts.CaseSensitive {
		return a.Path == b.Path
	}
	return a.key(false) == b.key(false)
}

// canonicalFilePath resolves symbolic links when the resolver reads the
// real file system.
func (r *Resolver) canonicalFilePath(p string) string {
	p = filepath.Clean(p)
	if _, ok := r.opts.Fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return resolved
		}
	}
	return p
}

// FindSourceIndexIn tries every URL, then the file, then the external
// resolver when one is given. It returns -1 when nothing matches.
func (r *Resolver) FindSourceIndexIn(urls []URL, file string, external SourceFileResolver, localOnly bool) int {
	for _, u := range urls {
		if i := r.FindSourceIndex(u); i >= 0 {
			return i
		}
	}
	if file != "" {
		if i := r.FindSourceIndexByFile(file, localOnly); i >= 0 {
			return i
		}
	}
	if external == nil {
		return -1
	}
	if i := external.ResolveURLs(r); i >= 0 && i < r.Len() {
		return i
	}
	if i := external.ResolveRaw(r.rawSources); i >= 0 && i < r.Len() {
		return i
	}
	return -1
}
