package resolver

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// prefixes that mark a source as absolute even without "://".
var absolutePrefixes = []string{"data:", "blob:", "javascript:", "webpack:"}

// Canonicalize turns a raw source entry into a URL.
//
// "file:" sources become local file URLs when trimFileScheme is set. Sources
// that already are absolute URLs, or any source when base is nil, are parsed
// as they are. Everything else is resolved against base: relative to its
// directory when baseIsFile, relative to base itself otherwise. The result is
// a local file when base is local or the resolved path exists on fs.
func Canonicalize(raw string, base *URL, trimFileScheme, baseIsFile bool, fs afero.Fs) URL {
	if trimFileScheme && strings.HasPrefix(raw, "file:") {
		p := strings.TrimPrefix(raw, "file:")
		if strings.HasPrefix(p, "//") {
			p = p[2:]
			// file://host/path keeps only the path
			if i := strings.IndexByte(p, '/'); i > 0 {
				p = p[i:]
			}
		}
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
		p, _, _ = strings.Cut(p, "?")
		return NewLocalFileURL(p)
	}

	if base == nil || hasAbsoluteForm(raw) {
		if u, ok := Parse(raw); ok {
			return u
		}
		return NewUnparsable(raw)
	}
	return resolveAgainst(raw, *base, baseIsFile, fs)
}

func hasAbsoluteForm(raw string) bool {
	if strings.Contains(raw, "://") {
		return true
	}
	for _, prefix := range absolutePrefixes {
		if strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}

func resolveAgainst(raw string, base URL, baseIsFile bool, fs afero.Fs) URL {
	p := joinPath(raw, base, baseIsFile)
	if base.IsLocalFile() || (isAbsolute(p) && exists(fs, p)) {
		return NewLocalFileURL(p)
	}
	if !strings.HasPrefix(p, "/") {
		// C:/foo.ts cannot be appended to a remote authority.
		if u, ok := Parse(p); ok {
			return u
		}
		return NewUnparsable(p)
	}
	pathPart, query, _ := strings.Cut(p, "?")
	return URL{Scheme: base.Scheme, Authority: base.Authority, Path: pathPart, Query: query}
}

func joinPath(raw string, base URL, baseIsFile bool) string {
	p := raw
	if !strings.HasPrefix(raw, "/") {
		basePath := base.Path
		if baseIsFile {
			if i := strings.LastIndexByte(basePath, '/'); i == -1 {
				p = "/" + raw
			} else {
				p = basePath[:i+1] + raw
			}
		} else {
			p = strings.TrimSuffix(basePath, "/") + "/" + raw
		}
	}
	return canonicalPath(p)
}

func exists(fs afero.Fs, p string) bool {
	if fs == nil {
		return false
	}
	ok, err := afero.Exists(fs, filepath.FromSlash(p))
	return err == nil && ok
}
