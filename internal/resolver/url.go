// Package resolver canonicalizes the source URLs of a source map and finds
// source indices for URLs and local files.
package resolver

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const fileScheme = "file"

// URL is a parsed source location. Local files use the "file" scheme with an
// empty authority. A URL with no scheme holds text that could not be parsed.
type URL struct {
	Scheme    string
	Authority string
	Path      string
	Query     string

	// opaque URLs (data:, javascript:) keep everything after the scheme in Path.
	opaque bool
}

// NewLocalFileURL returns the URL of a local file path.
func NewLocalFileURL(p string) URL {
	return URL{Scheme: fileScheme, Path: canonicalPath(filepath.ToSlash(p))}
}

// NewUnparsable wraps text that is not a URL.
func NewUnparsable(s string) URL {
	return URL{Path: s}
}

// Parse parses an absolute URL. Single letter schemes are Windows drives and
// are rejected along with relative references.
func Parse(raw string) (URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || len(u.Scheme) < 2 {
		return URL{}, false
	}
	scheme := strings.ToLower(u.Scheme)
	if u.Opaque != "" {
		return URL{Scheme: scheme, Path: raw[len(u.Scheme)+1:], opaque: true}, true
	}
	authority := u.Host
	if u.User != nil {
		authority = u.User.String() + "@" + authority
	}
	p := u.Path
	if scheme == fileScheme {
		p = canonicalPath(p)
	}
	return URL{Scheme: scheme, Authority: authority, Path: p, Query: u.RawQuery}, true
}

// IsLocalFile reports whether the URL names a file on the local file system.
func (u URL) IsLocalFile() bool {
	if u.Scheme == fileScheme {
		return true
	}
	return u.Scheme == "" && isAbsolute(u.Path)
}

// TrimQuery returns the URL without its query.
func (u URL) TrimQuery() URL {
	u.Query = ""
	return u
}

// Equal compares two URLs exactly.
func (u URL) Equal(other URL) bool { return u == other }

// EqualIgnoringQuery compares two URLs without their queries.
func (u URL) EqualIgnoringQuery(other URL) bool {
	return u.TrimQuery() == other.TrimQuery()
}

// FilePath returns the local path of a local file URL.
func (u URL) FilePath() string {
	return filepath.FromSlash(u.Path)
}

func (u URL) String() string {
	var b strings.Builder
	switch {
	case u.Scheme == "":
		b.WriteString(u.Path)
	case u.opaque:
		b.WriteString(u.Scheme)
		b.WriteByte(':')
		b.WriteString(u.Path)
		return b.String()
	default:
		b.WriteString(u.Scheme)
		b.WriteString("://")
		b.WriteString(u.Authority)
		b.WriteString(u.Path)
	}
	if u.Query != "" {
		b.WriteByte('?')
		b.WriteString(u.Query)
	}
	return b.String()
}

// key is the lookup key of the URL under a case sensitivity policy.
func (u URL) key(caseSensitive bool) string {
	s := u.String()
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

// isAbsolute accepts POSIX absolute paths and Windows drive paths.
func isAbsolute(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) > 2 && p[1] == ':' && (p[2] == '/' || p[2] == '\\')
}

// canonicalPath removes "." and ".." segments of a slash separated path.
func canonicalPath(p string) string {
	if p == "" {
		return p
	}
	return path.Clean(p)
}
