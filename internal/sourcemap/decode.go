package sourcemap

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/HugoDaniel/smap/internal/resolver"
)

// maxLoggedText bounds the map text attached to failure logs.
const maxLoggedText = 1024

// Options controls decoding and source resolution.
type Options struct {
	// BaseURL is where the map was loaded from; relative sources resolve
	// against it.
	BaseURL        *resolver.URL
	TrimFileScheme bool
	BaseIsFile     bool
	CaseSensitive  bool
	// Fs backs file reads and existence checks.
	Fs                afero.Fs
	ZeroCopyThreshold int
	// Cache defaults to DefaultCache().
	Cache  *Cache
	Logger logrus.FieldLogger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TrimFileScheme: true,
		BaseIsFile:     true,
		CaseSensitive:  resolver.DefaultCaseSensitive(),
		Fs:             afero.NewOsFs(),
	}
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

func (o Options) cache() *Cache {
	if o.Cache == nil {
		return DefaultCache()
	}
	return o.Cache
}

func (o Options) resolverOptions() resolver.Options {
	return resolver.Options{
		Base:           o.BaseURL,
		TrimFileScheme: o.TrimFileScheme,
		BaseIsFile:     o.BaseIsFile,
		CaseSensitive:  o.CaseSensitive,
		Fs:             o.Fs,
	}
}

// Decode parses, flattens and indexes a source map. It returns (nil, nil)
// for a null document or a map without mappings.
func Decode(text []byte, opts Options) (*OneLevel, error) {
	doc, err := ParseDocument(text, ParseOptions{ZeroCopyThreshold: opts.ZeroCopyThreshold})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	indexed, err := opts.cache().GetOrDecode(doc)
	if err != nil {
		return nil, err
	}
	if indexed == nil {
		return nil, nil
	}
	return NewOneLevel(indexed, resolver.New(indexed.Data.Sources, opts.resolverOptions())), nil
}

// DecodeSafely is Decode for callers that treat a broken map like a missing
// one. Failures are logged together with the beginning of the text.
func DecodeSafely(text []byte, opts Options) (m *OneLevel) {
	logger := opts.logger()
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("text", excerpt(text)).Errorf("cannot decode source map: %v", r)
			m = nil
		}
	}()

	m, err := Decode(text, opts)
	if err != nil {
		logger.WithError(err).WithField("text", excerpt(text)).Warn("cannot decode source map")
		return nil
	}
	return m
}

func excerpt(text []byte) string {
	if len(text) <= maxLoggedText {
		return string(text)
	}
	return fmt.Sprintf("%s... (%d bytes)", text[:maxLoggedText], len(text))
}
