package sourcemap

import (
	"encoding/binary"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// DefaultCacheSize is the number of decoded documents DefaultCache keeps.
const DefaultCacheSize = 256

// Indexed is a decoded document together with its lookup indices.
type Indexed struct {
	Data      *SourceMapData
	Generated *MappingIndex
	// BySource holds one index per source, nil for sources without entries.
	BySource []*MappingIndex
}

// NewIndexed builds the indices of a decoded document.
func NewIndexed(data *SourceMapData) *Indexed {
	return &Indexed{
		Data:      data,
		Generated: NewGeneratedIndex(data.Mappings),
		BySource:  NewSourceIndices(data.Mappings, len(data.Sources)),
	}
}

// CacheStats counts cache lookups.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// Cache memoizes Flatten and index building per document content.
//
// Entries may be evicted at any time; a miss recomputes the same result.
// Concurrent misses for one document may both compute, the last one stored
// wins.
type Cache struct {
	entries *lru.Cache[uint64, *cacheEntry]
	logger  logrus.FieldLogger
	hits    atomic.Int64
	misses  atomic.Int64
}

type cacheEntry struct {
	doc     Document
	indexed *Indexed
}

// NewCache creates a cache holding up to size documents.
func NewCache(size int, logger logrus.FieldLogger) (*Cache, error) {
	entries, err := lru.New[uint64, *cacheEntry](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Cache{entries: entries, logger: logger.WithField("component", "sourcemap-cache")}, nil
}

var (
	defaultCache     *Cache
	defaultCacheOnce sync.Once
)

// DefaultCache returns the process wide cache used by Decode.
func DefaultCache() *Cache {
	defaultCacheOnce.Do(func() {
		c, err := NewCache(DefaultCacheSize, nil)
		if err != nil {
			panic(err)
		}
		defaultCache = c
	})
	return defaultCache
}

// GetOrDecode returns the indexed form of doc, decoding it on a miss.
// It returns (nil, nil) for documents without mappings.
func (c *Cache) GetOrDecode(doc Document) (*Indexed, error) {
	if doc == nil {
		return nil, nil
	}
	key := DocumentKey(doc)
	if e, ok := c.entries.Get(key); ok && reflect.DeepEqual(e.doc, doc) {
		c.hits.Add(1)
		return e.indexed, nil
	}
	c.misses.Add(1)

	data, err := Flatten(doc)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	indexed := NewIndexed(data)
	c.entries.Add(key, &cacheEntry{doc: doc, indexed: indexed})
	c.logger.WithFields(logrus.Fields{
		"file":     data.File,
		"sources":  len(data.Sources),
		"mappings": len(data.Mappings),
	}).Debug("decoded source map")
	return indexed, nil
}

// Purge drops every entry, as memory pressure would.
func (c *Cache) Purge() { c.entries.Purge() }

// Len returns the number of cached documents.
func (c *Cache) Len() int { return c.entries.Len() }

// Stats returns the hit and miss counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// DocumentKey hashes the content of a parsed document. Structurally equal
// documents have equal keys.
func DocumentKey(doc Document) uint64 {
	h := documentHasher{d: xxhash.New()}
	h.document(doc)
	return h.d.Sum64()
}

type documentHasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func (h *documentHasher) int(v int) {
	binary.LittleEndian.PutUint64(h.buf[:], uint64(v))
	_, _ = h.d.Write(h.buf[:])
}

func (h *documentHasher) string(s string) {
	h.int(len(s))
	_, _ = h.d.WriteString(s)
}

func (h *documentHasher) strings(ss []string) {
	h.int(len(ss))
	for _, s := range ss {
		h.string(s)
	}
}

func (h *documentHasher) document(doc Document) {
	switch d := doc.(type) {
	case *FlatMap:
		h.int(1)
		h.int(d.Version)
		h.string(d.File)
		h.string(d.SourceRoot)
		h.strings(d.Sources)
		h.int(len(d.SourcesContent))
		for _, c := range d.SourcesContent {
			if c.Valid {
				h.string(c.String)
			} else {
				h.int(-1)
			}
		}
		h.strings(d.Names)
		h.string(d.Mappings)
		h.int(len(d.IgnoreList))
		for _, i := range d.IgnoreList {
			h.int(i)
		}
	case *SectionedMap:
		h.int(2)
		h.int(d.Version)
		h.string(d.File)
		h.int(len(d.Sections))
		for _, s := range d.Sections {
			h.int(s.Offset.Line)
			h.int(s.Offset.Column)
			h.document(s.Map)
		}
	}
}
