package sourcemap

import (
	"sync"

	"github.com/HugoDaniel/smap/internal/resolver"
)

// Nested composes two maps where the sources of child are the generated
// code of parent, e.g. a minified bundle whose input was itself generated.
//
// Generated queries run through child then parent, source queries through
// parent then child. A composed entry has the generated position of the
// child entry and the kind, source and name of the parent entry.
//
// Nothing is resolved until the first query. Each query composes the maps
// currently behind child and parent, so a released file-backed map is read
// again instead of leaving a stale index behind.
type Nested struct {
	child  SourceMap
	parent SourceMap

	mu      sync.Mutex
	current *composition
}

// composition holds the indexes and composed entries of one pair of
// snapshots of child and parent.
type composition struct {
	child, parent SourceMap
	generated     *nestedMappings

	mu       sync.Mutex
	bySource map[int]*nestedMappings
	composed map[composedKey]MappingEntry
}

type composedKey struct {
	child, parent int32
	bySource      bool
}

var _ SourceMap = (*Nested)(nil)

// NewNested composes child with parent.
func NewNested(child, parent SourceMap) *Nested {
	return &Nested{child: child, parent: parent}
}

// composition returns the composition of the current snapshots, starting a
// new one when either map has been reloaded.
func (n *Nested) composition() *composition {
	child, parent := Snapshot(n.child), Snapshot(n.parent)
	n.mu.Lock()
	defer n.mu.Unlock()
	if c := n.current; c != nil && c.child == child && c.parent == parent {
		return c
	}
	c := &composition{
		child:    child,
		parent:   parent,
		bySource: make(map[int]*nestedMappings),
		composed: make(map[composedKey]MappingEntry),
	}
	c.generated = &nestedMappings{c: c, primary: child.GeneratedMappings()}
	n.current = c
	return c
}

func (n *Nested) OutFile() string              { return n.composition().OutFile() }
func (n *Nested) Sources() []resolver.URL      { return n.composition().Sources() }
func (n *Nested) RawSources() []string         { return n.composition().RawSources() }
func (n *Nested) Resolver() *resolver.Resolver { return n.composition().Resolver() }
func (n *Nested) IgnoreList() []int            { return n.composition().IgnoreList() }
func (n *Nested) HasNameMappings() bool        { return n.composition().HasNameMappings() }
func (n *Nested) GeneratedMappings() Mappings  { return n.composition().GeneratedMappings() }

func (n *Nested) SourceContent(sourceIndex int) (string, bool) {
	return n.composition().SourceContent(sourceIndex)
}

func (n *Nested) SourceMappings(sourceIndex int) Mappings {
	return n.composition().SourceMappings(sourceIndex)
}

var _ SourceMap = (*composition)(nil)

func (c *composition) OutFile() string              { return c.child.OutFile() }
func (c *composition) Sources() []resolver.URL      { return c.parent.Sources() }
func (c *composition) RawSources() []string         { return c.parent.RawSources() }
func (c *composition) Resolver() *resolver.Resolver { return c.parent.Resolver() }
func (c *composition) IgnoreList() []int            { return c.parent.IgnoreList() }
func (c *composition) GeneratedMappings() Mappings  { return c.generated }

func (c *composition) HasNameMappings() bool {
	return c.child.HasNameMappings() || c.parent.HasNameMappings()
}

func (c *composition) SourceContent(sourceIndex int) (string, bool) {
	return c.parent.SourceContent(sourceIndex)
}

func (c *composition) SourceMappings(sourceIndex int) Mappings {
	if m := c.sourceMappings(sourceIndex); m != nil {
		return m
	}
	return nil
}

func (c *composition) sourceMappings(sourceIndex int) *nestedMappings {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.bySource[sourceIndex]; ok {
		return m
	}
	var m *nestedMappings
	if primary := c.parent.SourceMappings(sourceIndex); primary != nil {
		m = &nestedMappings{c: c, primary: primary, bySource: true}
	}
	c.bySource[sourceIndex] = m
	return m
}

// compose memoizes the composition of a child and a parent entry. The
// identity of the result follows the entry of the index it is ordered by.
func (c *composition) compose(child, parent MappingEntry, bySource bool) MappingEntry {
	key := composedKey{child: child.id, parent: parent.id, bySource: bySource}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.composed[key]; ok {
		return e
	}
	e := parent
	e.GeneratedLine, e.GeneratedColumn = child.GeneratedLine, child.GeneratedColumn
	if !bySource {
		e.id, e.next = child.id, child.next
	}
	c.composed[key] = e
	return e
}

// resolveGenerated maps a child entry through the parent.
func (c *composition) resolveGenerated(child MappingEntry) (MappingEntry, bool) {
	if !child.HasSource() {
		return child, true
	}
	parent, ok := c.parent.GeneratedMappings().Get(child.SourceLine, child.SourceColumn)
	if !ok {
		return MappingEntry{}, false
	}
	return c.compose(child, parent, false), true
}

// resolveSource maps a parent entry back through the child, trying the
// child sources in order.
func (c *composition) resolveSource(parent MappingEntry) (MappingEntry, bool) {
	for i := range c.child.RawSources() {
		childMappings := c.child.SourceMappings(i)
		if childMappings == nil {
			continue
		}
		child, ok := childMappings.Get(parent.GeneratedLine, parent.GeneratedColumn)
		if ok && child.SourceLine == parent.GeneratedLine {
			return c.compose(child, parent, true), true
		}
	}
	return MappingEntry{}, false
}

// nestedMappings iterates the index its coordinates come from: the child
// generated index for generated queries, the parent source index for
// source queries.
type nestedMappings struct {
	c        *composition
	primary  Mappings
	bySource bool
}

var _ Mappings = (*nestedMappings)(nil)

func (m *nestedMappings) resolve(e MappingEntry) (MappingEntry, bool) {
	if m.bySource {
		return m.c.resolveSource(e)
	}
	return m.c.resolveGenerated(e)
}

// primaryEntry recovers the entry of the primary index behind a composed one.
func (m *nestedMappings) primaryEntry(e MappingEntry) (MappingEntry, bool) {
	line, column := m.primary.Line(e), m.primary.Column(e)
	for i := m.primary.IndexOf(line, column); ; i++ {
		candidate, ok := m.primary.ByIndex(i)
		if !ok || m.primary.Line(candidate) != line || m.primary.Column(candidate) != column {
			return MappingEntry{}, false
		}
		if candidate.id == e.id {
			return candidate, true
		}
	}
}

func (m *nestedMappings) Len() int                     { return m.primary.Len() }
func (m *nestedMappings) IndexOf(line, column int) int { return m.primary.IndexOf(line, column) }
func (m *nestedMappings) Line(e MappingEntry) int      { return m.primary.Line(e) }
func (m *nestedMappings) Column(e MappingEntry) int    { return m.primary.Column(e) }

func (m *nestedMappings) ByIndex(index int) (MappingEntry, bool) {
	e, ok := m.primary.ByIndex(index)
	if !ok {
		return MappingEntry{}, false
	}
	return m.resolve(e)
}

func (m *nestedMappings) Get(line, column int) (MappingEntry, bool) {
	return m.ByIndex(m.primary.IndexOf(line, column))
}

// Next returns the next primary entry that resolves.
func (m *nestedMappings) Next(e MappingEntry) (MappingEntry, bool) {
	current, ok := m.primaryEntry(e)
	for ok {
		current, ok = m.primary.Next(current)
		if !ok {
			break
		}
		if resolved, found := m.resolve(current); found {
			return resolved, true
		}
	}
	return MappingEntry{}, false
}

func (m *nestedMappings) NextOnTheSameLine(index int, skipEqualColumns bool) (MappingEntry, bool) {
	current, ok := m.primary.ByIndex(index)
	if !ok {
		return MappingEntry{}, false
	}
	line, column := m.primary.Line(current), m.primary.Column(current)
	for i := index + 1; ; i++ {
		next, ok := m.primary.ByIndex(i)
		if !ok || m.primary.Line(next) != line {
			return MappingEntry{}, false
		}
		if skipEqualColumns && m.primary.Column(next) == column {
			continue
		}
		if resolved, found := m.resolve(next); found {
			return resolved, true
		}
	}
}

func (m *nestedMappings) MappingsInLine(line int) []MappingEntry {
	entries := m.primary.MappingsInLine(line)
	out := make([]MappingEntry, 0, len(entries))
	for _, e := range entries {
		if resolved, ok := m.resolve(e); ok {
			out = append(out, resolved)
		}
	}
	return out
}

func (m *nestedMappings) ProcessMappingsInLine(line int, visit func(current MappingEntry, next *MappingEntry)) bool {
	return processLine(m.MappingsInLine(line), visit)
}
