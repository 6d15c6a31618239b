package sourcemap

import (
	"cmp"
	"slices"
	"sort"
)

// Ordering selects the coordinates a MappingIndex is sorted by.
type Ordering uint8

const (
	// ByGenerated orders by (GeneratedLine, GeneratedColumn).
	ByGenerated Ordering = iota
	// BySource orders by (SourceLine, SourceColumn).
	BySource
)

// MappingIndex is an immutable sorted view over decoded entries.
//
// It holds positions into the shared entry slice, so building several
// indices over one document does not copy the entries.
type MappingIndex struct {
	entries []MappingEntry
	order   Ordering
	sorted  []int32
}

var _ Mappings = (*MappingIndex)(nil)

// NewGeneratedIndex indexes every entry by generated position.
func NewGeneratedIndex(entries []MappingEntry) *MappingIndex {
	ids := make([]int32, len(entries))
	for i := range ids {
		ids[i] = int32(i)
	}
	return newMappingIndex(entries, ByGenerated, ids)
}

// NewSourceIndex indexes the entries pointing at one source by source position.
func NewSourceIndex(entries []MappingEntry, sourceIndex int) *MappingIndex {
	var ids []int32
	for i := range entries {
		if entries[i].SourceIndex() == sourceIndex {
			ids = append(ids, int32(i))
		}
	}
	return newMappingIndex(entries, BySource, ids)
}

// NewSourceIndices builds one source-ordered index per source in a single
// pass. Sources without entries get a nil index.
func NewSourceIndices(entries []MappingEntry, sourceCount int) []*MappingIndex {
	buckets := make([][]int32, sourceCount)
	for i := range entries {
		if s := entries[i].SourceIndex(); s >= 0 && s < sourceCount {
			buckets[s] = append(buckets[s], int32(i))
		}
	}
	out := make([]*MappingIndex, sourceCount)
	for s, ids := range buckets {
		if len(ids) > 0 {
			out[s] = newMappingIndex(entries, BySource, ids)
		}
	}
	return out
}

func newMappingIndex(entries []MappingEntry, order Ordering, ids []int32) *MappingIndex {
	x := &MappingIndex{entries: entries, order: order, sorted: ids}
	compare := func(a, b int32) int {
		la, ca := x.key(a)
		lb, cb := x.key(b)
		if c := cmp.Compare(la, lb); c != 0 {
			return c
		}
		return cmp.Compare(ca, cb)
	}
	// Emission order is usually sorted already for generated positions.
	if order != ByGenerated || !slices.IsSortedFunc(ids, compare) {
		slices.SortStableFunc(ids, compare)
	}
	return x
}

func (x *MappingIndex) key(id int32) (int, int) {
	e := &x.entries[id]
	if x.order == ByGenerated {
		return e.GeneratedLine, e.GeneratedColumn
	}
	return e.SourceLine, e.SourceColumn
}

func (x *MappingIndex) keyAt(i int) (int, int) { return x.key(x.sorted[i]) }

// Order returns the ordering of the index.
func (x *MappingIndex) Order() Ordering { return x.order }

func (x *MappingIndex) Len() int { return len(x.sorted) }

func (x *MappingIndex) Line(e MappingEntry) int {
	if x.order == ByGenerated {
		return e.GeneratedLine
	}
	return e.SourceLine
}

func (x *MappingIndex) Column(e MappingEntry) int {
	if x.order == ByGenerated {
		return e.GeneratedColumn
	}
	return e.SourceColumn
}

// IndexOf returns the position of the nearest entry at or before
// (line, column). Equal keys resolve to the first of the run. A query before
// the first entry clamps to it; a query on a line the floor entry does not
// share resolves to the first entry of that line, or -1 when it has none.
func (x *MappingIndex) IndexOf(line, column int) int {
	n := len(x.sorted)
	if n == 0 {
		return -1
	}

	upper := sort.Search(n, func(i int) bool {
		l, c := x.keyAt(i)
		return l > line || (l == line && c > column)
	})
	if upper == 0 {
		return 0
	}

	floor := upper - 1
	l, c := x.keyAt(floor)
	if l == line {
		for floor > 0 {
			pl, pc := x.keyAt(floor - 1)
			if pl != l || pc != c {
				break
			}
			floor--
		}
		return floor
	}

	if upper < n {
		if nextLine, _ := x.keyAt(upper); nextLine == line {
			return upper
		}
	}
	return -1
}

func (x *MappingIndex) ByIndex(index int) (MappingEntry, bool) {
	if index < 0 || index >= len(x.sorted) {
		return MappingEntry{}, false
	}
	return x.entries[x.sorted[index]], true
}

func (x *MappingIndex) Get(line, column int) (MappingEntry, bool) {
	return x.ByIndex(x.IndexOf(line, column))
}

// Next follows the generation-order link for generated indices and the
// sort order for source indices.
func (x *MappingIndex) Next(e MappingEntry) (MappingEntry, bool) {
	if x.order == ByGenerated {
		if e.next < 0 || int(e.next) >= len(x.entries) {
			return MappingEntry{}, false
		}
		return x.entries[e.next], true
	}

	pos := x.position(e)
	if pos < 0 {
		return MappingEntry{}, false
	}
	return x.ByIndex(pos + 1)
}

// position finds e itself among the entries sharing its key.
func (x *MappingIndex) position(e MappingEntry) int {
	line, column := x.Line(e), x.Column(e)
	n := len(x.sorted)
	i := sort.Search(n, func(i int) bool {
		l, c := x.keyAt(i)
		return l > line || (l == line && c >= column)
	})
	for ; i < n; i++ {
		if l, c := x.keyAt(i); l != line || c != column {
			break
		}
		if x.sorted[i] == e.id {
			return i
		}
	}
	return -1
}

func (x *MappingIndex) NextOnTheSameLine(index int, skipEqualColumns bool) (MappingEntry, bool) {
	current, ok := x.ByIndex(index)
	if !ok {
		return MappingEntry{}, false
	}
	line, column := x.Line(current), x.Column(current)
	for i := index + 1; i < len(x.sorted); i++ {
		next := x.entries[x.sorted[i]]
		if x.Line(next) != line {
			break
		}
		if skipEqualColumns && x.Column(next) == column {
			continue
		}
		return next, true
	}
	return MappingEntry{}, false
}

// lineRange returns the half-open run of positions on line.
func (x *MappingIndex) lineRange(line int) (int, int) {
	n := len(x.sorted)
	start := sort.Search(n, func(i int) bool {
		l, _ := x.keyAt(i)
		return l >= line
	})
	end := start
	for end < n {
		if l, _ := x.keyAt(end); l != line {
			break
		}
		end++
	}
	return start, end
}

func (x *MappingIndex) MappingsInLine(line int) []MappingEntry {
	start, end := x.lineRange(line)
	out := make([]MappingEntry, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, x.entries[x.sorted[i]])
	}
	return out
}

func (x *MappingIndex) ProcessMappingsInLine(line int, visit func(current MappingEntry, next *MappingEntry)) bool {
	return processLine(x.MappingsInLine(line), visit)
}

func processLine(entries []MappingEntry, visit func(current MappingEntry, next *MappingEntry)) bool {
	for i := range entries {
		var next *MappingEntry
		if i+1 < len(entries) {
			next = &entries[i+1]
		}
		visit(entries[i], next)
	}
	return len(entries) > 0
}
