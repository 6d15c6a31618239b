package sourcemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugoDaniel/smap/internal/test"
)

func indexFixture(t *testing.T, sources []string, lines [][]test.Segment) *SourceMapData {
	t.Helper()
	data := flattenText(t, test.Map{Sources: sources, Mappings: test.EncodeMappings(lines)}.JSON())
	require.NotNil(t, data)
	return data
}

// ============================================================================
// Floor Lookup
// ============================================================================

func TestMappingIndexFloor(t *testing.T) {
	t.Parallel()

	data := indexFixture(t, []string{"a.js"}, [][]test.Segment{
		{},
		{},
		{test.Mapped(5, 0, 0, 0), test.Mapped(10, 0, 0, 4)},
	})
	index := NewGeneratedIndex(data.Mappings)

	tests := []struct {
		name         string
		line, column int
		found        bool
		column0      int
	}{
		{"exact", 2, 5, true, 5},
		{"floor", 2, 7, true, 5},
		{"past last", 2, 99, true, 10},
		{"clamp to first", 1, 0, true, 5},
		{"before first on same line", 2, 0, true, 5},
		{"line without entries", 5, 0, false, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, ok := index.Get(tt.line, tt.column)
			require.Equal(t, tt.found, ok)
			if ok {
				assert.Equal(t, tt.column0, e.GeneratedColumn)
			}
		})
	}
}

func TestMappingIndexLineWithoutFloor(t *testing.T) {
	t.Parallel()

	// the floor of 3:2 is on line 1, line 3 only has an entry further right
	data := indexFixture(t, []string{"a.js"}, [][]test.Segment{
		{},
		{test.Mapped(0, 0, 0, 0)},
		{},
		{test.Mapped(8, 0, 1, 0)},
	})
	index := NewGeneratedIndex(data.Mappings)

	e, ok := index.Get(3, 2)
	require.True(t, ok)
	assert.Equal(t, position{3, 8}, position{e.GeneratedLine, e.GeneratedColumn})

	assert.Equal(t, -1, index.IndexOf(2, 4))
}

func TestMappingIndexTies(t *testing.T) {
	t.Parallel()

	data := indexFixture(t, []string{"a.js"}, [][]test.Segment{
		{test.Mapped(0, 0, 0, 0), test.Mapped(0, 0, 0, 1), test.Mapped(3, 0, 0, 2)},
	})
	index := NewGeneratedIndex(data.Mappings)

	assert.Equal(t, 0, index.IndexOf(0, 0))
	assert.Equal(t, 0, index.IndexOf(0, 2))
	assert.Equal(t, 2, index.IndexOf(0, 3))

	next, ok := index.NextOnTheSameLine(0, false)
	require.True(t, ok)
	assert.Equal(t, 1, next.ID())

	next, ok = index.NextOnTheSameLine(0, true)
	require.True(t, ok)
	assert.Equal(t, 2, next.ID())

	_, ok = index.NextOnTheSameLine(2, false)
	assert.False(t, ok)
}

// ============================================================================
// Source Order
// ============================================================================

func sourceFixture(t *testing.T) *SourceMapData {
	t.Helper()
	return indexFixture(t, []string{"a.js", "b.js"}, [][]test.Segment{
		{test.Mapped(0, 0, 3, 0), test.Mapped(4, 0, 1, 2), test.Mapped(6, 1, 0, 0)},
		{test.Mapped(0, 0, 1, 0), test.Mapped(2, 0, 3, 0)},
	})
}

func TestSourceIndexOrder(t *testing.T) {
	t.Parallel()

	data := sourceFixture(t)
	index := NewSourceIndex(data.Mappings, 0)
	assert.Equal(t, BySource, index.Order())
	require.Equal(t, 4, index.Len())

	// sorted by source position, ties in generation order
	var ids []int
	for i := 0; i < index.Len(); i++ {
		e, ok := index.ByIndex(i)
		require.True(t, ok)
		ids = append(ids, e.ID())
	}
	assert.Equal(t, []int{3, 1, 0, 4}, ids)

	// Next walks the sort order, including across equal keys
	first, ok := index.ByIndex(0)
	require.True(t, ok)
	var walked []int
	for e, ok := first, true; ok; e, ok = index.Next(e) {
		walked = append(walked, e.ID())
	}
	assert.Equal(t, []int{3, 1, 0, 4}, walked)

	e, ok := index.Get(3, 5)
	require.True(t, ok)
	assert.Equal(t, 0, e.ID())
	assert.Equal(t, 3, index.Line(e))
	assert.Equal(t, 0, index.Column(e))
}

func TestSourceIndicesMatchSingleIndex(t *testing.T) {
	t.Parallel()

	data := sourceFixture(t)
	all := NewSourceIndices(data.Mappings, 3)
	require.Len(t, all, 3)
	assert.Equal(t, NewSourceIndex(data.Mappings, 0).MappingsInLine(3), all[0].MappingsInLine(3))
	assert.Equal(t, 1, all[1].Len())
	assert.Nil(t, all[2])
}

func TestGeneratedIndexSortsOutOfOrderEntries(t *testing.T) {
	t.Parallel()

	entries := []MappingEntry{
		newUnnamed(1, 0, 0, 0, 0),
		newUnnamed(0, 4, 0, 0, 1),
		newUnnamed(0, 2, 0, 0, 2),
	}
	for i := range entries {
		entries[i].id = int32(i)
	}
	index := NewGeneratedIndex(entries)

	line := index.MappingsInLine(0)
	require.Len(t, line, 2)
	assert.Equal(t, []int{2, 1}, []int{line[0].GeneratedColumn, line[1].GeneratedColumn})
}

// ============================================================================
// Line Iteration
// ============================================================================

func TestMappingsInLine(t *testing.T) {
	t.Parallel()

	data := sourceFixture(t)
	index := NewGeneratedIndex(data.Mappings)

	assert.Len(t, index.MappingsInLine(0), 3)
	assert.Len(t, index.MappingsInLine(1), 2)
	assert.Empty(t, index.MappingsInLine(2))

	var visited []int
	var successors []int
	found := index.ProcessMappingsInLine(0, func(current MappingEntry, next *MappingEntry) {
		visited = append(visited, current.GeneratedColumn)
		if next != nil {
			successors = append(successors, next.GeneratedColumn)
		} else {
			successors = append(successors, -1)
		}
	})
	assert.True(t, found)
	assert.Equal(t, []int{0, 4, 6}, visited)
	assert.Equal(t, []int{4, 6, -1}, successors)

	assert.False(t, index.ProcessMappingsInLine(7, func(MappingEntry, *MappingEntry) {
		t.Fatal("no entries on line 7")
	}))
}

func TestEmptyIndex(t *testing.T) {
	t.Parallel()

	index := NewGeneratedIndex(nil)
	assert.Zero(t, index.Len())
	assert.Equal(t, -1, index.IndexOf(0, 0))
	_, ok := index.Get(0, 0)
	assert.False(t, ok)
	_, ok = index.ByIndex(0)
	assert.False(t, ok)
	_, ok = index.NextOnTheSameLine(0, false)
	assert.False(t, ok)
	assert.Empty(t, index.MappingsInLine(0))
}

func BenchmarkMappingIndexGet(b *testing.B) {
	lines := make([][]test.Segment, 1000)
	for i := range lines {
		for c := 0; c < 20; c++ {
			lines[i] = append(lines[i], test.Mapped(c*4, 0, i, c))
		}
	}
	doc, err := ParseDocument(test.Map{Sources: []string{"a.js"}, Mappings: test.EncodeMappings(lines)}.JSON(), ParseOptions{})
	if err != nil {
		b.Fatal(err)
	}
	data, err := Flatten(doc)
	if err != nil {
		b.Fatal(err)
	}
	index := NewGeneratedIndex(data.Mappings)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		index.Get(i%1000, 41)
	}
}
