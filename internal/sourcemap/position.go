package sourcemap

import "unicode/utf8"

// LineIndex provides line access into embedded source content.
// It pre-computes line start positions; content is already LF-normalized.
type LineIndex struct {
	source     string
	lineStarts []int // byte offset of each line start
}

// NewLineIndex creates a LineIndex for the given source.
func NewLineIndex(source string) *LineIndex {
	idx := &LineIndex{
		source:     source,
		lineStarts: []int{0},
	}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			idx.lineStarts = append(idx.lineStarts, i+1)
		}
	}
	return idx
}

// LineCount returns the number of lines in the source.
func (idx *LineIndex) LineCount() int {
	return len(idx.lineStarts)
}

// Line returns the text of a 0-indexed line without its terminator.
func (idx *LineIndex) Line(line int) (string, bool) {
	if line < 0 || line >= len(idx.lineStarts) {
		return "", false
	}
	start := idx.lineStarts[line]
	end := len(idx.source)
	if line+1 < len(idx.lineStarts) {
		end = idx.lineStarts[line+1] - 1
	}
	return idx.source[start:end], true
}

// LineColumnUTF16ToByteOffset converts a 0-indexed line and UTF-16 column
// to a byte offset, clamped to the end of that line.
func (idx *LineIndex) LineColumnUTF16ToByteOffset(line, col int) int {
	text, ok := idx.Line(line)
	if !ok {
		if line < 0 {
			return 0
		}
		return len(idx.source)
	}
	return idx.lineStarts[line] + utf16ColumnToByteOffset(text, col)
}

// utf16ColumnToByteOffset walks s until col UTF-16 units have been consumed.
func utf16ColumnToByteOffset(s string, col int) int {
	units := 0
	for i := 0; i < len(s); {
		if units >= col {
			return i
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
		i += size
	}
	return len(s)
}
