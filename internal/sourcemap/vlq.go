// Package sourcemap decodes Source Map v3 documents and answers position
// queries against them.
//
// It implements the consuming side of the format as specified at:
// https://sourcemaps.info/spec.html
//
// The pipeline is ParseDocument -> Flatten -> NewMappingIndex, wrapped by
// the SourceMap facade. Decode runs the whole pipeline through a Cache.
package sourcemap

import "errors"

// Base64 alphabet used for VLQ encoding in source maps
const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// base64Values is a lookup table for decoding base64 characters
var base64Values [128]int8

func init() {
	// Initialize lookup table with -1 for invalid characters
	for i := range base64Values {
		base64Values[i] = -1
	}
	for i, c := range base64Alphabet {
		base64Values[c] = int8(i)
	}
}

// VLQ constants
const (
	vlqBaseShift       = 5
	vlqBase            = 1 << vlqBaseShift // 32
	vlqBaseMask        = vlqBase - 1       // 31 (0x1F)
	vlqContinuationBit = vlqBase           // 32 (0x20)
	vlqSignBit         = 1
)

var (
	// ErrInvalidVLQ is returned when a character outside the base64 alphabet
	// is found inside a VLQ value.
	ErrInvalidVLQ = errors.New("invalid base64 VLQ character")
	// ErrTruncatedVLQ is returned when the input ends while a continuation
	// bit is still set.
	ErrTruncatedVLQ = errors.New("truncated base64 VLQ value")
)

// CharIterator is a forward cursor over the characters of a mappings string.
type CharIterator interface {
	HasNext() bool
	Next() byte
	Peek() byte
}

// stringIterator walks a string without copying it.
type stringIterator struct {
	s   string
	pos int
}

func newStringIterator(s string) *stringIterator {
	return &stringIterator{s: s}
}

func (it *stringIterator) HasNext() bool { return it.pos < len(it.s) }

func (it *stringIterator) Next() byte {
	c := it.s[it.pos]
	it.pos++
	return c
}

func (it *stringIterator) Peek() byte { return it.s[it.pos] }

// Offset returns the number of characters consumed so far.
func (it *stringIterator) Offset() int { return it.pos }

// isSegmentEnd reports whether the cursor sits at a segment boundary.
func (it *stringIterator) isSegmentEnd() bool {
	if !it.HasNext() {
		return true
	}
	c := it.Peek()
	return c == ',' || c == ';'
}

// DecodeVLQ decodes one signed value from the cursor, consuming digits until
// one without the continuation bit is read. Callers must not call it at the
// end of the input.
func DecodeVLQ(it CharIterator) (int32, error) {
	var vlq uint32
	var shift uint32

	for {
		if !it.HasNext() {
			return 0, ErrTruncatedVLQ
		}
		c := it.Next()
		if c >= 128 || base64Values[c] < 0 {
			return 0, ErrInvalidVLQ
		}
		digit := uint32(base64Values[c])
		continuation := digit&vlqContinuationBit != 0

		vlq += (digit & vlqBaseMask) << shift
		shift += vlqBaseShift

		if !continuation {
			break
		}
	}

	negative := vlq&vlqSignBit != 0
	vlq >>= 1
	if negative {
		return -int32(vlq), nil
	}
	return int32(vlq), nil
}
