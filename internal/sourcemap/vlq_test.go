package sourcemap

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugoDaniel/smap/internal/test"
)

// ============================================================================
// VLQ Decoding Tests
// ============================================================================

func TestDecodeVLQKnownValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected int32
	}{
		{"A", 0},
		{"C", 1},
		{"D", -1},
		{"E", 2},
		{"e", 15},
		{"f", -15},
		{"gB", 16},
		{"hB", -16},
		{"+B", 31},
		{"/B", -31},
		{"gC", 32},
		{"oG", 100},
		{"pG", -100},
		{"w+B", 1000},
		{"x+B", -1000},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			it := newStringIterator(tt.input)
			value, err := DecodeVLQ(it)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
			assert.False(t, it.HasNext(), "all digits consumed")
		})
	}
}

func TestDecodeVLQRoundTrip(t *testing.T) {
	t.Parallel()

	values := []int32{
		0, 1, -1, 15, -15, 16, -16, 31, 32, 1000, -1000,
		1 << 20, -(1 << 20), 1<<30 - 1, -(1<<30 - 1),
		math.MaxInt32, -math.MaxInt32,
	}
	for _, v := range values {
		v := v
		t.Run(fmt.Sprint(v), func(t *testing.T) {
			t.Parallel()
			encoded := test.EncodeVLQ(v)
			decoded, err := DecodeVLQ(newStringIterator(encoded))
			require.NoError(t, err)
			assert.Equal(t, v, decoded)
		})
	}
}

func TestDecodeVLQStopsAtDigitBoundary(t *testing.T) {
	t.Parallel()

	it := newStringIterator("gBCD")
	first, err := DecodeVLQ(it)
	require.NoError(t, err)
	second, err := DecodeVLQ(it)
	require.NoError(t, err)
	third, err := DecodeVLQ(it)
	require.NoError(t, err)

	assert.Equal(t, []int32{16, 1, -1}, []int32{first, second, third})
	assert.Equal(t, 4, it.Offset())
}

func TestDecodeVLQInvalidCharacter(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"!", "g!", "é", " "} {
		_, err := DecodeVLQ(newStringIterator(input))
		assert.ErrorIs(t, err, ErrInvalidVLQ, "input %q", input)
	}
}

func TestDecodeVLQTruncated(t *testing.T) {
	t.Parallel()

	_, err := DecodeVLQ(newStringIterator("g"))
	assert.ErrorIs(t, err, ErrTruncatedVLQ)
}
