package coal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryBlobPushIsIdempotent(t *testing.T) {
	b := NewBinaryBlob()

	o1 := b.Push([]byte("hello"))
	o2 := b.Push([]byte("hello"))
	assert.Equal(t, o1, o2)
	assert.Equal(t, uint32(5), b.Size())

	o3 := b.Push([]byte("world"))
	assert.NotEqual(t, o1, o3)
	assert.Equal(t, uint32(10), b.Size())
}

func TestBinaryBlobOffsetOfMatchesPush(t *testing.T) {
	b := NewBinaryBlob()
	data := []byte("a tracked run of bytes")
	offset := b.Push(data)
	assert.Equal(t, offset, b.OffsetOf(data))
}

func TestBinaryBlobOffsetOfPanicsOnUnknownBytes(t *testing.T) {
	b := NewBinaryBlob()
	b.Push([]byte("known"))
	assert.Panics(t, func() {
		b.OffsetOf([]byte("never pushed"))
	})
}

func TestBinaryBlobInternStringKTruncatesToWireWidth(t *testing.T) {
	b := NewBinaryBlob()

	longString := make([]byte, 300)
	for i := range longString {
		longString[i] = 'x'
	}

	offset, size := b.InternStringK(string(longString), 8)
	assert.Equal(t, uint32(255), size)

	data, err := b.Slice(offset, size)
	require.NoError(t, err)
	assert.Len(t, data, 255)
}

func TestBinaryBlobInternStringKLeavesShortStringsIntact(t *testing.T) {
	b := NewBinaryBlob()
	offset, size := b.InternStringK("short", 32)
	assert.Equal(t, uint32(5), size)

	data, err := b.Slice(offset, size)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestBinaryBlobSliceRejectsOutOfRangeOffset(t *testing.T) {
	b := NewBinaryBlobFromBytes([]byte("abc"))
	_, err := b.Slice(0, 10)
	assert.Error(t, err)

	data, err := b.Slice(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "bc", string(data))
}
