package coal

import (
	"bytes"

	"github.com/coal-serialization/coal/d"
	"github.com/kch42/buzhash"
)

const blobBucketCount = 4096

const blobHashSeed uint32 = 0x434f414c // "COAL"

func hashBytes(data []byte) uint32 {
	h := buzhash.NewBuzHash(blobHashSeed)
	h.Write(data)
	return h.Sum32()
}

// blobEntry records one interned byte run: its offset and length within the
// growing buffer backing a BinaryBlob.
type blobEntry struct {
	offset uint32
	length uint32
}

// BinaryBlob is the content-addressed byte arena shared by every frame.
// Identical byte sequences of the same length intern to the same offset.
type BinaryBlob struct {
	data    []byte
	buckets [blobBucketCount][]blobEntry
}

// NewBinaryBlob returns an empty blob ready for priming.
func NewBinaryBlob() *BinaryBlob {
	return &BinaryBlob{}
}

func (b *BinaryBlob) find(data []byte) (blobEntry, bool) {
	bucket := hashBytes(data) % blobBucketCount
	for _, e := range b.buckets[bucket] {
		if e.length == uint32(len(data)) && bytes.Equal(b.data[e.offset:e.offset+e.length], data) {
			return e, true
		}
	}
	return blobEntry{}, false
}

// Push interns data, returning its stable byte offset. Pushing identical
// bytes any number of times is idempotent and returns the same offset.
func (b *BinaryBlob) Push(data []byte) uint32 {
	if e, ok := b.find(data); ok {
		return e.offset
	}

	offset := uint32(len(b.data))
	b.data = append(b.data, data...)
	entry := blobEntry{offset: offset, length: uint32(len(data))}
	bucket := hashBytes(data) % blobBucketCount
	b.buckets[bucket] = append(b.buckets[bucket], entry)
	return offset
}

// OffsetOf returns the offset of data, which the caller must already have
// pushed. Calling it on bytes never pushed is a programmer error: the
// original source treats this as a terminal failure, and so does Coal.
func (b *BinaryBlob) OffsetOf(data []byte) uint32 {
	e, ok := b.find(data)
	d.PanicIfFalse(ok, "coal: MissingBlobEntry: offsetOf called on bytes never pushed")
	return e.offset
}

// InternStringK pushes the first min(len(s), 2^k-1) bytes of s, where k is
// the bit-width of the wire size field (8, 16, or 32), and returns the
// resulting offset and truncated length.
func (b *BinaryBlob) InternStringK(s string, k int) (offset uint32, size uint32) {
	maxLen := (uint64(1) << uint(k)) - 1
	data := []byte(s)
	if uint64(len(data)) > maxLen {
		data = data[:maxLen]
	}
	return b.Push(data), uint32(len(data))
}

// Bytes returns the frozen, backing byte slice. Only valid to call once
// priming is complete.
func (b *BinaryBlob) Bytes() []byte {
	return b.data
}

// Size returns the current length of the blob's backing buffer.
func (b *BinaryBlob) Size() uint32 {
	return uint32(len(b.data))
}

// NewBinaryBlobFromBytes wraps already-decoded blob bytes for reading; no
// bucket index is built since a reader never pushes or looks up by content.
func NewBinaryBlobFromBytes(data []byte) *BinaryBlob {
	return &BinaryBlob{data: data}
}

// Slice returns the size bytes at offset, validating bounds. Used by
// ReadStream's string/variable-length primitive decoders.
func (b *BinaryBlob) Slice(offset, size uint32) ([]byte, error) {
	if uint64(offset)+uint64(size) > uint64(len(b.data)) {
		return nil, newDecodeError(OffsetOutOfRange, "offset=%d size=%d blobSize=%d", offset, size, len(b.data))
	}
	return b.data[offset : offset+size], nil
}
