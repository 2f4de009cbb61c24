package coal

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
)

// WriteStream offers little-endian writes for fixed-width scalars plus the
// blob-backed string and object-reference field writers the type mappers
// drive during instance emission.
type WriteStream struct {
	buf        *bytes.Buffer
	blob       *BinaryBlob
	objectRefs map[interface{}]uint32 // live base pointer -> 1-based global instance index
}

// NewWriteStream creates a stream that writes into buf, interning strings
// through blob and resolving object references through objectRefs.
func NewWriteStream(buf *bytes.Buffer, blob *BinaryBlob, objectRefs map[interface{}]uint32) *WriteStream {
	return &WriteStream{buf: buf, blob: blob, objectRefs: objectRefs}
}

func (w *WriteStream) WriteUint8(v uint8)   { w.buf.WriteByte(v) }
func (w *WriteStream) WriteUint16(v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); w.buf.Write(b[:]) }
func (w *WriteStream) WriteUint32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *WriteStream) WriteUint64(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }

func (w *WriteStream) WriteInt8(v int8)   { w.WriteUint8(uint8(v)) }
func (w *WriteStream) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }
func (w *WriteStream) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }
func (w *WriteStream) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *WriteStream) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }
func (w *WriteStream) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

func (w *WriteStream) WriteBool32(v bool) {
	if v {
		w.WriteUint32(1)
	} else {
		w.WriteUint32(0)
	}
}

// WriteRaw writes data verbatim: the serializer writes the frame's blob bytes
// with it, and the Float256 encoding its 24 bytes of zero padding.
func (w *WriteStream) WriteRaw(data []byte) { w.buf.Write(data) }

// WriteUTF8_32_k interns the first min(len(s), 2^k-1) bytes of s in the
// blob and writes (u32 offset, uK size).
func (w *WriteStream) WriteUTF8_32_k(s string, k int) {
	offset, size := w.blob.InternStringK(s, k)
	w.WriteUint32(offset)
	w.writeWidth(uint64(size), k)
}

// WriteBlobRef writes (u32 offset, uK size) for data already interned in
// the blob by the caller (used for Binary_32_k and similarly blob-backed
// variable-length primitives).
func (w *WriteStream) WriteBlobRef(offset uint32, size uint64, k int) {
	w.WriteUint32(offset)
	w.writeWidth(size, k)
}

func (w *WriteStream) writeWidth(v uint64, k int) {
	switch k {
	case 8:
		w.WriteUint8(uint8(v))
	case 16:
		w.WriteUint16(uint16(v))
	case 32:
		w.WriteUint32(uint32(v))
	default:
		panic("coal: invalid width")
	}
}

// WriteObjectPointerAsReference encodes ptr (a live base pointer, or nil)
// as a 1-based global instance index; pointers not found in objectRefs
// encode as 0, which is also the encoding used for intentionally nulled
// references.
func (w *WriteStream) WriteObjectPointerAsReference(ptr interface{}) {
	if ptr == nil {
		w.WriteUint32(0)
		return
	}
	if idx, ok := w.objectRefs[ptr]; ok {
		w.WriteUint32(idx)
		return
	}
	w.WriteUint32(0)
}

// Bytes returns the accumulated output.
func (w *WriteStream) Bytes() []byte { return w.buf.Bytes() }

// ReadStream symmetrically decodes a frame written by WriteStream.
type ReadStream struct {
	r           *bytes.Reader
	blob        *BinaryBlob
	instances   []*ObjectMapper // global 0-based index -> materialized instance, installed before any field read
	objectCount uint32
}

// NewReadStream wraps data for sequential decoding.
func NewReadStream(data []byte, blob *BinaryBlob) *ReadStream {
	return &ReadStream{r: bytes.NewReader(data), blob: blob}
}

// SetInstances installs the flat, fully-allocated instances array so that
// inter-cluster references resolve while fields are being read.
func (r *ReadStream) SetInstances(instances []*ObjectMapper, objectCount uint32) {
	r.instances = instances
	r.objectCount = objectCount
}

func (r *ReadStream) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, newDecodeError(Truncated, "expected %d bytes: %v", n, err)
	}
	return buf, nil
}

func (r *ReadStream) ReadUint8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *ReadStream) ReadUint16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *ReadStream) ReadUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *ReadStream) ReadUint64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *ReadStream) ReadInt8() (int8, error)   { v, err := r.ReadUint8(); return int8(v), err }
func (r *ReadStream) ReadInt16() (int16, error) { v, err := r.ReadUint16(); return int16(v), err }
func (r *ReadStream) ReadInt32() (int32, error) { v, err := r.ReadUint32(); return int32(v), err }
func (r *ReadStream) ReadInt64() (int64, error) { v, err := r.ReadUint64(); return int64(v), err }

func (r *ReadStream) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *ReadStream) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

func (r *ReadStream) ReadBool32() (bool, error) {
	v, err := r.ReadUint32()
	return v != 0, err
}

func (r *ReadStream) ReadRaw(n int) ([]byte, error) { return r.readN(n) }

func (r *ReadStream) readWidth(k int) (uint64, error) {
	switch k {
	case 8:
		v, err := r.ReadUint8()
		return uint64(v), err
	case 16:
		v, err := r.ReadUint16()
		return uint64(v), err
	case 32:
		v, err := r.ReadUint32()
		return uint64(v), err
	default:
		panic("coal: invalid width")
	}
}

// ReadBlobRef reads (u32 offset, uK size) and returns them without copying
// blob bytes, so skip paths never allocate.
func (r *ReadStream) ReadBlobRef(k int) (offset uint32, size uint64, err error) {
	offset, err = r.ReadUint32()
	if err != nil {
		return 0, 0, err
	}
	size, err = r.readWidth(k)
	return offset, size, err
}

// ReadUTF8_32_k reads (u32 offset, uK size) and copies the referenced blob
// bytes out as a string.
func (r *ReadStream) ReadUTF8_32_k(k int) (string, error) {
	offset, size, err := r.ReadBlobRef(k)
	if err != nil {
		return "", err
	}
	data, err := r.blob.Slice(offset, uint32(size))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadInstanceReference reads a 1-based global instance index and returns
// the already-materialized instance, or nil for index 0.
func (r *ReadStream) ReadInstanceReference() (*ObjectMapper, error) {
	idx, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return nil, nil
	}
	if idx > r.objectCount {
		return nil, newDecodeError(Truncated, "instance reference %d exceeds objectCount %d", idx, r.objectCount)
	}
	return r.instances[idx-1], nil
}
