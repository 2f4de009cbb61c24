package coal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAndReadBackDescription(t *testing.T, d *TypeDescriptor) *TypeDescriptor {
	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	d.WriteDescription(w)

	readCtx := NewTypeDescriptorContext()
	r := NewReadStream(buf.Bytes(), nil)
	got, err := readCtx.ReadDescription(r)
	require.NoError(t, err)
	return got
}

func TestTypeDescriptorRoundTripsPrimitive(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	got := writeAndReadBackDescription(t, ctx.Primitive(KindInt32))
	assert.Equal(t, KindInt32, got.Kind)
}

func TestTypeDescriptorRoundTripsFixedArray(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	d := ctx.FixedArray(3, ctx.Primitive(KindFloat64))
	got := writeAndReadBackDescription(t, d)
	assert.Equal(t, KindFixedArray, got.Kind)
	assert.Equal(t, uint32(3), got.Size)
	assert.Equal(t, KindFloat64, got.Element.Kind)
}

func TestTypeDescriptorRoundTripsNestedArray(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	d := ctx.Array(KindArray32, ctx.Array(KindArray8, ctx.Primitive(KindUInt16)))
	got := writeAndReadBackDescription(t, d)
	assert.Equal(t, KindArray32, got.Kind)
	assert.Equal(t, KindArray8, got.Element.Kind)
	assert.Equal(t, KindUInt16, got.Element.Element.Kind)
}

func TestTypeDescriptorRoundTripsMap(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	d := ctx.Map(KindMap16, ctx.Primitive(KindChar32), ctx.Primitive(KindBoolean8))
	got := writeAndReadBackDescription(t, d)
	assert.Equal(t, KindMap16, got.Kind)
	assert.Equal(t, KindChar32, got.Key.Kind)
	assert.Equal(t, KindBoolean8, got.Value.Kind)
}

func TestTypeDescriptorInternCollapsesIdenticalComposites(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	a := ctx.FixedArray(4, ctx.Primitive(KindInt8))
	b := ctx.FixedArray(4, ctx.Primitive(KindInt8))
	assert.Same(t, a, b)
}

func TestReadDescriptionRejectsStructIndexOutOfRange(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	w.WriteUint8(uint8(KindStruct))
	w.WriteUint32(5) // no value types known yet

	r := NewReadStream(buf.Bytes(), nil)
	_, err := ctx.ReadDescription(r)
	assert.Error(t, err)
}

func TestReadDescriptionRejectsUnassignedTag(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	r := NewReadStream([]byte{0x7F}, nil) // past the primitive range (ends at 0x2A), below the composite range (0x80)
	_, err := ctx.ReadDescription(r)
	assert.Error(t, err)
}

func TestSkipDataWithConsumesFixedWidthPrimitive(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	d := ctx.Primitive(KindInt64)

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	w.WriteInt64(42)
	w.WriteInt64(43) // trailing sentinel to prove exactly 8 bytes were skipped

	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, d.SkipDataWith(r, ctx))

	next, err := r.ReadInt64()
	require.NoError(t, err)
	assert.EqualValues(t, 43, next)
}

func TestSkipDataWithConsumesFixedArrayOfPrimitives(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	d := ctx.FixedArray(3, ctx.Primitive(KindInt32))

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	w.WriteInt32(1)
	w.WriteInt32(2)
	w.WriteInt32(3)
	w.WriteInt32(99)

	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, d.SkipDataWith(r, ctx))

	sentinel, err := r.ReadInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 99, sentinel)
}

func TestSkipDataWithConsumesVariableLengthArray(t *testing.T) {
	ctx := NewTypeDescriptorContext()
	d := ctx.Array(KindArray8, ctx.Primitive(KindInt16))

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	w.WriteUint8(2) // count
	w.WriteInt16(10)
	w.WriteInt16(20)
	w.WriteInt32(99) // sentinel

	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, d.SkipDataWith(r, ctx))

	sentinel, err := r.ReadInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 99, sentinel)
}
