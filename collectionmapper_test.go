package coal

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceCollectionMapperRoundTrips(t *testing.T) {
	rt := reflect.TypeOf([]int32(nil))
	mapper, err := TypeMapperForGoType(rt)
	require.NoError(t, err)

	src := reflect.ValueOf([]int32{1, 2, 3, 4})

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	mapper.WriteFieldWith(src, w)

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)

	dst := reflect.New(rt).Elem()
	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))
	assert.Equal(t, []int32{1, 2, 3, 4}, dst.Interface())
}

func TestSetCollectionMapperRoundTrips(t *testing.T) {
	rt := reflect.TypeOf(map[int32]struct{}(nil))
	mapper, err := TypeMapperForGoType(rt)
	require.NoError(t, err)

	src := reflect.ValueOf(map[int32]struct{}{5: {}, 6: {}, 7: {}})

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	mapper.WriteFieldWith(src, w)

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)

	dst := reflect.New(rt).Elem()
	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))
	assert.Equal(t, map[int32]struct{}{5: {}, 6: {}, 7: {}}, dst.Interface())
}

func TestMapCollectionMapperRoundTrips(t *testing.T) {
	rt := reflect.TypeOf(map[string]int32(nil))
	mapper, err := TypeMapperForGoType(rt)
	require.NoError(t, err)

	src := reflect.ValueOf(map[string]int32{"a": 1, "b": 2})

	var buf bytes.Buffer
	blob := NewBinaryBlob()
	w := NewWriteStream(&buf, blob, nil)
	mapper.WriteFieldWith(src, w)

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)

	dst := reflect.New(rt).Elem()
	r := NewReadStream(buf.Bytes(), NewBinaryBlobFromBytes(blob.Bytes()))
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))
	assert.Equal(t, map[string]int32{"a": 1, "b": 2}, dst.Interface())
}

func TestFixedArrayMapperPadsMissingWireElementsWithZero(t *testing.T) {
	// Simulate an older frame written with a shorter fixed array than the
	// live Go type now declares: d.Size (2) is less than field.Len() (4), so
	// the extra destination slots must be left at their zero value.
	elemType := reflect.TypeOf(int32(0))
	elemMapper, err := TypeMapperForGoType(elemType)
	require.NoError(t, err)
	mapper := newFixedArrayCollectionMapper(2, elemMapper)

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	elemMapper.WriteFieldWith(reflect.ValueOf(int32(11)), w)
	elemMapper.WriteFieldWith(reflect.ValueOf(int32(22)), w)

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)

	dst := reflect.New(reflect.ArrayOf(4, elemType)).Elem()
	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))

	assert.EqualValues(t, 11, dst.Index(0).Interface())
	assert.EqualValues(t, 22, dst.Index(1).Interface())
	assert.EqualValues(t, 0, dst.Index(2).Interface())
	assert.EqualValues(t, 0, dst.Index(3).Interface())
}

func TestFixedArrayMapperSkipsExcessWireElements(t *testing.T) {
	// The inverse: the wire descriptor advertises more elements (4) than the
	// live Go array can hold (2); the extras must be skipped, not truncate
	// the read of the ones that do fit, and the stream must end aligned.
	elemType := reflect.TypeOf(int32(0))
	elemMapper, err := TypeMapperForGoType(elemType)
	require.NoError(t, err)
	mapper := newFixedArrayCollectionMapper(4, elemMapper)

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	for _, v := range []int32{1, 2, 3, 4} {
		elemMapper.WriteFieldWith(reflect.ValueOf(v), w)
	}
	w.WriteInt32(99) // sentinel proving the stream stays aligned past the array

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)

	dst := reflect.New(reflect.ArrayOf(2, elemType)).Elem()
	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))

	assert.EqualValues(t, 1, dst.Index(0).Interface())
	assert.EqualValues(t, 2, dst.Index(1).Interface())

	sentinel, err := r.ReadInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 99, sentinel)
}
