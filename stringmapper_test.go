package coal

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringMapperInternsFieldIntoBlobAtExactOffsetAndSize(t *testing.T) {
	mapper, err := TypeMapperForGoType(reflect.TypeOf(""))
	require.NoError(t, err)

	blob := NewBinaryBlob()
	src := reflect.New(reflect.TypeOf("")).Elem()
	src.SetString("Hello World\r\n")

	var buf bytes.Buffer
	w := NewWriteStream(&buf, blob, nil)
	mapper.WriteFieldWith(src, w)

	assert.Equal(t, uint32(13), blob.Size())
	assert.Equal(t, uint32(0), blob.OffsetOf([]byte("Hello World\r\n")))

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)
	assert.Equal(t, KindUTF8_32_32, desc.Kind)

	r := NewReadStream(buf.Bytes(), blob)
	dst := reflect.New(reflect.TypeOf("")).Elem()
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))
	assert.Equal(t, "Hello World\r\n", dst.String())
}

func TestStringMapperAcceptsAnyUTF8_32Width(t *testing.T) {
	mapper := newStringTypeMapper()
	ctx := NewTypeDescriptorContext()

	assert.True(t, mapper.CanReadFieldWithTypeDescriptor(ctx.Primitive(KindUTF8_32_8), ctx))
	assert.True(t, mapper.CanReadFieldWithTypeDescriptor(ctx.Primitive(KindUTF8_32_16), ctx))
	assert.True(t, mapper.CanReadFieldWithTypeDescriptor(ctx.Primitive(KindUTF8_32_32), ctx))
	assert.False(t, mapper.CanReadFieldWithTypeDescriptor(ctx.Primitive(KindInt32), ctx))
}

func TestStringMapperReadsNarrowerWireWidth(t *testing.T) {
	mapper := newStringTypeMapper()
	blob := NewBinaryBlob()

	var buf bytes.Buffer
	w := NewWriteStream(&buf, blob, nil)
	w.WriteUTF8_32_k("short", 8)

	ctx := NewTypeDescriptorContext()
	desc := ctx.Primitive(KindUTF8_32_8)

	r := NewReadStream(buf.Bytes(), blob)
	dst := reflect.New(reflect.TypeOf("")).Elem()
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))
	assert.Equal(t, "short", dst.String())
}
