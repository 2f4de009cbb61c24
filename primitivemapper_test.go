package coal

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTripPrimitiveField(t *testing.T, goValue interface{}) reflect.Value {
	t.Helper()
	rt := reflect.TypeOf(goValue)
	mapper, err := TypeMapperForGoType(rt)
	require.NoError(t, err)

	src := reflect.New(rt).Elem()
	src.Set(reflect.ValueOf(goValue))

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	mapper.WriteFieldWith(src, w)

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)

	dst := reflect.New(rt).Elem()
	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))
	return dst
}

func TestInt32RoundTrips(t *testing.T) {
	got := roundTripPrimitiveField(t, int32(-12345))
	assert.Equal(t, int32(-12345), got.Interface())
}

func TestInt128WidthSignExtendsNegativeValues(t *testing.T) {
	// No Go host type binds to Int128 directly; exercise the width-16 wire
	// shape through the raw write/read helpers instead.
	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	writeSignedWidth(w, -42, 16)

	r := NewReadStream(buf.Bytes(), nil)
	got, err := readRawSignedAsInt64(r, 16)
	require.NoError(t, err)
	assert.EqualValues(t, -42, got)
	assert.Equal(t, 16, buf.Len())
}

func TestFloat32RoundTrips(t *testing.T) {
	got := roundTripPrimitiveField(t, float32(3.25))
	assert.Equal(t, float32(3.25), got.Interface())
}

func TestUint8RoundTrips(t *testing.T) {
	got := roundTripPrimitiveField(t, uint8(200))
	assert.Equal(t, uint8(200), got.Interface())
}

func TestBoolRoundTrips(t *testing.T) {
	got := roundTripPrimitiveField(t, true)
	assert.Equal(t, true, got.Interface())
}

func TestDecimalRoundTripsWithinScale(t *testing.T) {
	mapper, err := TypeMapperForGoType(reflect.TypeOf(decimal.Zero))
	require.NoError(t, err)

	src := decimal.NewFromFloat(19.9375)

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	mapper.WriteFieldWith(reflect.ValueOf(src), w)

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)

	dst := reflect.New(reflect.TypeOf(decimal.Zero)).Elem()
	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))

	got := dst.Interface().(decimal.Decimal)
	assert.True(t, src.Equal(got), "expected %s, got %s", src, got)
}

func TestUint8FieldReadsCoercedFromWiderUnsignedWireKind(t *testing.T) {
	// CanReadFieldWithTypeDescriptor accepts any wire kind in the same
	// family, not just the mapper's own default width; a UInt8 field must
	// read a value that was actually written as UInt16.
	wideMapper, err := TypeMapperForGoType(reflect.TypeOf(uint16(0)))
	require.NoError(t, err)
	narrowMapper, err := TypeMapperForGoType(reflect.TypeOf(uint8(0)))
	require.NoError(t, err)

	src := reflect.New(reflect.TypeOf(uint16(0))).Elem()
	src.SetUint(42)

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	wideMapper.WriteFieldWith(src, w)
	assert.Equal(t, 2, buf.Len())

	ctx := NewTypeDescriptorContext()
	wireDesc := wideMapper.GetOrCreateTypeDescriptor(ctx)
	require.True(t, narrowMapper.CanReadFieldWithTypeDescriptor(wireDesc, ctx))

	dst := reflect.New(reflect.TypeOf(uint8(0))).Elem()
	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, narrowMapper.ReadFieldWith(dst, wireDesc, ctx, r))
	assert.Equal(t, uint8(42), dst.Interface())
}

func TestDecimalWriteDiscardsSubScalePrecision(t *testing.T) {
	mapper, err := TypeMapperForGoType(reflect.TypeOf(decimal.Zero))
	require.NoError(t, err)

	// DecimalScale is 4 implied digits; a fifth digit does not survive.
	src := decimal.NewFromFloat(1.23456)

	var buf bytes.Buffer
	w := NewWriteStream(&buf, nil, nil)
	mapper.WriteFieldWith(reflect.ValueOf(src), w)

	ctx := NewTypeDescriptorContext()
	desc := mapper.GetOrCreateTypeDescriptor(ctx)
	dst := reflect.New(reflect.TypeOf(decimal.Zero)).Elem()
	r := NewReadStream(buf.Bytes(), nil)
	require.NoError(t, mapper.ReadFieldWith(dst, desc, ctx, r))

	got := dst.Interface().(decimal.Decimal)
	assert.True(t, decimal.NewFromFloat(1.2346).Equal(got), "got %s", got)
}
