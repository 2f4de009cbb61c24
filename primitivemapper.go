package coal

import (
	"math"
	"reflect"

	"github.com/shopspring/decimal"
)

// DecimalScale is the number of implied decimal digits Coal's DecimalN
// primitives carry. The original format specifies DecimalN only as a
// fixed-width tag (4/8/16 bytes); Coal binds it to a fixed-point integer
// scaled by 10^-DecimalScale rather than a full IEEE-754-2008 decimal bit
// layout, since neither the Go standard library nor the example ecosystem
// carries such a type. shopspring/decimal.Decimal is the host
// representation; v * 10^DecimalScale, rounded to the nearest integer, is
// the wire payload (an int32 for Decimal32, an int64 for Decimal64, and an
// int64 followed by 8 zero bytes for Decimal128).
const DecimalScale = 4

var decimalScaleFactor = decimal.New(1, DecimalScale)

// primitiveTypeMapper is a single TypeMapper implementation parameterized
// over one "family" of primitive wire kinds (bool, signed int, unsigned
// int, float, decimal) that all share read/write/skip shape and differ
// only in bit width. One instance is registered per host Go kind.
type primitiveTypeMapper struct {
	baseMapper
	family      primitiveFamily
	defaultKind TypeDescriptorKind
	widthBits   int
}

type primitiveFamily int

const (
	familyBool primitiveFamily = iota
	familySignedInt
	familyUnsignedInt
	familyFloat
	familyDecimal
)

func newPrimitiveTypeMapper(name string, family primitiveFamily, defaultKind TypeDescriptorKind, widthBits int) *primitiveTypeMapper {
	return &primitiveTypeMapper{baseMapper: baseMapper{name: name}, family: family, defaultKind: defaultKind, widthBits: widthBits}
}

func (m *primitiveTypeMapper) IsObjectType() bool                 { return false }
func (m *primitiveTypeMapper) IsReferenceType() bool               { return false }
func (m *primitiveTypeMapper) IsAggregateType() bool               { return false }
func (m *primitiveTypeMapper) IsSerializationDependencyType() bool { return false }
func (m *primitiveTypeMapper) TypeMapperDependenciesDo(fn func(TypeMapper)) {}
func (m *primitiveTypeMapper) ObjectReferencesInFieldDo(field reflect.Value, cache map[interface{}]*ObjectMapper, fn func(*ObjectMapper)) {
}
func (m *primitiveTypeMapper) PushFieldDataIntoBinaryBlob(field reflect.Value, blob *BinaryBlob) {}

func (m *primitiveTypeMapper) GetOrCreateTypeDescriptor(ctx *TypeDescriptorContext) *TypeDescriptor {
	return ctx.Primitive(m.defaultKind)
}

var boolFamilyKinds = map[TypeDescriptorKind]int{
	KindBoolean8: 1, KindBoolean16: 2, KindBoolean32: 4, KindBoolean64: 8,
}

var signedFamilyKinds = map[TypeDescriptorKind]int{
	KindInt8: 1, KindInt16: 2, KindInt32: 4, KindInt64: 8, KindInt128: 16,
	KindChar8: 1, KindChar16: 2, KindChar32: 4,
}

var unsignedFamilyKinds = map[TypeDescriptorKind]int{
	KindUInt8: 1, KindUInt16: 2, KindUInt32: 4, KindUInt64: 8, KindUInt128: 16,
	KindChar8: 1, KindChar16: 2, KindChar32: 4,
}

var floatFamilyKinds = map[TypeDescriptorKind]int{
	KindFloat16: 2, KindFloat32: 4, KindFloat64: 8, KindFloat128: 16, KindFloat256: 32,
}

var decimalFamilyKinds = map[TypeDescriptorKind]int{
	KindDecimal32: 4, KindDecimal64: 8, KindDecimal128: 16,
}

func (m *primitiveTypeMapper) CanReadFieldWithTypeDescriptor(d *TypeDescriptor, ctx *TypeDescriptorContext) bool {
	switch m.family {
	case familyBool:
		_, ok := boolFamilyKinds[d.Kind]
		return ok
	case familySignedInt:
		_, ok := signedFamilyKinds[d.Kind]
		return ok
	case familyUnsignedInt:
		_, ok := unsignedFamilyKinds[d.Kind]
		return ok
	case familyFloat:
		_, ok := floatFamilyKinds[d.Kind]
		return ok
	case familyDecimal:
		_, ok := decimalFamilyKinds[d.Kind]
		return ok
	default:
		return false
	}
}

func (m *primitiveTypeMapper) WriteFieldWith(field reflect.Value, w *WriteStream) {
	switch m.family {
	case familyBool:
		w.WriteBool32(field.Bool())
	case familySignedInt:
		writeSignedWidth(w, field.Int(), m.widthBits)
	case familyUnsignedInt:
		writeUnsignedWidth(w, field.Uint(), m.widthBits)
	case familyFloat:
		writeFloatWidth(w, field.Float(), m.widthBits)
	case familyDecimal:
		writeDecimalWidth(w, field.Interface().(decimal.Decimal), m.widthBits)
	}
}

func (m *primitiveTypeMapper) ReadFieldWith(field reflect.Value, d *TypeDescriptor, ctx *TypeDescriptorContext, r *ReadStream) error {
	switch m.family {
	case familyBool:
		bits := boolFamilyKinds[d.Kind]
		v, err := readRawUint(r, bits)
		if err != nil {
			return err
		}
		field.SetBool(v != 0)
		return nil
	case familySignedInt:
		bits := signedFamilyKinds[d.Kind]
		v, err := readRawSignedAsInt64(r, bits)
		if err != nil {
			return err
		}
		field.SetInt(v)
		return nil
	case familyUnsignedInt:
		bits := unsignedFamilyKinds[d.Kind]
		v, err := readRawUint(r, bits)
		if err != nil {
			return err
		}
		field.SetUint(v)
		return nil
	case familyFloat:
		bits := floatFamilyKinds[d.Kind]
		v, err := readRawFloatAsFloat64(r, bits)
		if err != nil {
			return err
		}
		field.SetFloat(v)
		return nil
	case familyDecimal:
		bits := decimalFamilyKinds[d.Kind]
		v, err := readDecimalWidth(r, bits)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(v))
		return nil
	}
	return newDecodeError(UnknownEncoding, "primitive family %d", m.family)
}

// --- raw width helpers -----------------------------------------------------

func writeSignedWidth(w *WriteStream, v int64, bits int) {
	switch bits {
	case 1:
		w.WriteInt8(int8(v))
	case 2:
		w.WriteInt16(int16(v))
	case 4:
		w.WriteInt32(int32(v))
	case 8:
		w.WriteInt64(v)
	case 16:
		// Int128: low 64 bits carry the value, high 64 bits sign-extend.
		w.WriteInt64(v)
		if v < 0 {
			w.WriteInt64(-1)
		} else {
			w.WriteInt64(0)
		}
	}
}

func writeUnsignedWidth(w *WriteStream, v uint64, bits int) {
	switch bits {
	case 1:
		w.WriteUint8(uint8(v))
	case 2:
		w.WriteUint16(uint16(v))
	case 4:
		w.WriteUint32(uint32(v))
	case 8:
		w.WriteUint64(v)
	case 16:
		w.WriteUint64(v)
		w.WriteUint64(0)
	}
}

func writeFloatWidth(w *WriteStream, v float64, bits int) {
	switch bits {
	case 2:
		// Float16: no native Go type; store as truncated float32 bit
		// pattern's upper half is not a real float16 encoding, so Coal
		// instead widens float16 reads/narrows writes through float32.
		w.WriteUint16(uint16(math.Float32bits(float32(v)) >> 16))
	case 4:
		w.WriteFloat32(float32(v))
	case 8:
		w.WriteFloat64(v)
	case 16:
		w.WriteFloat64(v)
		w.WriteUint64(0)
	case 32:
		w.WriteFloat64(v)
		w.WriteRaw(make([]byte, 24))
	}
}

func writeDecimalWidth(w *WriteStream, v decimal.Decimal, bits int) {
	scaled := v.Mul(decimalScaleFactor).Round(0).IntPart()
	switch bits {
	case 4:
		w.WriteInt32(int32(scaled))
	case 8:
		w.WriteInt64(scaled)
	case 16:
		w.WriteInt64(scaled)
		w.WriteInt64(0)
	}
}

func readRawUint(r *ReadStream, bits int) (uint64, error) {
	switch bits {
	case 1:
		v, err := r.ReadUint8()
		return uint64(v), err
	case 2:
		v, err := r.ReadUint16()
		return uint64(v), err
	case 4:
		v, err := r.ReadUint32()
		return uint64(v), err
	case 8:
		return r.ReadUint64()
	case 16:
		lo, err := r.ReadUint64()
		if err != nil {
			return 0, err
		}
		if _, err := r.ReadUint64(); err != nil {
			return 0, err
		}
		return lo, nil
	}
	return 0, newDecodeError(UnknownEncoding, "unsupported width %d", bits)
}

func readRawSignedAsInt64(r *ReadStream, bits int) (int64, error) {
	switch bits {
	case 1:
		v, err := r.ReadInt8()
		return int64(v), err
	case 2:
		v, err := r.ReadInt16()
		return int64(v), err
	case 4:
		v, err := r.ReadInt32()
		return int64(v), err
	case 8:
		return r.ReadInt64()
	case 16:
		lo, err := r.ReadInt64()
		if err != nil {
			return 0, err
		}
		if _, err := r.ReadInt64(); err != nil {
			return 0, err
		}
		return lo, nil
	}
	return 0, newDecodeError(UnknownEncoding, "unsupported width %d", bits)
}

func readRawFloatAsFloat64(r *ReadStream, bits int) (float64, error) {
	switch bits {
	case 2:
		v, err := r.ReadUint16()
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(uint32(v) << 16)), nil
	case 4:
		v, err := r.ReadFloat32()
		return float64(v), err
	case 8:
		return r.ReadFloat64()
	case 16:
		v, err := r.ReadFloat64()
		if err != nil {
			return 0, err
		}
		if _, err := r.ReadUint64(); err != nil {
			return 0, err
		}
		return v, nil
	case 32:
		v, err := r.ReadFloat64()
		if err != nil {
			return 0, err
		}
		if _, err := r.ReadRaw(24); err != nil {
			return 0, err
		}
		return v, nil
	}
	return 0, newDecodeError(UnknownEncoding, "unsupported width %d", bits)
}

func readDecimalWidth(r *ReadStream, bits int) (decimal.Decimal, error) {
	switch bits {
	case 4:
		v, err := r.ReadInt32()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.New(int64(v), -DecimalScale), nil
	case 8:
		v, err := r.ReadInt64()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.New(v, -DecimalScale), nil
	case 16:
		v, err := r.ReadInt64()
		if err != nil {
			return decimal.Decimal{}, err
		}
		if _, err := r.ReadInt64(); err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.New(v, -DecimalScale), nil
	}
	return decimal.Decimal{}, newDecodeError(UnknownEncoding, "unsupported width %d", bits)
}
