package coal

import "fmt"

// TypeDescriptorKind is the single-byte wire tag identifying an encoding.
type TypeDescriptorKind uint8

// Primitive range: tags below PrimitiveTypeDescriptorCount.
const (
	KindObject TypeDescriptorKind = iota
	KindBoolean8
	KindBoolean16
	KindBoolean32
	KindBoolean64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindUInt128
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindFloat16
	KindFloat32
	KindFloat64
	KindFloat128
	KindFloat256
	KindDecimal32
	KindDecimal64
	KindDecimal128
	KindChar8
	KindChar16
	KindChar32
	KindBinary_32_8
	KindBinary_32_16
	KindBinary_32_32
	KindUTF8_32_8
	KindUTF8_32_16
	KindUTF8_32_32
	KindUTF16_32_8
	KindUTF16_32_16
	KindUTF16_32_32
	KindUTF32_32_8
	KindUTF32_32_16
	KindUTF32_32_32
	KindBigInt_32_8
	KindBigInt_32_16
	KindBigInt_32_32
	KindFixed16_16
	KindFixed16_16_Sat
	// PrimitiveTypeDescriptorCount is the number of primitive kinds; every
	// tag below it is primitive-only and never carries extra wire data.
	PrimitiveTypeDescriptorCount
)

// Composite range: tags at or above 0x80.
const (
	KindStruct      TypeDescriptorKind = 0x80
	KindTypedObject TypeDescriptorKind = 0x81
	KindFixedArray  TypeDescriptorKind = 0x82
	KindArray8      TypeDescriptorKind = 0x83
	KindArray16     TypeDescriptorKind = 0x84
	KindArray32     TypeDescriptorKind = 0x85
	KindSet8        TypeDescriptorKind = 0x86
	KindSet16       TypeDescriptorKind = 0x87
	KindSet32       TypeDescriptorKind = 0x88
	KindMap8        TypeDescriptorKind = 0x89
	KindMap16       TypeDescriptorKind = 0x8A
	KindMap32       TypeDescriptorKind = 0x8B
)

func (k TypeDescriptorKind) IsPrimitive() bool { return k < PrimitiveTypeDescriptorCount }

// TypeDescriptor is the wire-level description of a field's layout.
// Primitive kinds carry no extra data; composite kinds use the fields
// relevant to their kind.
type TypeDescriptor struct {
	Kind    TypeDescriptorKind
	Index   uint32          // Struct / TypedObject: 0-based index into the value-type / cluster table
	Size    uint32          // FixedArray: element count
	Element *TypeDescriptor // FixedArray / ArrayK / SetK
	Key     *TypeDescriptor // MapK
	Value   *TypeDescriptor // MapK
}

func (d *TypeDescriptor) cacheKey() string {
	switch {
	case d.Kind.IsPrimitive():
		return fmt.Sprintf("p%d", d.Kind)
	case d.Kind == KindStruct || d.Kind == KindTypedObject:
		return fmt.Sprintf("%d:%d", d.Kind, d.Index)
	case d.Kind == KindFixedArray:
		return fmt.Sprintf("%d:%d:%s", d.Kind, d.Size, d.Element.cacheKey())
	case d.Kind == KindArray8, d.Kind == KindArray16, d.Kind == KindArray32,
		d.Kind == KindSet8, d.Kind == KindSet16, d.Kind == KindSet32:
		return fmt.Sprintf("%d:%s", d.Kind, d.Element.cacheKey())
	case d.Kind == KindMap8, d.Kind == KindMap16, d.Kind == KindMap32:
		return fmt.Sprintf("%d:%s:%s", d.Kind, d.Key.cacheKey(), d.Value.cacheKey())
	default:
		return fmt.Sprintf("?%d", d.Kind)
	}
}

// TypeDescriptorContext caches descriptor objects so that identical
// composites collapse to one instance, and tracks how many value-types and
// clusters are known so far while parsing a frame (so Struct/TypedObject
// indices can be bounds-checked as they're read).
type TypeDescriptorContext struct {
	cache          map[string]*TypeDescriptor
	ValueTypeCount int
	ClusterCount   int

	// valueTypes and clusters back Struct(index)/TypedObject(index)
	// resolution while wire fields are matched, read and skipped; populated by the deserializer as
	// value-type and cluster descriptors are parsed.
	valueTypes []*StructureMaterializationMapper
	clusters   []*ObjectMaterializationMapper

	// valueTypeIndex and clusterIndex assign write-side, 0-based indices to
	// live mappers the first time the serializer asks for their descriptor.
	valueTypeIndex map[TypeMapper]int
	clusterIndex   map[TypeMapper]int
}

// IndexOfValueType returns the 0-based value-type index assigned to m,
// assigning the next free one on first use.
func (ctx *TypeDescriptorContext) IndexOfValueType(m TypeMapper) uint32 {
	if ctx.valueTypeIndex == nil {
		ctx.valueTypeIndex = make(map[TypeMapper]int)
	}
	if idx, ok := ctx.valueTypeIndex[m]; ok {
		return uint32(idx)
	}
	idx := len(ctx.valueTypeIndex)
	ctx.valueTypeIndex[m] = idx
	ctx.ValueTypeCount = len(ctx.valueTypeIndex)
	return uint32(idx)
}

// RegisterValueTypeIndex records idx as the stable value-type index for m,
// used by the serializer to keep the write-side index assignment in lockstep
// with the order value types are appended to the emitted layout section.
func (ctx *TypeDescriptorContext) RegisterValueTypeIndex(m TypeMapper, idx uint32) {
	if ctx.valueTypeIndex == nil {
		ctx.valueTypeIndex = make(map[TypeMapper]int)
	}
	ctx.valueTypeIndex[m] = int(idx)
	if int(idx)+1 > ctx.ValueTypeCount {
		ctx.ValueTypeCount = int(idx) + 1
	}
}

// RegisterClusterIndex records idx as the stable cluster index for m, kept
// in lockstep with SerializationCluster.Index so that TypedObject(index)
// descriptors agree with the cluster table's own instance-assignment order.
func (ctx *TypeDescriptorContext) RegisterClusterIndex(m TypeMapper, idx uint32) {
	if ctx.clusterIndex == nil {
		ctx.clusterIndex = make(map[TypeMapper]int)
	}
	ctx.clusterIndex[m] = int(idx)
	if int(idx)+1 > ctx.ClusterCount {
		ctx.ClusterCount = int(idx) + 1
	}
}

// IndexOfCluster returns the 0-based cluster index assigned to m, assigning
// the next free one on first use.
func (ctx *TypeDescriptorContext) IndexOfCluster(m TypeMapper) uint32 {
	if ctx.clusterIndex == nil {
		ctx.clusterIndex = make(map[TypeMapper]int)
	}
	if idx, ok := ctx.clusterIndex[m]; ok {
		return uint32(idx)
	}
	idx := len(ctx.clusterIndex)
	ctx.clusterIndex[m] = idx
	ctx.ClusterCount = len(ctx.clusterIndex)
	return uint32(idx)
}

// SetValueTypeMaterializations installs the parsed value-type-layout
// materializations, in value-type section order, for Struct(index) resolution.
func (ctx *TypeDescriptorContext) SetValueTypeMaterializations(mats []*StructureMaterializationMapper) {
	ctx.valueTypes = mats
	ctx.ValueTypeCount = len(mats)
}

// SetClusterMaterializations installs the parsed cluster-description
// materializations, in wire order, for TypedObject(index) resolution.
func (ctx *TypeDescriptorContext) SetClusterMaterializations(mats []*ObjectMaterializationMapper) {
	ctx.clusters = mats
	ctx.ClusterCount = len(mats)
}

func (ctx *TypeDescriptorContext) valueTypeMaterializationAt(index int) *StructureMaterializationMapper {
	return ctx.valueTypes[index]
}

func (ctx *TypeDescriptorContext) clusterMaterializationAt(index int) *ObjectMaterializationMapper {
	return ctx.clusters[index]
}

// NewTypeDescriptorContext returns a context with the primitive descriptors
// pre-populated.
func NewTypeDescriptorContext() *TypeDescriptorContext {
	ctx := &TypeDescriptorContext{cache: make(map[string]*TypeDescriptor)}
	for k := TypeDescriptorKind(0); k < PrimitiveTypeDescriptorCount; k++ {
		d := &TypeDescriptor{Kind: k}
		ctx.cache[d.cacheKey()] = d
	}
	return ctx
}

func (ctx *TypeDescriptorContext) intern(d *TypeDescriptor) *TypeDescriptor {
	key := d.cacheKey()
	if existing, ok := ctx.cache[key]; ok {
		return existing
	}
	ctx.cache[key] = d
	return d
}

func (ctx *TypeDescriptorContext) Primitive(k TypeDescriptorKind) *TypeDescriptor {
	return ctx.cache[(&TypeDescriptor{Kind: k}).cacheKey()]
}

func (ctx *TypeDescriptorContext) Struct(index uint32) *TypeDescriptor {
	return ctx.intern(&TypeDescriptor{Kind: KindStruct, Index: index})
}

func (ctx *TypeDescriptorContext) TypedObject(index uint32) *TypeDescriptor {
	return ctx.intern(&TypeDescriptor{Kind: KindTypedObject, Index: index})
}

func (ctx *TypeDescriptorContext) FixedArray(size uint32, element *TypeDescriptor) *TypeDescriptor {
	return ctx.intern(&TypeDescriptor{Kind: KindFixedArray, Size: size, Element: element})
}

func (ctx *TypeDescriptorContext) Array(kind TypeDescriptorKind, element *TypeDescriptor) *TypeDescriptor {
	return ctx.intern(&TypeDescriptor{Kind: kind, Element: element})
}

func (ctx *TypeDescriptorContext) Map(kind TypeDescriptorKind, key, value *TypeDescriptor) *TypeDescriptor {
	return ctx.intern(&TypeDescriptor{Kind: kind, Key: key, Value: value})
}

func countWidthOf(kind TypeDescriptorKind) int {
	switch kind {
	case KindArray8, KindSet8, KindMap8:
		return 8
	case KindArray16, KindSet16, KindMap16:
		return 16
	default:
		return 32
	}
}

// WriteDescription writes d's wire encoding: a tag byte for primitives,
// tag plus index for Struct/TypedObject, tag plus nested descriptors for
// composites.
func (d *TypeDescriptor) WriteDescription(w *WriteStream) {
	w.WriteUint8(uint8(d.Kind))
	switch d.Kind {
	case KindStruct, KindTypedObject:
		w.WriteUint32(d.Index)
	case KindFixedArray:
		w.WriteUint32(d.Size)
		d.Element.WriteDescription(w)
	case KindArray8, KindArray16, KindArray32, KindSet8, KindSet16, KindSet32:
		d.Element.WriteDescription(w)
	case KindMap8, KindMap16, KindMap32:
		d.Key.WriteDescription(w)
		d.Value.WriteDescription(w)
	}
}

// ReadDescription reads a tag and, for composite kinds, their extra wire
// data, validating Struct/TypedObject indices against what's known so far.
func (ctx *TypeDescriptorContext) ReadDescription(r *ReadStream) (*TypeDescriptor, error) {
	tagByte, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	kind := TypeDescriptorKind(tagByte)

	if kind.IsPrimitive() {
		d := ctx.Primitive(kind)
		if d == nil {
			return nil, newDecodeError(UnknownEncoding, "primitive tag 0x%02x", tagByte)
		}
		return d, nil
	}

	switch kind {
	case KindStruct:
		index, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if int(index) >= ctx.ValueTypeCount {
			return nil, newDecodeError(UnknownEncoding, "Struct index %d out of range (%d known)", index, ctx.ValueTypeCount)
		}
		return ctx.Struct(index), nil
	case KindTypedObject:
		index, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if int(index) >= ctx.ClusterCount {
			return nil, newDecodeError(UnknownEncoding, "TypedObject index %d out of range (%d known)", index, ctx.ClusterCount)
		}
		return ctx.TypedObject(index), nil
	case KindFixedArray:
		size, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		elem, err := ctx.ReadDescription(r)
		if err != nil {
			return nil, err
		}
		return ctx.FixedArray(size, elem), nil
	case KindArray8, KindArray16, KindArray32, KindSet8, KindSet16, KindSet32:
		elem, err := ctx.ReadDescription(r)
		if err != nil {
			return nil, err
		}
		return ctx.Array(kind, elem), nil
	case KindMap8, KindMap16, KindMap32:
		key, err := ctx.ReadDescription(r)
		if err != nil {
			return nil, err
		}
		value, err := ctx.ReadDescription(r)
		if err != nil {
			return nil, err
		}
		return ctx.Map(kind, key, value), nil
	default:
		return nil, newDecodeError(UnknownEncoding, "tag 0x%02x", tagByte)
	}
}

// primitiveSkipSize gives the fixed number of bytes an instance of a
// primitive, non-blob-backed encoding occupies. Variable-length primitives
// (Binary/UTF8/UTF16/UTF32/BigInt) are handled separately since their
// in-stream footprint is just the (offset, size) pair, not the payload.
var primitiveSkipSize = map[TypeDescriptorKind]int{
	KindObject:          4, // untyped reference: 1-based instance index
	KindBoolean8:        1,
	KindBoolean16:       2,
	KindBoolean32:       4,
	KindBoolean64:       8,
	KindUInt8:           1,
	KindUInt16:          2,
	KindUInt32:          4,
	KindUInt64:          8,
	KindUInt128:         16,
	KindInt8:            1,
	KindInt16:           2,
	KindInt32:           4,
	KindInt64:           8,
	KindInt128:          16,
	KindFloat16:         2,
	KindFloat32:         4,
	KindFloat64:         8,
	KindFloat128:        16,
	KindFloat256:        32,
	KindDecimal32:       4,
	KindDecimal64:       8,
	KindDecimal128:      16,
	KindChar8:           1,
	KindChar16:          2,
	KindChar32:          4,
	KindFixed16_16:      4,
	KindFixed16_16_Sat:  4,
}

// SkipDataWith consumes exactly the bytes an instance of d's encoding would
// occupy, without materializing it, so an unresolved field leaves the
// stream aligned for the next one.
func (d *TypeDescriptor) SkipDataWith(r *ReadStream, ctx *TypeDescriptorContext) error {
	if size, ok := primitiveSkipSize[d.Kind]; ok {
		_, err := r.ReadRaw(size)
		return err
	}

	switch d.Kind {
	case KindBinary_32_8, KindUTF8_32_8, KindUTF16_32_8, KindUTF32_32_8, KindBigInt_32_8:
		_, _, err := r.ReadBlobRef(8)
		return err
	case KindBinary_32_16, KindUTF8_32_16, KindUTF16_32_16, KindUTF32_32_16, KindBigInt_32_16:
		_, _, err := r.ReadBlobRef(16)
		return err
	case KindBinary_32_32, KindUTF8_32_32, KindUTF16_32_32, KindUTF32_32_32, KindBigInt_32_32:
		_, _, err := r.ReadBlobRef(32)
		return err
	case KindStruct:
		mapper := ctx.valueTypeMaterializationAt(int(d.Index))
		return mapper.SkipInstanceWith(r, ctx)
	case KindTypedObject:
		_, err := r.ReadInstanceReference()
		return err
	case KindFixedArray:
		for i := uint32(0); i < d.Size; i++ {
			if err := d.Element.SkipDataWith(r, ctx); err != nil {
				return err
			}
		}
		return nil
	case KindArray8, KindArray16, KindArray32, KindSet8, KindSet16, KindSet32:
		count, err := r.readWidth(countWidthOf(d.Kind))
		if err != nil {
			return err
		}
		for i := uint64(0); i < count; i++ {
			if err := d.Element.SkipDataWith(r, ctx); err != nil {
				return err
			}
		}
		return nil
	case KindMap8, KindMap16, KindMap32:
		count, err := r.readWidth(countWidthOf(d.Kind))
		if err != nil {
			return err
		}
		for i := uint64(0); i < count; i++ {
			if err := d.Key.SkipDataWith(r, ctx); err != nil {
				return err
			}
			if err := d.Value.SkipDataWith(r, ctx); err != nil {
				return err
			}
		}
		return nil
	default:
		return newDecodeError(UnknownEncoding, "cannot skip kind %d", d.Kind)
	}
}
