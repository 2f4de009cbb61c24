package coal

import "reflect"

// collectionKind distinguishes the four concrete Go container shapes bound
// to Coal's composite wire kinds: slice, map, set-as-map[struct{}], and
// fixed-size array.
type collectionKind int

const (
	collectionArray collectionKind = iota
	collectionSet
	collectionMap
	collectionFixedArray
)

// collectionTypeMapper is one TypeMapper implementation covering every
// collection shape; element/key/value mappers are delegated to.
type collectionTypeMapper struct {
	baseMapper
	kind      collectionKind
	elem      TypeMapper // array, set, fixed-array: element mapper
	key       TypeMapper // map: key mapper
	value     TypeMapper // map: value mapper
	fixedSize int        // fixed-array: element count
	goType    reflect.Type
}

func newArrayCollectionMapper(elem TypeMapper) *collectionTypeMapper {
	return &collectionTypeMapper{baseMapper: baseMapper{name: "Array<" + elem.Name() + ">"}, kind: collectionArray, elem: elem}
}

func newSetCollectionMapper(elem TypeMapper) *collectionTypeMapper {
	return &collectionTypeMapper{baseMapper: baseMapper{name: "Set<" + elem.Name() + ">"}, kind: collectionSet, elem: elem}
}

func newMapCollectionMapper(key, value TypeMapper) *collectionTypeMapper {
	return &collectionTypeMapper{baseMapper: baseMapper{name: "Map<" + key.Name() + "," + value.Name() + ">"}, kind: collectionMap, key: key, value: value}
}

func newFixedArrayCollectionMapper(size int, elem TypeMapper) *collectionTypeMapper {
	return &collectionTypeMapper{baseMapper: baseMapper{name: "FixedArray<" + elem.Name() + ">"}, kind: collectionFixedArray, elem: elem, fixedSize: size}
}

func (m *collectionTypeMapper) IsObjectType() bool                 { return false }
func (m *collectionTypeMapper) IsReferenceType() bool               { return false }
func (m *collectionTypeMapper) IsAggregateType() bool               { return true }
func (m *collectionTypeMapper) IsSerializationDependencyType() bool { return false }

func (m *collectionTypeMapper) TypeMapperDependenciesDo(fn func(TypeMapper)) {
	switch m.kind {
	case collectionMap:
		WithTypeMapperDependenciesDo(m.key, fn)
		WithTypeMapperDependenciesDo(m.value, fn)
	default:
		WithTypeMapperDependenciesDo(m.elem, fn)
	}
}

// ObjectReferencesInFieldDo walks every element (or key and value) looking
// for reference types nested inside the container.
func (m *collectionTypeMapper) ObjectReferencesInFieldDo(field reflect.Value, cache map[interface{}]*ObjectMapper, fn func(*ObjectMapper)) {
	switch m.kind {
	case collectionArray, collectionFixedArray:
		for i := 0; i < field.Len(); i++ {
			m.elem.ObjectReferencesInFieldDo(field.Index(i), cache, fn)
		}
	case collectionSet:
		iter := field.MapRange()
		for iter.Next() {
			m.elem.ObjectReferencesInFieldDo(iter.Key(), cache, fn)
		}
	case collectionMap:
		iter := field.MapRange()
		for iter.Next() {
			m.key.ObjectReferencesInFieldDo(iter.Key(), cache, fn)
			m.value.ObjectReferencesInFieldDo(iter.Value(), cache, fn)
		}
	}
}

// PushFieldDataIntoBinaryBlob recurses into every element (or key/value).
func (m *collectionTypeMapper) PushFieldDataIntoBinaryBlob(field reflect.Value, blob *BinaryBlob) {
	switch m.kind {
	case collectionArray, collectionFixedArray:
		for i := 0; i < field.Len(); i++ {
			m.elem.PushFieldDataIntoBinaryBlob(field.Index(i), blob)
		}
	case collectionSet:
		iter := field.MapRange()
		for iter.Next() {
			m.elem.PushFieldDataIntoBinaryBlob(iter.Key(), blob)
		}
	case collectionMap:
		iter := field.MapRange()
		for iter.Next() {
			m.key.PushFieldDataIntoBinaryBlob(iter.Key(), blob)
			m.value.PushFieldDataIntoBinaryBlob(iter.Value(), blob)
		}
	}
}

// WriteFieldWith writes the count (width 32 for array/set/map; omitted for
// FixedArray, whose size is fixed by the descriptor) then every element.
func (m *collectionTypeMapper) WriteFieldWith(field reflect.Value, w *WriteStream) {
	switch m.kind {
	case collectionFixedArray:
		for i := 0; i < field.Len(); i++ {
			m.elem.WriteFieldWith(field.Index(i), w)
		}
	case collectionArray:
		w.WriteUint32(uint32(field.Len()))
		for i := 0; i < field.Len(); i++ {
			m.elem.WriteFieldWith(field.Index(i), w)
		}
	case collectionSet:
		w.WriteUint32(uint32(field.Len()))
		iter := field.MapRange()
		for iter.Next() {
			m.elem.WriteFieldWith(iter.Key(), w)
		}
	case collectionMap:
		w.WriteUint32(uint32(field.Len()))
		iter := field.MapRange()
		for iter.Next() {
			m.key.WriteFieldWith(iter.Key(), w)
			m.value.WriteFieldWith(iter.Value(), w)
		}
	}
}

// CanReadFieldWithTypeDescriptor accepts a wire collection of the same shape
// whose element (or key and value) encoding the element (or key and value)
// mapper accepts, so a collection with incompatible elements is skipped as a
// whole field.
func (m *collectionTypeMapper) CanReadFieldWithTypeDescriptor(d *TypeDescriptor, ctx *TypeDescriptorContext) bool {
	switch m.kind {
	case collectionFixedArray:
		return d.Kind == KindFixedArray && m.elem.CanReadFieldWithTypeDescriptor(d.Element, ctx)
	case collectionArray:
		switch d.Kind {
		case KindArray8, KindArray16, KindArray32:
			return m.elem.CanReadFieldWithTypeDescriptor(d.Element, ctx)
		}
		return false
	case collectionSet:
		switch d.Kind {
		case KindSet8, KindSet16, KindSet32:
			return m.elem.CanReadFieldWithTypeDescriptor(d.Element, ctx)
		}
		return false
	case collectionMap:
		switch d.Kind {
		case KindMap8, KindMap16, KindMap32:
			return m.key.CanReadFieldWithTypeDescriptor(d.Key, ctx) && m.value.CanReadFieldWithTypeDescriptor(d.Value, ctx)
		}
		return false
	}
	return false
}

// ReadFieldWith sizes the destination up front (when the Go type is a
// slice/map and thus growable) then reads each element/pair, inserting as
// it goes. For FixedArray the destination's size is fixed by the Go type;
// excess wire elements are skipped, missing ones leave zero values.
func (m *collectionTypeMapper) ReadFieldWith(field reflect.Value, d *TypeDescriptor, ctx *TypeDescriptorContext, r *ReadStream) error {
	switch m.kind {
	case collectionFixedArray:
		for i := uint32(0); i < d.Size; i++ {
			if int(i) < field.Len() {
				if err := m.elem.ReadFieldWith(field.Index(int(i)), d.Element, ctx, r); err != nil {
					return err
				}
			} else if err := d.Element.SkipDataWith(r, ctx); err != nil {
				return err
			}
		}
		return nil
	case collectionArray:
		count, err := r.readWidth(countWidthOf(d.Kind))
		if err != nil {
			return err
		}
		slice := reflect.MakeSlice(field.Type(), int(count), int(count))
		for i := uint64(0); i < count; i++ {
			if err := m.elem.ReadFieldWith(slice.Index(int(i)), d.Element, ctx, r); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	case collectionSet:
		count, err := r.readWidth(countWidthOf(d.Kind))
		if err != nil {
			return err
		}
		mp := reflect.MakeMapWithSize(field.Type(), int(count))
		elemType := field.Type().Key()
		for i := uint64(0); i < count; i++ {
			k := reflect.New(elemType).Elem()
			if err := m.elem.ReadFieldWith(k, d.Element, ctx, r); err != nil {
				return err
			}
			mp.SetMapIndex(k, reflect.Zero(field.Type().Elem()))
		}
		field.Set(mp)
		return nil
	case collectionMap:
		count, err := r.readWidth(countWidthOf(d.Kind))
		if err != nil {
			return err
		}
		mp := reflect.MakeMapWithSize(field.Type(), int(count))
		keyType := field.Type().Key()
		valueType := field.Type().Elem()
		for i := uint64(0); i < count; i++ {
			k := reflect.New(keyType).Elem()
			if err := m.key.ReadFieldWith(k, d.Key, ctx, r); err != nil {
				return err
			}
			v := reflect.New(valueType).Elem()
			if err := m.value.ReadFieldWith(v, d.Value, ctx, r); err != nil {
				return err
			}
			mp.SetMapIndex(k, v)
		}
		field.Set(mp)
		return nil
	}
	return newDecodeError(UnknownEncoding, "collection kind %d", m.kind)
}

func (m *collectionTypeMapper) GetOrCreateTypeDescriptor(ctx *TypeDescriptorContext) *TypeDescriptor {
	switch m.kind {
	case collectionFixedArray:
		return ctx.FixedArray(uint32(m.fixedSize), m.elem.GetOrCreateTypeDescriptor(ctx))
	case collectionArray:
		return ctx.Array(KindArray32, m.elem.GetOrCreateTypeDescriptor(ctx))
	case collectionSet:
		return ctx.Array(KindSet32, m.elem.GetOrCreateTypeDescriptor(ctx))
	case collectionMap:
		return ctx.Map(KindMap32, m.key.GetOrCreateTypeDescriptor(ctx), m.value.GetOrCreateTypeDescriptor(ctx))
	}
	panic("coal: unhandled collection kind")
}
