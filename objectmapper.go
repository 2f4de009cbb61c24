package coal

import "reflect"

// ObjectTypeMapper is the live-side object-class mapper: an aggregate and a
// reference target, optionally extending a supertype mapper.
type ObjectTypeMapper struct {
	baseMapper
	goType  reflect.Type // the struct type, not the pointer
	Super   *ObjectTypeMapper
	factory func() interface{} // returns a freshly allocated *T

	// superFieldIndex is the reflect.StructField.Index of this type's
	// anonymously embedded supertype struct, relative to goType. Every
	// recursion into Super rebases through it, so a multi-level hierarchy
	// (Dog embeds Mammal embeds Animal) cascades one level at a time.
	superFieldIndex []int
}

func newObjectTypeMapper(name string, goType reflect.Type, fields []*FieldDescription, super *ObjectTypeMapper, superFieldIndex []int) *ObjectTypeMapper {
	m := &ObjectTypeMapper{baseMapper: baseMapper{name: name, fields: fields}, goType: goType, Super: super, superFieldIndex: superFieldIndex}
	m.factory = func() interface{} {
		return reflect.New(goType).Interface()
	}
	return m
}

func (m *ObjectTypeMapper) IsObjectType() bool                 { return true }
func (m *ObjectTypeMapper) IsReferenceType() bool               { return false }
func (m *ObjectTypeMapper) IsAggregateType() bool               { return true }
func (m *ObjectTypeMapper) IsSerializationDependencyType() bool { return true }

// TypeMapperDependenciesDo yields the supertype mapper first (if any), then
// each field's mapper, all through WithTypeMapperDependenciesDo: a
// value-structure or object mapper is yielded itself, and a collection or
// reference mapper is replaced by the mappers it depends on.
func (m *ObjectTypeMapper) TypeMapperDependenciesDo(fn func(TypeMapper)) {
	if m.Super != nil {
		WithTypeMapperDependenciesDo(m.Super, fn)
	}
	for _, f := range m.fields {
		WithTypeMapperDependenciesDo(f.Mapper, fn)
	}
}

// ObjectReferencesInFieldDo is only meaningful through a reference mapper
// (object types are never embedded by value in Coal's Go binding); reaching
// an object mapper directly as a "field" mapper does not happen, so this is
// a no-op to satisfy the interface.
func (m *ObjectTypeMapper) ObjectReferencesInFieldDo(field reflect.Value, cache map[interface{}]*ObjectMapper, fn func(*ObjectMapper)) {
}

func (m *ObjectTypeMapper) PushFieldDataIntoBinaryBlob(field reflect.Value, blob *BinaryBlob) {}

func (m *ObjectTypeMapper) WriteFieldWith(field reflect.Value, w *WriteStream) {
	panic("coal: object mapper cannot be written as a field; use its reference mapper")
}

func (m *ObjectTypeMapper) CanReadFieldWithTypeDescriptor(d *TypeDescriptor, ctx *TypeDescriptorContext) bool {
	return false
}

func (m *ObjectTypeMapper) ReadFieldWith(field reflect.Value, d *TypeDescriptor, ctx *TypeDescriptorContext, r *ReadStream) error {
	panic("coal: object mapper cannot be read as a field; use its reference mapper")
}

func (m *ObjectTypeMapper) GetOrCreateTypeDescriptor(ctx *TypeDescriptorContext) *TypeDescriptor {
	return ctx.TypedObject(ctx.IndexOfCluster(m))
}

// ObjectReferencesInInstanceDo walks the supertype's own references first,
// then each field's mapper's ObjectReferencesInFieldDo, discovering every
// reachable reference without requiring the full object to be loaded.
func (m *ObjectTypeMapper) ObjectReferencesInInstanceDo(base reflect.Value, cache map[interface{}]*ObjectMapper, fn func(*ObjectMapper)) {
	if m.Super != nil {
		m.Super.ObjectReferencesInInstanceDo(base.FieldByIndex(m.superFieldIndex), cache, fn)
	}
	for _, f := range m.fields {
		f.Mapper.ObjectReferencesInFieldDo(f.Value(base), cache, fn)
	}
}

// WriteInstanceWith writes supertype fields first, then this mapper's own
// fields, in declared order. base is rebased through superFieldIndex before
// recursing, so each level of a multi-level hierarchy only ever sees the
// substruct shape it was registered with.
func (m *ObjectTypeMapper) WriteInstanceWith(base reflect.Value, w *WriteStream) {
	if m.Super != nil {
		m.Super.WriteInstanceWith(base.FieldByIndex(m.superFieldIndex), w)
	}
	for _, f := range m.fields {
		f.Mapper.WriteFieldWith(f.Value(base), w)
	}
}

// ObjectMaterializationMapper is the wire-side counterpart built while
// parsing a frame's cluster-descriptor section.
type ObjectMaterializationMapper struct {
	Name         string
	Supertype    *ObjectMaterializationMapper
	WireFields   []*MaterializationFieldDescription
	InstanceCount uint32
	resolvedLive *ObjectTypeMapper
}

func (m *ObjectMaterializationMapper) IsObjectType() bool { return true }

// ResolveTypeUsing binds m to a live object mapper.
func (m *ObjectMaterializationMapper) ResolveTypeUsing(live TypeMapper) {
	if live == nil {
		return
	}
	om, ok := live.(*ObjectTypeMapper)
	if !ok {
		return
	}
	m.resolvedLive = om
}

func (m *ObjectMaterializationMapper) ResolveTypeFields(ctx *TypeDescriptorContext) {
	if m.resolvedLive == nil {
		return
	}
	for _, wf := range m.WireFields {
		live := m.resolvedLive.FieldNamed(wf.Name)
		if live == nil {
			continue
		}
		if !live.Mapper.CanReadFieldWithTypeDescriptor(wf.Encoding, ctx) {
			continue
		}
		wf.TargetField = live
		wf.TargetMapper = live.Mapper
	}
}

// MakeInstance allocates a fresh *T via the resolved live type's factory,
// or returns nil (and ok=false) if the type never resolved.
func (m *ObjectMaterializationMapper) MakeInstance() (ptr interface{}, base reflect.Value, ok bool) {
	if m.resolvedLive == nil {
		return nil, reflect.Value{}, false
	}
	ptr = m.resolvedLive.factory()
	base, _ = WrapObject(ptr)
	return ptr, base, true
}

// ReadInstanceWith recurses into the supertype chain first, then reads this
// mapper's own fields in wire order, resolving references through r.
func (m *ObjectMaterializationMapper) ReadInstanceWith(base reflect.Value, r *ReadStream, ctx *TypeDescriptorContext) error {
	if m.Supertype != nil {
		superBase := base
		if m.resolvedLive != nil {
			superBase = base.FieldByIndex(m.resolvedLive.superFieldIndex)
		}
		if err := m.Supertype.ReadInstanceWith(superBase, r, ctx); err != nil {
			return err
		}
	}
	for _, wf := range m.WireFields {
		if wf.TargetField == nil {
			if err := wf.Encoding.SkipDataWith(r, ctx); err != nil {
				return err
			}
			continue
		}
		target := wf.TargetField.Value(base)
		if err := wf.TargetMapper.ReadFieldWith(target, wf.Encoding, ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// SkipInstanceWith consumes every field of this cluster (supertype fields
// first) without materializing any of them.
func (m *ObjectMaterializationMapper) SkipInstanceWith(r *ReadStream, ctx *TypeDescriptorContext) error {
	if m.Supertype != nil {
		if err := m.Supertype.SkipInstanceWith(r, ctx); err != nil {
			return err
		}
	}
	for _, wf := range m.WireFields {
		if err := wf.Encoding.SkipDataWith(r, ctx); err != nil {
			return err
		}
	}
	return nil
}
