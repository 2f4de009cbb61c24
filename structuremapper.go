package coal

import "reflect"

// StructureTypeMapper is the live-side value-structure mapper: an aggregate,
// not a reference type, and a serialization dependency (it must be
// registered into the value-type table whenever any field reaches it).
type StructureTypeMapper struct {
	baseMapper
	goType reflect.Type
}

func newStructureTypeMapper(name string, goType reflect.Type, fields []*FieldDescription) *StructureTypeMapper {
	return &StructureTypeMapper{baseMapper: baseMapper{name: name, fields: fields}, goType: goType}
}

func (m *StructureTypeMapper) IsObjectType() bool                 { return false }
func (m *StructureTypeMapper) IsReferenceType() bool               { return false }
func (m *StructureTypeMapper) IsAggregateType() bool               { return true }
func (m *StructureTypeMapper) IsSerializationDependencyType() bool { return true }

// TypeMapperDependenciesDo yields each field's mapper through
// WithTypeMapperDependenciesDo: a value-structure or object field mapper is
// yielded itself, and a collection or reference field mapper is replaced by
// the mappers it depends on.
func (m *StructureTypeMapper) TypeMapperDependenciesDo(fn func(TypeMapper)) {
	for _, f := range m.fields {
		WithTypeMapperDependenciesDo(f.Mapper, fn)
	}
}

// ObjectReferencesInFieldDo walks into a value-structure field's own fields
// looking for reference types nested inside, since a struct value can hold
// pointers without itself being a reference type.
func (m *StructureTypeMapper) ObjectReferencesInFieldDo(field reflect.Value, cache map[interface{}]*ObjectMapper, fn func(*ObjectMapper)) {
	for _, f := range m.fields {
		f.Mapper.ObjectReferencesInFieldDo(f.Value(field), cache, fn)
	}
}

// PushFieldDataIntoBinaryBlob recursively primes every field's blob data.
func (m *StructureTypeMapper) PushFieldDataIntoBinaryBlob(field reflect.Value, blob *BinaryBlob) {
	for _, f := range m.fields {
		f.Mapper.PushFieldDataIntoBinaryBlob(f.Value(field), blob)
	}
}

// WriteInstanceWith writes every field of field (a value of m.goType) in
// declared order, each through its own mapper.
func (m *StructureTypeMapper) WriteInstanceWith(field reflect.Value, w *WriteStream) {
	for _, f := range m.fields {
		f.Mapper.WriteFieldWith(f.Value(field), w)
	}
}

func (m *StructureTypeMapper) WriteFieldWith(field reflect.Value, w *WriteStream) {
	m.WriteInstanceWith(field, w)
}

// CanReadFieldWithTypeDescriptor accepts Struct(index) only when the
// indexed value-type layout's materialization mapper resolves back to m.
func (m *StructureTypeMapper) CanReadFieldWithTypeDescriptor(d *TypeDescriptor, ctx *TypeDescriptorContext) bool {
	if d.Kind != KindStruct {
		return false
	}
	mat := ctx.valueTypeMaterializationAt(int(d.Index))
	return mat != nil && mat.resolvedLive == m
}

// ReadFieldWith delegates to the Struct(index)'s materialization mapper so
// that wire-ordered reading drives field-by-field coercion.
func (m *StructureTypeMapper) ReadFieldWith(field reflect.Value, d *TypeDescriptor, ctx *TypeDescriptorContext, r *ReadStream) error {
	mat := ctx.valueTypeMaterializationAt(int(d.Index))
	return mat.ReadInstanceWith(field, r, ctx)
}

func (m *StructureTypeMapper) GetOrCreateTypeDescriptor(ctx *TypeDescriptorContext) *TypeDescriptor {
	return ctx.Struct(ctx.IndexOfValueType(m))
}

// StructureMaterializationMapper is the wire-side counterpart built while
// parsing a frame's value-type-layout section: the wire name plus the wire
// field list, later resolved against a live StructureTypeMapper.
type StructureMaterializationMapper struct {
	Name         string
	WireFields   []*MaterializationFieldDescription
	resolvedLive *StructureTypeMapper
}

func (m *StructureMaterializationMapper) IsObjectType() bool { return false }

// ResolveTypeUsing binds m to a live mapper, which must be a
// non-object, non-reference aggregate (a StructureTypeMapper).
func (m *StructureMaterializationMapper) ResolveTypeUsing(live TypeMapper) {
	if live == nil {
		return
	}
	if live.IsObjectType() {
		return
	}
	sm, ok := live.(*StructureTypeMapper)
	if !ok {
		return
	}
	m.resolvedLive = sm
}

// ResolveTypeFields matches each wire field, by name, against the resolved
// live type's field list, keeping the match only if the live field's
// mapper accepts the wire encoding.
func (m *StructureMaterializationMapper) ResolveTypeFields(ctx *TypeDescriptorContext) {
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

// ReadInstanceWith reads every wire field in wire order into field (a value
// of the resolved live Go type), skipping fields with no resolved target.
func (m *StructureMaterializationMapper) ReadInstanceWith(field reflect.Value, r *ReadStream, ctx *TypeDescriptorContext) error {
	for _, wf := range m.WireFields {
		if wf.TargetField == nil {
			if err := wf.Encoding.SkipDataWith(r, ctx); err != nil {
				return err
			}
			continue
		}
		target := wf.TargetField.Value(field)
		if err := wf.TargetMapper.ReadFieldWith(target, wf.Encoding, ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// SkipInstanceWith consumes every wire field's bytes without materializing
// any of them, used when a Struct(index) field has no live target at all.
func (m *StructureMaterializationMapper) SkipInstanceWith(r *ReadStream, ctx *TypeDescriptorContext) error {
	for _, wf := range m.WireFields {
		if err := wf.Encoding.SkipDataWith(r, ctx); err != nil {
			return err
		}
	}
	return nil
}
