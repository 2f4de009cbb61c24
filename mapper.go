package coal

import "reflect"

// TypeMapper is the polymorphic interface every mapper kind implements:
// primitive, value-structure, object, reference, and collection mappers on
// the live side, plus their materialization counterparts on the wire side.
type TypeMapper interface {
	Name() string
	IsObjectType() bool
	IsReferenceType() bool
	IsAggregateType() bool
	IsSerializationDependencyType() bool

	// TypeMapperDependenciesDo enumerates the mappers this one depends on
	// for tracing/registry-closure purposes (field types, element types,
	// supertype). It does not include the receiver itself; see
	// WithTypeMapperDependenciesDo.
	TypeMapperDependenciesDo(fn func(TypeMapper))

	// ObjectReferencesInFieldDo walks the live references reachable
	// through field (a field of this mapper's type), wrapping each in an
	// *ObjectMapper via cache so repeated pointers share one wrapper.
	ObjectReferencesInFieldDo(field reflect.Value, cache map[interface{}]*ObjectMapper, fn func(*ObjectMapper))

	WriteFieldWith(field reflect.Value, w *WriteStream)
	PushFieldDataIntoBinaryBlob(field reflect.Value, blob *BinaryBlob)
	CanReadFieldWithTypeDescriptor(d *TypeDescriptor, ctx *TypeDescriptorContext) bool
	ReadFieldWith(field reflect.Value, d *TypeDescriptor, ctx *TypeDescriptorContext, r *ReadStream) error
	GetOrCreateTypeDescriptor(ctx *TypeDescriptorContext) *TypeDescriptor
}

// WithTypeMapperDependenciesDo yields m itself when it is a
// serialization-dependency type (true for every value-structure and object
// mapper), leaving m's own dependencies to the caller; any other mapper
// (primitive, string, collection, reference) is passed through to its
// dependencies. Stopping at value-structure and object mappers keeps a type
// that refers back to itself, directly or through other types, from
// recursing forever.
func WithTypeMapperDependenciesDo(m TypeMapper, fn func(TypeMapper)) {
	if m.IsSerializationDependencyType() {
		fn(m)
		return
	}
	m.TypeMapperDependenciesDo(fn)
}

// FieldDescription is the live-type-side description of one field: its
// wire name, the mapper for its type, and the reflect path used to reach
// it from an addressable struct value.
type FieldDescription struct {
	Name   string
	Mapper TypeMapper
	Index  []int
}

// Value returns the addressable reflect.Value of this field within base,
// the struct value (not pointer) owning it.
func (f *FieldDescription) Value(base reflect.Value) reflect.Value {
	return base.FieldByIndex(f.Index)
}

// MaterializationFieldDescription is the wire-side description of one
// field as parsed from a value-type or cluster descriptor: its name, its
// wire encoding, and (once resolved) the live field/mapper it feeds.
type MaterializationFieldDescription struct {
	Name         string
	Encoding     *TypeDescriptor
	TargetField  *FieldDescription
	TargetMapper TypeMapper
}

// baseMapper holds the bits every concrete mapper needs and never varies
// per-kind: its name and field list. Concrete mapper types embed it.
type baseMapper struct {
	name   string
	fields []*FieldDescription
}

func (m *baseMapper) Name() string                    { return m.name }
func (m *baseMapper) FieldNamed(name string) *FieldDescription {
	for _, f := range m.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}
