package coal

import "reflect"

// referenceTypeMapper is the smart-handle mapper for *T where T is a
// registered object class. It is not an aggregate itself; it is written as
// TypedObject(index) referring to the pointee's cluster.
type referenceTypeMapper struct {
	baseMapper
	Pointee *ObjectTypeMapper
}

func newReferenceTypeMapper(pointee *ObjectTypeMapper) *referenceTypeMapper {
	return &referenceTypeMapper{baseMapper: baseMapper{name: pointee.Name() + "Ref"}, Pointee: pointee}
}

func (m *referenceTypeMapper) IsObjectType() bool                 { return false }
func (m *referenceTypeMapper) IsReferenceType() bool               { return true }
func (m *referenceTypeMapper) IsAggregateType() bool               { return false }
func (m *referenceTypeMapper) IsSerializationDependencyType() bool { return false }

// TypeMapperDependenciesDo yields the pointee object mapper, which is how a
// reference field drags its target class into a registry's closure.
func (m *referenceTypeMapper) TypeMapperDependenciesDo(fn func(TypeMapper)) {
	WithTypeMapperDependenciesDo(m.Pointee, fn)
}

// ObjectReferencesInFieldDo wraps field (a *T, possibly nil) into the
// object-mapper cache and yields it; this is the one place new references
// enter the tracer's worklist.
func (m *referenceTypeMapper) ObjectReferencesInFieldDo(field reflect.Value, cache map[interface{}]*ObjectMapper, fn func(*ObjectMapper)) {
	if field.IsNil() {
		return
	}
	ptr := field.Interface()
	om, ok := cache[ptr]
	if !ok {
		base, _ := WrapObject(ptr)
		om = &ObjectMapper{ptr: ptr, base: base, typeMapper: m.Pointee}
		cache[ptr] = om
	}
	fn(om)
}

func (m *referenceTypeMapper) PushFieldDataIntoBinaryBlob(field reflect.Value, blob *BinaryBlob) {}

// WriteFieldWith looks up the pointee's assigned cluster index through the
// write stream's object-reference table (1-based; 0 for nil or unseen).
func (m *referenceTypeMapper) WriteFieldWith(field reflect.Value, w *WriteStream) {
	if field.IsNil() {
		w.WriteObjectPointerAsReference(nil)
		return
	}
	w.WriteObjectPointerAsReference(field.Interface())
}

func (m *referenceTypeMapper) CanReadFieldWithTypeDescriptor(d *TypeDescriptor, ctx *TypeDescriptorContext) bool {
	if d.Kind == KindObject {
		return true
	}
	if d.Kind != KindTypedObject {
		return false
	}
	cluster := ctx.clusterMaterializationAt(int(d.Index))
	return cluster != nil && cluster.resolvedLive != nil && isAssignableCluster(cluster.resolvedLive, m.Pointee)
}

// isAssignableCluster reports whether live (the wire cluster's resolved
// type) is m.Pointee or one of its subclasses, i.e. whether a pointer to
// live's Go type could hold an instance of whatever was actually written.
func isAssignableCluster(live, pointee *ObjectTypeMapper) bool {
	for c := live; c != nil; c = c.Super {
		if c == pointee {
			return true
		}
	}
	return false
}

// ReadFieldWith reads a 1-based instance index and installs the
// already-materialized *T at that slot, or leaves field nil for index 0.
func (m *referenceTypeMapper) ReadFieldWith(field reflect.Value, d *TypeDescriptor, ctx *TypeDescriptorContext, r *ReadStream) error {
	om, err := r.ReadInstanceReference()
	if err != nil {
		return err
	}
	if om == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	ptr, ok := om.ObjectBasePointer().(interface{})
	if !ok || ptr == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	ptrValue := reflect.ValueOf(ptr)
	if !ptrValue.Type().AssignableTo(field.Type()) {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	field.Set(ptrValue)
	return nil
}

func (m *referenceTypeMapper) GetOrCreateTypeDescriptor(ctx *TypeDescriptorContext) *TypeDescriptor {
	return ctx.TypedObject(ctx.IndexOfCluster(m.Pointee))
}
