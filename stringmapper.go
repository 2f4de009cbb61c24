package coal

import "reflect"

// stringTypeMapper is the String mapper: wire-"primitive" in shape, but
// backed by the blob. It always interns at 32-bit width; readers accept
// any UTF8_32_k.
type stringTypeMapper struct {
	baseMapper
}

func newStringTypeMapper() *stringTypeMapper {
	return &stringTypeMapper{baseMapper: baseMapper{name: "String"}}
}

func (m *stringTypeMapper) IsObjectType() bool                 { return false }
func (m *stringTypeMapper) IsReferenceType() bool               { return false }
func (m *stringTypeMapper) IsAggregateType() bool               { return false }
func (m *stringTypeMapper) IsSerializationDependencyType() bool { return false }
func (m *stringTypeMapper) TypeMapperDependenciesDo(fn func(TypeMapper)) {}
func (m *stringTypeMapper) ObjectReferencesInFieldDo(field reflect.Value, cache map[interface{}]*ObjectMapper, fn func(*ObjectMapper)) {
}

func (m *stringTypeMapper) PushFieldDataIntoBinaryBlob(field reflect.Value, blob *BinaryBlob) {
	blob.InternStringK(field.String(), 32)
}

func (m *stringTypeMapper) WriteFieldWith(field reflect.Value, w *WriteStream) {
	w.WriteUTF8_32_k(field.String(), 32)
}

func (m *stringTypeMapper) CanReadFieldWithTypeDescriptor(d *TypeDescriptor, ctx *TypeDescriptorContext) bool {
	switch d.Kind {
	case KindUTF8_32_8, KindUTF8_32_16, KindUTF8_32_32:
		return true
	default:
		return false
	}
}

func (m *stringTypeMapper) ReadFieldWith(field reflect.Value, d *TypeDescriptor, ctx *TypeDescriptorContext, r *ReadStream) error {
	k := 32
	switch d.Kind {
	case KindUTF8_32_8:
		k = 8
	case KindUTF8_32_16:
		k = 16
	case KindUTF8_32_32:
		k = 32
	}
	s, err := r.ReadUTF8_32_k(k)
	if err != nil {
		return err
	}
	field.SetString(s)
	return nil
}

func (m *stringTypeMapper) GetOrCreateTypeDescriptor(ctx *TypeDescriptorContext) *TypeDescriptor {
	return ctx.Primitive(KindUTF8_32_32)
}
