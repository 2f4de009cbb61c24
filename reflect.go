package coal

import (
	"fmt"
	"reflect"
	"strings"
)

// buildFieldDescriptions reflects over t's exported fields, parsing `coal`
// struct tags and resolving each field's TypeMapper in Go declaration
// order. Any struct or object-class type a field refers to must already be
// registered (via RegisterStructure / RegisterClass) by the time this runs;
// RegisterClass caches a class's own mapper first, so a class may refer to
// itself.
// excludeType, when non-nil, is the anonymously embedded supertype struct
// type: it is consumed by the supertype chain rather than treated as an
// ordinary field, so buildFieldDescriptions skips it.
func buildFieldDescriptions(t reflect.Type, excludeType reflect.Type) []*FieldDescription {
	var fields []*FieldDescription
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		if sf.Anonymous && excludeType != nil && sf.Type == excludeType {
			continue
		}
		name, skip := parseCoalTag(sf)
		if skip {
			continue
		}
		mapper, err := TypeMapperForGoType(sf.Type)
		if err != nil {
			panic(fmt.Sprintf("coal: field %s.%s: %v", t.Name(), sf.Name, err))
		}
		fields = append(fields, &FieldDescription{Name: name, Mapper: mapper, Index: sf.Index})
	}
	return fields
}

// superFieldIndexIn locates t's anonymously embedded field of type superType,
// the Go-level expression of "t extends superType". Returns nil if t does
// not embed it.
func superFieldIndexIn(t reflect.Type, superType reflect.Type) []int {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == superType {
			return sf.Index
		}
	}
	return nil
}

// parseCoalTag extracts the wire field name and skip directive from a
// struct field's `coal:"name[,opts]"` tag, defaulting to the Go field name
// when the tag is absent. A bare "-" excludes the field entirely.
func parseCoalTag(sf reflect.StructField) (name string, skip bool) {
	tag, ok := sf.Tag.Lookup("coal")
	if !ok {
		return sf.Name, false
	}
	parts := strings.Split(tag, ",")
	switch parts[0] {
	case "-":
		return "", true
	case "":
		return sf.Name, false
	default:
		return parts[0], false
	}
}

// structTypeOf returns the struct reflect.Type backing v, whether v is a
// struct value or a pointer to one.
func structTypeOf(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic("coal: expected a struct or pointer to struct, got " + t.String())
	}
	return t
}

// RegisterStructure registers a Go struct type as a Coal value structure
// under name: a by-value aggregate with no identity of its own, embedded
// inline wherever a field refers to it. zeroValue may be a struct value or
// a pointer to one. Registering the same type twice is a no-op.
func RegisterStructure(zeroValue interface{}, name string) {
	t := structTypeOf(zeroValue)
	if _, ok := lookupMapperCache(t); ok {
		return
	}
	fields := buildFieldDescriptions(t, nil)
	storeMapperCache(t, newStructureTypeMapper(name, t, fields))
}

// RegisterClass registers a Go struct type as a Coal object class under
// name, optionally extending super (the zero value, or a pointer to it, of
// an already-registered class). Every *T pointing at this class becomes
// serializable by reference once registered. Registering the same type
// twice is a no-op.
func RegisterClass(zeroValue interface{}, name string, super interface{}) {
	t := structTypeOf(zeroValue)
	if _, ok := lookupMapperCache(t); ok {
		return
	}

	var superMapper *ObjectTypeMapper
	var superFieldIndex []int
	var superGoType reflect.Type
	if super != nil {
		superType := structTypeOf(super)
		live, ok := lookupMapperCache(superType)
		if !ok {
			panic("coal: RegisterClass: supertype " + superType.String() + " must be registered first")
		}
		superMapper, ok = live.(*ObjectTypeMapper)
		if !ok {
			panic("coal: RegisterClass: supertype " + superType.String() + " is not an object class")
		}
		superFieldIndex = superFieldIndexIn(t, superType)
		if superFieldIndex == nil {
			panic("coal: RegisterClass: " + t.String() + " must embed " + superType.String() + " anonymously to extend it")
		}
		superGoType = superType
	}

	// The mapper is cached before its fields are built, so that a field
	// referring back to this class (a *T inside T) resolves to it.
	m := newObjectTypeMapper(name, t, nil, superMapper, superFieldIndex)
	storeMapperCache(t, m)
	m.fields = buildFieldDescriptions(t, superGoType)
}
