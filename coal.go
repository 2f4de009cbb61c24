// Package coal implements the Coal binary serialization framework: a
// self-describing, content-addressed wire format for directed object
// graphs, built around a trace-then-emit serializer and a
// resolve-then-materialize deserializer.
package coal

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

const (
	boxTypeName  = "ValueBox"
	boxFieldName = "value"
)

// boxMapperCache memoizes the synthetic ValueBox object class built for
// each distinct non-object root type, so that repeated Serialize/Deserialize
// calls for the same root shape share one cluster identity.
var (
	boxMapperMu    sync.RWMutex
	boxMapperCache = make(map[reflect.Type]*ObjectTypeMapper)
)

// boxMapperFor returns the synthetic ValueBox object class wrapping
// elemType in a single field named "value", building it on first use. This
// is how a root value that isn't itself a pointer to a registered object
// class - an int, a string, a slice, a bare struct - gets a cluster to live
// in: the Glossary's "Root object" boxing.
func boxMapperFor(elemType reflect.Type) (*ObjectTypeMapper, error) {
	boxMapperMu.RLock()
	if m, ok := boxMapperCache[elemType]; ok {
		boxMapperMu.RUnlock()
		return m, nil
	}
	boxMapperMu.RUnlock()

	boxMapperMu.Lock()
	defer boxMapperMu.Unlock()
	if m, ok := boxMapperCache[elemType]; ok {
		return m, nil
	}

	elemMapper, err := TypeMapperForGoType(elemType)
	if err != nil {
		return nil, err
	}

	boxType := reflect.StructOf([]reflect.StructField{
		{Name: "Value", Type: elemType},
	})
	fields := []*FieldDescription{{Name: boxFieldName, Mapper: elemMapper, Index: []int{0}}}
	m := newObjectTypeMapper(boxTypeName, boxType, fields, nil, nil)
	boxMapperCache[elemType] = m
	return m, nil
}

// Serialize encodes root into a complete Coal frame. root is usually a
// pointer to a value registered with RegisterClass; any other value
// (a struct, a slice, a map, a primitive, a string) is transparently boxed
// as the root of a synthetic ValueBox object.
func Serialize(root interface{}) ([]byte, error) {
	if root == nil {
		return nil, errors.New("coal: cannot serialize a nil root")
	}
	t := reflect.TypeOf(root)

	if t.Kind() == reflect.Ptr {
		elemMapper, err := TypeMapperForGoType(t.Elem())
		if err != nil {
			return nil, err
		}
		objMapper, ok := elemMapper.(*ObjectTypeMapper)
		if !ok {
			return nil, &UnsupportedTypeError{Type: t.String()}
		}
		return newSerializer().Serialize(root, objMapper)
	}

	boxMapper, err := boxMapperFor(t)
	if err != nil {
		return nil, err
	}
	boxPtr := reflect.New(boxMapper.goType)
	boxPtr.Elem().Field(0).Set(reflect.ValueOf(root))
	return newSerializer().Serialize(boxPtr.Interface(), boxMapper)
}

// Deserialize decodes data into rootPtr, a pointer to the variable the root
// value should be written into. rootPtr may point at a *T naming a
// registered class (the common case: rootPtr is a **T) or directly at a
// plain value that was boxed at serialization time.
func Deserialize(data []byte, rootPtr interface{}) error {
	rv := reflect.ValueOf(rootPtr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("coal: Deserialize requires a non-nil pointer")
	}
	target := rv.Elem()

	if target.Kind() == reflect.Ptr {
		if elemMapper, err := TypeMapperForGoType(target.Type().Elem()); err == nil {
			if objMapper, ok := elemMapper.(*ObjectTypeMapper); ok {
				return deserializeInto(data, objMapper, target, func(om *ObjectMapper) reflect.Value {
					return reflect.ValueOf(om.ObjectBasePointer())
				})
			}
		}
	}

	boxMapper, err := boxMapperFor(target.Type())
	if err != nil {
		return err
	}
	return deserializeInto(data, boxMapper, target, func(om *ObjectMapper) reflect.Value {
		return om.Base().Field(0)
	})
}

// deserializeInto runs the deserializer against rootMapper and assigns the
// result into target, using extract to pull the final value out of the
// materialized root (direct for a class pointer, unboxed for a ValueBox).
func deserializeInto(data []byte, rootMapper *ObjectTypeMapper, target reflect.Value, extract func(*ObjectMapper) reflect.Value) error {
	om, err := deserializeFrame(data, rootMapper)
	if err != nil {
		return err
	}
	if om == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	target.Set(extract(om))
	return nil
}
