package coal

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// mapperCache memoizes TypeMapper singletons by Go reflect.Type. Mappers
// for the same host type are singletons: identity is used as a map key
// during tracing and cluster assignment, so there must be exactly one
// instance per type for the lifetime of the process.
var (
	mapperCacheMu sync.RWMutex
	mapperCache   = make(map[reflect.Type]TypeMapper)
)

func lookupMapperCache(t reflect.Type) (TypeMapper, bool) {
	mapperCacheMu.RLock()
	defer mapperCacheMu.RUnlock()
	m, ok := mapperCache[t]
	return m, ok
}

func storeMapperCache(t reflect.Type, m TypeMapper) {
	mapperCacheMu.Lock()
	defer mapperCacheMu.Unlock()
	mapperCache[t] = m
}

func init() {
	registerPrimitiveMappers()
}

func registerPrimitiveMappers() {
	primitives := []struct {
		kind reflect.Kind
		m    TypeMapper
	}{
		{reflect.Bool, newPrimitiveTypeMapper("Boolean32", familyBool, KindBoolean32, 4)},
		{reflect.Int8, newPrimitiveTypeMapper("Int8", familySignedInt, KindInt8, 1)},
		{reflect.Int16, newPrimitiveTypeMapper("Int16", familySignedInt, KindInt16, 2)},
		{reflect.Int32, newPrimitiveTypeMapper("Int32", familySignedInt, KindInt32, 4)},
		{reflect.Int64, newPrimitiveTypeMapper("Int64", familySignedInt, KindInt64, 8)},
		{reflect.Int, newPrimitiveTypeMapper("Int64", familySignedInt, KindInt64, 8)},
		{reflect.Uint8, newPrimitiveTypeMapper("UInt8", familyUnsignedInt, KindUInt8, 1)},
		{reflect.Uint16, newPrimitiveTypeMapper("UInt16", familyUnsignedInt, KindUInt16, 2)},
		{reflect.Uint32, newPrimitiveTypeMapper("UInt32", familyUnsignedInt, KindUInt32, 4)},
		{reflect.Uint64, newPrimitiveTypeMapper("UInt64", familyUnsignedInt, KindUInt64, 8)},
		{reflect.Uint, newPrimitiveTypeMapper("UInt64", familyUnsignedInt, KindUInt64, 8)},
		{reflect.Float32, newPrimitiveTypeMapper("Float32", familyFloat, KindFloat32, 4)},
		{reflect.Float64, newPrimitiveTypeMapper("Float64", familyFloat, KindFloat64, 8)},
	}
	for _, p := range primitives {
		storeMapperCache(reflect.TypeOf(reflect.New(reflectKindSample(p.kind)).Elem().Interface()), p.m)
	}

	storeMapperCache(reflect.TypeOf(""), newStringTypeMapper())
	storeMapperCache(reflect.TypeOf(decimal.Zero), newPrimitiveTypeMapper("Decimal64", familyDecimal, KindDecimal64, 8))
}

// reflectKindSample returns a representative reflect.Type for a basic kind,
// used only to seed the primitive mapper cache at init time.
func reflectKindSample(k reflect.Kind) reflect.Type {
	switch k {
	case reflect.Bool:
		return reflect.TypeOf(false)
	case reflect.Int8:
		return reflect.TypeOf(int8(0))
	case reflect.Int16:
		return reflect.TypeOf(int16(0))
	case reflect.Int32:
		return reflect.TypeOf(int32(0))
	case reflect.Int64:
		return reflect.TypeOf(int64(0))
	case reflect.Int:
		return reflect.TypeOf(int(0))
	case reflect.Uint8:
		return reflect.TypeOf(uint8(0))
	case reflect.Uint16:
		return reflect.TypeOf(uint16(0))
	case reflect.Uint32:
		return reflect.TypeOf(uint32(0))
	case reflect.Uint64:
		return reflect.TypeOf(uint64(0))
	case reflect.Uint:
		return reflect.TypeOf(uint(0))
	case reflect.Float32:
		return reflect.TypeOf(float32(0))
	case reflect.Float64:
		return reflect.TypeOf(float64(0))
	default:
		panic("coal: unhandled basic kind")
	}
}

// TypeMapperForGoType resolves (and lazily builds) the TypeMapper for t,
// covering primitives, strings, decimals, slices, maps, set-shaped maps,
// fixed-size arrays, and pointers to registered object classes. Structs
// must be registered explicitly via RegisterStructure/RegisterClass first.
func TypeMapperForGoType(t reflect.Type) (TypeMapper, error) {
	if m, ok := lookupMapperCache(t); ok {
		return m, nil
	}

	switch t.Kind() {
	case reflect.Slice:
		elem, err := TypeMapperForGoType(t.Elem())
		if err != nil {
			return nil, err
		}
		m := newArrayCollectionMapper(elem)
		storeMapperCache(t, m)
		return m, nil
	case reflect.Array:
		elem, err := TypeMapperForGoType(t.Elem())
		if err != nil {
			return nil, err
		}
		m := newFixedArrayCollectionMapper(t.Len(), elem)
		storeMapperCache(t, m)
		return m, nil
	case reflect.Map:
		if t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0 {
			elem, err := TypeMapperForGoType(t.Key())
			if err != nil {
				return nil, err
			}
			m := newSetCollectionMapper(elem)
			storeMapperCache(t, m)
			return m, nil
		}
		key, err := TypeMapperForGoType(t.Key())
		if err != nil {
			return nil, err
		}
		value, err := TypeMapperForGoType(t.Elem())
		if err != nil {
			return nil, err
		}
		m := newMapCollectionMapper(key, value)
		storeMapperCache(t, m)
		return m, nil
	case reflect.Ptr:
		elemMapper, err := TypeMapperForGoType(t.Elem())
		if err != nil {
			return nil, err
		}
		objectMapper, ok := elemMapper.(*ObjectTypeMapper)
		if !ok {
			return nil, &UnsupportedTypeError{Type: t.String()}
		}
		m := newReferenceTypeMapper(objectMapper)
		storeMapperCache(t, m)
		return m, nil
	default:
		return nil, &UnsupportedTypeError{Type: t.String()}
	}
}

// Registry answers lookup(name) -> mapper for a deserialization session: the
// transitive closure of a root mapper's dependencies, indexed by name.
type Registry struct {
	byName map[string]TypeMapper
}

// NewRegistry builds the transitive closure of root: root itself plus every
// value-structure and object mapper reachable from it through
// WithTypeMapperDependenciesDo, deduplicated by mapper identity. Primitive,
// string, collection and reference mappers are walked through but not
// registered.
func NewRegistry(root TypeMapper) *Registry {
	reg := &Registry{byName: make(map[string]TypeMapper)}
	seen := make(map[TypeMapper]bool)
	var walk func(m TypeMapper)
	walk = func(m TypeMapper) {
		if seen[m] {
			return
		}
		seen[m] = true
		reg.byName[m.Name()] = m
		m.TypeMapperDependenciesDo(walk)
	}
	WithTypeMapperDependenciesDo(root, walk)
	return reg
}

// Lookup returns the mapper registered under name, if any.
func (r *Registry) Lookup(name string) (TypeMapper, bool) {
	m, ok := r.byName[name]
	return m, ok
}

var (
	registryCacheMu sync.RWMutex
	registryCache   = make(map[TypeMapper]*Registry)
	registryGroup   singleflight.Group
)

// RegistryForRoot returns the process-wide cached Registry for root,
// building it at most once even under concurrent callers (collapsed by a
// singleflight group keyed by the root mapper's address, since singleflight
// keys must be strings and distinct mappers may share a name, as every
// ValueBox mapper does).
func RegistryForRoot(root TypeMapper) *Registry {
	registryCacheMu.RLock()
	if reg, ok := registryCache[root]; ok {
		registryCacheMu.RUnlock()
		return reg
	}
	registryCacheMu.RUnlock()

	v, _, _ := registryGroup.Do(fmt.Sprintf("%p", root), func() (interface{}, error) {
		registryCacheMu.RLock()
		if reg, ok := registryCache[root]; ok {
			registryCacheMu.RUnlock()
			return reg, nil
		}
		registryCacheMu.RUnlock()

		reg := NewRegistry(root)
		registryCacheMu.Lock()
		registryCache[root] = reg
		registryCacheMu.Unlock()
		return reg, nil
	})
	return v.(*Registry)
}
