package coal

import "reflect"

// ObjectMapper is a host-neutral wrapper around one live (or freshly
// allocated, on the decode side) object: its base pointer, its addressable
// struct value, and the type mapper that describes it. Wrapping by base
// pointer, cached, is what lets two fields that alias the same object end
// up in the same cluster slot instead of being double-traced.
type ObjectMapper struct {
	ptr        interface{}    // the *T pointer; used as the by-pointer cache key
	base       reflect.Value  // addressable struct value the pointer points to
	typeMapper TypeMapper
}

func (o *ObjectMapper) TypeMapper() TypeMapper          { return o.typeMapper }
func (o *ObjectMapper) ObjectBasePointer() interface{}  { return o.ptr }
func (o *ObjectMapper) Base() reflect.Value             { return o.base }
func (o *ObjectMapper) SetTypeMapper(m TypeMapper)      { o.typeMapper = m }

// WrapObject returns the addressable struct value and pointer identity for
// ptr, a *T pointing at a registered object class.
func WrapObject(ptr interface{}) (base reflect.Value, ok bool) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, false
	}
	return v.Elem(), true
}

// ObjectMapperCache memoizes ObjectMapper wrappers by base pointer so that
// an object reached through two different fields is wrapped exactly once.
type ObjectMapperCache struct {
	byPointer map[interface{}]*ObjectMapper
}

// NewObjectMapperCache returns an empty cache.
func NewObjectMapperCache() *ObjectMapperCache {
	return &ObjectMapperCache{byPointer: make(map[interface{}]*ObjectMapper)}
}

// WrapFor returns the cached wrapper for ptr, creating and caching one
// using typeMapper if this is the first time ptr is seen.
func (c *ObjectMapperCache) WrapFor(ptr interface{}, typeMapper TypeMapper) *ObjectMapper {
	if om, ok := c.byPointer[ptr]; ok {
		return om
	}
	base, _ := WrapObject(ptr)
	om := &ObjectMapper{ptr: ptr, base: base, typeMapper: typeMapper}
	c.byPointer[ptr] = om
	return om
}

// Lookup returns the existing wrapper for ptr without creating one.
func (c *ObjectMapperCache) Lookup(ptr interface{}) (*ObjectMapper, bool) {
	om, ok := c.byPointer[ptr]
	return om, ok
}

// SerializationCluster groups every live instance sharing one resolved
// object type. Indices are 0-based and assigned in creation order;
// supertype clusters are always created, and therefore indexed, before
// their children.
type SerializationCluster struct {
	Index      int
	Name       string
	Supertype  *SerializationCluster
	TypeMapper TypeMapper
	Instances  []*ObjectMapper
}

// ClusterTable assigns and caches clusters by their type mapper's identity
// during tracing. ctx is kept in lockstep so that TypedObject(index) field
// encodings agree with the cluster's own instance-assignment index.
type ClusterTable struct {
	byMapper map[TypeMapper]*SerializationCluster
	Order    []*SerializationCluster
	ctx      *TypeDescriptorContext
}

// NewClusterTable returns an empty cluster table that registers every
// cluster it creates into ctx.
func NewClusterTable(ctx *TypeDescriptorContext) *ClusterTable {
	return &ClusterTable{byMapper: make(map[TypeMapper]*SerializationCluster), ctx: ctx}
}

// GetOrCreate returns the cluster for m, creating it (and, recursively,
// its supertype's cluster first) if this is the first reference to m.
func (ct *ClusterTable) GetOrCreate(m TypeMapper) *SerializationCluster {
	if c, ok := ct.byMapper[m]; ok {
		return c
	}

	var super *SerializationCluster
	if om, ok := m.(*ObjectTypeMapper); ok && om.Super != nil {
		super = ct.GetOrCreate(om.Super)
	}

	c := &SerializationCluster{
		Index:      len(ct.Order),
		Name:       m.Name(),
		Supertype:  super,
		TypeMapper: m,
	}
	ct.byMapper[m] = c
	ct.Order = append(ct.Order, c)
	ct.ctx.RegisterClusterIndex(m, uint32(c.Index))
	return c
}
