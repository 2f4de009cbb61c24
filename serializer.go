package coal

import (
	"bytes"
	"reflect"

	"github.com/coal-serialization/coal/d"
	"github.com/sirupsen/logrus"
)

const (
	coalMagicNumber  uint32 = 0x4C414F43
	coalVersionMajor uint8  = 1
	coalVersionMinor uint8  = 0
)

// serializer holds the per-call state for one Serialize invocation: the
// tracing worklist, the cluster table, the value-type scan state, and the
// blob being primed. It is single-use; a fresh one is built per call.
type serializer struct {
	ctx          *TypeDescriptorContext
	blob         *BinaryBlob
	clusters     *ClusterTable
	objectCache  *ObjectMapperCache
	tracingStack []*ObjectMapper
	seen         map[*ObjectMapper]bool

	valueTypeOrder      []TypeMapper
	valueTypeIndexOf    map[TypeMapper]uint32
	valueTypeInProgress map[TypeMapper]bool
	scannedReferenceType map[TypeMapper]bool

	objectIndex map[interface{}]uint32 // base pointer -> 1-based global instance index
	objectCount uint32
}

func newSerializer() *serializer {
	ctx := NewTypeDescriptorContext()
	return &serializer{
		ctx:                 ctx,
		blob:                NewBinaryBlob(),
		clusters:             NewClusterTable(ctx),
		objectCache:          NewObjectMapperCache(),
		seen:                 make(map[*ObjectMapper]bool),
		valueTypeIndexOf:     make(map[TypeMapper]uint32),
		valueTypeInProgress:  make(map[TypeMapper]bool),
		scannedReferenceType: make(map[TypeMapper]bool),
		objectIndex:          make(map[interface{}]uint32),
	}
}

// Serialize encodes rootPtr (a *T wrapping an already-resolved object-class
// mapper) into a complete Coal frame.
func (s *serializer) Serialize(rootPtr interface{}, rootMapper *ObjectTypeMapper) ([]byte, error) {
	rootOM := s.objectCache.WrapFor(rootPtr, rootMapper)
	s.pushPending(rootOM)
	s.trace()
	s.scanClusterDependencies()
	s.primeBlob()
	s.assignObjectIndices()

	logrus.WithFields(logrus.Fields{
		"valueTypes": len(s.valueTypeOrder),
		"clusters":   len(s.clusters.Order),
		"objects":    s.objectCount,
	}).Debug("coal: serialize")

	var buf bytes.Buffer
	w := NewWriteStream(&buf, s.blob, s.objectIndex)
	s.writeHeader(w)
	w.WriteRaw(s.blob.Bytes())
	s.writeValueTypeLayouts(w)
	s.writeClusterDescriptions(w)
	s.writeClusterInstances(w)
	rootIdx := s.objectIndex[rootOM.ObjectBasePointer()]
	w.WriteUint32(rootIdx)

	return w.Bytes(), nil
}

func (s *serializer) pushPending(om *ObjectMapper) {
	if s.seen[om] {
		return
	}
	s.seen[om] = true
	s.tracingStack = append(s.tracingStack, om)
}

// trace pops the worklist to a fixed point, assigning every reachable
// object to its cluster and enumerating its references for further tracing.
func (s *serializer) trace() {
	for len(s.tracingStack) > 0 {
		om := s.tracingStack[len(s.tracingStack)-1]
		s.tracingStack = s.tracingStack[:len(s.tracingStack)-1]

		objMapper := om.TypeMapper().(*ObjectTypeMapper)
		cluster := s.clusters.GetOrCreate(objMapper)
		cluster.Instances = append(cluster.Instances, om)

		objMapper.ObjectReferencesInInstanceDo(om.Base(), s.objectCache.byPointer, s.pushPending)
	}
}

// scanClusterDependencies walks every cluster's type-mapper dependencies,
// registering value-type layouts (tri-color, fatal on a cycle) and any
// object types reachable only as dependencies (never instantiated). The
// loop is index-based because scanning can append new clusters to Order.
func (s *serializer) scanClusterDependencies() {
	for i := 0; i < len(s.clusters.Order); i++ {
		cluster := s.clusters.Order[i]
		cluster.TypeMapper.TypeMapperDependenciesDo(s.scanTypeMapperDependency)
	}
}

func (s *serializer) scanTypeMapperDependency(dep TypeMapper) {
	switch {
	case dep.IsObjectType():
		s.clusters.GetOrCreate(dep)
	case dep.IsAggregateType():
		s.getOrCreateValueType(dep)
	case dep.IsReferenceType():
		s.scanReferenceTypeDependencies(dep)
	}
}

// scanReferenceTypeDependencies scans a reference mapper's own dependencies
// (its pointee) at most once. A correct post-order walk: insert into the
// scanned-set before recursing, so a cycle of reference types (A points at
// B which points back at A) terminates instead of looping forever.
func (s *serializer) scanReferenceTypeDependencies(m TypeMapper) {
	if s.scannedReferenceType[m] {
		return
	}
	s.scannedReferenceType[m] = true
	m.TypeMapperDependenciesDo(s.scanTypeMapperDependency)
}

// getOrCreateValueType assigns m (a value-structure mapper) a stable index
// in post-order discovery order, panicking if m is found gray (a value
// type depending on itself through some chain of other value types).
func (s *serializer) getOrCreateValueType(m TypeMapper) uint32 {
	if idx, ok := s.valueTypeIndexOf[m]; ok {
		return idx
	}
	d.PanicIfTrue(s.valueTypeInProgress[m], "coal: RecursiveValueType: %s depends on itself", m.Name())

	s.valueTypeInProgress[m] = true
	m.TypeMapperDependenciesDo(s.scanTypeMapperDependency)
	delete(s.valueTypeInProgress, m)

	idx := uint32(len(s.valueTypeOrder))
	s.valueTypeOrder = append(s.valueTypeOrder, m)
	s.valueTypeIndexOf[m] = idx
	s.ctx.RegisterValueTypeIndex(m, idx)
	return idx
}

// primeBlob interns every value-type layout's name and field names, every
// cluster's name and field names, and recursively every instance's field
// data, in that order, so the blob is fully populated before it's frozen.
func (s *serializer) primeBlob() {
	for _, vt := range s.valueTypeOrder {
		s.blob.InternStringK(vt.Name(), 16)
		for _, f := range fieldsOf(vt) {
			s.blob.InternStringK(f.Name, 16)
		}
	}
	for _, cluster := range s.clusters.Order {
		s.blob.InternStringK(cluster.Name, 16)
		for _, f := range fieldsOf(cluster.TypeMapper) {
			s.blob.InternStringK(f.Name, 16)
		}
		objType := cluster.TypeMapper.(*ObjectTypeMapper)
		for _, om := range cluster.Instances {
			pushInstanceFieldData(objType, om.Base(), s.blob)
		}
	}
}

func pushInstanceFieldData(m *ObjectTypeMapper, base reflect.Value, blob *BinaryBlob) {
	if m.Super != nil {
		pushInstanceFieldData(m.Super, base.FieldByIndex(m.superFieldIndex), blob)
	}
	for _, f := range m.fields {
		f.Mapper.PushFieldDataIntoBinaryBlob(f.Value(base), blob)
	}
}

// fieldsOf returns the declared (non-inherited) field list of m, for the
// mapper kinds that carry one.
func fieldsOf(m TypeMapper) []*FieldDescription {
	switch t := m.(type) {
	case *StructureTypeMapper:
		return t.fields
	case *ObjectTypeMapper:
		return t.fields
	default:
		return nil
	}
}

// assignObjectIndices gives every traced instance a dense, 0-based global
// index in cluster order, recorded 1-based (ready for direct use as a wire
// reference value, where 0 means null).
func (s *serializer) assignObjectIndices() {
	var idx uint32
	for _, cluster := range s.clusters.Order {
		for _, om := range cluster.Instances {
			idx++
			s.objectIndex[om.ObjectBasePointer()] = idx
		}
	}
	s.objectCount = idx
}

func (s *serializer) writeHeader(w *WriteStream) {
	w.WriteUint32(coalMagicNumber)
	w.WriteUint8(coalVersionMajor)
	w.WriteUint8(coalVersionMinor)
	w.WriteUint16(0)
	w.WriteUint32(s.blob.Size())
	w.WriteUint32(uint32(len(s.valueTypeOrder)))
	w.WriteUint32(uint32(len(s.clusters.Order)))
	w.WriteUint32(s.objectCount)
}

func (s *serializer) writeValueTypeLayouts(w *WriteStream) {
	for _, vt := range s.valueTypeOrder {
		w.WriteUTF8_32_k(vt.Name(), 16)
		fields := fieldsOf(vt)
		w.WriteUint16(uint16(len(fields)))
		for _, f := range fields {
			w.WriteUTF8_32_k(f.Name, 16)
			f.Mapper.GetOrCreateTypeDescriptor(s.ctx).WriteDescription(w)
		}
	}
}

func (s *serializer) writeClusterDescriptions(w *WriteStream) {
	for _, cluster := range s.clusters.Order {
		w.WriteUTF8_32_k(cluster.Name, 16)
		if cluster.Supertype != nil {
			w.WriteUint32(uint32(cluster.Supertype.Index + 1))
		} else {
			w.WriteUint32(0)
		}
		fields := fieldsOf(cluster.TypeMapper)
		w.WriteUint16(uint16(len(fields)))
		w.WriteUint32(uint32(len(cluster.Instances)))
		for _, f := range fields {
			w.WriteUTF8_32_k(f.Name, 16)
			f.Mapper.GetOrCreateTypeDescriptor(s.ctx).WriteDescription(w)
		}
	}
}

func (s *serializer) writeClusterInstances(w *WriteStream) {
	for _, cluster := range s.clusters.Order {
		objType := cluster.TypeMapper.(*ObjectTypeMapper)
		for _, om := range cluster.Instances {
			objType.WriteInstanceWith(om.Base(), w)
		}
	}
}
