package coal

import "github.com/sirupsen/logrus"

// deserializer holds the per-call state for one Deserialize invocation.
type deserializer struct {
	ctx      *TypeDescriptorContext
	registry *Registry

	valueTypeCount uint32
	clusterCount   uint32
	objectCount    uint32

	valueTypes            []*StructureMaterializationMapper
	clusterTypes           []*ObjectMaterializationMapper
	instances               []*ObjectMapper
}

func newDeserializer(registry *Registry) *deserializer {
	return &deserializer{ctx: NewTypeDescriptorContext(), registry: registry}
}

// Deserialize runs the seven phases against data, returning the
// materialized root object (nil if the trailer's root index was 0).
func (ds *deserializer) Deserialize(data []byte) (*ObjectMapper, error) {
	r, err := ds.parseHeaderAndBlob(data)
	if err != nil {
		return nil, err
	}
	if err := ds.parseValueTypeDescriptors(r); err != nil {
		return nil, err
	}
	if err := ds.parseClusterDescriptors(r); err != nil {
		return nil, err
	}
	ds.resolveTypes()
	if err := ds.allocateInstances(r); err != nil {
		return nil, err
	}
	if err := ds.readInstances(r); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"valueTypes": ds.valueTypeCount,
		"clusters":   ds.clusterCount,
		"objects":    ds.objectCount,
	}).Debug("coal: deserialize")

	return ds.parseTrailer(r)
}

func (ds *deserializer) parseHeaderAndBlob(data []byte) (*ReadStream, error) {
	r := NewReadStream(data, nil)

	magic, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if magic != coalMagicNumber {
		return nil, newDecodeError(BadMagic, "got 0x%08x", magic)
	}

	major, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if major != coalVersionMajor {
		return nil, newDecodeError(BadVersion, "major version %d", major)
	}

	minor, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if minor != coalVersionMinor {
		return nil, newDecodeError(BadVersion, "minor version %d", minor)
	}

	if _, err := r.ReadUint16(); err != nil { // reserved
		return nil, err
	}

	blobSize, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	ds.valueTypeCount, err = r.ReadUint32()
	if err != nil {
		return nil, err
	}
	ds.clusterCount, err = r.ReadUint32()
	if err != nil {
		return nil, err
	}
	ds.objectCount, err = r.ReadUint32()
	if err != nil {
		return nil, err
	}

	blobBytes, err := r.ReadRaw(int(blobSize))
	if err != nil {
		return nil, err
	}
	r.blob = NewBinaryBlobFromBytes(blobBytes)

	return r, nil
}

// parseValueTypeDescriptors reads each value-type layout, resolving it
// against the registry and its fields immediately so that a later
// Struct(index) reference (only ever to an earlier index; value types
// cannot be recursive) resolves through an already-known materialization.
func (ds *deserializer) parseValueTypeDescriptors(r *ReadStream) error {
	for i := uint32(0); i < ds.valueTypeCount; i++ {
		name, err := r.ReadUTF8_32_k(16)
		if err != nil {
			return err
		}
		fieldCount, err := r.ReadUint16()
		if err != nil {
			return err
		}

		mat := &StructureMaterializationMapper{Name: name}
		for f := uint16(0); f < fieldCount; f++ {
			fname, err := r.ReadUTF8_32_k(16)
			if err != nil {
				return err
			}
			enc, err := ds.ctx.ReadDescription(r)
			if err != nil {
				return err
			}
			mat.WireFields = append(mat.WireFields, &MaterializationFieldDescription{Name: fname, Encoding: enc})
		}

		live, _ := ds.registry.Lookup(mat.Name)
		mat.ResolveTypeUsing(live)
		mat.ResolveTypeFields(ds.ctx)

		ds.valueTypes = append(ds.valueTypes, mat)
		ds.ctx.SetValueTypeMaterializations(ds.valueTypes)
	}
	return nil
}

// parseClusterDescriptors pre-allocates every cluster materialization
// mapper (so that a TypedObject(index) reference may point anywhere in the
// table, forward or back) before reading any of their field lists.
func (ds *deserializer) parseClusterDescriptors(r *ReadStream) error {
	ds.clusterTypes = make([]*ObjectMaterializationMapper, ds.clusterCount)
	for i := range ds.clusterTypes {
		ds.clusterTypes[i] = &ObjectMaterializationMapper{}
	}
	ds.ctx.SetClusterMaterializations(ds.clusterTypes)

	var totalInstances uint32
	for i := uint32(0); i < ds.clusterCount; i++ {
		ct := ds.clusterTypes[i]

		name, err := r.ReadUTF8_32_k(16)
		if err != nil {
			return err
		}
		superIdx, err := r.ReadUint32()
		if err != nil {
			return err
		}
		if superIdx > i {
			return newDecodeError(BadClusterOrder, "supertypeIndex %d exceeds clusterIndex %d", superIdx, i)
		}
		fieldCount, err := r.ReadUint16()
		if err != nil {
			return err
		}
		instanceCount, err := r.ReadUint32()
		if err != nil {
			return err
		}

		ct.Name = name
		ct.InstanceCount = instanceCount
		if superIdx > 0 {
			ct.Supertype = ds.clusterTypes[superIdx-1]
		}

		for f := uint16(0); f < fieldCount; f++ {
			fname, err := r.ReadUTF8_32_k(16)
			if err != nil {
				return err
			}
			enc, err := ds.ctx.ReadDescription(r)
			if err != nil {
				return err
			}
			ct.WireFields = append(ct.WireFields, &MaterializationFieldDescription{Name: fname, Encoding: enc})
		}

		totalInstances += instanceCount
	}

	if totalInstances != ds.objectCount {
		return newDecodeError(InstanceCountMismatch, "cluster instance sum %d != header objectCount %d", totalInstances, ds.objectCount)
	}
	return nil
}

// resolveTypes resolves every cluster's name against the registry, then
// resolves every cluster's fields, matching the two-pass shape in §4.4: a
// field's match depends on the *target* type already being resolved to its
// live field list.
func (ds *deserializer) resolveTypes() {
	for _, ct := range ds.clusterTypes {
		live, _ := ds.registry.Lookup(ct.Name)
		ct.ResolveTypeUsing(live)
	}
	for _, ct := range ds.clusterTypes {
		ct.ResolveTypeFields(ds.ctx)
	}
}

// allocateInstances makes every instance (null for clusters that never
// resolved to a live type) before any field is read, so that an
// inter-cluster reference can resolve regardless of read order.
func (ds *deserializer) allocateInstances(r *ReadStream) error {
	ds.instances = make([]*ObjectMapper, 0, ds.objectCount)
	for _, ct := range ds.clusterTypes {
		for j := uint32(0); j < ct.InstanceCount; j++ {
			ptr, base, ok := ct.MakeInstance()
			if !ok {
				ds.instances = append(ds.instances, nil)
				continue
			}
			ds.instances = append(ds.instances, &ObjectMapper{ptr: ptr, base: base, typeMapper: ct.resolvedLive})
		}
	}
	r.SetInstances(ds.instances, ds.objectCount)
	return nil
}

// readInstances reads (or, for null instances, skips) every instance's
// fields in cluster order.
func (ds *deserializer) readInstances(r *ReadStream) error {
	idx := 0
	for _, ct := range ds.clusterTypes {
		for j := uint32(0); j < ct.InstanceCount; j++ {
			om := ds.instances[idx]
			idx++
			if om != nil {
				if err := ct.ReadInstanceWith(om.Base(), r, ds.ctx); err != nil {
					return err
				}
			} else if err := ct.SkipInstanceWith(r, ds.ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ds *deserializer) parseTrailer(r *ReadStream) (*ObjectMapper, error) {
	rootIdx, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if rootIdx > ds.objectCount {
		return nil, newDecodeError(Truncated, "root index %d exceeds objectCount %d", rootIdx, ds.objectCount)
	}
	if rootIdx == 0 {
		return nil, nil
	}
	return ds.instances[rootIdx-1], nil
}

// deserializeFrame builds a fresh registry closure for rootTypeMapper and
// runs the seven-phase deserializer against data.
func deserializeFrame(data []byte, rootTypeMapper TypeMapper) (*ObjectMapper, error) {
	registry := RegistryForRoot(rootTypeMapper)
	ds := newDeserializer(registry)
	return ds.Deserialize(data)
}
