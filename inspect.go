package coal

import "fmt"

// FrameField is one field of a value-type layout or cluster description, as
// read directly off the wire.
type FrameField struct {
	Name     string
	Encoding string
}

// FrameValueType is one entry of a frame's value-type-layout section.
type FrameValueType struct {
	Name   string
	Fields []FrameField
}

// FrameCluster is one entry of a frame's cluster-description section.
type FrameCluster struct {
	Name          string
	Supertype     string // "" if this cluster has none
	InstanceCount uint32
	Fields        []FrameField
}

// FrameInfo is a read-only structural summary of a Coal frame: the header
// counts plus every value-type layout and cluster description, decoded
// without resolving a single field against a Go type registry.
type FrameInfo struct {
	VersionMajor   uint8
	VersionMinor   uint8
	BlobSize       uint32
	ValueTypeCount uint32
	ClusterCount   uint32
	ObjectCount    uint32
	ValueTypes     []FrameValueType
	Clusters       []FrameCluster
}

// Inspect parses data's header, blob, value-type layouts, and cluster
// descriptions, returning a structural dump that never touches a Go type
// registry. It is the read path cmd/coaldump drives: useful for looking at
// a frame's shape with no access to (or interest in) the Go types that
// produced it.
func Inspect(data []byte) (*FrameInfo, error) {
	ds := newDeserializer(&Registry{byName: make(map[string]TypeMapper)})

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

	info := &FrameInfo{
		VersionMajor:   coalVersionMajor,
		VersionMinor:   coalVersionMinor,
		BlobSize:       uint32(len(r.blob.Bytes())),
		ValueTypeCount: ds.valueTypeCount,
		ClusterCount:   ds.clusterCount,
		ObjectCount:    ds.objectCount,
	}

	for _, vt := range ds.valueTypes {
		fvt := FrameValueType{Name: vt.Name}
		for _, wf := range vt.WireFields {
			fvt.Fields = append(fvt.Fields, FrameField{Name: wf.Name, Encoding: describeEncoding(wf.Encoding)})
		}
		info.ValueTypes = append(info.ValueTypes, fvt)
	}

	for _, ct := range ds.clusterTypes {
		fc := FrameCluster{Name: ct.Name, InstanceCount: ct.InstanceCount}
		if ct.Supertype != nil {
			fc.Supertype = ct.Supertype.Name
		}
		for _, wf := range ct.WireFields {
			fc.Fields = append(fc.Fields, FrameField{Name: wf.Name, Encoding: describeEncoding(wf.Encoding)})
		}
		info.Clusters = append(info.Clusters, fc)
	}

	return info, nil
}

var primitiveKindNames = map[TypeDescriptorKind]string{
	KindObject:         "Object",
	KindBoolean8:       "Boolean8",
	KindBoolean16:      "Boolean16",
	KindBoolean32:      "Boolean32",
	KindBoolean64:      "Boolean64",
	KindUInt8:          "UInt8",
	KindUInt16:         "UInt16",
	KindUInt32:         "UInt32",
	KindUInt64:         "UInt64",
	KindUInt128:        "UInt128",
	KindInt8:           "Int8",
	KindInt16:          "Int16",
	KindInt32:          "Int32",
	KindInt64:          "Int64",
	KindInt128:         "Int128",
	KindFloat16:        "Float16",
	KindFloat32:        "Float32",
	KindFloat64:        "Float64",
	KindFloat128:       "Float128",
	KindFloat256:       "Float256",
	KindDecimal32:      "Decimal32",
	KindDecimal64:      "Decimal64",
	KindDecimal128:     "Decimal128",
	KindChar8:          "Char8",
	KindChar16:         "Char16",
	KindChar32:         "Char32",
	KindBinary_32_8:    "Binary_32_8",
	KindBinary_32_16:   "Binary_32_16",
	KindBinary_32_32:   "Binary_32_32",
	KindUTF8_32_8:      "UTF8_32_8",
	KindUTF8_32_16:     "UTF8_32_16",
	KindUTF8_32_32:     "UTF8_32_32",
	KindUTF16_32_8:     "UTF16_32_8",
	KindUTF16_32_16:    "UTF16_32_16",
	KindUTF16_32_32:    "UTF16_32_32",
	KindUTF32_32_8:     "UTF32_32_8",
	KindUTF32_32_16:    "UTF32_32_16",
	KindUTF32_32_32:    "UTF32_32_32",
	KindBigInt_32_8:    "BigInt_32_8",
	KindBigInt_32_16:   "BigInt_32_16",
	KindBigInt_32_32:   "BigInt_32_32",
	KindFixed16_16:     "Fixed16_16",
	KindFixed16_16_Sat: "Fixed16_16_Sat",
}

// describeEncoding renders a TypeDescriptor the way coaldump prints it:
// a bare name for primitives, a parenthesized index for Struct/TypedObject,
// and a generic-looking nesting for every composite kind.
func describeEncoding(td *TypeDescriptor) string {
	switch td.Kind {
	case KindStruct:
		return fmt.Sprintf("Struct(%d)", td.Index)
	case KindTypedObject:
		return fmt.Sprintf("TypedObject(%d)", td.Index)
	case KindFixedArray:
		return fmt.Sprintf("FixedArray(%d)<%s>", td.Size, describeEncoding(td.Element))
	case KindArray8, KindArray16, KindArray32:
		return fmt.Sprintf("Array%d<%s>", countWidthOf(td.Kind), describeEncoding(td.Element))
	case KindSet8, KindSet16, KindSet32:
		return fmt.Sprintf("Set%d<%s>", countWidthOf(td.Kind), describeEncoding(td.Element))
	case KindMap8, KindMap16, KindMap32:
		return fmt.Sprintf("Map%d<%s,%s>", countWidthOf(td.Kind), describeEncoding(td.Key), describeEncoding(td.Value))
	default:
		if name, ok := primitiveKindNames[td.Kind]; ok {
			return name
		}
		return fmt.Sprintf("Unknown(0x%02x)", td.Kind)
	}
}
