package cascadio

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
)

// BrepFaces is the decoded TM_brep_faces extension of one mesh primitive.
type BrepFaces struct {
	// FaceIndices holds one owning-face index per triangle.
	FaceIndices []uint32
	// Faces holds the analytic surface records in face-index order; entries
	// are nil for faces that were filtered out or not analytic.
	Faces []Primitive
	// Materials is the material array embedded in the extension, if any.
	Materials []Material
}

// DecodeBrepFaces reads the TM_brep_faces extension back out of a GLB,
// returning the per-triangle face indices and parsed surface records of the
// first primitive that carries the extension.
func DecodeBrepFaces(data []byte) (*BrepFaces, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			raw, ok := prim.Extensions[ExtensionName]
			if !ok {
				continue
			}
			return decodeExtension(doc, raw)
		}
	}
	return nil, errors.New("cascadio: no " + ExtensionName + " extension present")
}

func decodeExtension(doc *gltf.Document, raw any) (*BrepFaces, error) {
	ext, err := anyToMap(raw)
	if err != nil {
		return nil, err
	}
	bf := &BrepFaces{}

	if v, ok := ext["faceIndices"].(float64); ok {
		idx := int(v)
		if idx < 0 || idx >= len(doc.Accessors) {
			return nil, fmt.Errorf("faceIndices accessor %d out of range", idx)
		}
		indices, err := readScalarAccessor(doc, doc.Accessors[idx])
		if err != nil {
			return nil, err
		}
		bf.FaceIndices = indices
	}

	if faces, ok := ext["faces"].([]any); ok {
		bf.Faces = make([]Primitive, len(faces))
		for i, f := range faces {
			bf.Faces[i] = parsePrimitive(f, i)
		}
	}

	if mats, ok := ext["materials"]; ok {
		b, err := json.Marshal(mats)
		if err == nil {
			_ = json.Unmarshal(b, &bf.Materials)
		}
	}
	return bf, nil
}

// anyToMap normalizes an extension value that may already be a decoded map
// or still a raw JSON message.
func anyToMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// readScalarAccessor reads an unsigned scalar accessor out of the buffer it
// views, widening uint8/uint16 components to uint32.
func readScalarAccessor(doc *gltf.Document, acc *gltf.Accessor) ([]uint32, error) {
	if acc.Type != gltf.AccessorScalar {
		return nil, errors.New("accessor is not scalar")
	}
	if acc.BufferView == nil {
		return nil, errors.New("accessor has no bufferView")
	}
	if int(*acc.BufferView) >= len(doc.BufferViews) {
		return nil, errors.New("accessor bufferView out of range")
	}
	bv := doc.BufferViews[*acc.BufferView]
	if int(bv.Buffer) >= len(doc.Buffers) {
		return nil, errors.New("bufferView buffer out of range")
	}
	buffer := doc.Buffers[bv.Buffer]
	start := int(bv.ByteOffset + acc.ByteOffset)
	end := int(bv.ByteOffset + bv.ByteLength)
	if start > end || end > len(buffer.Data) {
		return nil, errors.New("accessor range outside buffer data")
	}
	bf := bytes.NewBuffer(buffer.Data[start:end])

	out := make([]uint32, 0, acc.Count)
	for i := 0; i < int(acc.Count); i++ {
		switch acc.ComponentType {
		case gltf.ComponentUbyte:
			var v uint8
			if err := binary.Read(bf, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			out = append(out, uint32(v))
		case gltf.ComponentUshort:
			var v uint16
			if err := binary.Read(bf, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			out = append(out, uint32(v))
		case gltf.ComponentUint:
			var v uint32
			if err := binary.Read(bf, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			out = append(out, v)
		default:
			return nil, errors.New("unsupported face-index component type")
		}
	}
	return out, nil
}

// parsePrimitive turns one entry of the faces array back into its typed
// record. Unknown or null entries yield nil.
func parsePrimitive(v any, faceIndex int) Primitive {
	face, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if idx, ok := face["face_index"].(float64); ok {
		faceIndex = int(idx)
	}
	typ, _ := face["type"].(string)
	switch SurfaceType(typ) {
	case SurfacePlane:
		return &PlaneRecord{
			FaceIndex: faceIndex,
			Type:      SurfacePlane,
			Origin:    vec3Of(face["origin"]),
			Normal:    vec3Of(face["normal"]),
			XDir:      vec3Of(face["x_dir"]),
			ExtentX:   boundsOf(face["extent_x"]),
			ExtentY:   boundsOf(face["extent_y"]),
		}
	case SurfaceCylinder:
		return &CylinderRecord{
			FaceIndex:    faceIndex,
			Type:         SurfaceCylinder,
			Origin:       vec3Of(face["origin"]),
			Axis:         vec3Of(face["axis"]),
			Radius:       numOf(face["radius"]),
			ExtentAngle:  boundsOf(face["extent_angle"]),
			ExtentHeight: boundsOf(face["extent_height"]),
		}
	case SurfaceCone:
		semi, ok := face["semi_angle"].(float64)
		if !ok {
			// Older readers used half_angle for the same quantity.
			semi = numOf(face["half_angle"])
		}
		return &ConeRecord{
			FaceIndex:      faceIndex,
			Type:           SurfaceCone,
			Apex:           vec3Of(face["apex"]),
			Axis:           vec3Of(face["axis"]),
			SemiAngle:      semi,
			RefRadius:      numOf(face["ref_radius"]),
			ExtentAngle:    boundsOf(face["extent_angle"]),
			ExtentDistance: boundsOf(face["extent_distance"]),
		}
	case SurfaceSphere:
		return &SphereRecord{
			FaceIndex:       faceIndex,
			Type:            SurfaceSphere,
			Center:          vec3Of(face["center"]),
			Radius:          numOf(face["radius"]),
			ExtentLongitude: boundsOf(face["extent_longitude"]),
			ExtentLatitude:  boundsOf(face["extent_latitude"]),
		}
	case SurfaceTorus:
		return &TorusRecord{
			FaceIndex:        faceIndex,
			Type:             SurfaceTorus,
			Center:           vec3Of(face["center"]),
			Axis:             vec3Of(face["axis"]),
			MajorRadius:      numOf(face["major_radius"]),
			MinorRadius:      numOf(face["minor_radius"]),
			ExtentMajorAngle: boundsOf(face["extent_major_angle"]),
			ExtentMinorAngle: boundsOf(face["extent_minor_angle"]),
		}
	}
	return nil
}

func numOf(v any) float64 {
	f, _ := v.(float64)
	return f
}

func vec3Of(v any) [3]float64 {
	var out [3]float64
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for i := 0; i < 3 && i < len(arr); i++ {
		out[i] = numOf(arr[i])
	}
	return out
}

func boundsOf(v any) [2]float64 {
	var out [2]float64
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for i := 0; i < 2 && i < len(arr); i++ {
		out[i] = numOf(arr[i])
	}
	return out
}
