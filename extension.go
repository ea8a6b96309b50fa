package cascadio

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ExtensionName is the glTF extension carrying per-triangle BREP face
// indices and analytic surface records.
const ExtensionName = "TM_brep_faces"

// componentUnsignedInt is the glTF componentType for uint32 accessors.
const componentUnsignedInt = 5125

// ErrInjection reports a failed metadata mutation. It is non-fatal to the
// overall conversion: the caller keeps the baseline GLB, which remains
// valid.
var ErrInjection = errors.New("cascadio: metadata injection failed")

// FaceTriangleData correlates one face with the triangle range it produced
// during export, plus the face itself for classification.
type FaceTriangleData struct {
	FaceIndex int
	TriStart  int
	TriCount  int
	Face      *Face
}

// FaceIndexBytes builds the dense little-endian uint32 per-triangle
// face-index array. Slots not covered by any range keep face index 0, which
// is indistinguishable from a triangle that legitimately belongs to face 0;
// the value is kept for compatibility with existing consumers. Overlapping
// ranges resolve last-write-wins. Ranges with a negative face index are
// ignored: uint32 conversion would turn them into absurdly large indices.
func FaceIndexBytes(faceData []FaceTriangleData) []byte {
	total := 0
	for _, fd := range faceData {
		if fd.FaceIndex < 0 {
			continue
		}
		if end := fd.TriStart + fd.TriCount; end > total {
			total = end
		}
	}
	if total <= 0 {
		return nil
	}
	buf := make([]byte, total*4)
	for _, fd := range faceData {
		if fd.FaceIndex < 0 {
			continue
		}
		for t := fd.TriStart; t < fd.TriStart+fd.TriCount; t++ {
			if t < 0 {
				continue
			}
			binary.LittleEndian.PutUint32(buf[t*4:], uint32(fd.FaceIndex))
		}
	}
	return buf
}

// AppendFaceIndexPayload writes the face-index array to w, preceded by the
// zero padding that 4-byte aligns the existing binary payload and followed
// by the zero padding that re-aligns the total. It returns the number of
// bytes written.
func AppendFaceIndexPayload(w io.Writer, currentBinLength uint32, faceBytes []byte) (int, error) {
	if len(faceBytes) == 0 {
		return 0, nil
	}
	written := 0
	if pad := int(align4(currentBinLength) - currentBinLength); pad > 0 {
		n, err := w.Write(make([]byte, pad))
		written += n
		if err != nil {
			return written, err
		}
	}
	n, err := w.Write(faceBytes)
	written += n
	if err != nil {
		return written, err
	}
	if pad := int(align4(uint32(len(faceBytes))) - uint32(len(faceBytes))); pad > 0 {
		n, err := w.Write(make([]byte, pad))
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func align4(v uint32) uint32 {
	return (v + 3) &^ 3
}

// InjectBrepExtension is the post-hoc injection path: it re-parses a
// complete GLB, rewrites the JSON document, appends the face-index payload
// to the binary chunk, and re-serializes. On any failure the input bytes are
// left untouched and the caller should keep using them.
func InjectBrepExtension(glb []byte, faceData []FaceTriangleData, materials []Material, allowed TypeSet, lengthUnit float64) ([]byte, error) {
	g, err := ParseGlb(glb)
	if err != nil {
		return nil, err
	}

	faceBytes := FaceIndexBytes(faceData)
	newJSON, err := injectIntoJSON(g.JSON, faceData, uint32(len(g.Bin)), uint32(len(faceBytes)), allowed, materials, lengthUnit)
	if err != nil {
		return nil, err
	}
	g.JSON = newJSON

	if len(faceBytes) > 0 {
		// g.Bin is a view into the caller's buffer; growing it in place would
		// scribble over whatever follows the BIN chunk there.
		bin := append(make([]byte, 0, int(align4(uint32(len(g.Bin))))+len(faceBytes)), g.Bin...)
		bin = padChunk(bin, 0x00)
		bin = append(bin, faceBytes...)
		g.Bin = padChunk(bin, 0x00)
		g.HasBin = true
	}
	return g.Bytes()
}

// injectIntoJSON mutates the glTF JSON document text: it grows
// buffers[0].byteLength, appends the face-index bufferView and accessor,
// declares the extension, attaches it to the first mesh primitive, and
// copies materials into every mesh's extras. existingBinLength is the
// length of the binary payload before the face-index array is appended.
func injectIntoJSON(jsonText []byte, faceData []FaceTriangleData, existingBinLength, faceIndicesBytes uint32, allowed TypeSet, materials []Material, lengthUnit float64) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(jsonText, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing glTF JSON: %v", ErrInjection, err)
	}

	hasBrep := len(faceData) > 0 && faceIndicesBytes > 0
	if hasBrep {
		faceIndicesOffset := align4(existingBinLength)
		newBinLength := faceIndicesOffset + align4(faceIndicesBytes)

		buffers, ok := docArray(doc, "buffers")
		if !ok || len(buffers) == 0 {
			return nil, fmt.Errorf("%w: document has no buffers", ErrInjection)
		}
		buffer0, ok := buffers[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: buffers[0] is not an object", ErrInjection)
		}
		buffer0["byteLength"] = float64(newBinLength)

		bufferViews, ok := docArray(doc, "bufferViews")
		if !ok {
			return nil, fmt.Errorf("%w: document has no bufferViews", ErrInjection)
		}
		bufferViewID := len(bufferViews)
		doc["bufferViews"] = append(bufferViews, map[string]any{
			"buffer":     float64(0),
			"byteOffset": float64(faceIndicesOffset),
			"byteLength": float64(faceIndicesBytes),
		})

		accessors, ok := docArray(doc, "accessors")
		if !ok {
			return nil, fmt.Errorf("%w: document has no accessors", ErrInjection)
		}
		accessorID := len(accessors)
		doc["accessors"] = append(accessors, map[string]any{
			"bufferView":    float64(bufferViewID),
			"byteOffset":    float64(0),
			"componentType": float64(componentUnsignedInt),
			"count":         float64(faceIndicesBytes / 4),
			"type":          "SCALAR",
		})

		addExtensionUsed(doc, ExtensionName)

		faces := make([]any, 0, len(faceData))
		for _, fd := range faceData {
			if p := ClassifyFace(fd.Face, fd.FaceIndex, lengthUnit, allowed); p != nil {
				faces = append(faces, p)
			} else {
				faces = append(faces, nil)
			}
		}

		ext := map[string]any{
			"faceIndices": float64(accessorID),
			"faces":       faces,
		}
		if materials != nil {
			ext["materials"] = materialsValue(materials)
		}
		if err := attachToFirstPrimitive(doc, ext); err != nil {
			return nil, err
		}
	}

	// Materials go into every mesh's extras regardless of BREP data. Each
	// mesh gets an independent deep copy; a shared value must never be
	// aliased across attachment points.
	if materials != nil {
		if meshes, ok := docArray(doc, "meshes"); ok {
			for _, m := range meshes {
				mesh, ok := m.(map[string]any)
				if !ok {
					continue
				}
				extras, ok := mesh["extras"].(map[string]any)
				if !ok {
					extras = map[string]any{}
					mesh["extras"] = extras
				}
				ns, ok := extras["cascadio"].(map[string]any)
				if !ok {
					ns = map[string]any{}
					extras["cascadio"] = ns
				}
				ns["materials"] = materialsValue(materials)
			}
		}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInjection, err)
	}
	return out, nil
}

// addExtensionUsed declares name in extensionsUsed exactly once.
func addExtensionUsed(doc map[string]any, name string) {
	used, _ := docArray(doc, "extensionsUsed")
	for _, v := range used {
		if s, ok := v.(string); ok && s == name {
			return
		}
	}
	doc["extensionsUsed"] = append(used, name)
}

func attachToFirstPrimitive(doc map[string]any, ext map[string]any) error {
	meshes, ok := docArray(doc, "meshes")
	if !ok || len(meshes) == 0 {
		return fmt.Errorf("%w: document has no meshes", ErrInjection)
	}
	mesh, ok := meshes[0].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: meshes[0] is not an object", ErrInjection)
	}
	prims, ok := mesh["primitives"].([]any)
	if !ok || len(prims) == 0 {
		return fmt.Errorf("%w: meshes[0] has no primitives", ErrInjection)
	}
	prim, ok := prims[0].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: primitives[0] is not an object", ErrInjection)
	}
	exts, ok := prim["extensions"].(map[string]any)
	if !ok {
		exts = map[string]any{}
		prim["extensions"] = exts
	}
	exts[ExtensionName] = ext
	return nil
}

// materialsValue returns a freshly built JSON tree for the materials array.
// Every call returns an independent copy.
func materialsValue(materials []Material) any {
	b, err := json.Marshal(materials)
	if err != nil {
		return []any{}
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return []any{}
	}
	return v
}

func docArray(doc map[string]any, key string) ([]any, bool) {
	v, ok := doc[key]
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}
