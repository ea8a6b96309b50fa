package cascadio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// testBaseGlb assembles a minimal but structurally complete glTF container:
// one buffer holding bin, one bufferView/accessor over it, and meshCount
// meshes sharing the first primitive layout.
func testBaseGlb(t *testing.T, bin []byte, meshCount int) []byte {
	t.Helper()
	var meshes []string
	for i := 0; i < meshCount; i++ {
		meshes = append(meshes, `{"primitives":[{"attributes":{"POSITION":0}}]}`)
	}
	jsonText := fmt.Sprintf(
		`{"asset":{"version":"2.0"},"buffers":[{"byteLength":%d}],`+
			`"bufferViews":[{"buffer":0,"byteOffset":0,"byteLength":%d}],`+
			`"accessors":[{"bufferView":0,"componentType":5126,"count":1,"type":"VEC3"}],`+
			`"meshes":[%s]}`,
		len(bin), len(bin), strings.Join(meshes, ","))
	g := &Glb{JSON: []byte(jsonText), Bin: bin, HasBin: len(bin) > 0}
	data, err := g.Bytes()
	if err != nil {
		t.Fatalf("building base GLB: %v", err)
	}
	return data
}

func testFaceData() []FaceTriangleData {
	quad := quadShape("q", 2)
	cyl := cylinderShape(5, 10, 4)
	return []FaceTriangleData{
		{FaceIndex: 1, TriStart: 2, TriCount: 1, Face: quad.faces[0]},
		{FaceIndex: 2, TriStart: 4, TriCount: 2, Face: cyl.faces[0]},
	}
}

func TestFaceIndexBytes(t *testing.T) {
	buf := FaceIndexBytes(testFaceData())
	if len(buf) != 6*4 {
		t.Fatalf("got %d bytes, want 24 (6 triangles)", len(buf))
	}
	want := []uint32{0, 0, 1, 0, 2, 2}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(buf[i*4:]); got != w {
			t.Errorf("triangle %d: face index %d, want %d", i, got, w)
		}
	}
}

func TestFaceIndexBytesOverlap(t *testing.T) {
	buf := FaceIndexBytes([]FaceTriangleData{
		{FaceIndex: 7, TriStart: 0, TriCount: 3},
		{FaceIndex: 9, TriStart: 1, TriCount: 1},
	})
	want := []uint32{7, 9, 7}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(buf[i*4:]); got != w {
			t.Errorf("triangle %d: face index %d, want %d (last write wins)", i, got, w)
		}
	}
}

func TestFaceIndexBytesNegativeFaceIndex(t *testing.T) {
	buf := FaceIndexBytes([]FaceTriangleData{
		{FaceIndex: -1, TriStart: 0, TriCount: 2},
		{FaceIndex: 3, TriStart: 1, TriCount: 1},
	})
	if len(buf) != 2*4 {
		t.Fatalf("got %d bytes, want 8", len(buf))
	}
	// The negative-index range is dropped entirely: its slots stay 0 instead
	// of wrapping to a huge uint32.
	want := []uint32{0, 3}
	for i, w := range want {
		if got := binary.LittleEndian.Uint32(buf[i*4:]); got != w {
			t.Errorf("triangle %d: face index %d, want %d", i, got, w)
		}
	}

	if buf := FaceIndexBytes([]FaceTriangleData{{FaceIndex: -1, TriStart: 0, TriCount: 4}}); buf != nil {
		t.Errorf("got %d bytes from only a negative-index range", len(buf))
	}
}

func TestFaceIndexBytesEmpty(t *testing.T) {
	if buf := FaceIndexBytes(nil); buf != nil {
		t.Errorf("got %d bytes for no face data", len(buf))
	}
	if buf := FaceIndexBytes([]FaceTriangleData{{FaceIndex: 0, TriStart: 0, TriCount: 0}}); buf != nil {
		t.Errorf("got %d bytes for zero-count ranges", len(buf))
	}
}

func TestAppendFaceIndexPayloadAlignment(t *testing.T) {
	faceBytes := make([]byte, 24)
	var w bytes.Buffer
	n, err := AppendFaceIndexPayload(&w, 6, faceBytes)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if n != w.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, w.Len())
	}
	// 2 bytes of leading pad to align the 6-byte payload, then the array.
	if n != 2+24 {
		t.Errorf("wrote %d bytes, want 26", n)
	}
	if (6+uint32(n))%4 != 0 {
		t.Errorf("total payload %d not 4-byte aligned", 6+n)
	}
	if w.Bytes()[0] != 0 || w.Bytes()[1] != 0 {
		t.Error("alignment padding is not zero bytes")
	}
}

func TestInjectBrepExtension(t *testing.T) {
	bin := []byte{1, 2, 3, 4, 5, 6} // deliberately unaligned
	base := testBaseGlb(t, bin, 1)

	out, err := InjectBrepExtension(base, testFaceData(), nil, nil, 0.001)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	g, err := ParseGlb(out)
	if err != nil {
		t.Fatalf("output failed to re-parse: %v", err)
	}
	doc, err := g.Document()
	if err != nil {
		t.Fatalf("output JSON: %v", err)
	}

	used, _ := doc["extensionsUsed"].([]any)
	if len(used) != 1 || used[0] != ExtensionName {
		t.Errorf("extensionsUsed = %v", used)
	}

	// buffers[0].byteLength covers the padded original plus the array.
	buffers := doc["buffers"].([]any)
	byteLength := buffers[0].(map[string]any)["byteLength"].(float64)
	if byteLength != float64(8+24) {
		t.Errorf("buffers[0].byteLength = %v, want 32", byteLength)
	}
	if len(g.Bin) != 32 {
		t.Errorf("BIN chunk is %d bytes, want 32", len(g.Bin))
	}

	views := doc["bufferViews"].([]any)
	view := views[len(views)-1].(map[string]any)
	if view["byteOffset"].(float64) != 8 || view["byteLength"].(float64) != 24 {
		t.Errorf("face-index bufferView = %v", view)
	}
	if int(view["byteOffset"].(float64))%4 != 0 {
		t.Error("face-index bufferView misaligned")
	}

	accessors := doc["accessors"].([]any)
	acc := accessors[len(accessors)-1].(map[string]any)
	if acc["componentType"].(float64) != componentUnsignedInt || acc["count"].(float64) != 6 || acc["type"] != "SCALAR" {
		t.Errorf("face-index accessor = %v", acc)
	}

	// Original payload bytes survive in place.
	if !bytes.Equal(g.Bin[:6], bin) {
		t.Errorf("original BIN bytes changed: %v", g.Bin[:6])
	}
	// Uncovered triangles 0, 1 and 3 keep face index 0.
	for _, tri := range []int{0, 1, 3} {
		if got := binary.LittleEndian.Uint32(g.Bin[8+tri*4:]); got != 0 {
			t.Errorf("uncovered triangle %d has face index %d", tri, got)
		}
	}

	ext := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)["extensions"].(map[string]any)[ExtensionName].(map[string]any)
	if ext["faceIndices"].(float64) != float64(len(accessors)-1) {
		t.Errorf("faceIndices = %v, want accessor %d", ext["faceIndices"], len(accessors)-1)
	}
	faces := ext["faces"].([]any)
	if len(faces) != 2 {
		t.Fatalf("faces array has %d entries, want 2", len(faces))
	}
	plane := faces[0].(map[string]any)
	if plane["type"] != "plane" || plane["face_index"].(float64) != 1 {
		t.Errorf("faces[0] = %v", plane)
	}
	cyl := faces[1].(map[string]any)
	if cyl["type"] != "cylinder" || cyl["radius"].(float64) != 0.005 {
		t.Errorf("faces[1] = %v", cyl)
	}
}

func TestInjectBrepExtensionLeavesInputUnchanged(t *testing.T) {
	// Aligned BIN payload followed by an unknown trailing chunk: parsing
	// tolerates the extra chunk, and injection must not grow the BIN slice
	// into the bytes behind it.
	base := testBaseGlb(t, []byte{1, 2, 3, 4}, 1)
	trailing := []byte{4, 0, 0, 0, 0x78, 0x56, 0x34, 0x12, 0xDE, 0xAD, 0xBE, 0xEF}
	input := append(base, trailing...)
	binary.LittleEndian.PutUint32(input[8:12], uint32(len(input)))
	snapshot := append([]byte(nil), input...)

	if _, err := InjectBrepExtension(input, testFaceData(), nil, nil, 1.0); err != nil {
		t.Fatalf("inject: %v", err)
	}
	for i := range input {
		if input[i] != snapshot[i] {
			t.Fatalf("input buffer changed at byte %d: was 0x%02X, now 0x%02X", i, snapshot[i], input[i])
		}
	}
}

func TestInjectTypeFilterKeepsNull(t *testing.T) {
	base := testBaseGlb(t, []byte{0, 0, 0, 0}, 1)
	out, err := InjectBrepExtension(base, testFaceData(), nil, NewTypeSet(SurfaceCylinder), 1.0)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	g, _ := ParseGlb(out)
	doc, _ := g.Document()
	ext := doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)["extensions"].(map[string]any)[ExtensionName].(map[string]any)
	faces := ext["faces"].([]any)
	if len(faces) != 2 {
		t.Fatalf("faces array has %d entries, want 2", len(faces))
	}
	if faces[0] != nil {
		t.Errorf("filtered plane is %v, want null placeholder", faces[0])
	}
	if faces[1] == nil {
		t.Error("cylinder was filtered out by its own type")
	}
}

func TestInjectExtensionsUsedIdempotent(t *testing.T) {
	base := testBaseGlb(t, []byte{0, 0, 0, 0}, 1)
	once, err := InjectBrepExtension(base, testFaceData(), nil, nil, 1.0)
	if err != nil {
		t.Fatalf("first inject: %v", err)
	}
	twice, err := InjectBrepExtension(once, testFaceData(), nil, nil, 1.0)
	if err != nil {
		t.Fatalf("second inject: %v", err)
	}
	g, _ := ParseGlb(twice)
	doc, _ := g.Document()
	count := 0
	for _, v := range doc["extensionsUsed"].([]any) {
		if v == ExtensionName {
			count++
		}
	}
	if count != 1 {
		t.Errorf("extension declared %d times", count)
	}
}

func TestInjectMaterialsOnly(t *testing.T) {
	// Empty scene: meshes exist but there is no geometry and no BIN chunk.
	base := testBaseGlb(t, nil, 2)
	mats := []Material{{Name: "steel", Density: 7850}}

	out, err := InjectBrepExtension(base, nil, mats, nil, 1.0)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	g, err := ParseGlb(out)
	if err != nil {
		t.Fatalf("output failed to re-parse: %v", err)
	}
	if g.HasBin {
		t.Error("materials-only injection added a BIN chunk")
	}
	doc, _ := g.Document()
	if _, ok := doc["extensionsUsed"]; ok {
		t.Error("materials-only injection declared the extension")
	}
	meshes := doc["meshes"].([]any)
	for i, m := range meshes {
		extras, ok := m.(map[string]any)["extras"].(map[string]any)
		if !ok {
			t.Fatalf("mesh %d has no extras", i)
		}
		ns := extras["cascadio"].(map[string]any)
		arr := ns["materials"].([]any)
		if len(arr) != 1 || arr[0].(map[string]any)["name"] != "steel" {
			t.Errorf("mesh %d materials = %v", i, arr)
		}
	}
}

func TestInjectErrors(t *testing.T) {
	if _, err := InjectBrepExtension([]byte("not a glb"), testFaceData(), nil, nil, 1.0); !errors.Is(err, ErrFormat) {
		t.Errorf("garbage input: got %v, want ErrFormat", err)
	}

	noMeshes := &Glb{JSON: []byte(`{"asset":{"version":"2.0"},"buffers":[{"byteLength":0}],"bufferViews":[],"accessors":[]}`)}
	data, _ := noMeshes.Bytes()
	if _, err := InjectBrepExtension(data, testFaceData(), nil, nil, 1.0); !errors.Is(err, ErrInjection) {
		t.Errorf("missing meshes: got %v, want ErrInjection", err)
	}

	noBuffers := &Glb{JSON: []byte(`{"asset":{"version":"2.0"},"meshes":[{"primitives":[{}]}]}`)}
	data, _ = noBuffers.Bytes()
	if _, err := InjectBrepExtension(data, testFaceData(), nil, nil, 1.0); !errors.Is(err, ErrInjection) {
		t.Errorf("missing buffers: got %v, want ErrInjection", err)
	}
}

func TestMaterialsValueIndependence(t *testing.T) {
	mats := []Material{{Name: "steel"}}
	a := materialsValue(mats).([]any)
	b := materialsValue(mats).([]any)
	a[0].(map[string]any)["name"] = "mutated"
	if b[0].(map[string]any)["name"] != "steel" {
		t.Error("materials trees share structure across calls")
	}
}
