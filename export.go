package cascadio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// defaultShapeColor is the gray used for shapes without an imported color.
var defaultShapeColor = [4]float64{0.4, 0.4, 0.4, 1}

// MeshExporter produces the baseline GLB from tessellated shape data. It
// supports the export callbacks, so metadata injection runs inline during
// container assembly instead of re-parsing the finished GLB.
type MeshExporter struct {
	// Generator overrides the asset generator tag.
	Generator string
}

func NewMeshExporter() *MeshExporter {
	return &MeshExporter{}
}

func (e *MeshExporter) ExportGLB(res *LoadResult, opt ExportOptions, cb *ExportCallbacks) ([]byte, error) {
	if res == nil {
		return nil, errors.New("nil load result")
	}
	doc := gltf.NewDocument()
	doc.Asset.Generator = e.generator()

	if opt.MergePrimitives {
		e.buildMerged(doc, res, opt, cb)
	} else {
		e.buildPerShape(doc, res, opt)
	}

	var bin []byte
	if len(doc.Buffers) > 0 {
		bin = doc.Buffers[0].Data
	}
	jsonText, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	binLen := uint32(len(bin))
	if cb != nil && cb.JSONRewrite != nil {
		jsonText, err = cb.JSONRewrite(jsonText, binLen)
		if err != nil {
			return nil, err
		}
	}
	if cb != nil && cb.BinaryAppend != nil {
		var extra bytes.Buffer
		if _, err := cb.BinaryAppend(&extra, binLen); err != nil {
			return nil, err
		}
		if extra.Len() > 0 {
			bin = append(bin, extra.Bytes()...)
		}
	}

	g := &Glb{JSON: jsonText, Bin: bin, HasBin: len(bin) > 0}
	return g.Bytes()
}

// buildMerged flattens every shape into one mesh primitive and reports
// face-triangle ranges with face indices offset cumulatively across shapes,
// so indices stay unique within the merged mesh.
func (e *MeshExporter) buildMerged(doc *gltf.Document, res *LoadResult, opt ExportOptions, cb *ExportCallbacks) {
	var positions, normals [][3]float32
	var indices []uint32
	faceOffset := 0
	triBase := 0
	color := defaultShapeColor
	colorSet := false

	for _, shape := range res.Shapes {
		if shape == nil {
			continue
		}
		m := shape.Mesh()
		if m == nil || len(m.Indices) == 0 {
			faceOffset += len(shape.Faces())
			continue
		}
		base := uint32(len(positions))
		positions = append(positions, m.Positions...)
		normals = append(normals, shapeNormals(m)...)
		for _, ix := range m.Indices {
			indices = append(indices, base+ix)
		}
		if cb != nil && cb.FaceData != nil {
			faces := shape.Faces()
			for _, fr := range m.FaceRanges {
				var face *Face
				if fr.FaceIndex >= 0 && fr.FaceIndex < len(faces) {
					face = faces[fr.FaceIndex]
				}
				cb.FaceData(faceOffset+fr.FaceIndex, triBase+fr.TriStart, fr.TriCount, face)
			}
		}
		if !colorSet && opt.UseColors {
			if c, ok := shape.Color(); ok {
				color = c
				colorSet = true
			}
		}
		faceOffset += len(shape.Faces())
		triBase += len(m.Indices) / 3
	}

	if len(positions) == 0 {
		return
	}
	e.addMesh(doc, "merged", positions, normals, indices, color)
}

func (e *MeshExporter) buildPerShape(doc *gltf.Document, res *LoadResult, opt ExportOptions) {
	for i, shape := range res.Shapes {
		if shape == nil {
			continue
		}
		m := shape.Mesh()
		if m == nil || len(m.Indices) == 0 {
			continue
		}
		color := defaultShapeColor
		if opt.UseColors {
			if c, ok := shape.Color(); ok {
				color = c
			}
		}
		name := shape.Name()
		if name == "" {
			name = fmt.Sprintf("shape_%d", i)
		}
		e.addMesh(doc, name, m.Positions, shapeNormals(m), m.Indices, color)
	}
}

func (e *MeshExporter) addMesh(doc *gltf.Document, name string, positions, normals [][3]float32, indices []uint32, color [4]float64) {
	posAccessor := modeler.WritePosition(doc, positions)
	normalAccessor := modeler.WriteNormal(doc, normals)
	indicesAccessor := modeler.WriteIndices(doc, indices)

	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float32{
			float32(color[0]), float32(color[1]), float32(color[2]), float32(color[3]),
		},
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(1),
	}
	material := &gltf.Material{Name: name, PBRMetallicRoughness: pbr}
	if color[3] < 1.0 {
		material.AlphaMode = gltf.AlphaBlend
	} else {
		material.AlphaMode = gltf.AlphaOpaque
	}
	doc.Materials = append(doc.Materials, material)

	prim := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: uint32(posAccessor),
			gltf.NORMAL:   uint32(normalAccessor),
		},
		Indices:  gltf.Index(uint32(indicesAccessor)),
		Material: gltf.Index(uint32(len(doc.Materials) - 1)),
	}

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
}

func (e *MeshExporter) generator() string {
	if e.Generator != "" {
		return e.Generator
	}
	return "go-cascadio"
}

// shapeNormals returns the mesh's normals, computing flat per-vertex normals
// when the kernel did not provide them.
func shapeNormals(m *TriangleMesh) [][3]float32 {
	if len(m.Normals) == len(m.Positions) {
		return m.Normals
	}
	normals := make([][3]float32, len(m.Positions))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		v0, v1, v2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		n := flatNormal(m.Positions[v0], m.Positions[v1], m.Positions[v2])
		normals[v0] = n
		normals[v1] = n
		normals[v2] = n
	}
	return normals
}

func flatNormal(p0, p1, p2 [3]float32) [3]float32 {
	e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
	e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
	cross := [3]float32{
		e1[1]*e2[2] - e1[2]*e2[1],
		e1[2]*e2[0] - e1[0]*e2[2],
		e1[0]*e2[1] - e1[1]*e2[0],
	}
	length := float32(math.Sqrt(float64(cross[0]*cross[0] + cross[1]*cross[1] + cross[2]*cross[2])))
	if length > 0 {
		cross[0] /= length
		cross[1] /= length
		cross[2] /= length
	}
	return cross
}

var _ Exporter = (*MeshExporter)(nil)
