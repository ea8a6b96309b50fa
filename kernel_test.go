package cascadio

import (
	"errors"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// In-memory stand-ins for the external CAD kernel, used across the package
// tests.

type memDocument struct {
	unit    float64
	hasUnit bool
	phys    []PhysicalMaterial
	vis     []VisualMaterial
	closed  bool
}

func (d *memDocument) LengthUnit() (float64, bool)           { return d.unit, d.hasUnit }
func (d *memDocument) PhysicalMaterials() []PhysicalMaterial { return d.phys }
func (d *memDocument) VisualMaterials() []VisualMaterial     { return d.vis }
func (d *memDocument) Close()                                { d.closed = true }

type memShape struct {
	name     string
	faces    []*Face
	mesh     *TriangleMesh
	bbox     vec3d.Box
	color    [4]float64
	hasColor bool
}

func (s *memShape) Name() string           { return s.name }
func (s *memShape) Faces() []*Face         { return s.faces }
func (s *memShape) Mesh() *TriangleMesh    { return s.mesh }
func (s *memShape) BoundingBox() vec3d.Box { return s.bbox }
func (s *memShape) Color() ([4]float64, bool) {
	return s.color, s.hasColor
}

type memLoader struct {
	res  *LoadResult
	err  error
	last LoadOptions
}

func (l *memLoader) LoadFile(path string, ft FileType, opt LoadOptions) (*LoadResult, error) {
	l.last = opt
	return l.res, l.err
}

func (l *memLoader) LoadBytes(data []byte, ft FileType, opt LoadOptions) (*LoadResult, error) {
	l.last = opt
	return l.res, l.err
}

// failLoader always fails, for exercising the fatal load path.
type failLoader struct{}

func (failLoader) LoadFile(string, FileType, LoadOptions) (*LoadResult, error) {
	return nil, errors.New("unreadable input")
}

func (failLoader) LoadBytes([]byte, FileType, LoadOptions) (*LoadResult, error) {
	return nil, errors.New("unreadable input")
}

// cylinderShape approximates a tube of the given radius and height around
// the Z axis with nSeg quads (two triangles each), all owned by one
// cylindrical face.
func cylinderShape(radius, height float64, nSeg int) *memShape {
	var positions [][3]float32
	var indices []uint32
	for i := 0; i <= nSeg; i++ {
		a := 2 * math.Pi * float64(i) / float64(nSeg)
		x := float32(radius * math.Cos(a))
		y := float32(radius * math.Sin(a))
		positions = append(positions, [3]float32{x, y, 0}, [3]float32{x, y, float32(height)})
	}
	for i := 0; i < nSeg; i++ {
		b := uint32(2 * i)
		indices = append(indices, b, b+1, b+2, b+2, b+1, b+3)
	}
	face := &Face{
		Surface: &CylinderSurface{
			Position: Ax3{
				Location:  vec3d.T{0, 0, 0},
				Direction: vec3d.T{0, 0, 1},
				XDir:      vec3d.T{1, 0, 0},
			},
			Radius: radius,
		},
		UMin: 0, UMax: 2 * math.Pi,
		VMin: 0, VMax: height,
	}
	return &memShape{
		name:  "cylinder",
		faces: []*Face{face},
		mesh: &TriangleMesh{
			Positions: positions,
			Indices:   indices,
			FaceRanges: []FaceTriangleRange{
				{FaceIndex: 0, TriStart: 0, TriCount: 2 * nSeg},
			},
		},
		bbox: vec3d.Box{
			Min: vec3d.T{-radius, -radius, 0},
			Max: vec3d.T{radius, radius, height},
		},
	}
}

// quadShape is a single planar face made of two triangles, sized edge x edge
// in the XY plane.
func quadShape(name string, edge float64) *memShape {
	e := float32(edge)
	face := &Face{
		Surface: &PlaneSurface{
			Position: Ax3{
				Location:  vec3d.T{0, 0, 0},
				Direction: vec3d.T{0, 0, 1},
				XDir:      vec3d.T{1, 0, 0},
			},
		},
		UMin: 0, UMax: edge,
		VMin: 0, VMax: edge,
	}
	return &memShape{
		name:  name,
		faces: []*Face{face},
		mesh: &TriangleMesh{
			Positions: [][3]float32{{0, 0, 0}, {e, 0, 0}, {e, e, 0}, {0, e, 0}},
			Indices:   []uint32{0, 1, 2, 0, 2, 3},
			FaceRanges: []FaceTriangleRange{
				{FaceIndex: 0, TriStart: 0, TriCount: 2},
			},
		},
		bbox: vec3d.Box{Min: vec3d.T{0, 0, 0}, Max: vec3d.T{edge, edge, 0}},
	}
}
