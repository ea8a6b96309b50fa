package cascadio

import (
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// SurfaceType identifies one of the analytic quadric surface kinds that can
// be exported with full parameters. Freeform/NURBS faces have no type and
// are reported as null entries.
type SurfaceType string

const (
	SurfacePlane    SurfaceType = "plane"
	SurfaceCylinder SurfaceType = "cylinder"
	SurfaceCone     SurfaceType = "cone"
	SurfaceSphere   SurfaceType = "sphere"
	SurfaceTorus    SurfaceType = "torus"
)

// TypeSet restricts which surface types are exported with full geometry.
// An empty set allows everything.
type TypeSet map[SurfaceType]struct{}

func NewTypeSet(types ...SurfaceType) TypeSet {
	ts := make(TypeSet, len(types))
	for _, t := range types {
		ts[t] = struct{}{}
	}
	return ts
}

func (ts TypeSet) Has(t SurfaceType) bool {
	_, ok := ts[t]
	return ok
}

// Ax3 is a right-handed coordinate placement: a location with a main
// direction and a reference X direction, mirroring how CAD kernels position
// analytic surfaces. Direction and XDir are unit vectors.
type Ax3 struct {
	Location  vec3d.T
	Direction vec3d.T
	XDir      vec3d.T
}

// Surface is the closed union of analytic surfaces a face can carry.
type Surface interface {
	Kind() SurfaceType
}

// PlaneSurface places a plane at Position.Location with normal
// Position.Direction.
type PlaneSurface struct {
	Position Ax3
}

func (*PlaneSurface) Kind() SurfaceType { return SurfacePlane }

// CylinderSurface is an infinite cylinder around Position.Direction.
type CylinderSurface struct {
	Position Ax3
	Radius   float64
}

func (*CylinderSurface) Kind() SurfaceType { return SurfaceCylinder }

// ConeSurface is positioned at its reference plane, not its apex; SemiAngle
// is the half angle at the apex in radians and RefRadius the radius at the
// reference plane.
type ConeSurface struct {
	Position  Ax3
	SemiAngle float64
	RefRadius float64
}

func (*ConeSurface) Kind() SurfaceType { return SurfaceCone }

type SphereSurface struct {
	Position Ax3
	Radius   float64
}

func (*SphereSurface) Kind() SurfaceType { return SurfaceSphere }

type TorusSurface struct {
	Position    Ax3
	MajorRadius float64
	MinorRadius float64
}

func (*TorusSurface) Kind() SurfaceType { return SurfaceTorus }

// Face is one topological boundary element of a shape. Surface is nil for
// freeform faces. The UV values are the parametric domain of the face on its
// surface; their meaning (length or angle) depends on the surface kind.
type Face struct {
	Surface Surface
	UMin    float64
	UMax    float64
	VMin    float64
	VMax    float64
}

// FaceTriangleRange correlates one face to the contiguous run of triangles
// it produced during tessellation. TriStart/TriCount index triangles, not
// buffer elements.
type FaceTriangleRange struct {
	FaceIndex int
	TriStart  int
	TriCount  int
}

// TriangleMesh is the tessellation of one shape as read back from the
// kernel. Positions and Normals are parallel; Indices is a flat triangle
// list. FaceRanges maps every face (in traversal order) to its triangles.
type TriangleMesh struct {
	Positions  [][3]float32
	Normals    [][3]float32
	Indices    []uint32
	FaceRanges []FaceTriangleRange
}
