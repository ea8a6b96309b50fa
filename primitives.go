package cascadio

import (
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// Primitive is the closed union of classified face records emitted into the
// TM_brep_faces extension. All length-valued fields are in meters; all
// angles are radians.
type Primitive interface {
	PrimitiveType() SurfaceType
}

type PlaneRecord struct {
	FaceIndex int         `json:"face_index"`
	Type      SurfaceType `json:"type"`
	Origin    [3]float64  `json:"origin"`
	Normal    [3]float64  `json:"normal"`
	XDir      [3]float64  `json:"x_dir"`
	ExtentX   [2]float64  `json:"extent_x"`
	ExtentY   [2]float64  `json:"extent_y"`
}

func (r *PlaneRecord) PrimitiveType() SurfaceType { return SurfacePlane }

type CylinderRecord struct {
	FaceIndex    int         `json:"face_index"`
	Type         SurfaceType `json:"type"`
	Origin       [3]float64  `json:"origin"`
	Axis         [3]float64  `json:"axis"`
	Radius       float64     `json:"radius"`
	ExtentAngle  [2]float64  `json:"extent_angle"`
	ExtentHeight [2]float64  `json:"extent_height"`
}

func (r *CylinderRecord) PrimitiveType() SurfaceType { return SurfaceCylinder }

type ConeRecord struct {
	FaceIndex      int         `json:"face_index"`
	Type           SurfaceType `json:"type"`
	Apex           [3]float64  `json:"apex"`
	Axis           [3]float64  `json:"axis"`
	SemiAngle      float64     `json:"semi_angle"`
	RefRadius      float64     `json:"ref_radius"`
	ExtentAngle    [2]float64  `json:"extent_angle"`
	ExtentDistance [2]float64  `json:"extent_distance"`
}

func (r *ConeRecord) PrimitiveType() SurfaceType { return SurfaceCone }

type SphereRecord struct {
	FaceIndex       int         `json:"face_index"`
	Type            SurfaceType `json:"type"`
	Center          [3]float64  `json:"center"`
	Radius          float64     `json:"radius"`
	ExtentLongitude [2]float64  `json:"extent_longitude"`
	ExtentLatitude  [2]float64  `json:"extent_latitude"`
}

func (r *SphereRecord) PrimitiveType() SurfaceType { return SurfaceSphere }

type TorusRecord struct {
	FaceIndex        int         `json:"face_index"`
	Type             SurfaceType `json:"type"`
	Center           [3]float64  `json:"center"`
	Axis             [3]float64  `json:"axis"`
	MajorRadius      float64     `json:"major_radius"`
	MinorRadius      float64     `json:"minor_radius"`
	ExtentMajorAngle [2]float64  `json:"extent_major_angle"`
	ExtentMinorAngle [2]float64  `json:"extent_minor_angle"`
}

func (r *TorusRecord) PrimitiveType() SurfaceType { return SurfaceTorus }

func scaledVec(v vec3d.T, s float64) [3]float64 {
	return [3]float64{v[0] * s, v[1] * s, v[2] * s}
}

func unitVec(v vec3d.T) [3]float64 {
	return [3]float64(v)
}

func scaledBounds(min, max, s float64) [2]float64 {
	return [2]float64{min * s, max * s}
}

// ClassifyFace maps a face's analytic surface into a typed record with all
// length-valued quantities multiplied by lengthUnit. It returns nil for nil
// faces, faces without an analytic surface, and faces whose type is not a
// member of a non-empty allowed set; callers must keep the nil in place so
// positional face indices stay valid.
func ClassifyFace(face *Face, faceIndex int, lengthUnit float64, allowed TypeSet) Primitive {
	if face == nil || face.Surface == nil {
		return nil
	}
	if len(allowed) > 0 && !allowed.Has(face.Surface.Kind()) {
		return nil
	}
	switch s := face.Surface.(type) {
	case *PlaneSurface:
		return classifyPlane(s, face, faceIndex, lengthUnit)
	case *CylinderSurface:
		return classifyCylinder(s, face, faceIndex, lengthUnit)
	case *ConeSurface:
		return classifyCone(s, face, faceIndex, lengthUnit)
	case *SphereSurface:
		return classifySphere(s, face, faceIndex, lengthUnit)
	case *TorusSurface:
		return classifyTorus(s, face, faceIndex, lengthUnit)
	}
	return nil
}

// ClassifyAll classifies every face of a shape, preserving positions: the
// result always has the same length as the input, with nil entries for
// filtered or non-analytic faces.
func ClassifyAll(faces []*Face, lengthUnit float64, allowed TypeSet) []Primitive {
	out := make([]Primitive, len(faces))
	for i, face := range faces {
		out[i] = ClassifyFace(face, i, lengthUnit, allowed)
	}
	return out
}

func classifyPlane(s *PlaneSurface, face *Face, faceIndex int, unit float64) Primitive {
	// For a plane both u and v parametrize lengths in the local frame.
	return &PlaneRecord{
		FaceIndex: faceIndex,
		Type:      SurfacePlane,
		Origin:    scaledVec(s.Position.Location, unit),
		Normal:    unitVec(s.Position.Direction),
		XDir:      unitVec(s.Position.XDir),
		ExtentX:   scaledBounds(face.UMin, face.UMax, unit),
		ExtentY:   scaledBounds(face.VMin, face.VMax, unit),
	}
}

func classifyCylinder(s *CylinderSurface, face *Face, faceIndex int, unit float64) Primitive {
	// u is the angle around the axis, v the height along it.
	return &CylinderRecord{
		FaceIndex:    faceIndex,
		Type:         SurfaceCylinder,
		Origin:       scaledVec(s.Position.Location, unit),
		Axis:         unitVec(s.Position.Direction),
		Radius:       s.Radius * unit,
		ExtentAngle:  [2]float64{face.UMin, face.UMax},
		ExtentHeight: scaledBounds(face.VMin, face.VMax, unit),
	}
}

func classifyCone(s *ConeSurface, face *Face, faceIndex int, unit float64) Primitive {
	// The placement sits on the reference plane; the apex is back along the
	// axis by refRadius/tan(semiAngle).
	apex := s.Position.Location
	if tan := math.Tan(s.SemiAngle); math.Abs(tan) > 1e-12 {
		offset := s.Position.Direction.Scaled(-s.RefRadius / tan)
		apex = vec3d.Add(&s.Position.Location, &offset)
	}
	return &ConeRecord{
		FaceIndex:      faceIndex,
		Type:           SurfaceCone,
		Apex:           scaledVec(apex, unit),
		Axis:           unitVec(s.Position.Direction),
		SemiAngle:      s.SemiAngle,
		RefRadius:      s.RefRadius * unit,
		ExtentAngle:    [2]float64{face.UMin, face.UMax},
		ExtentDistance: scaledBounds(face.VMin, face.VMax, unit),
	}
}

func classifySphere(s *SphereSurface, face *Face, faceIndex int, unit float64) Primitive {
	// u is longitude, v latitude, both angles.
	return &SphereRecord{
		FaceIndex:       faceIndex,
		Type:            SurfaceSphere,
		Center:          scaledVec(s.Position.Location, unit),
		Radius:          s.Radius * unit,
		ExtentLongitude: [2]float64{face.UMin, face.UMax},
		ExtentLatitude:  [2]float64{face.VMin, face.VMax},
	}
}

func classifyTorus(s *TorusSurface, face *Face, faceIndex int, unit float64) Primitive {
	// u is the angle around the main axis, v the angle around the tube.
	return &TorusRecord{
		FaceIndex:        faceIndex,
		Type:             SurfaceTorus,
		Center:           scaledVec(s.Position.Location, unit),
		Axis:             unitVec(s.Position.Direction),
		MajorRadius:      s.MajorRadius * unit,
		MinorRadius:      s.MinorRadius * unit,
		ExtentMajorAngle: [2]float64{face.UMin, face.UMax},
		ExtentMinorAngle: [2]float64{face.VMin, face.VMax},
	}
}
