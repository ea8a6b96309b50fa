package cascadio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// FileType selects the boundary-representation input format.
type FileType int

const (
	FileTypeUnspecified FileType = iota
	FileTypeSTEP
	FileTypeIGES
)

func (ft FileType) String() string {
	switch ft {
	case FileTypeSTEP:
		return "step"
	case FileTypeIGES:
		return "iges"
	}
	return "unspecified"
}

// ParseFileType accepts the usual extensions for STEP and IGES.
func ParseFileType(s string) (FileType, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "step", "stp":
		return FileTypeSTEP, nil
	case "iges", "igs":
		return FileTypeIGES, nil
	}
	return FileTypeUnspecified, fmt.Errorf("cascadio: unsupported file type %q", s)
}

// LoadOptions parameterize reading and tessellating a BREP file.
type LoadOptions struct {
	// TolLinear is the linear deflection tolerance for meshing.
	TolLinear float64
	// TolAngular is the angular deflection tolerance in radians.
	TolAngular float64
	// TolRelative makes TolLinear relative to edge length instead of an
	// absolute distance.
	TolRelative bool
	// UseParallel enables parallel per-face meshing inside the kernel.
	UseParallel bool
	// UseColors imports color attributes from the source file.
	UseColors bool
}

// PhysicalMaterial is one entry of the document's physical material table.
type PhysicalMaterial struct {
	Name             string
	Description      string
	Density          float64
	DensityName      string
	DensityValueType string
}

// VisMaterialPBR carries metallic-roughness shading attributes.
type VisMaterialPBR struct {
	BaseColor       [4]float64
	Metallic        float64
	Roughness       float64
	RefractionIndex float64
	EmissiveFactor  [3]float64
}

// VisMaterialCommon carries legacy Phong-style shading attributes. Both a
// PBR and a common definition may coexist on one material.
type VisMaterialCommon struct {
	AmbientColor  [3]float64
	DiffuseColor  [3]float64
	SpecularColor [3]float64
	EmissiveColor [3]float64
	Shininess     float64
	Transparency  float64
}

// VisualMaterial is one entry of the document's visual material table.
type VisualMaterial struct {
	Name        string
	BaseColor   [4]float64
	AlphaCutoff float64
	PBR         *VisMaterialPBR
	Common      *VisMaterialCommon
}

// Document is the in-memory CAD assembly produced by a Loader. It is owned
// exclusively by one conversion call and must be closed after export and
// metadata extraction complete. Metadata extraction has to happen before
// Close since it reads the document.
type Document interface {
	// LengthUnit returns the stored scale factor from native units to
	// meters, if the source file declared one.
	LengthUnit() (float64, bool)
	PhysicalMaterials() []PhysicalMaterial
	VisualMaterials() []VisualMaterial
	Close()
}

// Shape is one top-level solid or compound of a document. Faces returns the
// topological faces in traversal order; the same order is used for face
// indices everywhere, so it must be stable across calls.
type Shape interface {
	Name() string
	Faces() []*Face
	// Mesh returns the tessellation produced during loading, or nil if the
	// shape could not be meshed.
	Mesh() *TriangleMesh
	BoundingBox() vec3d.Box
	// Color returns the shape's display color, if the source assigned one.
	Color() ([4]float64, bool)
}

// LoadResult is what a Loader hands to the conversion pipeline.
type LoadResult struct {
	Doc    Document
	Shapes []Shape
}

// Loader is the external CAD kernel collaborator: it parses STEP/IGES input
// and tessellates the shapes in place.
type Loader interface {
	LoadFile(path string, ft FileType, opt LoadOptions) (*LoadResult, error)
	LoadBytes(data []byte, ft FileType, opt LoadOptions) (*LoadResult, error)
}

// FaceDataFunc is invoked once per face as it is flattened into triangles
// during export. Calls may arrive in any order; consumers must index by
// faceIndex, never by arrival sequence.
type FaceDataFunc func(faceIndex, triStart, triCount int, face *Face)

// JSONRewriteFunc is invoked once with the fully formed glTF JSON before
// final container assembly, together with the length of the binary payload
// at that point. It returns the JSON to embed instead.
type JSONRewriteFunc func(jsonText []byte, currentBinLength uint32) ([]byte, error)

// BinaryAppendFunc is invoked once to append trailing bytes to the binary
// payload; it reports how many bytes it wrote. Exporters that invoke
// JSONRewriteFunc must invoke BinaryAppendFunc as well, after it and with
// the same currentBinLength: the rewritten JSON references the appended
// bytes.
type BinaryAppendFunc func(w io.Writer, currentBinLength uint32) (int, error)

// ExportCallbacks intercept the baseline export right before the GLB is
// finalized, avoiding a parse/serialize round trip over the result.
type ExportCallbacks struct {
	FaceData     FaceDataFunc
	JSONRewrite  JSONRewriteFunc
	BinaryAppend BinaryAppendFunc
}

// ExportOptions parameterize baseline GLB production.
type ExportOptions struct {
	// MergePrimitives combines all shapes into a single mesh primitive.
	// Face-to-triangle correlation is only guaranteed in this mode.
	MergePrimitives bool
	UseParallel     bool
	UseColors       bool
}

// Exporter produces the baseline triangulated GLB from a loaded document.
type Exporter interface {
	ExportGLB(res *LoadResult, opt ExportOptions, cb *ExportCallbacks) ([]byte, error)
}

// ObjExporter writes a Wavefront OBJ/MTL pair instead of a GLB.
type ObjExporter interface {
	ExportOBJ(res *LoadResult, opt ExportOptions, objPath string) error
}

var loaders = map[string]Loader{}

// RegisterLoader makes a CAD kernel integration available under a name.
// Integrations typically call this from an init function.
func RegisterLoader(name string, l Loader) {
	if l == nil {
		return
	}
	loaders[name] = l
}

// LoaderFor returns the loader registered under name. With an empty name it
// returns the sole registered loader, or nil if there is none or more than
// one.
func LoaderFor(name string) Loader {
	if name != "" {
		return loaders[name]
	}
	if len(loaders) == 1 {
		for _, l := range loaders {
			return l
		}
	}
	return nil
}

// ErrLoad reports that the CAD input could not be read; no output is
// produced.
var ErrLoad = errors.New("cascadio: failed to load BREP input")

// ErrExport reports that baseline GLB production failed; fatal, since there
// is nothing to fall back to.
var ErrExport = errors.New("cascadio: failed to export GLB")
