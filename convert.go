package cascadio

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// ConvertOptions parameterize a full BREP-to-GLB conversion.
type ConvertOptions struct {
	// TolLinear is the linear deflection tolerance for meshing.
	TolLinear float64
	// TolAngular is the angular deflection tolerance in radians.
	TolAngular float64
	// TolRelative makes TolLinear relative to edge length.
	TolRelative bool
	// MergePrimitives produces a GLB with one mesh primitive for all parts.
	MergePrimitives bool
	// UseParallel enables parallel meshing and export.
	UseParallel bool
	// UseColors imports display colors from the source file.
	UseColors bool
	// IncludeBrep embeds the TM_brep_faces extension with per-triangle face
	// indices and analytic surface records. Requires MergePrimitives.
	IncludeBrep bool
	// BrepTypes restricts which surface types get full geometry records;
	// empty means all. Filtered faces stay as null entries.
	BrepTypes TypeSet
	// IncludeMaterials attaches the document's material tables to every
	// mesh's extras. Requires MergePrimitives.
	IncludeMaterials bool
}

// DefaultConvertOptions matches the defaults of the original converter.
func DefaultConvertOptions() *ConvertOptions {
	return &ConvertOptions{
		TolLinear:       0.01,
		TolAngular:      0.5,
		MergePrimitives: true,
		UseParallel:     true,
		UseColors:       true,
	}
}

func (opt *ConvertOptions) loadOptions() LoadOptions {
	return LoadOptions{
		TolLinear:   opt.TolLinear,
		TolAngular:  opt.TolAngular,
		TolRelative: opt.TolRelative,
		UseParallel: opt.UseParallel,
		UseColors:   opt.UseColors,
	}
}

func (opt *ConvertOptions) exportOptions() ExportOptions {
	return ExportOptions{
		MergePrimitives: opt.MergePrimitives,
		UseParallel:     opt.UseParallel,
		UseColors:       opt.UseColors,
	}
}

// Convert loads a BREP buffer through the given kernel loader, exports the
// baseline GLB, and enriches it with BREP and material metadata when
// requested. Metadata enrichment is best-effort: if injection fails the
// baseline GLB is returned with a logged warning. Load and export failures
// are fatal and produce no output.
func Convert(loader Loader, exporter Exporter, data []byte, ft FileType, opt *ConvertOptions) ([]byte, error) {
	if opt == nil {
		opt = DefaultConvertOptions()
	}
	if loader == nil {
		return nil, fmt.Errorf("%w: no loader", ErrLoad)
	}
	if exporter == nil {
		return nil, fmt.Errorf("%w: no exporter", ErrExport)
	}

	res, err := loader.LoadBytes(data, ft, opt.loadOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if res == nil || res.Doc == nil {
		return nil, fmt.Errorf("%w: loader returned no document", ErrLoad)
	}
	defer res.Doc.Close()

	includeBrep := opt.IncludeBrep
	includeMaterials := opt.IncludeMaterials
	if (includeBrep || includeMaterials) && !opt.MergePrimitives {
		// Face-to-triangle correlation is only guaranteed when primitives
		// are merged; proceed without metadata.
		log.Warn("brep/material metadata requires merge_primitives; continuing without metadata")
		includeBrep = false
		includeMaterials = false
	}

	var materials []Material
	if includeMaterials {
		materials = ExtractMaterials(res.Doc)
	}

	lengthUnit := 1.0
	var faceData []FaceTriangleData
	cb := &ExportCallbacks{}
	if includeBrep {
		lengthUnit = DetectLengthUnit(res.Doc, res.Shapes)
		cb.FaceData = func(faceIndex, triStart, triCount int, face *Face) {
			faceData = append(faceData, FaceTriangleData{
				FaceIndex: faceIndex,
				TriStart:  triStart,
				TriCount:  triCount,
				Face:      face,
			})
		}
	}

	wantInject := includeBrep || includeMaterials
	jsonInjected := false
	binAppended := false
	if wantInject {
		// Inline path: rewrite the JSON and append the face-index payload
		// while the exporter assembles the container. Exporters that do not
		// support the callbacks never call them and the post-hoc path below
		// takes over.
		cb.JSONRewrite = func(jsonText []byte, binLen uint32) ([]byte, error) {
			faceBytes := FaceIndexBytes(faceData)
			out, err := injectIntoJSON(jsonText, faceData, binLen, uint32(len(faceBytes)), opt.BrepTypes, materials, lengthUnit)
			if err != nil {
				log.Warn("inline metadata injection failed, keeping baseline JSON", zap.Error(err))
				return jsonText, nil
			}
			jsonInjected = true
			return out, nil
		}
		cb.BinaryAppend = func(w io.Writer, binLen uint32) (int, error) {
			if !jsonInjected {
				return 0, nil
			}
			n, err := AppendFaceIndexPayload(w, binLen, FaceIndexBytes(faceData))
			if err == nil {
				binAppended = true
			}
			return n, err
		}
	}

	glb, err := exporter.ExportGLB(res, opt.exportOptions(), cb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExport, err)
	}

	// Inline injection counts only when the payload made it into the
	// container too: an exporter that honors JSONRewrite but skips
	// BinaryAppend leaves the face-index accessor dangling, and the post-hoc
	// pass repairs that.
	injected := jsonInjected && (binAppended || len(FaceIndexBytes(faceData)) == 0)
	if wantInject && !injected {
		out, err := InjectBrepExtension(glb, faceData, materials, opt.BrepTypes, lengthUnit)
		if err != nil {
			log.Warn("metadata injection failed, returning baseline GLB", zap.Error(err))
			return glb, nil
		}
		return out, nil
	}
	return glb, nil
}

// ConvertFile converts a BREP file on disk to a GLB file. When ft is
// unspecified it is inferred from the input extension.
func ConvertFile(loader Loader, exporter Exporter, inPath, outPath string, ft FileType, opt *ConvertOptions) error {
	if ft == FileTypeUnspecified {
		parsed, err := ParseFileType(extOf(inPath))
		if err != nil {
			return err
		}
		ft = parsed
	}
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	out, err := Convert(loader, exporter, data, ft, opt)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, out, 0644)
}

// ConvertToOBJ loads a BREP buffer and writes a Wavefront OBJ/MTL pair in
// native units. BREP and material metadata do not apply to OBJ output.
func ConvertToOBJ(loader Loader, exporter ObjExporter, data []byte, ft FileType, objPath string, opt *ConvertOptions) error {
	if opt == nil {
		opt = DefaultConvertOptions()
	}
	if loader == nil {
		return fmt.Errorf("%w: no loader", ErrLoad)
	}
	if exporter == nil {
		return fmt.Errorf("%w: no exporter", ErrExport)
	}
	res, err := loader.LoadBytes(data, ft, opt.loadOptions())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if res == nil || res.Doc == nil {
		return fmt.Errorf("%w: loader returned no document", ErrLoad)
	}
	defer res.Doc.Close()
	if err := exporter.ExportOBJ(res, opt.exportOptions(), objPath); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/' && path[i] != '\\'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}
