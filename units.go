package cascadio

import (
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// DetectLengthUnit returns the scale factor that converts the document's
// native length unit to meters.
//
// A unit stored in the document is authoritative. Without one, the union
// bounding box of the shapes decides: parts larger than one native unit in
// any direction are assumed to be millimeter-scale CAD data (typical parts
// span 10-1000 native units) and get 0.001; everything else is assumed to
// already be meters. A genuinely meter-scale part smaller than one unit is
// indistinguishable from a millimeter part and will be misclassified; that
// is a documented limitation of the heuristic.
func DetectLengthUnit(doc Document, shapes []Shape) float64 {
	if doc != nil {
		if unit, ok := doc.LengthUnit(); ok && unit > 0 {
			return unit
		}
	}

	bbx := vec3d.MinBox
	for _, shape := range shapes {
		if shape == nil {
			continue
		}
		b := shape.BoundingBox()
		bbx.Join(&b)
	}
	if bbx.Min[0] > bbx.Max[0] || bbx.Min[1] > bbx.Max[1] || bbx.Min[2] > bbx.Max[2] {
		// Empty or degenerate box, assume meters.
		return 1.0
	}

	ext := vec3d.Sub(&bbx.Max, &bbx.Min)
	largest := ext[0]
	if ext[1] > largest {
		largest = ext[1]
	}
	if ext[2] > largest {
		largest = ext[2]
	}
	if largest > 1.0 {
		return 0.001
	}
	return 1.0
}
