package cascadio

// MaterialPBR mirrors a visual material's metallic-roughness attributes.
type MaterialPBR struct {
	BaseColor       [4]float64 `json:"base_color"`
	Metallic        float64    `json:"metallic"`
	Roughness       float64    `json:"roughness"`
	RefractionIndex float64    `json:"refraction_index"`
	EmissiveFactor  [3]float64 `json:"emissive_factor"`
}

// MaterialCommon mirrors a visual material's legacy Phong-style attributes.
type MaterialCommon struct {
	AmbientColor  [3]float64 `json:"ambient_color"`
	DiffuseColor  [3]float64 `json:"diffuse_color"`
	SpecularColor [3]float64 `json:"specular_color"`
	EmissiveColor [3]float64 `json:"emissive_color"`
	Shininess     float64    `json:"shininess"`
	Transparency  float64    `json:"transparency"`
}

// Material is one normalized entry of the extracted material array, merging
// the document's physical table (name, description, density) and visual
// table (colors, PBR, common). Absent attributes are omitted from JSON.
type Material struct {
	Name             string          `json:"name,omitempty"`
	Description      string          `json:"description,omitempty"`
	Density          float64         `json:"density,omitempty"`
	DensityName      string          `json:"density_name,omitempty"`
	DensityValueType string          `json:"density_value_type,omitempty"`
	BaseColor        *[4]float64     `json:"base_color,omitempty"`
	AlphaCutoff      *float64        `json:"alpha_cutoff,omitempty"`
	PBR              *MaterialPBR    `json:"pbr,omitempty"`
	Common           *MaterialCommon `json:"common,omitempty"`
}

// ExtractMaterials pulls every physical and visual material out of the
// document. A document without material tables yields an empty slice;
// absence is normal, never an error. Must be called before the document is
// closed.
func ExtractMaterials(doc Document) []Material {
	out := []Material{}
	if doc == nil {
		return out
	}

	for _, pm := range doc.PhysicalMaterials() {
		m := Material{
			Name:        pm.Name,
			Description: pm.Description,
		}
		if pm.Density > 0 {
			m.Density = pm.Density
			m.DensityName = pm.DensityName
			m.DensityValueType = pm.DensityValueType
		}
		out = append(out, m)
	}

	for _, vm := range doc.VisualMaterials() {
		base := vm.BaseColor
		cutoff := vm.AlphaCutoff
		m := Material{
			Name:        vm.Name,
			BaseColor:   &base,
			AlphaCutoff: &cutoff,
		}
		if vm.PBR != nil {
			pbr := MaterialPBR{
				BaseColor:       vm.PBR.BaseColor,
				Metallic:        vm.PBR.Metallic,
				Roughness:       vm.PBR.Roughness,
				RefractionIndex: vm.PBR.RefractionIndex,
				EmissiveFactor:  vm.PBR.EmissiveFactor,
			}
			m.PBR = &pbr
		}
		if vm.Common != nil {
			common := MaterialCommon{
				AmbientColor:  vm.Common.AmbientColor,
				DiffuseColor:  vm.Common.DiffuseColor,
				SpecularColor: vm.Common.SpecularColor,
				EmissiveColor: vm.Common.EmissiveColor,
				Shininess:     vm.Common.Shininess,
				Transparency:  vm.Common.Transparency,
			}
			m.Common = &common
		}
		out = append(out, m)
	}

	return out
}
