package cascadio

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportOBJ writes the tessellated shapes as a Wavefront OBJ with a sibling
// MTL file. Coordinates stay in the source file's native units. With
// UseColors disabled every shape gets the default gray material.
func (e *MeshExporter) ExportOBJ(res *LoadResult, opt ExportOptions, objPath string) error {
	if res == nil {
		return errors.New("nil load result")
	}
	mtlPath := strings.TrimSuffix(objPath, filepath.Ext(objPath)) + ".mtl"

	objFile, err := os.Create(objPath)
	if err != nil {
		return err
	}
	defer objFile.Close()
	mtlFile, err := os.Create(mtlPath)
	if err != nil {
		return err
	}
	defer mtlFile.Close()

	obj := bufio.NewWriter(objFile)
	mtl := bufio.NewWriter(mtlFile)

	fmt.Fprintf(obj, "# %s\n", e.generator())
	fmt.Fprintf(obj, "mtllib %s\n", filepath.Base(mtlPath))

	vertBase := 1 // OBJ indices are 1-based
	for i, shape := range res.Shapes {
		if shape == nil {
			continue
		}
		m := shape.Mesh()
		if m == nil || len(m.Indices) == 0 {
			continue
		}

		name := shape.Name()
		if name == "" {
			name = fmt.Sprintf("shape_%d", i)
		}
		mtlName := fmt.Sprintf("material_%d", i)

		color := defaultShapeColor
		if opt.UseColors {
			if c, ok := shape.Color(); ok {
				color = c
			}
		}
		fmt.Fprintf(mtl, "newmtl %s\n", mtlName)
		fmt.Fprintf(mtl, "Kd %g %g %g\n", color[0], color[1], color[2])
		if color[3] < 1.0 {
			fmt.Fprintf(mtl, "d %g\n", color[3])
		}
		fmt.Fprintln(mtl)

		fmt.Fprintf(obj, "o %s\n", name)
		fmt.Fprintf(obj, "usemtl %s\n", mtlName)
		for _, p := range m.Positions {
			fmt.Fprintf(obj, "v %g %g %g\n", p[0], p[1], p[2])
		}
		normals := shapeNormals(m)
		for _, n := range normals {
			fmt.Fprintf(obj, "vn %g %g %g\n", n[0], n[1], n[2])
		}
		for t := 0; t+2 < len(m.Indices); t += 3 {
			a := vertBase + int(m.Indices[t])
			b := vertBase + int(m.Indices[t+1])
			c := vertBase + int(m.Indices[t+2])
			fmt.Fprintf(obj, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		}
		vertBase += len(m.Positions)
	}

	if err := obj.Flush(); err != nil {
		return err
	}
	return mtl.Flush()
}

var _ ObjExporter = (*MeshExporter)(nil)
