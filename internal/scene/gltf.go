// internal/scene/gltf.go
//
// Loading surface meshes from glTF files
package scene

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTF reads every triangle primitive of a glTF 2.0 file into a single
// MeshData. Primitives without normals are skipped; surface meshes exported
// for viewing always carry them.
func LoadGLTF(path string) (*MeshData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf %s: %w", path, err)
	}

	out := &MeshData{}
	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				continue
			}
			if err := appendPrimitive(out, doc, prim); err != nil {
				return nil, fmt.Errorf("gltf %s, mesh %q: %w", path, mesh.Name, err)
			}
		}
	}

	if out.VertexCount() == 0 {
		return nil, fmt.Errorf("gltf %s: no triangle primitives with normals", path)
	}
	return out, nil
}

func appendPrimitive(out *MeshData, doc *gltf.Document, prim *gltf.Primitive) error {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return fmt.Errorf("primitive has no positions")
	}
	nrmIdx, ok := prim.Attributes[gltf.NORMAL]
	if !ok {
		// skip silently; the caller's error covers the all-skipped case
		return nil
	}

	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}
	normals, err := modeler.ReadNormal(doc, doc.Accessors[nrmIdx], nil)
	if err != nil {
		return fmt.Errorf("read normals: %w", err)
	}
	if len(normals) != len(positions) {
		return fmt.Errorf("normal count %d != position count %d", len(normals), len(positions))
	}

	base := uint32(out.VertexCount())
	for i := range positions {
		out.Vertices = append(out.Vertices,
			positions[i][0], positions[i][1], positions[i][2],
			normals[i][0], normals[i][1], normals[i][2])
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return fmt.Errorf("read indices: %w", err)
		}
		for _, idx := range indices {
			out.Indices = append(out.Indices, base+idx)
		}
	} else {
		for i := uint32(0); i < uint32(len(positions)); i++ {
			out.Indices = append(out.Indices, base+i)
		}
	}
	return nil
}
