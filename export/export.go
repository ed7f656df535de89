// SPDX-License-Identifier: GPL-2.0-or-later

// Package export writes the compiled face set as a glTF preview so the
// result can be checked in an external viewer before full serialization.
package export

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"gobsp/conlog"
	"gobsp/tree"
)

// Triangles flattens every face fragment of the tree into an indexed
// triangle list over the world vertex table. Fragments are fan
// triangulated from their first vertex.
func Triangles(t *tree.Tree) []uint32 {
	var indices []uint32
	var walk func(ni int32)
	walk = func(ni int32) {
		node := t.Node(ni)
		if node.IsLeaf() {
			return
		}
		for _, f := range node.Faces {
			for _, frag := range f.Fragments {
				for i := 1; i+1 < len(frag); i++ {
					indices = append(indices, frag[0], frag[i], frag[i+1])
				}
			}
		}
		walk(node.Children[0])
		walk(node.Children[1])
	}
	walk(t.Head)
	return indices
}

// Document builds a one-mesh glTF document from the tree's fragments.
func Document(t *tree.Tree) (*gltf.Document, error) {
	indices := Triangles(t)
	if len(indices) == 0 {
		return nil, errors.New("export: no fragments to export")
	}

	positions := make([][3]float32, len(t.World.Vertexes))
	for i, v := range t.World.Vertexes {
		positions[i] = v.Array()
	}

	doc := gltf.NewDocument()
	posAcc := modeler.WritePosition(doc, positions)
	idxAcc := modeler.WriteIndices(doc, indices)

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "worldspawn",
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(idxAcc),
			Attributes: map[string]int{
				gltf.POSITION: posAcc,
			},
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: "worldspawn",
		Mesh: gltf.Index(len(doc.Meshes) - 1),
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)

	return doc, nil
}

// Save writes the preview next to the compiled map. A .glb extension
// selects the binary container.
func Save(t *tree.Tree, path string) error {
	doc, err := Document(t)
	if err != nil {
		return err
	}

	if filepath.Ext(path) == ".glb" {
		err = gltf.SaveBinary(doc, path)
	} else {
		err = gltf.Save(doc, path)
	}
	if err != nil {
		return errors.Wrapf(err, "export: writing %s", path)
	}

	conlog.Statf("wrote preview %s\n", path)
	return nil
}
