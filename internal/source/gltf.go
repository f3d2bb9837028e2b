package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// GLTFSource loads .gltf / .glb files.
type GLTFSource struct {
	path string
	id   string
}

// NewGLTFSource uses the file name without extension as model id when id is empty.
func NewGLTFSource(path, id string) *GLTFSource {
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &GLTFSource{path: path, id: id}
}

func (s *GLTFSource) Load(ctx context.Context) (*Model, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, err
	}
	doc, err := gltf.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gltf %s: %w", s.path, err)
	}

	model := &Model{
		ID:          s.id,
		Name:        filepath.Base(s.path),
		Revision:    fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()),
		Orientation: DefaultOrientation(),
	}

	meshes := make([]*Mesh, len(doc.Meshes))
	for i, m := range doc.Meshes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mesh, err := readMesh(doc, m)
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		meshes[i] = mesh
	}

	nodes := make([]*Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		node := &Node{Name: n.Name, Local: nodeMatrix(n)}
		if n.Mesh != nil {
			node.Meshes = append(node.Meshes, meshes[*n.Mesh])
		}
		nodes[i] = node
	}
	isChild := make([]bool, len(doc.Nodes))
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			nodes[i].Children = append(nodes[i].Children, nodes[c])
			isChild[int(c)] = true
		}
	}

	switch {
	case len(doc.Scenes) > 0:
		scene := doc.Scenes[0]
		if doc.Scene != nil {
			scene = doc.Scenes[*doc.Scene]
		}
		for _, idx := range scene.Nodes {
			model.Nodes = append(model.Nodes, nodes[idx])
		}
	default:
		for i, n := range nodes {
			if !isChild[i] {
				model.Nodes = append(model.Nodes, n)
			}
		}
	}

	// meshes not referenced by any node still count as model geometry
	if len(model.Nodes) == 0 {
		for _, mesh := range meshes {
			model.Nodes = append(model.Nodes, &Node{Name: mesh.Name, Local: mgl64.Ident4(), Meshes: []*Mesh{mesh}})
		}
	}

	return model, nil
}

func readMesh(doc *gltf.Document, m *gltf.Mesh) (*Mesh, error) {
	mesh := &Mesh{Name: m.Name}
	for _, p := range m.Primitives {
		posIdx, ok := p.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		raw, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}
		prim := &Primitive{Positions: make([]mgl64.Vec3, len(raw))}
		for i, v := range raw {
			prim.Positions[i] = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
		}

		if idx, ok := p.Attributes[gltf.NORMAL]; ok {
			normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
			if err == nil {
				prim.Normals = make([]mgl64.Vec3, len(normals))
				for i, v := range normals {
					prim.Normals[i] = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
				}
			}
		}
		if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
			uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
			if err == nil {
				prim.UVs = make([]mgl64.Vec2, len(uvs))
				for i, v := range uvs {
					prim.UVs[i] = mgl64.Vec2{float64(v[0]), float64(v[1])}
				}
			}
		}
		if p.Indices != nil {
			indices, err := modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("read indices: %w", err)
			}
			prim.Indices = indices
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	return mesh, nil
}

func nodeMatrix(n *gltf.Node) mgl64.Mat4 {
	m := mgl64.Mat4(n.MatrixOrDefault())
	if m != mgl64.Ident4() {
		return m
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	q := mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}
	return mgl64.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}
