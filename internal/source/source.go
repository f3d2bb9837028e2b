package source

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
)

// Source produces a model ready for analysis.
type Source interface {
	Load(ctx context.Context) (*Model, error)
}

// Model is the mesh graph of one loaded asset.
type Model struct {
	ID          string
	Name        string
	Revision    string // changes whenever the geometry changes
	Orientation Orientation
	Nodes       []*Node
}

// Orientation is the placement of the model root in the scene.
type Orientation struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"` // euler XYZ, radians
	Scale    mgl64.Vec3 `json:"scale"`
}

func DefaultOrientation() Orientation {
	return Orientation{Scale: mgl64.Vec3{1, 1, 1}}
}

// Matrix composes translation * rotation * scale.
func (o Orientation) Matrix() mgl64.Mat4 {
	scale := o.Scale
	if scale == (mgl64.Vec3{}) {
		scale = mgl64.Vec3{1, 1, 1}
	}
	rot := mgl64.AnglesToQuat(o.Rotation[0], o.Rotation[1], o.Rotation[2], mgl64.XYZ)
	return mgl64.Translate3D(o.Position[0], o.Position[1], o.Position[2]).
		Mul4(rot.Mat4()).
		Mul4(mgl64.Scale3D(scale[0], scale[1], scale[2]))
}

type Node struct {
	Name     string
	Local    mgl64.Mat4
	Meshes   []*Mesh
	Children []*Node
}

type Mesh struct {
	Name       string
	Primitives []*Primitive
}

// Primitive is one drawable triangle list. Normals and UVs may be missing.
type Primitive struct {
	Positions []mgl64.Vec3
	Normals   []mgl64.Vec3
	UVs       []mgl64.Vec2
	Indices   []uint32
}

// FaceCount counts triangles, indexed or not.
func (p *Primitive) FaceCount() int {
	if len(p.Indices) > 0 {
		return len(p.Indices) / 3
	}
	return len(p.Positions) / 3
}

// Walk visits every node depth-first with its world matrix.
func (m *Model) Walk(fn func(node *Node, world mgl64.Mat4)) {
	root := m.Orientation.Matrix()
	var visit func(n *Node, parent mgl64.Mat4)
	visit = func(n *Node, parent mgl64.Mat4) {
		world := parent.Mul4(n.Local)
		fn(n, world)
		for _, child := range n.Children {
			visit(child, world)
		}
	}
	for _, n := range m.Nodes {
		visit(n, root)
	}
}
