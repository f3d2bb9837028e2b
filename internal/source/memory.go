package source

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// MemorySource serves an already built model.
type MemorySource struct {
	model *Model
}

func NewMemorySource(model *Model) *MemorySource {
	return &MemorySource{model: model}
}

func (s *MemorySource) Load(ctx context.Context) (*Model, error) {
	if s.model == nil {
		return nil, fmt.Errorf("memory source has no model")
	}
	return s.model, nil
}

// NewBoxModel builds an indexed cube spanning min..max without normals or UVs.
func NewBoxModel(id string, min, max mgl64.Vec3) *Model {
	positions := []mgl64.Vec3{
		{min[0], min[1], min[2]}, {max[0], min[1], min[2]},
		{max[0], max[1], min[2]}, {min[0], max[1], min[2]},
		{min[0], min[1], max[2]}, {max[0], min[1], max[2]},
		{max[0], max[1], max[2]}, {min[0], max[1], max[2]},
	}
	indices := []uint32{
		0, 2, 1, 0, 3, 2, // back
		4, 5, 6, 4, 6, 7, // front
		0, 1, 5, 0, 5, 4, // bottom
		3, 7, 6, 3, 6, 2, // top
		0, 4, 7, 0, 7, 3, // left
		1, 2, 6, 1, 6, 5, // right
	}
	return &Model{
		ID:          id,
		Name:        "box",
		Revision:    fmt.Sprintf("box:%v:%v", min, max),
		Orientation: DefaultOrientation(),
		Nodes: []*Node{{
			Name:  "box",
			Local: mgl64.Ident4(),
			Meshes: []*Mesh{{
				Name:       "box",
				Primitives: []*Primitive{{Positions: positions, Indices: indices}},
			}},
		}},
	}
}
