package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"name": "tri", "mesh": 0, "translation": [0, 2, 0]}],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}}]}],
  "buffers": [{"byteLength": 36, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAA"}],
  "bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": 36}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]}]
}`

func TestGLTFSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.gltf")
	if err := os.WriteFile(path, []byte(triangleGLTF), 0644); err != nil {
		t.Fatal(err)
	}

	model, err := NewGLTFSource(path, "").Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if model.ID != "triangle" {
		t.Errorf("Expected id triangle, got %s", model.ID)
	}
	if model.Revision == "" {
		t.Error("Expected a revision")
	}

	var positions []mgl64.Vec3
	model.Walk(func(node *Node, world mgl64.Mat4) {
		for _, mesh := range node.Meshes {
			for _, p := range mesh.Primitives {
				if len(p.Normals) != 0 || len(p.UVs) != 0 {
					t.Errorf("Expected no normals or uvs")
				}
				for _, v := range p.Positions {
					positions = append(positions, mgl64.TransformCoordinate(v, world))
				}
			}
		}
	})

	if len(positions) != 3 {
		t.Fatalf("Expected 3 positions, got %d", len(positions))
	}
	// node translation lifts the triangle by 2
	if positions[1][0] != 1 || positions[1][1] != 2 {
		t.Errorf("Unexpected transformed vertex %v", positions[1])
	}
}

func TestBoxModelWalk(t *testing.T) {
	model := NewBoxModel("cube", mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	model.Orientation.Position = mgl64.Vec3{0, 5, 0}

	faces := 0
	var top float64
	model.Walk(func(node *Node, world mgl64.Mat4) {
		for _, mesh := range node.Meshes {
			for _, p := range mesh.Primitives {
				faces += p.FaceCount()
				for _, v := range p.Positions {
					if y := mgl64.TransformCoordinate(v, world)[1]; y > top {
						top = y
					}
				}
			}
		}
	})

	if faces != 12 {
		t.Errorf("Expected 12 faces, got %d", faces)
	}
	if top != 6 {
		t.Errorf("Expected orientation to move top to 6, got %f", top)
	}
}

func TestMemorySourceEmpty(t *testing.T) {
	if _, err := NewMemorySource(nil).Load(context.Background()); err == nil {
		t.Error("Expected error for empty memory source")
	}
}
