package analyzer

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/source"
)

// SceneAnalysis holds the static geometric facts of one model revision.
// It is never modified after Analyze returns.
type SceneAnalysis struct {
	ModelID       string
	ModelRevision string
	VertexCount   int
	FaceCount     int
	BoundingBox   geom.Box3
	Center        mgl64.Vec3
	Dimensions    mgl64.Vec3
	FeaturePoints []mgl64.Vec3
	Symmetry      Symmetry
	Orientation   source.Orientation
	Camera        geom.CameraSnapshot

	// Vertices that had no normal or UV and used the defaults.
	DefaultedNormals int
	DefaultedUVs     int

	ComputedAt time.Time
}

// Symmetry reports mirror symmetry about the planes through the center.
type Symmetry struct {
	X     bool    `json:"x"`
	Y     bool    `json:"y"`
	Z     bool    `json:"z"`
	Score float64 `json:"score"`
}

// Radius is half the bounding-box diagonal.
func (a *SceneAnalysis) Radius() float64 {
	return a.BoundingBox.Radius()
}

// WithCamera returns a copy carrying a fresh camera snapshot.
// The geometry slices are shared since neither copy mutates them.
func (a *SceneAnalysis) WithCamera(cam geom.CameraSnapshot) *SceneAnalysis {
	cp := *a
	cp.Camera = cam
	return &cp
}
