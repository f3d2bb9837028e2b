package analyzer

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/geom"
)

// FeatureExtractor picks representative points of a model for the prompt.
type FeatureExtractor interface {
	Extract(vertices []mgl64.Vec3, box geom.Box3, max int) []mgl64.Vec3
}

// strided returns up to n vertices taken at an even stride.
func strided(vertices []mgl64.Vec3, n int) []mgl64.Vec3 {
	if n <= 0 || len(vertices) == 0 {
		return nil
	}
	if len(vertices) <= n {
		out := make([]mgl64.Vec3, len(vertices))
		copy(out, vertices)
		return out
	}
	out := make([]mgl64.Vec3, 0, n)
	step := float64(len(vertices)) / float64(n)
	for i := 0; i < n; i++ {
		out = append(out, vertices[int(float64(i)*step)])
	}
	return out
}

// StrideExtractor samples vertices at an even stride.
type StrideExtractor struct{}

func NewStrideExtractor() *StrideExtractor {
	return &StrideExtractor{}
}

func (e *StrideExtractor) Extract(vertices []mgl64.Vec3, box geom.Box3, max int) []mgl64.Vec3 {
	return strided(vertices, max)
}
