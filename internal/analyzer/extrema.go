package analyzer

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/geom"
)

// ExtremaExtractor emits box corners, face centers and the extreme vertex along
// each axis, then fills the remaining budget with strided vertices.
type ExtremaExtractor struct {
	// Points closer than this fraction of the box radius are merged.
	MergeFraction float64
}

func NewExtremaExtractor() *ExtremaExtractor {
	return &ExtremaExtractor{MergeFraction: 0.01}
}

func (e *ExtremaExtractor) Extract(vertices []mgl64.Vec3, box geom.Box3, max int) []mgl64.Vec3 {
	if max <= 0 || box.IsEmpty() {
		return nil
	}

	eps := box.Radius() * e.MergeFraction
	points := make([]mgl64.Vec3, 0, max)
	add := func(p mgl64.Vec3) bool {
		if len(points) >= max {
			return false
		}
		for _, q := range points {
			if geom.ApproxEqual(p, q, eps) {
				return true
			}
		}
		points = append(points, p)
		return true
	}

	// 1. Corners
	for _, c := range box.Corners() {
		add(c)
	}

	// 2. Face centers
	center := box.Center()
	for axis := 0; axis < 3; axis++ {
		lo, hi := center, center
		lo[axis] = box.Min[axis]
		hi[axis] = box.Max[axis]
		add(lo)
		add(hi)
	}

	// 3. Extreme vertices along each axis
	if len(vertices) > 0 {
		for axis := 0; axis < 3; axis++ {
			minV, maxV := vertices[0], vertices[0]
			for _, v := range vertices[1:] {
				if v[axis] < minV[axis] {
					minV = v
				}
				if v[axis] > maxV[axis] {
					maxV = v
				}
			}
			add(minV)
			add(maxV)
		}
	}

	// 4. Fill with strided samples
	for _, v := range strided(vertices, max) {
		if !add(v) {
			break
		}
	}

	return points
}
