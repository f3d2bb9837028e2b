package analyzer

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	symmetrySamples   = 256
	symmetryThreshold = 0.95
)

type cellKey [3]int64

// detectSymmetry mirrors sampled vertices about the three planes through center and
// checks each reflection lands on an existing vertex within tol * radius.
func detectSymmetry(vertices []mgl64.Vec3, center mgl64.Vec3, radius, tol float64) Symmetry {
	if len(vertices) == 0 || radius <= 0 {
		return Symmetry{}
	}
	cell := radius * tol
	if cell <= 0 {
		cell = radius * 1e-6
	}

	grid := make(map[cellKey][]mgl64.Vec3, len(vertices))
	keyOf := func(p mgl64.Vec3) cellKey {
		return cellKey{
			int64(math.Floor(p[0] / cell)),
			int64(math.Floor(p[1] / cell)),
			int64(math.Floor(p[2] / cell)),
		}
	}
	for _, v := range vertices {
		k := keyOf(v)
		grid[k] = append(grid[k], v)
	}

	near := func(p mgl64.Vec3) bool {
		k := keyOf(p)
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, q := range grid[cellKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
						if p.Sub(q).Len() <= cell {
							return true
						}
					}
				}
			}
		}
		return false
	}

	samples := strided(vertices, symmetrySamples)
	var scores [3]float64
	for axis := 0; axis < 3; axis++ {
		matched := 0
		for _, v := range samples {
			m := v
			m[axis] = 2*center[axis] - v[axis]
			if near(m) {
				matched++
			}
		}
		scores[axis] = float64(matched) / float64(len(samples))
	}

	return Symmetry{
		X:     scores[0] >= symmetryThreshold,
		Y:     scores[1] >= symmetryThreshold,
		Z:     scores[2] >= symmetryThreshold,
		Score: (scores[0] + scores[1] + scores[2]) / 3,
	}
}
