package environment

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/geom"
)

const containEpsilon = 1e-6

// CameraConstraints is the safe-motion envelope a camera path must respect.
// MaxAngleChangePerStep is in degrees, MaxSpeed in units per second.
type CameraConstraints struct {
	MinDistance           float64 `json:"minDistance" yaml:"min_distance"`
	MaxDistance           float64 `json:"maxDistance" yaml:"max_distance"`
	MinHeight             float64 `json:"minHeight" yaml:"min_height"`
	MaxHeight             float64 `json:"maxHeight" yaml:"max_height"`
	MaxSpeed              float64 `json:"maxSpeed" yaml:"max_speed"`
	MaxAngleChangePerStep float64 `json:"maxAngleChangePerStep" yaml:"max_angle_change_per_step"`
	MinFramingMargin      float64 `json:"minFramingMargin" yaml:"min_framing_margin"`
}

// Contains reports whether the pose keeps distance and height inside the envelope.
func (c CameraConstraints) Contains(p geom.Pose) bool {
	d := p.Distance()
	y := p.Position[1]
	return d >= c.MinDistance-containEpsilon && d <= c.MaxDistance+containEpsilon &&
		y >= c.MinHeight-containEpsilon && y <= c.MaxHeight+containEpsilon
}

// Clamp moves the camera position (never the target) into the envelope.
// Height is fixed first, then the horizontal offset is rescaled to reach a legal distance.
func (c CameraConstraints) Clamp(p geom.Pose) geom.Pose {
	pos := p.Position
	pos[1] = mgl64.Clamp(pos[1], c.MinHeight, c.MaxHeight)

	offset := pos.Sub(p.Target)
	dist := offset.Len()
	if dist >= c.MinDistance && dist <= c.MaxDistance {
		return geom.Pose{Position: pos, Target: p.Target}
	}

	want := mgl64.Clamp(dist, c.MinDistance, c.MaxDistance)
	dy := offset[1]
	horiz := mgl64.Vec2{offset[0], offset[2]}

	if want*want >= dy*dy {
		hl := math.Sqrt(want*want - dy*dy)
		dir := mgl64.Vec2{0, 1}
		if horiz.Len() > 1e-9 {
			dir = horiz.Normalize()
		}
		pos[0] = p.Target[0] + dir[0]*hl
		pos[2] = p.Target[2] + dir[1]*hl
		return geom.Pose{Position: pos, Target: p.Target}
	}

	// vertical offset alone exceeds the distance cap
	sign := 1.0
	if dy < 0 {
		sign = -1
	}
	pos[0], pos[2] = p.Target[0], p.Target[2]
	pos[1] = mgl64.Clamp(p.Target[1]+sign*want, c.MinHeight, c.MaxHeight)
	return geom.Pose{Position: pos, Target: p.Target}
}
