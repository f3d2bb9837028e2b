// Package geom holds the small amount of vector math shared by the pipeline stages.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box3 is an axis-aligned bounding box.
type Box3 struct {
	Min mgl64.Vec3 `json:"min" yaml:"min"`
	Max mgl64.Vec3 `json:"max" yaml:"max"`
}

// EmptyBox returns an inverted box that any Extend call will replace.
func EmptyBox() Box3 {
	inf := math.Inf(1)
	return Box3{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

func NewBox(center, size mgl64.Vec3) Box3 {
	half := size.Mul(0.5)
	return Box3{Min: center.Sub(half), Max: center.Add(half)}
}

func (b *Box3) Extend(p mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

// IsEmpty reports whether no point was ever added.
func (b Box3) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

func (b Box3) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box3) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius is half the box diagonal.
func (b Box3) Radius() float64 {
	return b.Size().Len() / 2
}

func (b Box3) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Corners returns the eight box corners, min corner first.
func (b Box3) Corners() []mgl64.Vec3 {
	corners := make([]mgl64.Vec3, 0, 8)
	for _, x := range []float64{b.Min[0], b.Max[0]} {
		for _, y := range []float64{b.Min[1], b.Max[1]} {
			for _, z := range []float64{b.Min[2], b.Max[2]} {
				corners = append(corners, mgl64.Vec3{x, y, z})
			}
		}
	}
	return corners
}

// Pose is a camera position and the point it looks at.
type Pose struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
}

// Distance between camera and target.
func (p Pose) Distance() float64 {
	return p.Position.Sub(p.Target).Len()
}

// Direction is the unit vector from camera to target, or -Z when they coincide.
func (p Pose) Direction() mgl64.Vec3 {
	d := p.Target.Sub(p.Position)
	if d.Len() < 1e-12 {
		return mgl64.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

// LerpPose interpolates both position and target.
func LerpPose(a, b Pose, t float64) Pose {
	return Pose{
		Position: Lerp(a.Position, b.Position, t),
		Target:   Lerp(a.Target, b.Target, t),
	}
}

func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// AngleBetween returns the angle in degrees between two directions.
func AngleBetween(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la < 1e-12 || lb < 1e-12 {
		return 0
	}
	cos := mgl64.Clamp(a.Dot(b)/(la*lb), -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}

// ApproxEqual compares vectors component-wise within eps.
func ApproxEqual(a, b mgl64.Vec3, eps float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

// CameraSnapshot is the camera state captured when an analysis runs.
type CameraSnapshot struct {
	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
	Front    mgl64.Vec3 `json:"front"`
	Up       mgl64.Vec3 `json:"up"`
	FOV      float64    `json:"fov"`
}

// NewCameraSnapshot derives front from the pose and assumes a +Y up vector.
func NewCameraSnapshot(pose Pose, fov float64) CameraSnapshot {
	return CameraSnapshot{
		Position: pose.Position,
		Target:   pose.Target,
		Front:    pose.Direction(),
		Up:       mgl64.Vec3{0, 1, 0},
		FOV:      fov,
	}
}

func (c CameraSnapshot) Pose() Pose {
	return Pose{Position: c.Position, Target: c.Target}
}
