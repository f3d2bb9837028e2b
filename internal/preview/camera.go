// Package preview is a headless stand-in for a 3D viewport. It implements the camera
// and orbit controls the renderer drives and rasterizes a wireframe of the scene so
// playback can be recorded without a GPU.
package preview

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/geom"
)

const (
	DefaultFOV  = 50.0
	nearPlane   = 0.01
	farPlane    = 1000.0
	minPolarRad = 0.01
)

// Camera is a perspective camera with a look-at target.
type Camera struct {
	position mgl64.Vec3
	target   mgl64.Vec3
	up       mgl64.Vec3
	fov      float64 // vertical, degrees
}

func NewCamera(pose geom.Pose, fov float64) *Camera {
	if fov <= 0 {
		fov = DefaultFOV
	}
	return &Camera{position: pose.Position, target: pose.Target, up: mgl64.Vec3{0, 1, 0}, fov: fov}
}

func (c *Camera) Position() mgl64.Vec3     { return c.position }
func (c *Camera) SetPosition(p mgl64.Vec3) { c.position = p }
func (c *Camera) Target() mgl64.Vec3       { return c.target }
func (c *Camera) LookAt(t mgl64.Vec3)      { c.target = t }
func (c *Camera) FOV() float64             { return c.fov }

func (c *Camera) Pose() geom.Pose {
	return geom.Pose{Position: c.position, Target: c.target}
}

// Snapshot captures the camera for scene analysis.
func (c *Camera) Snapshot() geom.CameraSnapshot {
	return geom.NewCameraSnapshot(c.Pose(), c.fov)
}

// ViewProjection returns projection × view for the given aspect ratio.
func (c *Camera) ViewProjection(aspect float64) mgl64.Mat4 {
	up := c.up
	// looking straight up or down
	if math.Abs(c.target.Sub(c.position).Normalize().Dot(up)) > 0.999 {
		up = mgl64.Vec3{0, 0, -1}
	}
	view := mgl64.LookAtV(c.position, c.target, up)
	proj := mgl64.Perspective(mgl64.DegToRad(c.fov), aspect, nearPlane, farPlane)
	return proj.Mul4(view)
}

// OrbitControls rotates the camera around its target on user input. While disabled
// all input is ignored.
type OrbitControls struct {
	camera  *Camera
	target  mgl64.Vec3
	enabled bool
}

func NewOrbitControls(camera *Camera) *OrbitControls {
	return &OrbitControls{camera: camera, target: camera.Target(), enabled: true}
}

func (o *OrbitControls) Target() mgl64.Vec3        { return o.target }
func (o *OrbitControls) SetTarget(t mgl64.Vec3)    { o.target = t }
func (o *OrbitControls) Enabled() bool             { return o.enabled }
func (o *OrbitControls) SetEnabled(enabled bool)   { o.enabled = enabled }
func (o *OrbitControls) Distance() float64         { return o.camera.Position().Sub(o.target).Len() }

// Update points the camera at the controls target.
func (o *OrbitControls) Update() {
	o.camera.LookAt(o.target)
}

// Rotate orbits the camera by azimuth and polar deltas in radians. It reports false
// when the controls are disabled.
func (o *OrbitControls) Rotate(dAzimuth, dPolar float64) bool {
	if !o.enabled {
		return false
	}
	offset := o.camera.Position().Sub(o.target)
	r, polar, azimuth := mgl64.CartesianToSpherical(mgl64.Vec3{offset[2], offset[0], offset[1]})
	if r < 1e-12 {
		return true
	}
	azimuth += dAzimuth
	polar = mgl64.Clamp(polar+dPolar, minPolarRad, math.Pi-minPolarRad)

	v := mgl64.SphericalToCartesian(r, polar, azimuth)
	o.camera.SetPosition(o.target.Add(mgl64.Vec3{v[1], v[2], v[0]}))
	o.Update()
	return true
}

// Zoom scales the camera distance to the target. It reports false when disabled.
func (o *OrbitControls) Zoom(factor float64) bool {
	if !o.enabled || factor <= 0 {
		return false
	}
	offset := o.camera.Position().Sub(o.target).Mul(factor)
	o.camera.SetPosition(o.target.Add(offset))
	o.Update()
	return true
}
