package preview

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/renderer"
	"github.com/ivlev/prompt2path/internal/source"
)

var (
	_ renderer.Camera   = (*Camera)(nil)
	_ renderer.Controls = (*OrbitControls)(nil)
)

func TestProjectTargetToCenter(t *testing.T) {
	cam := NewCamera(geom.Pose{Position: mgl64.Vec3{3, 2, 5}}, 0)
	vp := NewViewport(cam, 200, 100)

	pt, ok := vp.project(cam.ViewProjection(2), mgl64.Vec3{})
	if !ok {
		t.Fatal("Expected target to be visible")
	}
	if abs(pt.X-100) > 1 || abs(pt.Y-50) > 1 {
		t.Errorf("Expected target near (100,50), got %v", pt)
	}

	if _, ok := vp.project(cam.ViewProjection(2), mgl64.Vec3{6, 4, 10}); ok {
		t.Error("Expected a point behind the camera to be dropped")
	}
}

func TestCaptureFrameDrawsScene(t *testing.T) {
	pose := geom.Pose{Position: mgl64.Vec3{0, 1, 6}}
	cam := NewCamera(pose, 50)
	scene, err := analyzer.NewAnalyzer(0, nil).Analyze(
		source.NewBoxModel("cube", mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1}), cam.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	vp := NewViewport(cam, 64, 48)
	defer vp.Close()

	img, err := vp.CaptureFrame()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Fatalf("Unexpected frame size %v", img.Bounds())
	}
	if countNonBackground(vp) != 0 {
		t.Error("Expected an empty frame without a scene")
	}

	vp.SetScene(scene)
	if _, err := vp.CaptureFrame(); err != nil {
		t.Fatal(err)
	}
	n := countNonBackground(vp)
	t.Logf("Drawn pixels: %d", n)
	if n == 0 {
		t.Error("Expected wireframe pixels")
	}
}

func countNonBackground(vp *Viewport) int {
	n := 0
	for i := 0; i < len(vp.frame.Pix); i += 4 {
		if vp.frame.Pix[i] != backgroundColor.R || vp.frame.Pix[i+1] != backgroundColor.G {
			n++
		}
	}
	return n
}

func TestOrbitControls(t *testing.T) {
	cam := NewCamera(geom.Pose{Position: mgl64.Vec3{0, 0, 5}}, 0)
	ctrl := NewOrbitControls(cam)

	if !ctrl.Rotate(math.Pi/2, 0) {
		t.Fatal("Expected rotate to succeed while enabled")
	}
	if d := ctrl.Distance(); math.Abs(d-5) > 1e-9 {
		t.Errorf("Rotate must keep distance 5, got %f", d)
	}
	if math.Abs(cam.Position()[1]) > 1e-9 {
		t.Errorf("Horizontal rotate must keep height, got %v", cam.Position())
	}

	ctrl.SetEnabled(false)
	before := cam.Position()
	if ctrl.Rotate(1, 0) || ctrl.Zoom(2) {
		t.Error("Expected input to be ignored while disabled")
	}
	if cam.Position() != before {
		t.Error("Camera moved while controls were disabled")
	}

	ctrl.SetEnabled(true)
	ctrl.Zoom(0.5)
	if d := ctrl.Distance(); math.Abs(d-2.5) > 1e-9 {
		t.Errorf("Expected distance 2.5 after zoom, got %f", d)
	}

	ctrl.SetTarget(mgl64.Vec3{0, 1, 0})
	ctrl.Update()
	if cam.Target() != (mgl64.Vec3{0, 1, 0}) {
		t.Errorf("Update must aim the camera at the controls target, got %v", cam.Target())
	}
}
