package environment

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/source"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

func analyzeBox(t *testing.T, min, max mgl64.Vec3) *analyzer.SceneAnalysis {
	t.Helper()
	cam := geom.NewCameraSnapshot(geom.Pose{Position: mgl64.Vec3{0, 1, 5}}, 50)
	scene, err := analyzer.NewAnalyzer(0, nil).Analyze(source.NewBoxModel("box", min, max), cam)
	if err != nil {
		t.Fatalf("scene analysis failed: %v", err)
	}
	return scene
}

func TestAnalyzeUnitCube(t *testing.T) {
	scene := analyzeBox(t, mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	env, err := NewAnalyzer(DefaultSettings()).Analyze(scene, scene.Camera)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !geom.ApproxEqual(env.Bounds.Min, mgl64.Vec3{-10, -10, -10}, 1e-9) {
		t.Errorf("Expected environment centered on model, got min %v", env.Bounds.Min)
	}
	if math.Abs(env.Distances.Left-9) > 1e-9 || math.Abs(env.Distances.Ceiling-9) > 1e-9 {
		t.Errorf("Unexpected distances %+v", env.Distances)
	}

	c := env.Constraints
	radius := math.Sqrt(3)
	if math.Abs(c.MinDistance-radius*1.5) > 1e-9 {
		t.Errorf("Expected min distance %f, got %f", radius*1.5, c.MinDistance)
	}
	if c.MaxDistance != 10 {
		t.Errorf("Expected max distance capped by environment at 10, got %f", c.MaxDistance)
	}
	if math.Abs(c.MinHeight-(-0.9)) > 1e-9 {
		t.Errorf("Expected min height -0.9, got %f", c.MinHeight)
	}
	if c.MaxHeight <= 1 {
		t.Errorf("Expected max height above the object top, got %f", c.MaxHeight)
	}
	if !env.CameraInside {
		t.Errorf("Expected camera at (0,1,5) inside envelope %+v", c)
	}

	t.Logf("Constraints: %+v", c)
}

func TestAnalyzeTooLarge(t *testing.T) {
	scene := analyzeBox(t, mgl64.Vec3{-15, 0, -1}, mgl64.Vec3{15, 1, 1})
	_, err := NewAnalyzer(DefaultSettings()).Analyze(scene, scene.Camera)
	if err == nil {
		t.Fatal("Expected environment analysis error")
	}
	if !apperrors.IsKind(err, apperrors.CodeEnvironmentAnalysis) {
		t.Errorf("Expected environment analysis kind, got %v", err)
	}
}

func TestClampContains(t *testing.T) {
	c := CameraConstraints{MinDistance: 2, MaxDistance: 8, MinHeight: 0, MaxHeight: 5}

	poses := []geom.Pose{
		{Position: mgl64.Vec3{0, 1, 0.5}}, // too close
		{Position: mgl64.Vec3{20, 1, 0}},  // too far
		{Position: mgl64.Vec3{3, -4, 0}},  // below floor
		{Position: mgl64.Vec3{0, 30, 0}},  // straight above
		{Position: mgl64.Vec3{0, 1, 0}},   // on the target
		{Position: mgl64.Vec3{3, 2, 3}, Target: mgl64.Vec3{0, 1, 0}},
	}

	for i, p := range poses {
		clamped := c.Clamp(p)
		if !c.Contains(clamped) {
			t.Errorf("pose %d: clamp %v -> %v still outside (distance %.3f)", i, p.Position, clamped.Position, clamped.Distance())
		}
		if clamped.Target != p.Target {
			t.Errorf("pose %d: clamp must not move the target", i)
		}
	}

	legal := poses[len(poses)-1]
	if c.Clamp(legal) != legal {
		t.Error("Expected legal pose to be unchanged")
	}
}

func TestSettingsFromConfigKeepsDefaults(t *testing.T) {
	s := SettingsFromConfig(config.PipelineConfig{})
	if s != DefaultSettings() {
		t.Errorf("Expected defaults for empty config, got %+v", s)
	}
}
