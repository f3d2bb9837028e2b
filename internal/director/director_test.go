package director

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
)

// unitCubeConstraints matches the envelope derived for a [-1,1]^3 box with default settings.
func unitCubeConstraints() environment.CameraConstraints {
	radius := math.Sqrt(3)
	return environment.CameraConstraints{
		MinDistance:           radius * 1.5,
		MaxDistance:           10,
		MinHeight:             -0.9,
		MaxHeight:             1 + radius*2,
		MaxSpeed:              5,
		MaxAngleChangePerStep: 90,
		MinFramingMargin:      0.2,
	}
}

func unitCubeRequest(instruction string, duration float64) Request {
	return Request{
		Instruction: instruction,
		ModelID:     "cube",
		Duration:    duration,
		Center:      mgl64.Vec3{0, 0, 0},
		Radius:      math.Sqrt(3),
		Constraints: unitCubeConstraints(),
		Camera:      geom.Pose{Position: mgl64.Vec3{0, 1, 5}},
	}
}

func TestDirector(t *testing.T) {
	director := NewDirector()

	tests := []struct {
		instruction string
		style       string
		focus       string
	}{
		{"orbit the model", StyleOrbit, "front"},
		{"orbit around the model focusing on the back", StyleOrbit, "back"},
		{"slowly zoom in on the left side", StyleDolly, "left"},
		{"crane up and fly over the top", StyleCrane, "top"},
		{"sweep across the right", StyleSweep, "right"},
	}

	for _, tt := range tests {
		t.Run(tt.instruction, func(t *testing.T) {
			req := unitCubeRequest(tt.instruction, 10)
			path, err := director.GeneratePath(req)
			if err != nil {
				t.Fatalf("GeneratePath failed: %v", err)
			}

			if path.Metadata.Style != tt.style {
				t.Errorf("Expected style %s, got %s", tt.style, path.Metadata.Style)
			}
			if path.Metadata.Focus != tt.focus {
				t.Errorf("Expected focus %s, got %s", tt.focus, path.Metadata.Focus)
			}
			if math.Abs(path.KeyframeDuration()-10) > 0.1 {
				t.Errorf("Expected durations to sum to 10, got %f", path.KeyframeDuration())
			}

			res := ValidatePath(path, Expectation{Duration: 10, Constraints: req.Constraints})
			if !res.IsValid {
				t.Errorf("Expected generated path to validate, got %v", res.Errors)
			}

			t.Logf("Generated %s path with %d keyframes", path.Metadata.Style, len(path.Keyframes))
		})
	}
}

func TestDirectorRejectsBadRequest(t *testing.T) {
	director := NewDirector()

	req := unitCubeRequest("orbit", 0)
	if _, err := director.GeneratePath(req); err == nil {
		t.Error("Expected error for zero duration")
	}

	req = unitCubeRequest("orbit", 5)
	req.Radius = 0
	if _, err := director.GeneratePath(req); err == nil {
		t.Error("Expected error for zero radius")
	}
}

func validPath() *CameraPath {
	return &CameraPath{
		ModelID: "cube",
		Keyframes: []Keyframe{
			{Position: Vec3{0, 1, 4}, Target: Vec3{}, Duration: 4, Easing: "linear"},
			{Position: Vec3{4, 1, 0}, Target: Vec3{}, Duration: 3},
			{Position: Vec3{0, 2, -4}, Target: Vec3{}, Duration: 3, Easing: "easeInOutCubic"},
		},
		Duration: 10,
		Metadata: PathMetadata{Style: "orbit", Focus: "front"},
	}
}

func TestValidatePath(t *testing.T) {
	exp := Expectation{Duration: 10, Constraints: unitCubeConstraints()}

	tests := []struct {
		name    string
		mutate  func(p *CameraPath)
		wantErr string
	}{
		{"valid", func(p *CameraPath) {}, ""},
		{"empty", func(p *CameraPath) { p.Keyframes = nil }, "no keyframes"},
		{"zero duration", func(p *CameraPath) { p.Keyframes[1].Duration = 0 }, "duration"},
		{"wrong total", func(p *CameraPath) { p.Keyframes[0].Duration = 6 }, "sum to"},
		{"too close", func(p *CameraPath) { p.Keyframes[1].Position = Vec3{1, 1, 0} }, "distance"},
		{"too far", func(p *CameraPath) { p.Keyframes[2].Position = Vec3{0, 1, -12} }, "distance"},
		{"too fast", func(p *CameraPath) {
			p.Keyframes[1].Duration = 0.5
			p.Keyframes[0].Duration = 6.5
		}, "speed"},
		{"sharp turn", func(p *CameraPath) {
			p.Keyframes[1].Position = Vec3{0, 1, -4}
		}, "angle"},
		{"nan", func(p *CameraPath) { p.Keyframes[0].Position.X = math.NaN() }, "non-finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := validPath()
			tt.mutate(path)
			res := ValidatePath(path, exp)

			if tt.wantErr == "" {
				if !res.IsValid {
					t.Errorf("Expected valid path, got %v", res.Errors)
				}
				return
			}
			if res.IsValid {
				t.Fatalf("Expected invalid path (%s)", tt.wantErr)
			}
			if !strings.Contains(strings.Join(res.Errors, "; "), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got %v", tt.wantErr, res.Errors)
			}
		})
	}
}

func TestValidatePathBelowMinHeight(t *testing.T) {
	path := validPath()
	path.Keyframes[1].Position = Vec3{4, -3, 0}

	res := ValidatePath(path, Expectation{Duration: 10, Constraints: unitCubeConstraints()})
	if res.IsValid {
		t.Fatal("Expected path with a keyframe below min height to be rejected")
	}
	if !strings.Contains(res.Errors[0], "keyframe 1: height") {
		t.Errorf("Unexpected errors %v", res.Errors)
	}
}

func TestValidatePathTargetBounds(t *testing.T) {
	bounds := geom.NewBox(mgl64.Vec3{}, mgl64.Vec3{20, 20, 20})
	path := validPath()
	path.Keyframes[2].Target = Vec3{0, 0, -30}
	path.Keyframes[2].Position = Vec3{0, 1, -26}

	res := ValidatePath(path, Expectation{Duration: 10, Constraints: unitCubeConstraints(), Bounds: &bounds})
	if res.IsValid {
		t.Fatal("Expected target outside the environment to be rejected")
	}
}

func TestWireRoundTrip(t *testing.T) {
	path := validPath()
	c := unitCubeConstraints()
	path.Metadata.SafetyConstraints = &c

	data, err := EncodeWire(path)
	if err != nil {
		t.Fatalf("EncodeWire failed: %v", err)
	}
	back, err := DecodeWire(data)
	if err != nil {
		t.Fatalf("DecodeWire failed: %v", err)
	}

	if len(back.Keyframes) != len(path.Keyframes) {
		t.Fatalf("Keyframe count mismatch: expected %d, got %d", len(path.Keyframes), len(back.Keyframes))
	}
	for i := range path.Keyframes {
		want, got := path.Keyframes[i], back.Keyframes[i]
		if want.Position != got.Position || want.Target != got.Target || want.Duration != got.Duration {
			t.Errorf("Keyframe %d mismatch: expected %+v, got %+v", i, want, got)
		}
	}
	if back.Metadata.SafetyConstraints == nil || *back.Metadata.SafetyConstraints != c {
		t.Errorf("Expected safety constraints to survive, got %+v", back.Metadata.SafetyConstraints)
	}

	t.Logf("Wire: %s", data)
}

func TestDecodeWireLenientMetadata(t *testing.T) {
	body := `{"keyframes":[{"position":{"x":0,"y":1,"z":4},"target":{"x":0,"y":0,"z":0},"duration":2}],
		"duration":2,"metadata":{"style":"orbit","focus":["front"],"safetyConstraints":"respected"}}`

	path, err := DecodeWire([]byte(body))
	if err != nil {
		t.Fatalf("DecodeWire failed: %v", err)
	}
	if path.Metadata.Style != "orbit" {
		t.Errorf("Expected style orbit, got %q", path.Metadata.Style)
	}
	if path.Metadata.SafetyConstraints != nil {
		t.Error("Expected malformed safety constraints to be dropped")
	}
	if path.Keyframes[0].Easing != "" {
		t.Errorf("Expected no easing, got %q", path.Keyframes[0].Easing)
	}
}

func TestPathWriteRead(t *testing.T) {
	path := validPath()

	tmpFile := filepath.Join(t.TempDir(), "path.yaml")
	if err := WritePath(path, tmpFile); err != nil {
		t.Fatalf("WritePath failed: %v", err)
	}

	readPath, err := ReadPath(tmpFile)
	if err != nil {
		t.Fatalf("ReadPath failed: %v", err)
	}

	if readPath.Version != PathVersion {
		t.Errorf("Version mismatch: expected %s, got %s", PathVersion, readPath.Version)
	}
	if readPath.ModelID != "cube" {
		t.Errorf("Model mismatch: expected cube, got %s", readPath.ModelID)
	}
	if len(readPath.Keyframes) != len(path.Keyframes) {
		t.Errorf("Keyframe count mismatch: expected %d, got %d", len(path.Keyframes), len(readPath.Keyframes))
	}
	if readPath.Keyframes[2].Easing != "easeInOutCubic" {
		t.Errorf("Easing mismatch: got %s", readPath.Keyframes[2].Easing)
	}
}
