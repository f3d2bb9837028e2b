package renderer

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/source"
)

type fakeCamera struct {
	pos, target mgl64.Vec3
	writes      int
}

func (c *fakeCamera) Position() mgl64.Vec3       { return c.pos }
func (c *fakeCamera) SetPosition(p mgl64.Vec3)   { c.pos = p; c.writes++ }
func (c *fakeCamera) Target() mgl64.Vec3         { return c.target }
func (c *fakeCamera) LookAt(target mgl64.Vec3)   { c.target = target }
func (c *fakeCamera) FOV() float64               { return 50 }

type fakeControls struct {
	target  mgl64.Vec3
	enabled bool
	updates int
}

func (c *fakeControls) Target() mgl64.Vec3        { return c.target }
func (c *fakeControls) SetTarget(t mgl64.Vec3)    { c.target = t }
func (c *fakeControls) Distance() float64         { return 0 }
func (c *fakeControls) Enabled() bool             { return c.enabled }
func (c *fakeControls) SetEnabled(enabled bool)   { c.enabled = enabled }
func (c *fakeControls) Update()                   { c.updates++ }

func cubeScene(t *testing.T) (*analyzer.SceneAnalysis, *environment.EnvironmentalAnalysis, geom.Pose) {
	t.Helper()
	camera := geom.Pose{Position: mgl64.Vec3{0, 1, 5}}
	snapshot := geom.NewCameraSnapshot(camera, 50)
	scene, err := analyzer.NewAnalyzer(0, nil).Analyze(
		source.NewBoxModel("cube", mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1}), snapshot)
	if err != nil {
		t.Fatal(err)
	}
	env, err := environment.NewAnalyzer(environment.DefaultSettings()).Analyze(scene, snapshot)
	if err != nil {
		t.Fatal(err)
	}
	return scene, env, camera
}

func TestResolveEasing(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"linear", "linear"},
		{"", "linear"},
		{"unknown-name", "linear"},
		{"easeInOutCubic", "easeInOutCubic"},
		{"ease-in-out-cubic", "easeInOutCubic"},
		{"EASE_OUT_QUAD", "easeOutQuad"},
		{"easeInOut", "easeInOutQuad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fn := ResolveEasing(tt.name)
			if got != tt.want {
				t.Errorf("ResolveEasing(%q) = %s, want %s", tt.name, got, tt.want)
			}
			if fn(0) != 0 || math.Abs(fn(1)-1) > 1e-9 {
				t.Errorf("Easing %s must map 0->0 and 1->1, got %f and %f", got, fn(0), fn(1))
			}
		})
	}
}

func TestUnknownEasingInterpolatesLinearly(t *testing.T) {
	scene, env, camera := cubeScene(t)
	path := &director.CameraPath{
		ModelID: "cube",
		Keyframes: []director.Keyframe{
			{Position: director.Vec3{X: 0, Y: 1, Z: 5}, Duration: 2},
			{Position: director.Vec3{X: 4, Y: 1, Z: 3}, Duration: 2, Easing: "unknown-name"},
		},
	}

	cmds, err := NewInterpreter(0).Interpret(path, scene, env, camera)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if cmds[1].Easing != EasingLinear {
		t.Fatalf("Expected linear easing, got %s", cmds[1].Easing)
	}

	for _, tt := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := cmds[1].Sample(tt)
		want := geom.Lerp(cmds[1].Start.Position, cmds[1].End.Position, tt)
		if !geom.ApproxEqual(got.Position, want, 1e-9) {
			t.Errorf("t=%.2f: expected %v, got %v", tt, want, got.Position)
		}
	}
}

func TestInterpretClampsMidpoints(t *testing.T) {
	scene, env, camera := cubeScene(t)
	// straight line between opposite sides passes through the model
	path := &director.CameraPath{
		ModelID: "cube",
		Keyframes: []director.Keyframe{
			{Position: director.Vec3{X: 0, Y: 1, Z: 4}, Duration: 3},
			{Position: director.Vec3{X: 0.5, Y: 1, Z: -4}, Duration: 3, Easing: "easeOutBack"},
		},
	}

	cmds, err := NewInterpreter(16).Interpret(path, scene, env, camera)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if cmds[1].Corrections == 0 {
		t.Error("Expected the interpolated midpoint to need clamping")
	}

	assertContained(t, cmds, env.Constraints)
}

func TestGeneratedPathsStayContained(t *testing.T) {
	scene, env, camera := cubeScene(t)
	d := director.NewDirector()

	for _, instruction := range []string{"orbit the model", "zoom in on the front", "crane over the top", "sweep left"} {
		path, err := d.GeneratePath(director.Request{
			Instruction: instruction,
			ModelID:     "cube",
			Duration:    8,
			Center:      scene.Center,
			Radius:      scene.Radius(),
			Constraints: env.Constraints,
			Camera:      camera,
		})
		if err != nil {
			t.Fatalf("%s: %v", instruction, err)
		}
		cmds, err := NewInterpreter(0).Interpret(path, scene, env, camera)
		if err != nil {
			t.Fatalf("%s: Interpret failed: %v", instruction, err)
		}
		if math.Abs(TotalDuration(cmds)-8) > 1e-6 {
			t.Errorf("%s: expected 8s of commands, got %f", instruction, TotalDuration(cmds))
		}
		assertContained(t, cmds, env.Constraints)

		res := ValidateCommands(cmds, env.Constraints)
		if !res.IsValid {
			t.Errorf("%s: %v", instruction, res.Errors)
		}
	}
}

func assertContained(t *testing.T, cmds []CameraCommand, c environment.CameraConstraints) {
	t.Helper()
	for _, cmd := range cmds {
		for s := 0; s <= 200; s++ {
			p := cmd.Sample(float64(s) / 200)
			d := p.Distance()
			y := p.Position[1]
			if d < c.MinDistance-1e-6 || d > c.MaxDistance+1e-6 || y < c.MinHeight-1e-6 || y > c.MaxHeight+1e-6 {
				t.Fatalf("command %d sample %d outside envelope: distance=%.4f height=%.4f", cmd.Index, s, d, y)
			}
		}
	}
}

func TestInterpretRejectsForeignPath(t *testing.T) {
	scene, env, camera := cubeScene(t)
	path := &director.CameraPath{
		ModelID:   "other",
		Keyframes: []director.Keyframe{{Position: director.Vec3{Z: 4}, Duration: 1}},
	}
	if _, err := NewInterpreter(0).Interpret(path, scene, env, camera); err == nil {
		t.Error("Expected error for a path of another model")
	}
}

func TestSampleAt(t *testing.T) {
	cmds := []CameraCommand{
		{Start: geom.Pose{Position: mgl64.Vec3{0, 0, 0}}, End: geom.Pose{Position: mgl64.Vec3{2, 0, 0}}, Duration: 2, Easing: "linear"},
		{Start: geom.Pose{Position: mgl64.Vec3{2, 0, 0}}, End: geom.Pose{Position: mgl64.Vec3{2, 4, 0}}, Duration: 4, Easing: "linear"},
	}

	tests := []struct {
		elapsed float64
		want    mgl64.Vec3
		index   int
	}{
		{-1, mgl64.Vec3{0, 0, 0}, 0},
		{1, mgl64.Vec3{1, 0, 0}, 0},
		{2, mgl64.Vec3{2, 0, 0}, 1},
		{4, mgl64.Vec3{2, 2, 0}, 1},
		{10, mgl64.Vec3{2, 4, 0}, 1},
	}
	for _, tt := range tests {
		pose, idx := SampleAt(cmds, tt.elapsed)
		if idx != tt.index || !geom.ApproxEqual(pose.Position, tt.want, 1e-9) {
			t.Errorf("SampleAt(%.1f) = %v (#%d), want %v (#%d)", tt.elapsed, pose.Position, idx, tt.want, tt.index)
		}
	}
}

func TestExecuteCommands(t *testing.T) {
	scene, env, camera := cubeScene(t)
	path := &director.CameraPath{
		ModelID: "cube",
		Keyframes: []director.Keyframe{
			{Position: director.Vec3{X: 0, Y: 1, Z: 4}, Duration: 2},
			{Position: director.Vec3{X: 4, Y: 1, Z: 0}, Target: director.Vec3{Y: 0.5}, Duration: 2},
		},
	}
	cmds, err := NewInterpreter(0).Interpret(path, scene, env, camera)
	if err != nil {
		t.Fatal(err)
	}

	cam := &fakeCamera{pos: camera.Position}
	ctrl := &fakeControls{enabled: true}
	if err := ExecuteCommands(cam, ctrl, cmds); err != nil {
		t.Fatalf("ExecuteCommands failed: %v", err)
	}
	if cam.pos != (mgl64.Vec3{4, 1, 0}) || cam.target != (mgl64.Vec3{0, 0.5, 0}) {
		t.Errorf("Expected final pose, got %v -> %v", cam.pos, cam.target)
	}
	if ctrl.target != cam.target || ctrl.updates != 2 {
		t.Errorf("Expected controls to follow, got target %v updates %d", ctrl.target, ctrl.updates)
	}
}

func TestValidateCommands(t *testing.T) {
	c := environment.CameraConstraints{MinDistance: 1, MaxDistance: 10, MinHeight: -5, MaxHeight: 5}
	good := []CameraCommand{
		{Start: geom.Pose{Position: mgl64.Vec3{0, 0, 3}}, End: geom.Pose{Position: mgl64.Vec3{3, 0, 0}}, Duration: 1},
	}
	if res := ValidateCommands(good, c); !res.IsValid {
		t.Errorf("Expected valid commands, got %v", res.Errors)
	}

	broken := append(good, CameraCommand{
		Start: geom.Pose{Position: mgl64.Vec3{0, 0, 3}}, End: geom.Pose{Position: mgl64.Vec3{0, 9, 3}}, Duration: 0,
	})
	res := ValidateCommands(broken, c)
	if res.IsValid || len(res.Errors) != 3 {
		t.Errorf("Expected duration, continuity and envelope errors, got %v", res.Errors)
	}
}
