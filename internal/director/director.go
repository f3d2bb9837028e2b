package director

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
)

// Camera move styles understood by the Director.
const (
	StyleOrbit = "orbit"
	StyleDolly = "dolly"
	StyleCrane = "crane"
	StyleSweep = "sweep"
)

// Request is what the Director needs to lay out a path.
type Request struct {
	Instruction string
	ModelID     string
	Duration    float64
	Center      mgl64.Vec3
	Radius      float64
	Constraints environment.CameraConstraints
	Camera      geom.Pose
}

// Director generates camera paths from an instruction without a language model.
// Keyword matching picks the style and the side of the model to focus on.
type Director struct {
	MinSteps     int     // minimum keyframes for curved moves
	SpeedReserve float64 // fraction of MaxSpeed the path may use
}

// NewDirector creates a new Director with default settings
func NewDirector() *Director {
	return &Director{
		MinSteps:     8,
		SpeedReserve: 0.8,
	}
}

// GeneratePath lays out keyframes whose durations sum to req.Duration.
func (d *Director) GeneratePath(req Request) (*CameraPath, error) {
	if req.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %v", req.Duration)
	}
	if req.Radius <= 0 {
		return nil, fmt.Errorf("model radius must be positive, got %v", req.Radius)
	}

	style := detectStyle(req.Instruction)
	focus := detectFocus(req.Instruction)

	var poses []geom.Pose
	var easing string
	switch style {
	case StyleDolly:
		poses, easing = d.dolly(req, focus), "easeInOutCubic"
	case StyleCrane:
		poses, easing = d.crane(req, focus), "easeInOutQuad"
	case StyleSweep:
		poses, easing = d.arc(req, focus, math.Pi*2/3, d.distance(req.Constraints, 0.5), d.height(req, 0.5)), "easeInOutSine"
	default:
		poses, easing = d.arc(req, focus, 2*math.Pi, d.distance(req.Constraints, 0.4), d.height(req, 0.5)), "linear"
	}

	step := req.Duration / float64(len(poses))
	keyframes := make([]Keyframe, len(poses))
	for i, p := range poses {
		p = req.Constraints.Clamp(p)
		keyframes[i] = Keyframe{
			Position: FromVec(p.Position),
			Target:   FromVec(p.Target),
			Duration: step,
			Easing:   easing,
		}
	}
	// ease into the first pose from wherever the camera is
	keyframes[0].Easing = "easeInOutCubic"

	constraints := req.Constraints
	return &CameraPath{
		Version:   PathVersion,
		ModelID:   req.ModelID,
		Keyframes: keyframes,
		Duration:  req.Duration,
		Metadata: PathMetadata{
			Style:             style,
			Focus:             focus,
			SafetyConstraints: &constraints,
		},
	}, nil
}

// arc circles the target by sweep radians starting at the focus side.
// The sweep shrinks when the arc would exceed the speed budget.
func (d *Director) arc(req Request, focus string, sweep, dist, height float64) []geom.Pose {
	c := req.Constraints
	target := req.Center
	dy := height - target[1]
	horiz := horizontalRadius(dist, dy)

	if c.MaxSpeed > 0 && horiz > 0 {
		maxSweep := c.MaxSpeed * d.SpeedReserve * req.Duration / horiz
		sweep = math.Min(sweep, maxSweep)
	}

	steps := d.MinSteps
	if c.MaxAngleChangePerStep > 0 {
		needed := int(math.Ceil(mgl64.RadToDeg(sweep)/(c.MaxAngleChangePerStep*0.9))) + 1
		if needed > steps {
			steps = needed
		}
	}

	start := focusAngle(focus)
	poses := make([]geom.Pose, steps)
	for i := 0; i < steps; i++ {
		a := start + sweep*float64(i)/float64(steps-1)
		poses[i] = geom.Pose{
			Position: mgl64.Vec3{target[0] + horiz*math.Sin(a), height, target[2] + horiz*math.Cos(a)},
			Target:   target,
		}
	}
	return poses
}

// dolly pushes in from far to near along the focus direction.
func (d *Director) dolly(req Request, focus string) []geom.Pose {
	c := req.Constraints
	const steps = 4
	far := d.distance(c, 0.7)
	near := d.distance(c, 0.05)
	if c.MaxSpeed > 0 {
		// the first keyframe's time is spent reaching the start pose
		budget := c.MaxSpeed * d.SpeedReserve * req.Duration * (steps - 1) / steps
		if far-near > budget {
			far = near + budget
		}
	}
	height := d.height(req, 0.4)
	a := focusAngle(focus)

	poses := make([]geom.Pose, steps)
	for i := 0; i < steps; i++ {
		dist := far + (near-far)*float64(i)/float64(steps-1)
		horiz := horizontalRadius(dist, height-req.Center[1])
		poses[i] = geom.Pose{
			Position: mgl64.Vec3{req.Center[0] + horiz*math.Sin(a), height, req.Center[2] + horiz*math.Cos(a)},
			Target:   req.Center,
		}
	}
	return poses
}

// crane rises from low to high while turning a quarter circle.
func (d *Director) crane(req Request, focus string) []geom.Pose {
	low := d.height(req, 0.1)
	high := d.height(req, 0.9)
	poses := d.arc(req, focus, math.Pi/2, d.distance(req.Constraints, 0.5), low)
	for i := range poses {
		t := float64(i) / float64(len(poses)-1)
		poses[i].Position[1] = low + (high-low)*t
	}
	return poses
}

// distance picks a camera distance at fraction t of the allowed range.
func (d *Director) distance(c environment.CameraConstraints, t float64) float64 {
	return c.MinDistance + (c.MaxDistance-c.MinDistance)*t
}

// height picks a camera height at fraction t of the allowed range,
// bounded so it stays reachable from the target.
func (d *Director) height(req Request, t float64) float64 {
	c := req.Constraints
	h := c.MinHeight + (c.MaxHeight-c.MinHeight)*t
	limit := req.Center[1] + c.MinDistance*0.9
	return math.Min(h, math.Max(limit, c.MinHeight))
}

func horizontalRadius(dist, dy float64) float64 {
	if dist*dist <= dy*dy {
		return 0
	}
	return math.Sqrt(dist*dist - dy*dy)
}

func detectStyle(instruction string) string {
	s := strings.ToLower(instruction)
	switch {
	case containsAny(s, "zoom", "dolly", "push in", "close", "approach"):
		return StyleDolly
	case containsAny(s, "crane", "rise", "fly over", "from above", "top down", "ascend"):
		return StyleCrane
	case containsAny(s, "pan", "sweep", "arc", "reveal"):
		return StyleSweep
	default:
		return StyleOrbit
	}
}

func detectFocus(instruction string) string {
	s := strings.ToLower(instruction)
	for _, f := range []string{"front", "back", "left", "right", "top"} {
		if strings.Contains(s, f) {
			return f
		}
	}
	return "front"
}

// focusAngle is the azimuth around +Y, measured from +Z, of the focused side.
func focusAngle(focus string) float64 {
	switch focus {
	case "right":
		return math.Pi / 2
	case "back":
		return math.Pi
	case "left":
		return -math.Pi / 2
	default:
		return 0
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
