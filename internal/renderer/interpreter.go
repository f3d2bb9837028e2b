package renderer

import (
	"fmt"
	"math"

	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

const DefaultClampSamples = 16

// Interpreter turns a validated path into executable camera commands. It holds no
// state between calls.
type Interpreter struct {
	Samples int // interpolation points checked per segment
}

func NewInterpreter(samples int) *Interpreter {
	if samples < 2 {
		samples = DefaultClampSamples
	}
	return &Interpreter{Samples: samples}
}

// Interpret builds one command per keyframe. The first command starts at the current
// camera pose, every later one at the previous keyframe. Keyframe poses are clamped
// to the envelope and each command keeps the envelope so interpolated midpoints are
// clamped as well.
func (in *Interpreter) Interpret(
	path *director.CameraPath,
	scene *analyzer.SceneAnalysis,
	env *environment.EnvironmentalAnalysis,
	camera geom.Pose,
) ([]CameraCommand, error) {
	if path == nil || len(path.Keyframes) == 0 {
		return nil, apperrors.AnimationError(nil, "path has no keyframes")
	}
	if env == nil {
		return nil, apperrors.AnimationError(nil, "no environment analysis")
	}
	if scene != nil && path.ModelID != "" && path.ModelID != scene.ModelID {
		return nil, apperrors.AnimationError(nil, "path belongs to model %q, scene is %q", path.ModelID, scene.ModelID)
	}

	envelope := env.Constraints
	prev := envelope.Clamp(camera)
	cmds := make([]CameraCommand, 0, len(path.Keyframes))

	for i, kf := range path.Keyframes {
		if kf.Duration <= 0 || math.IsNaN(kf.Duration) || math.IsInf(kf.Duration, 0) {
			return nil, apperrors.AnimationError(nil, "keyframe %d has invalid duration %v", i, kf.Duration)
		}
		end := envelope.Clamp(geom.Pose{Position: kf.Position.Vec(), Target: kf.Target.Vec()})
		easing, _ := ResolveEasing(kf.Easing)

		cmd := CameraCommand{
			Index:    i,
			Start:    prev,
			End:      end,
			Duration: kf.Duration,
			Easing:   easing,
			Envelope: &envelope,
		}
		cmd.Corrections = in.countCorrections(cmd)
		cmds = append(cmds, cmd)
		prev = end
	}

	return cmds, nil
}

// countCorrections samples the unclamped trajectory and counts points outside the envelope.
func (in *Interpreter) countCorrections(cmd CameraCommand) int {
	raw := cmd
	raw.Envelope = nil
	n := 0
	for s := 0; s <= in.Samples; s++ {
		if !cmd.Envelope.Contains(raw.Sample(float64(s) / float64(in.Samples))) {
			n++
		}
	}
	return n
}

// ValidateCommands samples every command and checks the poses against bounds.
func ValidateCommands(cmds []CameraCommand, bounds environment.CameraConstraints) director.ValidationResult {
	res := director.ValidationResult{Errors: []string{}}
	if len(cmds) == 0 {
		res.Errors = append(res.Errors, "no commands")
		return res
	}

	for i, c := range cmds {
		if c.Duration <= 0 || math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
			res.Errors = append(res.Errors, fmt.Sprintf("command %d: duration %v must be > 0", i, c.Duration))
		}
		if i > 0 && !geom.ApproxEqual(cmds[i-1].End.Position, c.Start.Position, 1e-9) {
			res.Errors = append(res.Errors, fmt.Sprintf("command %d: does not start where command %d ends", i, i-1))
		}
		for s := 0; s <= DefaultClampSamples; s++ {
			t := float64(s) / DefaultClampSamples
			if p := c.Sample(t); !bounds.Contains(p) {
				res.Errors = append(res.Errors, fmt.Sprintf(
					"command %d: pose at t=%.2f outside envelope (distance %.3f, height %.3f)",
					i, t, p.Distance(), p.Position[1]))
				break
			}
		}
	}

	res.IsValid = len(res.Errors) == 0
	return res
}
