package renderer

import (
	"fmt"
	"math"

	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
)

// CameraCommand moves the camera from Start to End over Duration seconds.
type CameraCommand struct {
	Index    int
	Start    geom.Pose
	End      geom.Pose
	Duration float64
	Easing   string // canonical easing name

	// Envelope, when set, clamps every sampled pose.
	Envelope *environment.CameraConstraints
	// Samples of the raw interpolation that needed clamping.
	Corrections int
}

// Sample returns the pose at local progress t in [0,1].
func (c CameraCommand) Sample(t float64) geom.Pose {
	t = math.Max(0, math.Min(1, t))
	_, ease := ResolveEasing(c.Easing)
	pose := geom.LerpPose(c.Start, c.End, ease(t))
	if c.Envelope != nil {
		pose = c.Envelope.Clamp(pose)
	}
	return pose
}

func (c CameraCommand) String() string {
	return fmt.Sprintf("#%d %.2fs %s (%.2f, %.2f, %.2f) -> (%.2f, %.2f, %.2f)",
		c.Index, c.Duration, c.Easing,
		c.Start.Position[0], c.Start.Position[1], c.Start.Position[2],
		c.End.Position[0], c.End.Position[1], c.End.Position[2])
}

// TotalDuration sums command durations.
func TotalDuration(cmds []CameraCommand) float64 {
	total := 0.0
	for _, c := range cmds {
		total += c.Duration
	}
	return total
}

// SampleAt returns the pose at elapsed seconds into the command list, holding the
// last pose past the end. It also returns the active command index.
func SampleAt(cmds []CameraCommand, elapsed float64) (geom.Pose, int) {
	if len(cmds) == 0 {
		return geom.Pose{}, -1
	}
	if elapsed <= 0 {
		return cmds[0].Sample(0), 0
	}
	acc := 0.0
	for i, c := range cmds {
		if elapsed < acc+c.Duration {
			return c.Sample((elapsed - acc) / c.Duration), i
		}
		acc += c.Duration
	}
	last := len(cmds) - 1
	return cmds[last].End, last
}
