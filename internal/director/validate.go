package director

import (
	"fmt"
	"math"

	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
)

const (
	DefaultDurationTolerance = 0.1
	capEpsilon               = 1e-6
)

// Expectation is what a generated path is checked against.
type Expectation struct {
	Duration    float64
	Tolerance   float64 // seconds; DefaultDurationTolerance when zero
	Constraints environment.CameraConstraints
	// Bounds, when set, must contain every keyframe target.
	Bounds *geom.Box3
}

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

func (r *ValidationResult) addf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// ValidatePath checks a path without side effects. Any error makes the whole path invalid.
func ValidatePath(path *CameraPath, exp Expectation) ValidationResult {
	res := ValidationResult{Errors: []string{}}
	if path == nil || len(path.Keyframes) == 0 {
		res.addf("path has no keyframes")
		return res
	}

	tol := exp.Tolerance
	if tol <= 0 {
		tol = DefaultDurationTolerance
	}
	c := exp.Constraints

	total := 0.0
	for i, kf := range path.Keyframes {
		if !finite(kf.Duration) || kf.Duration <= 0 {
			res.addf("keyframe %d: duration %v must be > 0", i, kf.Duration)
		} else {
			total += kf.Duration
		}

		pos, target := kf.Position.Vec(), kf.Target.Vec()
		if !finiteVec(pos) || !finiteVec(target) {
			res.addf("keyframe %d: non-finite position or target", i)
			continue
		}

		pose := geom.Pose{Position: pos, Target: target}
		d := pose.Distance()
		if d < c.MinDistance-capEpsilon || d > c.MaxDistance+capEpsilon {
			res.addf("keyframe %d: distance %.3f outside [%.3f, %.3f]", i, d, c.MinDistance, c.MaxDistance)
		}
		if y := pos[1]; y < c.MinHeight-capEpsilon || y > c.MaxHeight+capEpsilon {
			res.addf("keyframe %d: height %.3f outside [%.3f, %.3f]", i, y, c.MinHeight, c.MaxHeight)
		}
		if exp.Bounds != nil && !exp.Bounds.Contains(target) {
			res.addf("keyframe %d: target %v outside the environment", i, target)
		}

		if i == 0 || kf.Duration <= 0 {
			continue
		}
		prev := path.Keyframes[i-1]
		prevPose := geom.Pose{Position: prev.Position.Vec(), Target: prev.Target.Vec()}
		if !finiteVec(prevPose.Position) || !finiteVec(prevPose.Target) {
			continue
		}
		if c.MaxSpeed > 0 {
			speed := pos.Sub(prevPose.Position).Len() / kf.Duration
			if speed > c.MaxSpeed+capEpsilon {
				res.addf("keyframe %d: speed %.3f exceeds %.3f", i, speed, c.MaxSpeed)
			}
		}
		if c.MaxAngleChangePerStep > 0 {
			angle := geom.AngleBetween(prevPose.Direction(), pose.Direction())
			if angle > c.MaxAngleChangePerStep+capEpsilon {
				res.addf("keyframe %d: view angle change %.1f° exceeds %.1f°", i, angle, c.MaxAngleChangePerStep)
			}
		}
	}

	if exp.Duration > 0 && math.Abs(total-exp.Duration) > tol {
		res.addf("keyframe durations sum to %.3fs, requested %.3fs", total, exp.Duration)
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteVec(v [3]float64) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}
