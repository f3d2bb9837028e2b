package renderer

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/geom"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

// Camera is the part of a 3D engine camera the pipeline drives.
type Camera interface {
	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	Target() mgl64.Vec3
	LookAt(target mgl64.Vec3)
	FOV() float64
}

// Controls is the user orbit control sharing the camera with playback.
type Controls interface {
	Target() mgl64.Vec3
	SetTarget(target mgl64.Vec3)
	Distance() float64
	Enabled() bool
	SetEnabled(enabled bool)
	Update()
}

// ApplyPose writes pose onto the camera and, when present, the controls target.
func ApplyPose(cam Camera, ctrl Controls, pose geom.Pose) {
	cam.SetPosition(pose.Position)
	cam.LookAt(pose.Target)
	if ctrl != nil {
		ctrl.SetTarget(pose.Target)
		ctrl.Update()
	}
}

// CurrentPose reads the camera pose.
func CurrentPose(cam Camera) geom.Pose {
	return geom.Pose{Position: cam.Position(), Target: cam.Target()}
}

// ExecuteCommand jumps the camera to the command's end pose.
func ExecuteCommand(cam Camera, ctrl Controls, cmd CameraCommand) error {
	if cam == nil {
		return apperrors.AnimationError(nil, "no camera")
	}
	if cmd.Duration <= 0 {
		return apperrors.AnimationError(nil, "command %d has invalid duration %v", cmd.Index, cmd.Duration)
	}
	ApplyPose(cam, ctrl, cmd.End)
	return nil
}

// ExecuteCommands validates the list against the envelope of its first command and
// then executes each command in order, leaving the camera at the final pose.
func ExecuteCommands(cam Camera, ctrl Controls, cmds []CameraCommand) error {
	if len(cmds) == 0 {
		return apperrors.AnimationError(nil, "no commands")
	}
	if env := cmds[0].Envelope; env != nil {
		if res := ValidateCommands(cmds, *env); !res.IsValid {
			return apperrors.AnimationError(nil, "invalid commands: %v", res.Errors)
		}
	}
	for _, cmd := range cmds {
		if err := ExecuteCommand(cam, ctrl, cmd); err != nil {
			return err
		}
	}
	return nil
}
