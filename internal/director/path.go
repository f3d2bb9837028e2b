package director

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/environment"
)

const PathVersion = "1.0"

// Vec3 is the {x,y,z} object used on the wire and in path files.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func FromVec(v mgl64.Vec3) Vec3 {
	return Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func (v Vec3) Vec() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// Keyframe is a camera pose reached after Duration seconds from the previous one.
type Keyframe struct {
	Position Vec3    `json:"position" yaml:"position"`
	Target   Vec3    `json:"target" yaml:"target"`
	Duration float64 `json:"duration" yaml:"duration"` // seconds, > 0
	Easing   string  `json:"easing,omitempty" yaml:"easing,omitempty"`
}

// PathMetadata is echoed back by the generator.
type PathMetadata struct {
	Style             string                         `json:"style" yaml:"style"`
	Focus             string                         `json:"focus" yaml:"focus"`
	SafetyConstraints *environment.CameraConstraints `json:"safetyConstraints,omitempty" yaml:"safety_constraints,omitempty"`
}

// UnmarshalJSON accepts free-form style/focus/safetyConstraints values.
// Metadata is informative only, so a malformed echo must not reject a path.
func (m *PathMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	*m = PathMetadata{
		Style: looseString(raw["style"]),
		Focus: looseString(raw["focus"]),
	}
	if sc, ok := raw["safetyConstraints"]; ok {
		var c environment.CameraConstraints
		if err := json.Unmarshal(sc, &c); err == nil {
			m.SafetyConstraints = &c
		}
	}
	return nil
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// CameraPath is an ordered list of keyframes for one model. Paths are replaced, never edited.
type CameraPath struct {
	Version   string       `json:"-" yaml:"version"`
	ModelID   string       `json:"-" yaml:"model_id"`
	Keyframes []Keyframe   `json:"keyframes" yaml:"keyframes"`
	Duration  float64      `json:"duration" yaml:"duration"`
	Metadata  PathMetadata `json:"metadata" yaml:"metadata"`
}

// KeyframeDuration sums the keyframe durations.
func (p *CameraPath) KeyframeDuration() float64 {
	total := 0.0
	for _, kf := range p.Keyframes {
		total += kf.Duration
	}
	return total
}
