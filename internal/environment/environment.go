// Package environment derives the bounded safe-motion envelope around a model.
package environment

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/geom"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

// EnvironmentalAnalysis is replaced, never mutated, when the scene changes.
type EnvironmentalAnalysis struct {
	Bounds      Bounds
	Distances   Distances
	Constraints CameraConstraints

	// Camera pose at analysis time and whether it already satisfies Constraints.
	Camera       geom.Pose
	CameraInside bool
}

type Bounds struct {
	Min        mgl64.Vec3 `json:"min"`
	Max        mgl64.Vec3 `json:"max"`
	Center     mgl64.Vec3 `json:"center"`
	Dimensions mgl64.Vec3 `json:"dimensions"`
}

// Distances from the object's box to each wall of the environment box.
type Distances struct {
	Left    float64 `json:"left"`
	Right   float64 `json:"right"`
	Front   float64 `json:"front"`
	Back    float64 `json:"back"`
	Floor   float64 `json:"floor"`
	Ceiling float64 `json:"ceiling"`
}

// Settings are the tunable parameters of the envelope.
type Settings struct {
	Size                  mgl64.Vec3
	DistanceMargin        float64 // minDistance = radius * (1 + margin)
	FarFactor             float64 // maxDistance <= radius * farFactor
	HeightClearance       float64 // above the floor plane
	HeightHeadroom        float64 // multiples of radius above the object top
	MaxSpeed              float64
	MaxAngleChangePerStep float64
	FramingMargin         float64 // fraction of the largest object dimension
}

func DefaultSettings() Settings {
	return Settings{
		Size:                  mgl64.Vec3{20, 20, 20},
		DistanceMargin:        0.5,
		FarFactor:             6,
		HeightClearance:       0.1,
		HeightHeadroom:        2,
		MaxSpeed:              5,
		MaxAngleChangePerStep: 90,
		FramingMargin:         0.1,
	}
}

// SettingsFromConfig maps the pipeline section onto analyzer settings.
func SettingsFromConfig(cfg config.PipelineConfig) Settings {
	s := DefaultSettings()
	if size := cfg.EnvironmentSize; size.Width > 0 && size.Height > 0 && size.Depth > 0 {
		s.Size = mgl64.Vec3{size.Width, size.Height, size.Depth}
	}
	if cfg.DistanceMargin > 0 {
		s.DistanceMargin = cfg.DistanceMargin
	}
	if cfg.FarFactor > 0 {
		s.FarFactor = cfg.FarFactor
	}
	if cfg.HeightClearance > 0 {
		s.HeightClearance = cfg.HeightClearance
	}
	if cfg.HeightHeadroom > 0 {
		s.HeightHeadroom = cfg.HeightHeadroom
	}
	if cfg.MaxSpeed > 0 {
		s.MaxSpeed = cfg.MaxSpeed
	}
	if cfg.MaxAngleChangePerStep > 0 {
		s.MaxAngleChangePerStep = cfg.MaxAngleChangePerStep
	}
	if cfg.FramingMargin > 0 {
		s.FramingMargin = cfg.FramingMargin
	}
	return s
}

type Analyzer struct {
	Settings Settings
}

func NewAnalyzer(settings Settings) *Analyzer {
	return &Analyzer{Settings: settings}
}

// Analyze builds the environment box around the model and derives the constraints.
// The floor plane is the bottom of the model's bounding box.
func (a *Analyzer) Analyze(scene *analyzer.SceneAnalysis, cam geom.CameraSnapshot) (*EnvironmentalAnalysis, error) {
	if scene == nil {
		return nil, apperrors.EnvironmentAnalysisError("no scene analysis")
	}
	s := a.Settings
	obj := scene.BoundingBox
	if obj.IsEmpty() || !finiteVec(obj.Min) || !finiteVec(obj.Max) {
		return nil, apperrors.EnvironmentAnalysisError("degenerate bounds for model %q", scene.ModelID)
	}
	radius := obj.Radius()
	if radius <= 0 {
		return nil, apperrors.EnvironmentAnalysisError("model %q has zero extent", scene.ModelID)
	}

	size := obj.Size()
	for i := 0; i < 3; i++ {
		if s.Size[i] <= 0 || size[i] >= s.Size[i] {
			return nil, apperrors.EnvironmentAnalysisError(
				"model %q (%.2f x %.2f x %.2f) does not fit the %.2f x %.2f x %.2f environment",
				scene.ModelID, size[0], size[1], size[2], s.Size[0], s.Size[1], s.Size[2])
		}
	}

	env := geom.NewBox(obj.Center(), s.Size)
	result := &EnvironmentalAnalysis{
		Bounds: Bounds{
			Min:        env.Min,
			Max:        env.Max,
			Center:     env.Center(),
			Dimensions: env.Size(),
		},
		Distances: Distances{
			Left:    obj.Min[0] - env.Min[0],
			Right:   env.Max[0] - obj.Max[0],
			Floor:   obj.Min[1] - env.Min[1],
			Ceiling: env.Max[1] - obj.Max[1],
			Back:    obj.Min[2] - env.Min[2],
			Front:   env.Max[2] - obj.Max[2],
		},
	}

	minDistance := radius * (1 + s.DistanceMargin)
	halfExtent := math.Min(s.Size[0], s.Size[2]) / 2
	maxDistance := math.Min(radius*s.FarFactor, halfExtent)

	floor := obj.Min[1]
	minHeight := floor + s.HeightClearance
	maxHeight := math.Min(obj.Max[1]+radius*s.HeightHeadroom, env.Max[1])

	if maxDistance <= minDistance || maxHeight <= minHeight {
		return nil, apperrors.EnvironmentAnalysisError(
			"model %q leaves no room for the camera (distance %.2f..%.2f, height %.2f..%.2f)",
			scene.ModelID, minDistance, maxDistance, minHeight, maxHeight)
	}

	result.Constraints = CameraConstraints{
		MinDistance:           minDistance,
		MaxDistance:           maxDistance,
		MinHeight:             minHeight,
		MaxHeight:             maxHeight,
		MaxSpeed:              s.MaxSpeed,
		MaxAngleChangePerStep: s.MaxAngleChangePerStep,
		MinFramingMargin:      s.FramingMargin * math.Max(size[0], math.Max(size[1], size[2])),
	}
	result.Camera = cam.Pose()
	result.CameraInside = result.Constraints.Contains(result.Camera)

	return result, nil
}

func finiteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Summary is the serializable part of the analysis besides the constraints.
type Summary struct {
	Bounds    BoundsSummary `json:"bounds"`
	Distances Distances     `json:"distances"`
}

type BoundsSummary struct {
	Min        [3]float64 `json:"min"`
	Max        [3]float64 `json:"max"`
	Center     [3]float64 `json:"center"`
	Dimensions [3]float64 `json:"dimensions"`
}

func (e *EnvironmentalAnalysis) Summary() Summary {
	d := e.Distances
	return Summary{
		Bounds: BoundsSummary{
			Min:        analyzer.Round3(e.Bounds.Min),
			Max:        analyzer.Round3(e.Bounds.Max),
			Center:     analyzer.Round3(e.Bounds.Center),
			Dimensions: analyzer.Round3(e.Bounds.Dimensions),
		},
		Distances: Distances{
			Left:    analyzer.Round(d.Left),
			Right:   analyzer.Round(d.Right),
			Front:   analyzer.Round(d.Front),
			Back:    analyzer.Round(d.Back),
			Floor:   analyzer.Round(d.Floor),
			Ceiling: analyzer.Round(d.Ceiling),
		},
	}
}

// Box returns the environment bounds as a box.
func (e *EnvironmentalAnalysis) Box() geom.Box3 {
	return geom.Box3{Min: e.Bounds.Min, Max: e.Bounds.Max}
}
