package analyzer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/source"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

const DefaultMaxFeaturePoints = 100

// Analyzer computes SceneAnalysis values and caches them per model revision.
type Analyzer struct {
	MaxFeaturePoints  int
	SymmetryTolerance float64
	Extractor         FeatureExtractor

	mu    sync.Mutex
	cache map[string]*SceneAnalysis
}

// NewAnalyzer creates an Analyzer with default settings
func NewAnalyzer(maxFeaturePoints int, extractor FeatureExtractor) *Analyzer {
	if maxFeaturePoints <= 0 {
		maxFeaturePoints = DefaultMaxFeaturePoints
	}
	if extractor == nil {
		extractor = NewExtremaExtractor()
	}
	return &Analyzer{
		MaxFeaturePoints:  maxFeaturePoints,
		SymmetryTolerance: 0.02,
		Extractor:         extractor,
		cache:             make(map[string]*SceneAnalysis),
	}
}

// Analyze returns the analysis of model, reusing the cached geometry facts when the
// model revision has been analyzed before. The camera snapshot is always fresh.
func (a *Analyzer) Analyze(model *source.Model, cam geom.CameraSnapshot) (*SceneAnalysis, error) {
	if model == nil {
		return nil, apperrors.AnalysisError("no model loaded")
	}

	key := model.ID + "@" + model.Revision
	a.mu.Lock()
	cached, ok := a.cache[key]
	a.mu.Unlock()
	if ok {
		return cached.WithCamera(cam), nil
	}

	analysis, err := a.compute(model)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[key] = analysis
	a.mu.Unlock()

	return analysis.WithCamera(cam), nil
}

// Invalidate drops every cached revision of the model.
func (a *Analyzer) Invalidate(modelID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, cached := range a.cache {
		if cached.ModelID == modelID {
			delete(a.cache, key)
		}
	}
}

func (a *Analyzer) compute(model *source.Model) (*SceneAnalysis, error) {
	result := &SceneAnalysis{
		ModelID:       model.ID,
		ModelRevision: model.Revision,
		Orientation:   model.Orientation,
		BoundingBox:   geom.EmptyBox(),
		ComputedAt:    time.Now(),
	}

	var vertices []mgl64.Vec3
	model.Walk(func(node *source.Node, world mgl64.Mat4) {
		for _, mesh := range node.Meshes {
			for _, prim := range mesh.Primitives {
				if len(prim.Positions) == 0 {
					continue
				}
				for i, p := range prim.Positions {
					if !finite(p) {
						continue
					}
					wp := mgl64.TransformCoordinate(p, world)
					vertices = append(vertices, wp)
					result.BoundingBox.Extend(wp)

					// missing attributes fall back to +Y normal and (0,0) uv
					if i >= len(prim.Normals) {
						result.DefaultedNormals++
					}
					if i >= len(prim.UVs) {
						result.DefaultedUVs++
					}
				}
				result.FaceCount += prim.FaceCount()
			}
		}
	})

	if len(vertices) == 0 || result.BoundingBox.IsEmpty() {
		return nil, apperrors.AnalysisError("model %q has no drawable geometry", model.ID)
	}

	result.VertexCount = len(vertices)
	result.Center = result.BoundingBox.Center()
	result.Dimensions = result.BoundingBox.Size()
	result.FeaturePoints = a.Extractor.Extract(vertices, result.BoundingBox, a.MaxFeaturePoints)
	if len(result.FeaturePoints) > a.MaxFeaturePoints {
		result.FeaturePoints = result.FeaturePoints[:a.MaxFeaturePoints]
	}
	result.Symmetry = detectSymmetry(vertices, result.Center, result.BoundingBox.Radius(), a.SymmetryTolerance)

	return result, nil
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// String is used by the CLI statistics output.
func (a *SceneAnalysis) String() string {
	return fmt.Sprintf("model=%s vertices=%d faces=%d center=(%.2f, %.2f, %.2f) size=(%.2f, %.2f, %.2f) features=%d",
		a.ModelID, a.VertexCount, a.FaceCount,
		a.Center[0], a.Center[1], a.Center[2],
		a.Dimensions[0], a.Dimensions[1], a.Dimensions[2],
		len(a.FeaturePoints))
}
