package analyzer

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/source"
)

// Summary is the serializable subset of SceneAnalysis sent to the path generator
// and persisted with the model metadata. Values are rounded to summaryPrecision decimals.
type Summary struct {
	VertexCount   int          `json:"vertexCount"`
	FaceCount     int          `json:"faceCount"`
	BoundingBox   BoxSummary   `json:"boundingBox"`
	Center        [3]float64   `json:"center"`
	Dimensions    [3]float64   `json:"dimensions"`
	Symmetry      Symmetry     `json:"symmetry"`
	FeaturePoints [][3]float64 `json:"featurePoints"`
}

type BoxSummary struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

const summaryPrecision = 4

func (a *SceneAnalysis) Summary() Summary {
	s := Summary{
		VertexCount: a.VertexCount,
		FaceCount:   a.FaceCount,
		BoundingBox: BoxSummary{Min: Round3(a.BoundingBox.Min), Max: Round3(a.BoundingBox.Max)},
		Center:      Round3(a.Center),
		Dimensions:  Round3(a.Dimensions),
		Symmetry: Symmetry{
			X: a.Symmetry.X, Y: a.Symmetry.Y, Z: a.Symmetry.Z,
			Score: Round(a.Symmetry.Score),
		},
		FeaturePoints: make([][3]float64, len(a.FeaturePoints)),
	}
	for i, p := range a.FeaturePoints {
		s.FeaturePoints[i] = Round3(p)
	}
	return s
}

// Round fixes a float to summaryPrecision decimals so serialized output is stable.
func Round(f float64) float64 {
	p := math.Pow(10, summaryPrecision)
	r := math.Round(f*p) / p
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

func Round3(v mgl64.Vec3) [3]float64 {
	return [3]float64{Round(v[0]), Round(v[1]), Round(v[2])}
}

// FromSummary rebuilds an analysis from a summary sent by a client that analyzed the
// model itself. Orientation is the identity and the revision is empty, so the result
// is never cached.
func FromSummary(modelID string, s Summary, cam geom.CameraSnapshot) *SceneAnalysis {
	box := geom.Box3{Min: mgl64.Vec3(s.BoundingBox.Min), Max: mgl64.Vec3(s.BoundingBox.Max)}
	points := make([]mgl64.Vec3, len(s.FeaturePoints))
	for i, p := range s.FeaturePoints {
		points[i] = mgl64.Vec3(p)
	}
	return &SceneAnalysis{
		ModelID:       modelID,
		VertexCount:   s.VertexCount,
		FaceCount:     s.FaceCount,
		BoundingBox:   box,
		Center:        box.Center(),
		Dimensions:    box.Size(),
		FeaturePoints: points,
		Symmetry:      s.Symmetry,
		Orientation:   source.DefaultOrientation(),
		Camera:        cam,
		ComputedAt:    time.Now(),
	}
}
