// Package metadata persists per-model metadata behind a durable store with an optional cache.
package metadata

import (
	"context"
	"time"

	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/source"
)

// ModelMetadata is the persisted envelope for one model.
type ModelMetadata struct {
	ModelID            string               `json:"modelId"`
	OwnerID            string               `json:"ownerId,omitempty"`
	Orientation        source.Orientation   `json:"orientation"`
	SceneSummary       *analyzer.Summary    `json:"sceneSummary,omitempty"`
	EnvironmentSummary *EnvironmentMetadata `json:"environmentSummary,omitempty"`
	Preferences        Preferences          `json:"preferences"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

// EnvironmentMetadata is the stored form of an environmental analysis.
type EnvironmentMetadata struct {
	environment.Summary
	Constraints environment.CameraConstraints `json:"constraints"`
}

func NewEnvironmentMetadata(env *environment.EnvironmentalAnalysis) *EnvironmentMetadata {
	return &EnvironmentMetadata{Summary: env.Summary(), Constraints: env.Constraints}
}

// Preferences are user defaults for framing. Zero means unset.
type Preferences struct {
	DefaultDistance float64 `json:"defaultDistance,omitempty"`
	DefaultHeight   float64 `json:"defaultHeight,omitempty"`
}

func (p Preferences) IsZero() bool {
	return p.DefaultDistance == 0 && p.DefaultHeight == 0
}

// Store is the metadata collaborator contract.
// GetModelMetadata returns an error matching apperrors.ErrNotFound for unknown ids.
type Store interface {
	GetModelMetadata(ctx context.Context, id string) (*ModelMetadata, error)
	StoreModelMetadata(ctx context.Context, id string, md *ModelMetadata) error
	StoreEnvironmentalMetadata(ctx context.Context, id string, env *EnvironmentMetadata) error
}
