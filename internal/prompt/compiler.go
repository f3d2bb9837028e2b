// Package prompt compiles scene facts, constraints and the user instruction into a
// deterministic request for the path generator.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/metadata"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

const (
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.7

	// share of MaxTokens the prompt itself may use; the rest is left for the answer
	promptShare = 0.5
	// rough characters per token
	charsPerToken = 4
)

// ResponseFormat is the example answer shown to the model.
const ResponseFormat = `{"keyframes":[{"position":{"x":0,"y":1,"z":5},"target":{"x":0,"y":0,"z":0},"duration":2.5,"easing":"easeInOutCubic"}],"duration":10,"metadata":{"style":"orbit","focus":"front","safetyConstraints":{"minDistance":0,"maxDistance":0,"minHeight":0,"maxHeight":0,"maxSpeed":0,"maxAngleChangePerStep":0,"minFramingMargin":0}}}`

// Input is everything a prompt is compiled from.
type Input struct {
	Instruction string
	Scene       *analyzer.SceneAnalysis
	Environment *environment.EnvironmentalAnalysis
	Metadata    *metadata.ModelMetadata // optional
	Camera      geom.Pose
	Duration    float64
}

type CameraPose struct {
	Position director.Vec3 `json:"position"`
	Target   director.Vec3 `json:"target"`
}

// CompiledPrompt is created fresh for every generation attempt.
type CompiledPrompt struct {
	RequestID   string
	ModelID     string
	Instruction string
	Duration    float64
	MaxTokens   int
	Temperature float64

	Scene       analyzer.Summary
	Environment environment.Summary
	Constraints environment.CameraConstraints
	Camera      CameraPose
	Preferences metadata.Preferences

	SceneJSON       string
	EnvironmentJSON string
	ConstraintsJSON string
	CameraJSON      string
	PreferencesJSON string

	EstimatedTokens int
	Truncated       bool // feature points were dropped to fit the budget
}

// Expectation is what a path generated for this prompt is validated against.
func (p *CompiledPrompt) Expectation(tolerance float64) director.Expectation {
	bounds := geom.Box3{Min: p.Environment.Bounds.Min, Max: p.Environment.Bounds.Max}
	return director.Expectation{
		Duration:    p.Duration,
		Tolerance:   tolerance,
		Constraints: p.Constraints,
		Bounds:      &bounds,
	}
}

// Compiler turns Input into CompiledPrompt. Compile has no side effects besides
// drawing a request id from NewID.
type Compiler struct {
	MaxTokens   int
	Temperature float64
	NewID       func() string

	templates *templateSet
}

func NewCompiler(maxTokens int, temperature float64) *Compiler {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	return &Compiler{
		MaxTokens:   maxTokens,
		Temperature: temperature,
		NewID:       uuid.NewString,
		templates:   defaultTemplates,
	}
}

func (c *Compiler) Compile(in Input) (*CompiledPrompt, error) {
	instruction := strings.TrimSpace(in.Instruction)
	switch {
	case instruction == "":
		return nil, apperrors.ErrInvalidParam.WithDetail("instruction is empty")
	case in.Scene == nil || in.Environment == nil:
		return nil, apperrors.ErrInvalidParam.WithDetail("scene and environment analysis are required")
	case in.Duration <= 0:
		return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("duration must be positive, got %v", in.Duration))
	}

	p := &CompiledPrompt{
		ModelID:     in.Scene.ModelID,
		Instruction: instruction,
		Duration:    analyzer.Round(in.Duration),
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Scene:       in.Scene.Summary(),
		Environment: in.Environment.Summary(),
		Constraints: in.Environment.Constraints,
		Camera: CameraPose{
			Position: roundVec(in.Camera.Position),
			Target:   roundVec(in.Camera.Target),
		},
	}
	if in.Metadata != nil {
		p.Preferences = in.Metadata.Preferences
	}

	var err error
	if p.EnvironmentJSON, err = stableJSON(p.Environment); err != nil {
		return nil, err
	}
	if p.ConstraintsJSON, err = stableJSON(p.Constraints); err != nil {
		return nil, err
	}
	if p.CameraJSON, err = stableJSON(p.Camera); err != nil {
		return nil, err
	}
	if p.PreferencesJSON, err = stableJSON(p.Preferences); err != nil {
		return nil, err
	}

	budget := int(float64(c.MaxTokens) * promptShare)
	for {
		if p.SceneJSON, err = stableJSON(p.Scene); err != nil {
			return nil, err
		}
		p.EstimatedTokens = c.estimateTokens(p)
		n := len(p.Scene.FeaturePoints)
		if p.EstimatedTokens <= budget || n == 0 {
			break
		}
		p.Scene.FeaturePoints = p.Scene.FeaturePoints[:n*3/4]
		p.Truncated = true
	}

	p.RequestID = c.NewID()
	return p, nil
}

func (c *Compiler) estimateTokens(p *CompiledPrompt) int {
	chars := len(c.templates.system) + len(c.templates.user) + len(ResponseFormat) +
		len(p.Instruction) + len(p.ModelID) +
		len(p.SceneJSON) + len(p.EnvironmentJSON) + len(p.ConstraintsJSON) +
		len(p.CameraJSON) + len(p.PreferencesJSON)
	return (chars + charsPerToken - 1) / charsPerToken
}

// stableJSON marshals without HTML escaping. Struct field order is fixed
// and float values are pre-rounded, so equal inputs give equal bytes.
func stableJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("serialize prompt section: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func roundVec(v [3]float64) director.Vec3 {
	return director.Vec3{X: analyzer.Round(v[0]), Y: analyzer.Round(v[1]), Z: analyzer.Round(v[2])}
}

func formatDuration(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
