package llm

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/prompt"
)

// Generator produces a candidate path for a compiled prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, p *prompt.CompiledPrompt) (*director.CameraPath, error)
}

// ProceduralGenerator answers without a network call using the keyword Director.
type ProceduralGenerator struct {
	director *director.Director
}

func NewProceduralGenerator() *ProceduralGenerator {
	return &ProceduralGenerator{director: director.NewDirector()}
}

func (g *ProceduralGenerator) Name() string { return ProviderProcedural }

func (g *ProceduralGenerator) Generate(ctx context.Context, p *prompt.CompiledPrompt) (*director.CameraPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dims := mgl64.Vec3(p.Scene.Dimensions)
	return g.director.GeneratePath(director.Request{
		Instruction: p.Instruction,
		ModelID:     p.ModelID,
		Duration:    p.Duration,
		Center:      mgl64.Vec3(p.Scene.Center),
		Radius:      dims.Len() / 2,
		Constraints: p.Constraints,
		Camera: geom.Pose{
			Position: p.Camera.Position.Vec(),
			Target:   p.Camera.Target.Vec(),
		},
	})
}

// Fallback tries Primary first; if it returns an error, tries Secondary.
type Fallback struct {
	Primary   Generator
	Secondary Generator
}

func (f *Fallback) Name() string {
	if f.Secondary == nil {
		return f.Primary.Name()
	}
	return f.Primary.Name() + ">" + f.Secondary.Name()
}

func (f *Fallback) Generate(ctx context.Context, p *prompt.CompiledPrompt) (*director.CameraPath, error) {
	path, err := f.Primary.Generate(ctx, p)
	if err != nil && f.Secondary != nil && ctx.Err() == nil {
		path, err2 := f.Secondary.Generate(ctx, p)
		if err2 != nil {
			return nil, fmt.Errorf("%s: %v; %s: %w", f.Primary.Name(), err, f.Secondary.Name(), err2)
		}
		return path, nil
	}
	return path, err
}

// Chain links generators into nested fallbacks in order.
func Chain(gens ...Generator) Generator {
	switch len(gens) {
	case 0:
		return nil
	case 1:
		return gens[0]
	default:
		return &Fallback{Primary: gens[0], Secondary: Chain(gens[1:]...)}
	}
}
