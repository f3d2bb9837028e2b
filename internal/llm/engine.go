// Package llm generates candidate camera paths from compiled prompts.
package llm

import (
	"context"
	"time"

	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/prompt"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
	"github.com/ivlev/prompt2path/pkg/logger"
	"github.com/ivlev/prompt2path/pkg/metrics"
)

// ProviderProcedural is the built-in offline provider.
const ProviderProcedural = "procedural"

// Engine wraps a generator chain with a per-call timeout and error taxonomy.
type Engine struct {
	generator Generator
	timeout   time.Duration
	tolerance float64
}

func NewEngine(generator Generator, timeout time.Duration, tolerance float64) *Engine {
	if tolerance <= 0 {
		tolerance = director.DefaultDurationTolerance
	}
	return &Engine{generator: generator, timeout: timeout, tolerance: tolerance}
}

// NewEngineFromConfig builds the default provider followed by the fallback chain.
// Unknown or failing providers are skipped; procedural is always available.
func NewEngineFromConfig(ctx context.Context, cfg *config.Config, factory *EinoFactory, compiler *prompt.Compiler) *Engine {
	names := []string{cfg.LLM.DefaultProvider}
	names = append(names, cfg.LLM.FallbackChain...)

	seen := make(map[string]bool)
	var gens []Generator
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if name == ProviderProcedural {
			gens = append(gens, NewProceduralGenerator())
			continue
		}
		m, err := factory.Get(ctx, name)
		if err != nil {
			logger.Warn(ctx, "skipping llm provider", "provider", name, "error", err)
			continue
		}
		gens = append(gens, NewChatGenerator(name, m, compiler))
	}
	if len(gens) == 0 {
		gens = append(gens, NewProceduralGenerator())
	}

	return NewEngine(Chain(gens...), cfg.LLM.Timeout, cfg.Pipeline.DurationTolerance)
}

func (e *Engine) Provider() string {
	return e.generator.Name()
}

// GeneratePath calls the generator chain. Any failure is a PathGenerationError.
func (e *Engine) GeneratePath(ctx context.Context, p *prompt.CompiledPrompt) (*director.CameraPath, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	provider := e.generator.Name()
	start := time.Now()
	path, err := e.generator.Generate(ctx, p)
	metrics.LLMCallDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(provider, "error").Inc()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.PathGenerationError(err, "path generation timed out after %s", e.timeout)
		}
		return nil, apperrors.PathGenerationError(err, "path generation failed")
	}
	metrics.LLMCallTotal.WithLabelValues(provider, "success").Inc()

	path.ModelID = p.ModelID
	if path.Version == "" {
		path.Version = director.PathVersion
	}
	return path, nil
}

// ValidatePath checks path against the envelope of the prompt it was generated for.
func (e *Engine) ValidatePath(path *director.CameraPath, p *prompt.CompiledPrompt) director.ValidationResult {
	res := director.ValidatePath(path, p.Expectation(e.tolerance))
	if res.IsValid {
		metrics.PathValidationTotal.WithLabelValues("valid").Inc()
	} else {
		metrics.PathValidationTotal.WithLabelValues("invalid").Inc()
	}
	return res
}
