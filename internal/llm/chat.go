package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/prompt"
	"github.com/ivlev/prompt2path/pkg/metrics"
)

// ChatGenerator asks a chat model for the path and decodes the JSON answer.
type ChatGenerator struct {
	name     string
	model    model.BaseChatModel
	compiler *prompt.Compiler
}

func NewChatGenerator(name string, m model.BaseChatModel, compiler *prompt.Compiler) *ChatGenerator {
	return &ChatGenerator{name: name, model: m, compiler: compiler}
}

func (g *ChatGenerator) Name() string { return g.name }

func (g *ChatGenerator) Generate(ctx context.Context, p *prompt.CompiledPrompt) (*director.CameraPath, error) {
	msgs, err := g.compiler.Messages(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	opts := []model.Option{model.WithTemperature(float32(p.Temperature))}
	if p.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(p.MaxTokens))
	}

	resp, err := g.model.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty chat completion")
	}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		u := resp.ResponseMeta.Usage
		metrics.LLMTokensUsed.WithLabelValues(g.name, "prompt").Add(float64(u.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(g.name, "completion").Add(float64(u.CompletionTokens))
	}

	path, err := director.DecodeWire([]byte(ExtractJSONObject(resp.Content)))
	if err != nil {
		return nil, err
	}
	if len(path.Keyframes) == 0 {
		return nil, fmt.Errorf("model returned a path without keyframes")
	}
	return path, nil
}
