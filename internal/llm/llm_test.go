package llm

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/prompt"
	"github.com/ivlev/prompt2path/internal/source"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

type fakeChatModel struct {
	content string
	err     error
	delay   time.Duration
	calls   int
	last    []*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.calls++
	m.last = input
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{
		Role:    schema.Assistant,
		Content: m.content,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		},
	}, nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func compileCube(t *testing.T, instruction string, duration float64) (*prompt.Compiler, *prompt.CompiledPrompt) {
	t.Helper()
	camera := geom.Pose{Position: mgl64.Vec3{0, 1, 5}}
	snapshot := geom.NewCameraSnapshot(camera, 50)
	scene, err := analyzer.NewAnalyzer(0, nil).Analyze(
		source.NewBoxModel("cube", mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1}), snapshot)
	if err != nil {
		t.Fatal(err)
	}
	env, err := environment.NewAnalyzer(environment.DefaultSettings()).Analyze(scene, snapshot)
	if err != nil {
		t.Fatal(err)
	}
	compiler := prompt.NewCompiler(0, 0.7)
	p, err := compiler.Compile(prompt.Input{
		Instruction: instruction,
		Scene:       scene,
		Environment: env,
		Camera:      camera,
		Duration:    duration,
	})
	if err != nil {
		t.Fatal(err)
	}
	return compiler, p
}

const chatAnswer = "Here is your path:\n```json\n" + `{"keyframes":[
{"position":{"x":0,"y":1,"z":4},"target":{"x":0,"y":0,"z":0},"duration":5,"easing":"easeInOutCubic"},
{"position":{"x":4,"y":1,"z":0},"target":{"x":0,"y":0,"z":0},"duration":5}],
"duration":10,"metadata":{"style":"orbit","focus":"front"}}` + "\n```\nEnjoy {the} shot."

func TestOrbitPathDurationSumsToRequest(t *testing.T) {
	_, p := compileCube(t, "orbit the model", 10)
	engine := NewEngine(NewProceduralGenerator(), time.Second, 0)

	path, err := engine.GeneratePath(context.Background(), p)
	if err != nil {
		t.Fatalf("GeneratePath failed: %v", err)
	}
	if math.Abs(path.KeyframeDuration()-10) > 0.1 {
		t.Errorf("Expected keyframe durations to sum to 10 (±0.1), got %f", path.KeyframeDuration())
	}
	if path.ModelID != "cube" {
		t.Errorf("Expected path bound to model cube, got %q", path.ModelID)
	}

	res := engine.ValidatePath(path, p)
	if !res.IsValid {
		t.Errorf("Expected valid path, got %v", res.Errors)
	}
}

func TestChatGenerator(t *testing.T) {
	compiler, p := compileCube(t, "orbit the model", 10)
	fake := &fakeChatModel{content: chatAnswer}
	engine := NewEngine(NewChatGenerator("fake", fake, compiler), time.Second, 0.1)

	path, err := engine.GeneratePath(context.Background(), p)
	if err != nil {
		t.Fatalf("GeneratePath failed: %v", err)
	}
	if len(path.Keyframes) != 2 {
		t.Fatalf("Expected 2 keyframes, got %d", len(path.Keyframes))
	}
	if path.Keyframes[1].Position != (director.Vec3{X: 4, Y: 1, Z: 0}) {
		t.Errorf("Unexpected keyframe %+v", path.Keyframes[1])
	}
	if len(fake.last) != 2 || fake.last[0].Role != schema.System {
		t.Errorf("Expected system + user messages, got %d", len(fake.last))
	}

	res := engine.ValidatePath(path, p)
	if !res.IsValid {
		t.Errorf("Expected valid path, got %v", res.Errors)
	}
}

func TestChatGeneratorBadAnswer(t *testing.T) {
	compiler, p := compileCube(t, "orbit", 10)

	for _, content := range []string{"I cannot help with that.", `{"keyframes":[],"duration":10}`} {
		engine := NewEngine(NewChatGenerator("fake", &fakeChatModel{content: content}, compiler), time.Second, 0)
		_, err := engine.GeneratePath(context.Background(), p)
		if err == nil {
			t.Errorf("Expected error for answer %q", content)
			continue
		}
		if !apperrors.IsKind(err, apperrors.CodePathGeneration) || !apperrors.Retryable(err) {
			t.Errorf("Expected retryable path generation error, got %v", err)
		}
	}
}

func TestFallbackChain(t *testing.T) {
	compiler, p := compileCube(t, "orbit the model", 10)
	failing := &fakeChatModel{err: errors.New("503 upstream")}

	gen := Chain(NewChatGenerator("primary", failing, compiler), NewProceduralGenerator())
	if gen.Name() != "primary>procedural" {
		t.Errorf("Unexpected chain name %s", gen.Name())
	}

	path, err := NewEngine(gen, time.Second, 0).GeneratePath(context.Background(), p)
	if err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if failing.calls != 1 {
		t.Errorf("Expected primary to be tried once, got %d", failing.calls)
	}
	if path.Metadata.Style != director.StyleOrbit {
		t.Errorf("Expected procedural orbit, got %s", path.Metadata.Style)
	}
}

func TestGeneratePathTimeout(t *testing.T) {
	compiler, p := compileCube(t, "orbit", 10)
	slow := &fakeChatModel{content: chatAnswer, delay: time.Second}
	engine := NewEngine(NewChatGenerator("slow", slow, compiler), 20*time.Millisecond, 0)

	_, err := engine.GeneratePath(context.Background(), p)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !apperrors.IsKind(err, apperrors.CodePathGeneration) {
		t.Errorf("Expected path generation error, got %v", err)
	}
}

func TestNewEngineFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.DefaultProvider = "missing"
	cfg.LLM.FallbackChain = []string{"procedural", "procedural"}

	engine := NewEngineFromConfig(context.Background(), cfg, NewEinoFactory(&cfg.LLM), prompt.NewCompiler(0, 0.7))
	if engine.Provider() != ProviderProcedural {
		t.Errorf("Expected only the procedural provider, got %s", engine.Provider())
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`Sure! {"a":{"b":2}} hope that helps {x}`, `{"a":{"b":2}}`},
		{"no json here", "no json here"},
	}
	for _, tt := range tests {
		if got := ExtractJSONObject(tt.in); got != tt.want {
			t.Errorf("ExtractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
