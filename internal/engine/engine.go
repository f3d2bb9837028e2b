// Package engine wires the analysis, prompt, generation and interpretation stages into
// one pipeline that owns the camera path of the currently loaded model.
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/environment"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/llm"
	"github.com/ivlev/prompt2path/internal/metadata"
	"github.com/ivlev/prompt2path/internal/playback"
	"github.com/ivlev/prompt2path/internal/prompt"
	"github.com/ivlev/prompt2path/internal/renderer"
	"github.com/ivlev/prompt2path/internal/source"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
	"github.com/ivlev/prompt2path/pkg/logger"
	"github.com/ivlev/prompt2path/pkg/metrics"
	"github.com/ivlev/prompt2path/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// metadataTimeout bounds the best-effort metadata calls of one generation.
const metadataTimeout = 3 * time.Second

// Deps are the collaborators a Pipeline is built from. Every field is optional;
// Initialize fills what is missing from the config.
type Deps struct {
	Store    metadata.Store
	LLM      *llm.Engine
	Factory  *llm.EinoFactory
	Camera   renderer.Camera
	Controls renderer.Controls
	Player   *playback.Controller
}

// GenerateRequest asks for a path for the loaded model.
type GenerateRequest struct {
	Instruction string
	Duration    float64
	// Camera overrides the pose read from the attached camera.
	Camera *geom.Pose
}

// Result is one accepted generation.
type Result struct {
	Epoch       uint64
	ModelID     string
	RequestID   string
	Provider    string
	Path        *director.CameraPath
	Commands    []renderer.CameraCommand
	Scene       *analyzer.SceneAnalysis
	Environment *environment.EnvironmentalAnalysis
	Prompt      *prompt.CompiledPrompt
	Stats       Stats
}

// Pipeline owns the model session. Every LoadModel, Generate and Replay starts a new
// epoch; a result is accepted only while its epoch is still the newest, so the last
// request wins. The path and commands of a session are replaced together under one lock.
type Pipeline struct {
	deps Deps

	mu          sync.RWMutex
	cfg         *config.Config
	ready       bool
	analyzer    *analyzer.Analyzer
	envAnalyzer *environment.Analyzer
	compiler    *prompt.Compiler
	llm         *llm.Engine
	interpreter *renderer.Interpreter
	store       metadata.Store
	player      *playback.Controller

	epoch   uint64
	pending uint64 // epoch of the newest unfinished request, 0 when none
	model   *source.Model
	current *Result
}

func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps}
}

// Initialize builds every stage from cfg. It must complete before any other call.
func (p *Pipeline) Initialize(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return apperrors.ErrInvalidParam.WithDetail("config is nil")
	}
	extractor, err := analyzer.NewExtractor(cfg.Pipeline.FeatureExtractor)
	if err != nil {
		return apperrors.ErrInvalidParam.WithDetail(err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg = cfg
	p.analyzer = analyzer.NewAnalyzer(cfg.Pipeline.MaxFeaturePoints, extractor)
	if cfg.Pipeline.SymmetryTolerance > 0 {
		p.analyzer.SymmetryTolerance = cfg.Pipeline.SymmetryTolerance
	}
	p.envAnalyzer = environment.NewAnalyzer(environment.SettingsFromConfig(cfg.Pipeline))
	p.compiler = prompt.NewCompiler(cfg.Pipeline.MaxTokens, cfg.Pipeline.Temperature)
	p.interpreter = renderer.NewInterpreter(cfg.Pipeline.ClampSamples)

	p.llm = p.deps.LLM
	if p.llm == nil {
		factory := p.deps.Factory
		if factory == nil {
			factory = llm.NewEinoFactory(&cfg.LLM)
		}
		p.llm = llm.NewEngineFromConfig(ctx, cfg, factory, p.compiler)
	}

	p.store = p.deps.Store
	if p.store == nil {
		p.store = metadata.NewMemoryStore()
	}

	p.player = p.deps.Player
	if p.player == nil && p.deps.Camera != nil {
		p.player = playback.NewController(p.deps.Camera, p.deps.Controls, playback.OptionsFromConfig(cfg.Playback))
	}

	p.ready = true
	logger.Info(ctx, "pipeline initialized", "provider", p.llm.Provider(), "extractor", cfg.Pipeline.FeatureExtractor)
	return nil
}

// Player returns the playback controller, nil when no camera was attached.
func (p *Pipeline) Player() *playback.Controller {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.player
}

func (p *Pipeline) Store() metadata.Store {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store
}

// Provider names the configured path generator.
func (p *Pipeline) Provider() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.llm == nil {
		return ""
	}
	return p.llm.Provider()
}

// Current returns the accepted result of the loaded model, or nil.
func (p *Pipeline) Current() *Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *Pipeline) Epoch() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.epoch
}

// LoadModel makes model current. The previous path and commands are dropped in the
// same step and any generation still running for the old model becomes stale.
func (p *Pipeline) LoadModel(ctx context.Context, model *source.Model) (uint64, error) {
	if model == nil {
		return 0, apperrors.AnalysisError("no model")
	}

	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return 0, apperrors.ErrServiceUnavailable.WithDetail("pipeline not initialized")
	}
	if p.model != nil && p.model.ID == model.ID {
		p.analyzer.Invalidate(model.ID)
	}
	p.epoch++
	epoch := p.epoch
	p.pending = 0
	p.model = model
	p.current = nil
	if p.player != nil {
		p.player.Reset(ctx)
	}
	p.mu.Unlock()

	logger.Info(ctx, "model loaded", "model_id", model.ID, "revision", model.Revision, "epoch", epoch)
	return epoch, nil
}

// Generate runs analysis, environment analysis, prompt compilation, generation,
// validation and interpretation for the loaded model. Starting it supersedes any
// request still pending. An invalid path is rejected whole and the previous session
// state is restored.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	start := time.Now()

	p.mu.Lock()
	model, cfg, err := p.sessionLocked()
	if err == nil {
		err = validateRequest(req, cfg.Pipeline.MaxDuration)
	}
	var epoch uint64
	if err == nil {
		epoch, err = p.beginLocked()
	}
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ctx = logger.WithContext(ctx, logger.ModelIDKey, model.ID)
	ctx = logger.WithContext(ctx, logger.EpochKey, epoch)
	ctx, span := tracer.Start(ctx, "pipeline.Generate", trace.WithAttributes(
		attribute.String("model.id", model.ID),
		attribute.Int64("pipeline.epoch", int64(epoch)),
	))
	defer span.End()

	res, err := p.run(ctx, model, req, epoch)
	if err != nil {
		p.abandon(ctx, epoch)
	} else {
		res.Stats.Total = time.Since(start)
		err = p.commit(ctx, epoch, res)
	}
	if err != nil {
		span.RecordError(err)
		metrics.GenerationTotal.WithLabelValues(generationStatus(err)).Inc()
		logger.Warn(ctx, "generation failed", "error", err)
		return nil, err
	}

	metrics.GenerationTotal.WithLabelValues("success").Inc()
	logger.Info(ctx, "camera path ready",
		"provider", res.Provider,
		"keyframes", len(res.Path.Keyframes),
		"duration", res.Path.Duration,
		"total_ms", res.Stats.Total.Milliseconds())
	return res, nil
}

// Replay validates a saved path against the loaded model and makes it the session
// path without calling the generator.
func (p *Pipeline) Replay(ctx context.Context, path *director.CameraPath) (*Result, error) {
	start := time.Now()
	if path == nil || len(path.Keyframes) == 0 {
		return nil, apperrors.ErrInvalidParam.WithDetail("path has no keyframes")
	}

	p.mu.Lock()
	model, cfg, err := p.sessionLocked()
	if err == nil && path.ModelID != "" && path.ModelID != model.ID {
		err = apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("path belongs to model %q, loaded %q", path.ModelID, model.ID))
	}
	var epoch uint64
	if err == nil {
		epoch, err = p.beginLocked()
	}
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ctx = logger.WithContext(ctx, logger.ModelIDKey, model.ID)
	ctx = logger.WithContext(ctx, logger.EpochKey, epoch)

	res, err := p.replay(ctx, model, path, cfg.Pipeline.DurationTolerance, epoch)
	if err != nil {
		p.abandon(ctx, epoch)
		return nil, err
	}
	res.Stats.Total = time.Since(start)
	if err := p.commit(ctx, epoch, res); err != nil {
		return nil, err
	}
	logger.Info(ctx, "saved path loaded", "keyframes", len(path.Keyframes), "corrections", res.Stats.Corrections)
	return res, nil
}

func (p *Pipeline) replay(ctx context.Context, model *source.Model, path *director.CameraPath, tolerance float64, epoch uint64) (*Result, error) {
	var stats Stats
	camera := p.cameraPose(GenerateRequest{})
	snapshot := geom.NewCameraSnapshot(camera, p.fov())

	stageStart := time.Now()
	scene, err := p.analyzer.Analyze(model, snapshot)
	if err != nil {
		return nil, err
	}
	env, err := p.envAnalyzer.Analyze(scene, snapshot)
	if err != nil {
		return nil, err
	}
	stats.Analysis = time.Since(stageStart)

	duration := path.Duration
	if duration <= 0 {
		duration = path.KeyframeDuration()
	}
	bounds := geom.Box3{Min: env.Bounds.Min, Max: env.Bounds.Max}
	check := director.ValidatePath(path, director.Expectation{
		Duration:    duration,
		Tolerance:   tolerance,
		Constraints: env.Constraints,
		Bounds:      &bounds,
	})
	if !check.IsValid {
		return nil, apperrors.ErrInvalidParam.WithDetail("saved path rejected: " + strings.Join(check.Errors, "; "))
	}

	stageStart = time.Now()
	cmds, err := p.interpreter.Interpret(path, scene, env, camera)
	stats.Interpretation = time.Since(stageStart)
	if err != nil {
		return nil, err
	}
	for _, c := range cmds {
		stats.Corrections += c.Corrections
	}
	logger.Debug(ctx, "saved path interpreted", "commands", len(cmds))

	return &Result{
		Epoch:       epoch,
		ModelID:     model.ID,
		Provider:    "replay",
		Path:        path,
		Commands:    cmds,
		Scene:       scene,
		Environment: env,
		Stats:       stats,
	}, nil
}

func (p *Pipeline) sessionLocked() (*source.Model, *config.Config, error) {
	if !p.ready {
		return nil, nil, apperrors.ErrServiceUnavailable.WithDetail("pipeline not initialized")
	}
	if p.model == nil {
		return nil, nil, apperrors.AnalysisError("no model loaded")
	}
	return p.model, p.cfg, nil
}

// beginLocked opens a new epoch, superseding every pending request.
func (p *Pipeline) beginLocked() (uint64, error) {
	if p.player != nil {
		if err := p.player.SetGenerating(); err != nil {
			return 0, err
		}
	}
	p.epoch++
	p.pending = p.epoch
	return p.epoch, nil
}

// commit makes res the session result unless a newer request or model took over.
func (p *Pipeline) commit(ctx context.Context, epoch uint64, res *Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.epoch != epoch {
		p.settleLocked(ctx, epoch)
		return apperrors.ErrStaleGeneration.WithDetail(fmt.Sprintf("epoch %d superseded by %d", epoch, p.epoch))
	}
	p.pending = 0
	if p.player != nil {
		if err := p.player.Load(res.Commands); err != nil {
			p.restoreLocked(ctx)
			return err
		}
	}
	p.current = res
	return nil
}

// abandon ends epoch without a result.
func (p *Pipeline) abandon(ctx context.Context, epoch uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settleLocked(ctx, epoch)
}

// settleLocked releases the player held by epoch. The newest request restores the
// session it started from; a superseded one only resets a player left generating
// with nothing pending.
func (p *Pipeline) settleLocked(ctx context.Context, epoch uint64) {
	switch p.pending {
	case epoch:
		p.pending = 0
		p.restoreLocked(ctx)
	case 0:
		if p.player != nil && p.player.State().Status == playback.StatusGenerating && len(p.player.Commands()) == 0 {
			p.player.Reset(ctx)
		}
	}
}

func (p *Pipeline) run(ctx context.Context, model *source.Model, req GenerateRequest, epoch uint64) (*Result, error) {
	var stats Stats
	camera := p.cameraPose(req)
	snapshot := geom.NewCameraSnapshot(camera, p.fov())

	stageStart := time.Now()
	scene, err := p.analyzer.Analyze(model, snapshot)
	if err != nil {
		return nil, err
	}
	env, err := p.envAnalyzer.Analyze(scene, snapshot)
	if err != nil {
		return nil, err
	}
	stats.Analysis = time.Since(stageStart)

	if !env.CameraInside {
		logger.Debug(ctx, "camera starts outside the safe envelope and will be clamped")
	}

	md := p.loadMetadata(ctx, model.ID)

	// persisting the analysis runs next to generation
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	p.saveAnalysis(g, gctx, model, scene, env, md)

	res, err := p.generate(ctx, req, scene, env, md, camera, epoch, &stats)
	if werr := g.Wait(); werr != nil {
		logger.Warn(ctx, "metadata not saved", "error", werr)
	}
	if err != nil {
		return nil, err
	}
	res.Stats = stats
	return res, nil
}

func (p *Pipeline) generate(
	ctx context.Context,
	req GenerateRequest,
	scene *analyzer.SceneAnalysis,
	env *environment.EnvironmentalAnalysis,
	md *metadata.ModelMetadata,
	camera geom.Pose,
	epoch uint64,
	stats *Stats,
) (*Result, error) {
	compiled, err := p.compiler.Compile(prompt.Input{
		Instruction: req.Instruction,
		Scene:       scene,
		Environment: env,
		Metadata:    md,
		Camera:      camera,
		Duration:    req.Duration,
	})
	if err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.RequestIDKey, compiled.RequestID)

	stageStart := time.Now()
	path, err := p.llm.GeneratePath(ctx, compiled)
	stats.Generation = time.Since(stageStart)
	if err != nil {
		return nil, err
	}

	// epoch 0 is scene-only generation, which never touches the session
	if epoch != 0 && p.Epoch() != epoch {
		return nil, apperrors.ErrStaleGeneration.WithDetail("superseded during generation")
	}

	if res := p.llm.ValidatePath(path, compiled); !res.IsValid {
		return nil, apperrors.PathGenerationError(nil, "path rejected: %s", strings.Join(res.Errors, "; "))
	}

	stageStart = time.Now()
	cmds, err := p.interpreter.Interpret(path, scene, env, camera)
	stats.Interpretation = time.Since(stageStart)
	if err != nil {
		return nil, err
	}
	for _, c := range cmds {
		stats.Corrections += c.Corrections
	}

	return &Result{
		Epoch:       epoch,
		ModelID:     scene.ModelID,
		RequestID:   compiled.RequestID,
		Provider:    p.llm.Provider(),
		Path:        path,
		Commands:    cmds,
		Scene:       scene,
		Environment: env,
		Prompt:      compiled,
	}, nil
}

// GenerateForScene generates and validates a path for a scene analyzed elsewhere.
// It does not touch the loaded model or the playback state.
func (p *Pipeline) GenerateForScene(ctx context.Context, modelID string, summary analyzer.Summary, req GenerateRequest) (*Result, error) {
	p.mu.RLock()
	ready, cfg := p.ready, p.cfg
	p.mu.RUnlock()
	if !ready {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("pipeline not initialized")
	}
	if err := validateRequest(req, cfg.Pipeline.MaxDuration); err != nil {
		return nil, err
	}

	ctx = logger.WithContext(ctx, logger.ModelIDKey, modelID)
	ctx, span := tracer.Start(ctx, "pipeline.GenerateForScene", trace.WithAttributes(attribute.String("model.id", modelID)))
	defer span.End()

	camera := p.cameraPose(req)
	snapshot := geom.NewCameraSnapshot(camera, p.fov())
	scene := analyzer.FromSummary(modelID, summary, snapshot)
	env, err := p.envAnalyzer.Analyze(scene, snapshot)
	if err != nil {
		metrics.GenerationTotal.WithLabelValues(generationStatus(err)).Inc()
		return nil, err
	}

	md := p.loadMetadata(ctx, modelID)
	var stats Stats
	res, err := p.generate(ctx, req, scene, env, md, camera, 0, &stats)
	if err != nil {
		span.RecordError(err)
		metrics.GenerationTotal.WithLabelValues(generationStatus(err)).Inc()
		return nil, err
	}
	res.Stats = stats
	metrics.GenerationTotal.WithLabelValues("success").Inc()
	return res, nil
}

// Analyze runs both analyses for the loaded model without generating.
func (p *Pipeline) Analyze(ctx context.Context) (*analyzer.SceneAnalysis, *environment.EnvironmentalAnalysis, error) {
	p.mu.RLock()
	model, ready := p.model, p.ready
	p.mu.RUnlock()
	if !ready {
		return nil, nil, apperrors.ErrServiceUnavailable.WithDetail("pipeline not initialized")
	}
	if model == nil {
		return nil, nil, apperrors.AnalysisError("no model loaded")
	}
	snapshot := geom.NewCameraSnapshot(p.cameraPose(GenerateRequest{}), p.fov())
	scene, err := p.analyzer.Analyze(model, snapshot)
	if err != nil {
		return nil, nil, err
	}
	env, err := p.envAnalyzer.Analyze(scene, snapshot)
	if err != nil {
		return scene, nil, err
	}
	return scene, env, nil
}

func (p *Pipeline) loadMetadata(ctx context.Context, id string) *metadata.ModelMetadata {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	md, err := p.store.GetModelMetadata(ctx, id)
	if err != nil {
		if !apperrors.IsKind(err, apperrors.CodeNotFound) {
			logger.Warn(ctx, "metadata unavailable, generating without preferences", "error", err)
		}
		return nil
	}
	return md
}

func (p *Pipeline) saveAnalysis(
	g *errgroup.Group,
	ctx context.Context,
	model *source.Model,
	scene *analyzer.SceneAnalysis,
	env *environment.EnvironmentalAnalysis,
	existing *metadata.ModelMetadata,
) {
	summary := scene.Summary()
	md := &metadata.ModelMetadata{ModelID: model.ID, Orientation: model.Orientation}
	if existing != nil {
		md.OwnerID = existing.OwnerID
		md.Preferences = existing.Preferences
	}
	md.SceneSummary = &summary
	md.EnvironmentSummary = metadata.NewEnvironmentMetadata(env)

	g.Go(func() error {
		ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
		defer cancel()
		return p.store.StoreModelMetadata(ctx, model.ID, md)
	})
}

func (p *Pipeline) restoreLocked(ctx context.Context) {
	if p.player == nil {
		return
	}
	if p.current != nil {
		if err := p.player.Load(p.current.Commands); err == nil {
			return
		}
	}
	p.player.Reset(ctx)
}

func (p *Pipeline) cameraPose(req GenerateRequest) geom.Pose {
	if req.Camera != nil {
		return *req.Camera
	}
	if p.deps.Camera != nil {
		return renderer.CurrentPose(p.deps.Camera)
	}
	return geom.Pose{Position: mgl64.Vec3{0, 1, 5}}
}

func (p *Pipeline) fov() float64 {
	if p.deps.Camera != nil {
		return p.deps.Camera.FOV()
	}
	return 50
}

func validateRequest(req GenerateRequest, maxDuration float64) error {
	if strings.TrimSpace(req.Instruction) == "" {
		return apperrors.ErrInvalidParam.WithDetail("instruction is empty")
	}
	if req.Duration <= 0 || math.IsNaN(req.Duration) || math.IsInf(req.Duration, 0) {
		return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("duration must be positive, got %v", req.Duration))
	}
	if maxDuration > 0 && req.Duration > maxDuration {
		return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("duration %.1fs exceeds the %.1fs limit", req.Duration, maxDuration))
	}
	return nil
}

func generationStatus(err error) string {
	appErr, ok := apperrors.As(err)
	if !ok {
		return "error"
	}
	switch appErr.Code {
	case apperrors.CodeAnalysis, apperrors.CodeEnvironmentAnalysis:
		return "analysis_error"
	case apperrors.CodePathGeneration:
		return "rejected"
	case apperrors.CodeStaleGeneration:
		return "stale"
	case apperrors.CodeInvalidParam:
		return "invalid"
	}
	return "error"
}
