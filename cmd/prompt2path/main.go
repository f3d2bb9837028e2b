// Command prompt2path turns a natural-language instruction into a camera path around a
// glTF model, plays it headlessly and optionally records it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/director"
	"github.com/ivlev/prompt2path/internal/engine"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/metadata"
	"github.com/ivlev/prompt2path/internal/playback"
	"github.com/ivlev/prompt2path/internal/preview"
	"github.com/ivlev/prompt2path/internal/source"
	"github.com/ivlev/prompt2path/internal/system"
	"github.com/ivlev/prompt2path/internal/video"
	"github.com/ivlev/prompt2path/pkg/logger"
)

// Injected at build time.
var BuildVersion = "dev"

const defaultFOV = 50

func main() {
	ctx := context.Background()
	system.InitResourceLimits(ctx)

	for _, d := range []string{"input/models", "output"} {
		os.MkdirAll(d, 0755)
	}

	modelPtr := flag.String("model", "", "glTF/GLB model (default: newest file in input/models/)")
	promptPtr := flag.String("prompt", "slow orbit around the model", "Camera instruction")
	durationPtr := flag.Float64("duration", 8, "Path duration in seconds")
	providerPtr := flag.String("provider", "", "Path generator (procedural, openai, ...); empty uses the config")
	outputPtr := flag.String("output", "", "Path YAML (default: generated in output/)")
	pathPtr := flag.String("path", "", "Play a saved path YAML instead of generating ('latest' for the newest in output/)")
	recordPtr := flag.String("record", "", "Record the pass to this file (.mp4 or .gif)")
	speedPtr := flag.Float64("speed", 1, "Playback speed multiplier")
	fpsPtr := flag.Int("fps", 0, "Playback/recording FPS (0 uses the config)")
	statsPtr := flag.Bool("stats", false, "Print a performance report and append it to benchmark.log")
	configPtr := flag.String("config", "", "Config file (default configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	if *providerPtr != "" {
		cfg.LLM.DefaultProvider = *providerPtr
	}
	if *fpsPtr > 0 {
		cfg.Playback.FPS = *fpsPtr
		cfg.Recording.FPS = *fpsPtr
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	modelPath, err := system.FindLatestModel(defaultString(*modelPtr, "input/models"))
	if err != nil {
		log.Fatalf("[-] Error: %v. Put a .gltf or .glb model into input/models/", err)
	}
	fmt.Printf("[*] Model: %s\n", modelPath)

	model, err := source.NewGLTFSource(modelPath, "").Load(ctx)
	if err != nil {
		log.Fatalf("[-] Failed to load model: %v", err)
	}

	stack, err := metadata.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("[-] Metadata store: %v", err)
	}
	defer stack.Close()

	camera := preview.NewCamera(geom.Pose{Position: mgl64.Vec3{0, 1, 5}}, defaultFOV)
	viewport := preview.NewViewport(camera, cfg.Recording.Width, cfg.Recording.Height)
	defer viewport.Close()

	clock := playback.NewManualClock(time.Now())
	opts := playback.OptionsFromConfig(cfg.Playback)
	opts.Speed = *speedPtr
	opts.Now = clock.Now
	player := playback.NewController(camera, viewport.Controls, opts)

	pipeline := engine.New(engine.Deps{
		Store:    stack.Store,
		Camera:   camera,
		Controls: viewport.Controls,
		Player:   player,
	})
	if err := pipeline.Initialize(ctx, cfg); err != nil {
		log.Fatalf("[-] Pipeline: %v", err)
	}
	if _, err := pipeline.LoadModel(ctx, model); err != nil {
		log.Fatalf("[-] %v", err)
	}

	scene, env, err := pipeline.Analyze(ctx)
	if err != nil {
		log.Fatalf("[-] Analysis failed: %v", err)
	}
	fmt.Printf("[*] %s\n", scene)
	fmt.Printf("[*] Safe distance %.2f..%.2f | height %.2f..%.2f\n",
		env.Constraints.MinDistance, env.Constraints.MaxDistance, env.Constraints.MinHeight, env.Constraints.MaxHeight)

	viewport.SetScene(scene)
	frameModel(camera, viewport.Controls, scene)

	var res *engine.Result
	if *pathPtr != "" {
		res = replayPath(ctx, pipeline, *pathPtr)
	} else {
		res = generatePath(ctx, pipeline, model.ID, *promptPtr, *durationPtr, *outputPtr)
	}
	if res.Stats.Corrections > 0 {
		fmt.Printf("[!] %d interpolated poses were clamped into the safe envelope\n", res.Stats.Corrections)
	}

	if *recordPtr != "" {
		recCfg := cfg.Recording
		if strings.EqualFold(filepath.Ext(*recordPtr), ".gif") {
			recCfg.Format = "gif"
		}
		enc := video.NewEncoder(recCfg)
		player.SetRecorder(playback.NewRecorder(viewport, enc, recCfg.Width, recCfg.Height, recCfg.FPS))
		fmt.Printf("[*] Recording %dx%d @ %d FPS (%T)\n", recCfg.Width, recCfg.Height, recCfg.FPS, enc)
	}

	ticks, err := playback.RunFixed(ctx, player, clock, cfg.Playback.FPS)
	if err != nil {
		log.Fatalf("[-] Playback failed: %v", err)
	}
	fmt.Printf("[*] Played %d frames at %.1fx\n", ticks, *speedPtr)

	if *recordPtr != "" {
		if err := writeRecording(*recordPtr, player.LastRecording()); err != nil {
			log.Fatalf("[-] %v", err)
		}
	}

	if *statsPtr {
		host, err := system.CollectHostStats(ctx, 200*time.Millisecond)
		if err != nil {
			fmt.Printf("[!] Host stats unavailable: %v\n", err)
		}
		fmt.Print(res.Stats.Report(BuildVersion, host))
		if err := engine.AppendBenchmark("benchmark.log", BuildVersion, res); err != nil {
			fmt.Printf("[!] Failed to write benchmark.log: %v\n", err)
		}
	}
}

func generatePath(ctx context.Context, pipeline *engine.Pipeline, modelID, instruction string, duration float64, output string) *engine.Result {
	fmt.Printf("[*] Generating with %s: %q (%.1fs)\n", pipeline.Provider(), instruction, duration)
	res, err := pipeline.Generate(ctx, engine.GenerateRequest{Instruction: instruction, Duration: duration})
	if err != nil {
		log.Fatalf("[-] Generation failed: %v", err)
	}

	if output == "" {
		output = director.GeneratePathFile("output", modelID)
	}
	if err := director.WritePath(res.Path, output); err != nil {
		log.Fatalf("[-] Failed to write path: %v", err)
	}
	fmt.Printf("[+++] Path saved: %s (%d keyframes, style %q)\n", output, len(res.Path.Keyframes), res.Path.Metadata.Style)
	return res
}

func replayPath(ctx context.Context, pipeline *engine.Pipeline, file string) *engine.Result {
	if file == "latest" {
		latest, err := director.FindLatestPath("output")
		if err != nil {
			log.Fatalf("[-] %v", err)
		}
		file = latest
	}
	path, err := director.ReadPath(file)
	if err != nil {
		log.Fatalf("[-] Failed to read path %s: %v", file, err)
	}
	fmt.Printf("[*] Using saved path: %s\n", file)

	res, err := pipeline.Replay(ctx, path)
	if err != nil {
		log.Fatalf("[-] Saved path rejected: %v", err)
	}
	fmt.Printf("[*] %d keyframes, %.1fs, style %q\n", len(path.Keyframes), path.KeyframeDuration(), path.Metadata.Style)
	return res
}

// frameModel places the camera in front of the model, slightly above its center.
func frameModel(camera *preview.Camera, controls *preview.OrbitControls, scene *analyzer.SceneAnalysis) {
	r := scene.Radius()
	camera.SetPosition(scene.Center.Add(mgl64.Vec3{0, r * 0.5, r * 2.5}))
	controls.SetTarget(scene.Center)
	controls.Update()
}

func writeRecording(file string, blob *video.Blob) error {
	if blob == nil || len(blob.Data) == 0 {
		return fmt.Errorf("nothing was recorded")
	}
	if err := os.WriteFile(file, blob.Data, 0644); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	fmt.Printf("[+++] Recording saved: %s (%d frames, %.2fs, %s)\n", file, blob.Frames, blob.Duration(), blob.MIMEType)

	if len(blob.Poster) > 0 {
		poster := strings.TrimSuffix(file, filepath.Ext(file)) + ".webp"
		if err := os.WriteFile(poster, blob.Poster, 0644); err != nil {
			return fmt.Errorf("failed to write poster: %w", err)
		}
		fmt.Printf("[+++] Poster saved: %s\n", poster)
	}
	return nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
