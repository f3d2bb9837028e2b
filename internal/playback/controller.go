package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/geom"
	"github.com/ivlev/prompt2path/internal/renderer"
	"github.com/ivlev/prompt2path/internal/video"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
	"github.com/ivlev/prompt2path/pkg/logger"
	"github.com/ivlev/prompt2path/pkg/metrics"
)

const DefaultProgressThrottle = 100 * time.Millisecond

type Options struct {
	Speed            float64
	ProgressThrottle time.Duration
	Now              func() time.Time
	// OnComplete runs once per finished pass, outside the controller lock.
	OnComplete func()
}

func OptionsFromConfig(cfg config.PlaybackConfig) Options {
	return Options{Speed: cfg.Speed, ProgressThrottle: cfg.ProgressThrottle}
}

// Controller plays camera commands on a camera it shares with user controls.
// Poses change only inside Tick, Seek and Stop; controls are disabled exactly while
// playing. All methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	camera   renderer.Camera
	controls renderer.Controls
	bus      *Bus
	recorder *Recorder
	now      func() time.Time
	throttle time.Duration
	onDone   func()

	status      Status
	cmds        []renderer.CameraCommand
	total       float64
	speed       float64
	progress    float64
	command     int
	startedAt   time.Time
	lastPublish time.Time
	lastBlob    *video.Blob
}

func NewController(camera renderer.Camera, controls renderer.Controls, opts Options) *Controller {
	if opts.Speed <= 0 {
		opts.Speed = 1
	}
	if opts.ProgressThrottle <= 0 {
		opts.ProgressThrottle = DefaultProgressThrottle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		camera:   camera,
		controls: controls,
		bus:      NewBus(),
		now:      opts.Now,
		throttle: opts.ProgressThrottle,
		onDone:   opts.OnComplete,
		speed:    opts.Speed,
	}
}

func (c *Controller) Bus() *Bus { return c.bus }

// SetRecorder attaches a recorder that runs for every full pass. nil detaches.
func (c *Controller) SetRecorder(r *Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Status:    c.status,
		Progress:  c.progress,
		Speed:     c.speed,
		Command:   c.command,
		Recording: c.recorder != nil && c.recorder.Active(),
	}
}

// Commands returns the loaded commands.
func (c *Controller) Commands() []renderer.CameraCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmds
}

// LastRecording returns the most recently finished recording.
func (c *Controller) LastRecording() *video.Blob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBlob
}

// SetGenerating marks a path request in flight.
func (c *Controller) SetGenerating() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(eventGenerate)
}

// Load replaces the commands and rewinds to the start.
func (c *Controller) Load(cmds []renderer.CameraCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(cmds) == 0 {
		return apperrors.AnimationError(nil, "no commands to load")
	}
	for _, cmd := range cmds {
		if cmd.Duration <= 0 || math.IsNaN(cmd.Duration) || math.IsInf(cmd.Duration, 0) {
			return apperrors.AnimationError(nil, "command %d has invalid duration %v", cmd.Index, cmd.Duration)
		}
	}
	if err := c.apply(eventReady); err != nil {
		return err
	}
	c.cmds = cmds
	c.total = renderer.TotalDuration(cmds)
	c.progress = 0
	c.command = 0
	return nil
}

// Play starts or resumes. A finished pass restarts from the beginning. The start
// time is backdated by the current progress so resuming is seamless.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cmds) == 0 {
		return apperrors.AnimationError(nil, "no commands loaded")
	}
	if c.camera == nil {
		c.failLocked(ctx)
		return apperrors.AnimationError(nil, "no camera attached")
	}
	from := c.status
	if err := c.apply(eventPlay); err != nil {
		return err
	}
	if from == StatusComplete || c.progress >= 100 {
		c.progress = 0
		c.command = 0
	}

	now := c.now()
	c.startedAt = now.Add(-c.offset(c.progress))
	if c.controls != nil {
		c.controls.SetEnabled(false)
	}

	if c.recorder != nil && c.progress == 0 && !c.recorder.Active() {
		if err := c.recorder.Start(ctx); err != nil {
			logger.Warn(ctx, "recording disabled for this pass", "error", err)
		}
	}

	logger.Debug(ctx, "playback started", "progress", c.progress, "speed", c.speed, "commands", len(c.cmds))
	c.publish(now, true)
	return nil
}

// Tick advances playback to now. It does nothing unless playing.
func (c *Controller) Tick(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	if c.status != StatusPlaying {
		c.mu.Unlock()
		return nil
	}

	progress := c.progressAt(now)
	// never report going backwards, e.g. on a clock step
	if progress < c.progress {
		progress = c.progress
	}
	c.progress = progress

	if progress >= 100 {
		done := c.completeLocked(ctx, now)
		c.mu.Unlock()
		if done != nil {
			done()
		}
		return nil
	}

	pose, idx := renderer.SampleAt(c.cmds, progress/100*c.total)
	c.command = idx
	renderer.ApplyPose(c.camera, c.controls, pose)
	metrics.PlaybackFrames.Inc()

	if err := c.captureLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	c.publish(now, false)
	c.mu.Unlock()
	return nil
}

// Pause freezes playback at the progress of the last tick. Pausing twice is a no-op.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusPaused {
		return nil
	}
	if err := c.apply(eventPause); err != nil {
		return err
	}
	if c.controls != nil {
		c.syncControls()
		c.controls.SetEnabled(true)
	}
	logger.Debug(ctx, "playback paused", "progress", c.progress)
	c.publish(c.now(), true)
	return nil
}

// Seek moves to progress (0..100) without advancing time. Not allowed while playing.
// A recording in progress is finished first, so every recording is one continuous pass.
func (c *Controller) Seek(ctx context.Context, progress float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cmds) == 0 {
		return apperrors.AnimationError(nil, "no commands loaded")
	}
	if math.IsNaN(progress) {
		return apperrors.ErrInvalidParam.WithDetail("progress is NaN")
	}
	if err := c.apply(eventSeek); err != nil {
		return err
	}
	c.stopRecordingLocked(ctx)
	c.progress = clampProgress(progress)

	var pose geom.Pose
	if c.progress >= 100 {
		pose = c.cmds[len(c.cmds)-1].End
		c.command = len(c.cmds) - 1
	} else {
		pose, c.command = renderer.SampleAt(c.cmds, c.progress/100*c.total)
	}
	renderer.ApplyPose(c.camera, c.controls, pose)
	c.publish(c.now(), true)
	return nil
}

// SetSpeed changes how fast future time advances progress.
func (c *Controller) SetSpeed(multiplier float64) error {
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return apperrors.ErrInvalidParam.WithDetail("speed must be > 0")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusPlaying {
		now := c.now()
		c.progress = math.Max(c.progress, math.Min(100, c.progressAt(now)))
		c.speed = multiplier
		c.startedAt = now.Add(-c.offset(c.progress))
		return nil
	}
	c.speed = multiplier
	return nil
}

// Stop rewinds to the start and keeps the commands. A running recording is finished
// early and published.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRecordingLocked(ctx)
	if err := c.apply(eventStop); err != nil {
		return err
	}
	c.rewindLocked()
	return nil
}

// Reset drops the commands and returns to idle.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRecordingLocked(ctx)
	c.apply(eventReset)
	c.rewindLocked()
	c.cmds = nil
	c.total = 0
}

// StopRecording finishes the current recording without stopping playback.
func (c *Controller) StopRecording(ctx context.Context) (*video.Blob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recorder == nil || !c.recorder.Active() {
		return nil, apperrors.ErrConflict.WithDetail("not recording")
	}
	blob, err := c.recorder.Stop()
	if err != nil {
		return nil, err
	}
	c.lastBlob = blob
	c.bus.Publish(Update{Status: c.status, Progress: c.progress, Command: c.command, At: c.now(), Recording: blob})
	return blob, nil
}

func (c *Controller) completeLocked(ctx context.Context, now time.Time) func() {
	c.progress = 100
	c.command = len(c.cmds) - 1
	// snap exactly onto the final pose
	renderer.ApplyPose(c.camera, c.controls, c.cmds[len(c.cmds)-1].End)
	metrics.PlaybackFrames.Inc()

	if err := c.captureLocked(ctx); err != nil {
		logger.Warn(ctx, "final frame not recorded", "error", err)
	}
	c.apply(eventComplete)
	if c.controls != nil {
		c.syncControls()
		c.controls.SetEnabled(true)
	}
	c.stopRecordingLocked(ctx)

	logger.Debug(ctx, "playback complete", "duration", c.total/c.speed)
	c.publish(now, true)
	return c.onDone
}

// captureLocked records the current view. Any failure aborts playback.
func (c *Controller) captureLocked(ctx context.Context) error {
	if c.recorder == nil || !c.recorder.Active() {
		return nil
	}
	elapsed := c.progress / 100 * c.total / c.speed
	if err := c.recorder.Capture(elapsed); err != nil {
		c.failLocked(ctx)
		return apperrors.AnimationError(err, "recording failed")
	}
	return nil
}

func (c *Controller) stopRecordingLocked(ctx context.Context) {
	if c.recorder == nil || !c.recorder.Active() {
		return
	}
	blob, err := c.recorder.Stop()
	if err != nil {
		logger.Warn(ctx, "recording produced no output", "error", err)
		return
	}
	c.lastBlob = blob
	c.bus.Publish(Update{Status: c.status, Progress: c.progress, Command: c.command, At: c.now(), Recording: blob})
}

// failLocked abandons playback and returns to idle.
func (c *Controller) failLocked(ctx context.Context) {
	if c.recorder != nil && c.recorder.Active() {
		c.recorder.Stop()
	}
	c.apply(eventReset)
	c.rewindLocked()
	c.cmds = nil
	c.total = 0
	logger.Warn(ctx, "playback aborted")
}

func (c *Controller) rewindLocked() {
	c.progress = 0
	c.command = 0
	if c.controls != nil {
		c.controls.SetEnabled(true)
	}
	c.publish(c.now(), true)
}

func (c *Controller) apply(ev event) error {
	next, err := transition(c.status, ev, len(c.cmds) > 0)
	if err != nil {
		return apperrors.ErrConflict.WithDetail(err.Error())
	}
	c.status = next
	return nil
}

// offset is the wall time a pass at the current speed takes to reach progress.
func (c *Controller) offset(progress float64) time.Duration {
	return time.Duration(progress / 100 * c.total / c.speed * float64(time.Second))
}

func (c *Controller) progressAt(now time.Time) float64 {
	wall := c.total / c.speed
	if wall <= 0 {
		return 100
	}
	elapsed := now.Sub(c.startedAt).Seconds()
	return math.Max(0, math.Min(100, elapsed/wall*100))
}

func (c *Controller) syncControls() {
	c.controls.SetTarget(c.camera.Target())
	c.controls.Update()
}

// publish sends the state; progress-only updates are throttled.
func (c *Controller) publish(now time.Time, force bool) {
	if !force && now.Sub(c.lastPublish) < c.throttle {
		return
	}
	c.lastPublish = now
	c.bus.Publish(Update{Status: c.status, Progress: c.progress, Command: c.command, At: now})
}

func clampProgress(progress float64) float64 {
	return math.Max(0, math.Min(100, progress))
}
