package playback

import (
	"context"
	"fmt"
	"image"

	"github.com/ivlev/prompt2path/internal/video"
)

// FrameSource renders the current view.
type FrameSource interface {
	CaptureFrame() (image.Image, error)
}

// Recorder captures frames at a fixed rate of playback time into an encoder.
// It covers one continuous pass from progress 0; the controller ends it on Seek.
type Recorder struct {
	Source  FrameSource
	Encoder video.Encoder
	Width   int
	Height  int
	FPS     int

	active bool
	frames int
}

func NewRecorder(src FrameSource, enc video.Encoder, width, height, fps int) *Recorder {
	return &Recorder{Source: src, Encoder: enc, Width: width, Height: height, FPS: fps}
}

func (r *Recorder) Active() bool { return r.active }

func (r *Recorder) Frames() int { return r.frames }

func (r *Recorder) Start(ctx context.Context) error {
	if r.active {
		return nil
	}
	if err := r.Encoder.Begin(ctx, r.Width, r.Height, r.FPS); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	r.active = true
	r.frames = 0
	return nil
}

// Capture writes frames until the recording covers elapsed seconds. A late tick
// repeats the current view so the recording keeps real time.
func (r *Recorder) Capture(elapsed float64) error {
	if !r.active {
		return nil
	}
	want := int(elapsed*float64(r.FPS)) + 1
	if r.frames >= want {
		return nil
	}
	img, err := r.Source.CaptureFrame()
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	for r.frames < want {
		if err := r.Encoder.WriteFrame(img); err != nil {
			return fmt.Errorf("write frame %d: %w", r.frames, err)
		}
		r.frames++
	}
	return nil
}

// Stop finishes the recording. Stopping early yields the frames captured so far.
func (r *Recorder) Stop() (*video.Blob, error) {
	if !r.active {
		return nil, fmt.Errorf("recording not active")
	}
	r.active = false
	return r.Encoder.End()
}
