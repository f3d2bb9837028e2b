package video

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"strings"
	"testing"

	"github.com/ivlev/prompt2path/internal/system"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestGIFEncoderEarlyStop(t *testing.T) {
	enc := NewGIFEncoder(true)
	if err := enc.Begin(context.Background(), 32, 16, 10); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	// fewer frames than a full pass; the blob covers what was written
	for i := 0; i < 3; i++ {
		frame := solidFrame(64, 32, color.RGBA{uint8(i * 80), 0, 0, 255})
		if err := enc.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	blob, err := enc.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if blob.MIMEType != "image/gif" || len(blob.Data) == 0 || blob.Frames != 3 {
		t.Fatalf("Unexpected blob: %s, %d bytes, %d frames", blob.MIMEType, len(blob.Data), blob.Frames)
	}
	if len(blob.Poster) == 0 {
		t.Error("Expected a poster image")
	}
	t.Logf("GIF: %d bytes, %.2fs", len(blob.Data), blob.Duration())

	decoded, err := gif.DecodeAll(bytes.NewReader(blob.Data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded.Image) != 3 || decoded.Config.Width != 32 {
		t.Errorf("Expected 3 frames of width 32, got %d frames of width %d", len(decoded.Image), decoded.Config.Width)
	}
}

func TestGIFEncoderStates(t *testing.T) {
	enc := NewGIFEncoder(false)
	if err := enc.WriteFrame(solidFrame(2, 2, color.RGBA{})); err == nil {
		t.Error("Expected error writing before Begin")
	}
	if err := enc.Begin(context.Background(), 0, 10, 10); err == nil {
		t.Error("Expected error for zero width")
	}
	if err := enc.Begin(context.Background(), 4, 4, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := enc.End(); err == nil {
		t.Error("Expected error for an empty recording")
	}
}

func TestBuildFFmpegArgs(t *testing.T) {
	tests := []struct {
		encoder string
		want    string
	}{
		{"libx264", "-crf 23"},
		{"h264_nvenc", "-cq 23"},
		{"h264_videotoolbox", "-b:v 2300k"},
	}

	for _, tt := range tests {
		t.Run(tt.encoder, func(t *testing.T) {
			args := strings.Join(buildFFmpegArgs(640, 360, 30, "out.mp4", tt.encoder, 23), " ")
			if !strings.Contains(args, tt.want) {
				t.Errorf("Expected %q in %s", tt.want, args)
			}
			if !strings.Contains(args, "-video_size 640x360") || !strings.HasSuffix(args, "out.mp4") {
				t.Errorf("Unexpected args: %s", args)
			}
		})
	}
}

func TestGIFDelay(t *testing.T) {
	if d := gifDelay(10); d != 10 {
		t.Errorf("Expected 10, got %d", d)
	}
	if d := gifDelay(120); d != 2 {
		t.Errorf("Expected minimum delay 2, got %d", d)
	}
}

func TestFFmpegEncoderOutlivesContext(t *testing.T) {
	if !system.HasFFmpeg() || !system.HasEncoder("libx264") {
		t.Skip("ffmpeg with libx264 not available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	enc := NewFFmpegEncoder("libx264", 28, false)
	if err := enc.Begin(ctx, 64, 32, 10); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	// the request that started playback is gone; the recording must still finish
	cancel()

	for i := 0; i < 5; i++ {
		if err := enc.WriteFrame(solidFrame(64, 32, color.RGBA{0, uint8(i * 50), 0, 255})); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	blob, err := enc.End()
	if err != nil {
		t.Fatalf("End failed after cancel: %v", err)
	}
	if blob.MIMEType != "video/mp4" || blob.Frames != 5 || len(blob.Data) == 0 {
		t.Errorf("Unexpected blob: %s, %d frames, %d bytes", blob.MIMEType, blob.Frames, len(blob.Data))
	}
	t.Logf("MP4: %d bytes", len(blob.Data))
}
