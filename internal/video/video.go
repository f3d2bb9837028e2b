// Package video turns captured preview frames into a single downloadable blob.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/system"
	xdraw "golang.org/x/image/draw"
)

// Blob is one finished recording.
type Blob struct {
	MIMEType string
	Data     []byte
	Frames   int
	FPS      int
	Poster   []byte // WebP of the first frame, optional
}

// Duration is the playback length of the recording in seconds.
func (b *Blob) Duration() float64 {
	if b == nil || b.FPS <= 0 {
		return 0
	}
	return float64(b.Frames) / float64(b.FPS)
}

// Encoder receives frames between Begin and End. End may be called before the
// intended number of frames was written; the blob then covers what was written.
type Encoder interface {
	Begin(ctx context.Context, width, height, fps int) error
	WriteFrame(img image.Image) error
	End() (*Blob, error)
}

// NewEncoder picks a sink for the recording config. mp4 falls back to GIF when no
// ffmpeg binary is available.
func NewEncoder(cfg config.RecordingConfig) Encoder {
	if cfg.Format == "gif" || !system.HasFFmpeg() {
		return NewGIFEncoder(cfg.Poster)
	}
	enc := cfg.VideoEncoder
	if enc == "" || enc == "auto" {
		enc = system.GetBestH264Encoder()
	}
	return NewFFmpegEncoder(enc, cfg.Quality, cfg.Poster)
}

// fitFrame copies img into a pooled w×h RGBA buffer, scaling when sizes differ.
// The caller returns the buffer with system.PutImage.
func fitFrame(img image.Image, w, h int) *image.RGBA {
	dst := system.GetImage(image.Rect(0, 0, w, h))
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
		return dst
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, img, b, xdraw.Src, nil)
	return dst
}

func writeRawRGBA(w io.Writer, rgba *image.RGBA) error {
	_, err := w.Write(rgba.Pix)
	return err
}

func encodePoster(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode poster: %w", err)
	}
	return buf.Bytes(), nil
}
