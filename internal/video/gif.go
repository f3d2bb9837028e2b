package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"

	"github.com/ivlev/prompt2path/internal/system"
)

// GIFEncoder keeps quantized frames in memory and writes an animated GIF on End.
type GIFEncoder struct {
	Poster bool

	width, height, fps int
	started            bool
	anim               gif.GIF
	poster             []byte
}

func NewGIFEncoder(poster bool) *GIFEncoder {
	return &GIFEncoder{Poster: poster}
}

func (e *GIFEncoder) Begin(ctx context.Context, width, height, fps int) error {
	if e.started {
		return fmt.Errorf("recording already in progress")
	}
	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("invalid recording size %dx%d@%d", width, height, fps)
	}
	e.width, e.height, e.fps = width, height, fps
	e.anim = gif.GIF{}
	e.poster = nil
	e.started = true
	return nil
}

func (e *GIFEncoder) WriteFrame(img image.Image) error {
	if !e.started {
		return fmt.Errorf("recording not started")
	}
	frame := fitFrame(img, e.width, e.height)
	defer system.PutImage(frame)

	if e.Poster && len(e.anim.Image) == 0 {
		if poster, err := encodePoster(frame); err == nil {
			e.poster = poster
		}
	}

	pal := image.NewPaletted(frame.Rect, palette.Plan9)
	draw.FloydSteinberg.Draw(pal, pal.Rect, frame, image.Point{})
	e.anim.Image = append(e.anim.Image, pal)
	e.anim.Delay = append(e.anim.Delay, gifDelay(e.fps))
	return nil
}

func (e *GIFEncoder) End() (*Blob, error) {
	if !e.started {
		return nil, fmt.Errorf("recording not started")
	}
	e.started = false
	if len(e.anim.Image) == 0 {
		return nil, fmt.Errorf("no frames recorded")
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &e.anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return &Blob{
		MIMEType: "image/gif",
		Data:     buf.Bytes(),
		Frames:   len(e.anim.Image),
		FPS:      e.fps,
		Poster:   e.poster,
	}, nil
}

// gifDelay converts fps to the GIF frame delay in 100ths of a second.
func gifDelay(fps int) int {
	d := (100 + fps/2) / fps
	if d < 2 {
		d = 2
	}
	return d
}
