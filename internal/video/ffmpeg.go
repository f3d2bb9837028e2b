package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ivlev/prompt2path/internal/system"
)

// FFmpegEncoder pipes raw RGBA frames into ffmpeg over stdin and returns the MP4 bytes.
type FFmpegEncoder struct {
	EncoderName string
	Quality     int
	Poster      bool

	width, height, fps int
	frames             int
	tmpDir             string
	outPath            string
	cmd                *exec.Cmd
	stdin              io.WriteCloser
	log                bytes.Buffer
	poster             []byte
}

func NewFFmpegEncoder(encoderName string, quality int, poster bool) *FFmpegEncoder {
	if encoderName == "" {
		encoderName = "libx264"
	}
	return &FFmpegEncoder{EncoderName: encoderName, Quality: quality, Poster: poster}
}

func (e *FFmpegEncoder) Begin(ctx context.Context, width, height, fps int) error {
	if e.cmd != nil {
		return fmt.Errorf("recording already in progress")
	}
	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("invalid recording size %dx%d@%d", width, height, fps)
	}
	// yuv420p needs even dimensions
	e.width, e.height, e.fps = width&^1, height&^1, fps
	e.frames = 0
	e.poster = nil
	e.log.Reset()

	dir, err := os.MkdirTemp("", "prompt2path_")
	if err != nil {
		return err
	}
	e.tmpDir = dir
	e.outPath = filepath.Join(dir, "recording.mp4")

	args := buildFFmpegArgs(e.width, e.height, e.fps, e.outPath, e.EncoderName, e.Quality)
	// the process outlives the caller's context; End closes stdin and waits for it
	e.cmd = exec.CommandContext(context.WithoutCancel(ctx), "ffmpeg", args...)
	e.cmd.Stdout = &e.log
	e.cmd.Stderr = &e.log

	e.stdin, err = e.cmd.StdinPipe()
	if err != nil {
		e.cleanup()
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := e.cmd.Start(); err != nil {
		e.cleanup()
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	return nil
}

func (e *FFmpegEncoder) WriteFrame(img image.Image) error {
	if e.cmd == nil {
		return fmt.Errorf("recording not started")
	}
	frame := fitFrame(img, e.width, e.height)
	defer system.PutImage(frame)

	if e.Poster && e.frames == 0 {
		if poster, err := encodePoster(frame); err == nil {
			e.poster = poster
		}
	}
	if err := writeRawRGBA(e.stdin, frame); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	e.frames++
	return nil
}

func (e *FFmpegEncoder) End() (*Blob, error) {
	if e.cmd == nil {
		return nil, fmt.Errorf("recording not started")
	}
	defer e.cleanup()

	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg wait error: %w, output: %s", err, e.log.String())
	}
	if e.frames == 0 {
		return nil, fmt.Errorf("no frames recorded")
	}

	data, err := os.ReadFile(e.outPath)
	if err != nil {
		return nil, err
	}
	return &Blob{
		MIMEType: "video/mp4",
		Data:     data,
		Frames:   e.frames,
		FPS:      e.fps,
		Poster:   e.poster,
	}, nil
}

func (e *FFmpegEncoder) cleanup() {
	if e.tmpDir != "" {
		os.RemoveAll(e.tmpDir)
	}
	e.cmd, e.stdin, e.tmpDir = nil, nil, ""
}

func buildFFmpegArgs(width, height, fps int, outPath, encoderName string, quality int) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName,
	}

	switch encoderName {
	case "h264_videotoolbox":
		// VideoToolbox has no constant quality mode on every version, use bitrate
		args = append(args, "-b:v", fmt.Sprintf("%dk", quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", quality))
	default:
		args = append(args, "-crf", fmt.Sprintf("%d", quality), "-preset", "medium")
	}

	args = append(args, "-movflags", "+faststart", outPath)
	return args
}
