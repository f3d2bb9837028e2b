package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ivlev/prompt2path/pkg/logger"
)

// ModelExtensions are the model file types FindLatestModel picks up.
var ModelExtensions = []string{".gltf", ".glb"}

func InitResourceLimits(ctx context.Context) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn(ctx, "failed to read open file limit", "error", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Warn(ctx, "failed to raise open file limit", "error", err)
	} else {
		logger.Debug(ctx, "open file limit raised", "limit", rLimit.Cur)
	}
}

// FindLatestModel returns the most recently modified model file in dir.
// When path is a file it is returned as is.
func FindLatestModel(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return path, nil
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), ModelExtensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(path, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no glTF models found in %s", path)
	}

	return latestFile, nil
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

var (
	encoderOnce sync.Once
	encoderList string
	encoderErr  error
)

// listEncoders runs "ffmpeg -encoders" once per process.
func listEncoders() (string, error) {
	encoderOnce.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		encoderList, encoderErr = string(out), err
	})
	return encoderList, encoderErr
}

// HasFFmpeg reports whether an ffmpeg binary is on PATH.
func HasFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// HasEncoder reports whether the local ffmpeg build lists the named encoder.
func HasEncoder(name string) bool {
	out, err := listEncoders()
	if err != nil {
		return false
	}
	return strings.Contains(out, " "+name+" ")
}

// GetBestH264Encoder picks a hardware H.264 encoder when ffmpeg offers one.
func GetBestH264Encoder() string {
	// VideoToolbox (macOS), then NVENC, then software
	candidates := []string{"h264_videotoolbox", "h264_nvenc"}

	for _, name := range candidates {
		if HasEncoder(name) {
			return name
		}
	}

	return "libx264"
}
