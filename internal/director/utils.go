package director

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// GeneratePathFile creates a timestamped path filename inside dir
func GeneratePathFile(dir, modelID string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	if modelID == "" {
		modelID = "model"
	}
	return filepath.Join(dir, fmt.Sprintf("path_%s_%s.yaml", modelID, timestamp))
}

// FindLatestPath finds the most recent path file in dir
func FindLatestPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read paths directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yaml") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	if len(paths) == 0 {
		return "", fmt.Errorf("no path files found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(paths, func(i, j int) bool {
		infoI, _ := os.Stat(paths[i])
		infoJ, _ := os.Stat(paths[j])
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return paths[0], nil
}
