package director

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGeneratePathFile(t *testing.T) {
	path := GeneratePathFile(filepath.Join("output", "paths"), "cube")

	if !strings.Contains(path, "path_cube_") {
		t.Errorf("Path should contain 'path_cube_': %s", path)
	}
	if !strings.HasPrefix(path, filepath.Join("output", "paths")) {
		t.Errorf("Path should be in output/paths: %s", path)
	}

	t.Logf("Generated path: %s", path)
}

func TestFindLatestPath(t *testing.T) {
	testDir := t.TempDir()

	// Create test files with different timestamps
	files := []string{
		filepath.Join(testDir, "path_cube_2026-02-12_10-00-00.yaml"),
		filepath.Join(testDir, "path_cube_2026-02-13_01-00-00.yaml"),
		filepath.Join(testDir, "path_cube_2026-02-11_15-30-00.yaml"),
	}

	for i, f := range files {
		if err := os.WriteFile(f, []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
		// Set different modification times
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}

	latest, err := FindLatestPath(testDir)
	if err != nil {
		t.Fatalf("FindLatestPath failed: %v", err)
	}

	t.Logf("Latest path: %s", latest)

	// Should be the last file (most recent mod time)
	if latest != files[len(files)-1] {
		t.Errorf("Expected latest to be %s, got %s", files[len(files)-1], latest)
	}
}

func TestFindLatestPathEmpty(t *testing.T) {
	if _, err := FindLatestPath(t.TempDir()); err == nil {
		t.Error("Expected error for empty directory")
	}
}
