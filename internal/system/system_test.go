package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindLatestModel(t *testing.T) {
	dir := t.TempDir()

	if _, err := FindLatestModel(dir); err == nil {
		t.Error("Expected error for a directory without models")
	}

	old := filepath.Join(dir, "old.gltf")
	newer := filepath.Join(dir, "new.GLB")
	ignored := filepath.Join(dir, "notes.txt")
	for _, f := range []string{old, newer, ignored} {
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)
	future := time.Now().Add(time.Hour)
	os.Chtimes(ignored, future, future)

	got, err := FindLatestModel(dir)
	if err != nil {
		t.Fatalf("FindLatestModel failed: %v", err)
	}
	if got != newer {
		t.Errorf("Expected %s, got %s", newer, got)
	}

	got, err = FindLatestModel(old)
	if err != nil || got != old {
		t.Errorf("Expected explicit file to be returned, got %s (%v)", got, err)
	}
}

func TestImagePool(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 8, 4)

	img := pool.Get(rect)
	if img.Bounds() != rect {
		t.Fatalf("Expected bounds %v, got %v", rect, img.Bounds())
	}
	pool.Put(img)
	pool.Put(nil)

	other := pool.Get(image.Rect(0, 0, 2, 2))
	if other.Bounds().Dx() != 2 {
		t.Errorf("Expected a 2px wide buffer, got %v", other.Bounds())
	}

	shifted := pool.Get(image.Rect(10, 10, 18, 14))
	if shifted.Bounds() != image.Rect(10, 10, 18, 14) {
		t.Errorf("Expected shifted bounds, got %v", shifted.Bounds())
	}
	if n := pool.Allocated(); n < 2 || n > 3 {
		t.Errorf("Expected 2 or 3 allocations, got %d", n)
	}
	t.Logf("allocated %d buffers", pool.Allocated())
}
