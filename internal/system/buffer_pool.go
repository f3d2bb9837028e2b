package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool hands out RGBA frame buffers keyed by frame size. Recording and
// preview run at one resolution, so steady state allocates nothing per tick.
type ImagePool struct {
	mu    sync.Mutex
	sizes map[image.Point]*sync.Pool

	allocated atomic.Int64
}

var frames = NewImagePool()

func NewImagePool() *ImagePool {
	return &ImagePool{sizes: make(map[image.Point]*sync.Pool)}
}

// GetImage borrows a frame from the shared pool. Its pixels are undefined.
func GetImage(rect image.Rectangle) *image.RGBA {
	return frames.Get(rect)
}

func PutImage(img *image.RGBA) {
	frames.Put(img)
}

func (p *ImagePool) sizePool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.sizes[size]
	if !ok {
		sp = &sync.Pool{New: func() any {
			p.allocated.Add(1)
			return image.NewRGBA(image.Rectangle{Max: size})
		}}
		p.sizes[size] = sp
	}
	return sp
}

// Get returns a buffer with exactly the bounds of rect.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	img := p.sizePool(rect.Size()).Get().(*image.RGBA)
	if img.Rect.Min != rect.Min {
		// same storage, shifted origin
		img.Rect = rect
	}
	return img
}

// Put returns img for reuse. Buffers whose size was never requested are dropped.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Empty() {
		return
	}
	size := img.Rect.Size()
	p.mu.Lock()
	sp, ok := p.sizes[size]
	p.mu.Unlock()
	if ok {
		sp.Put(img)
	}
}

// Allocated counts buffers created because the pool was empty.
func (p *ImagePool) Allocated() int64 {
	return p.allocated.Load()
}
