package preview

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ivlev/prompt2path/internal/analyzer"
	"github.com/ivlev/prompt2path/internal/system"
)

var (
	backgroundColor = color.RGBA{24, 26, 32, 255}
	edgeColor       = color.RGBA{120, 200, 255, 255}
	pointColor      = color.RGBA{255, 190, 60, 255}
)

// boxEdges indexes Box3.Corners (x outer, y middle, z inner loop).
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // along z
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // along y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // along x
}

// Viewport renders wireframe frames of the analyzed scene through a Camera.
// The returned frame is reused by the next CaptureFrame call.
type Viewport struct {
	Camera   *Camera
	Controls *OrbitControls
	Width    int
	Height   int

	scene *analyzer.SceneAnalysis
	frame *image.RGBA
}

func NewViewport(camera *Camera, width, height int) *Viewport {
	return &Viewport{
		Camera:   camera,
		Controls: NewOrbitControls(camera),
		Width:    width,
		Height:   height,
	}
}

// SetScene selects what gets drawn. A nil scene renders only the background.
func (v *Viewport) SetScene(scene *analyzer.SceneAnalysis) {
	v.scene = scene
}

func (v *Viewport) CaptureFrame() (image.Image, error) {
	if v.frame == nil {
		v.frame = system.GetImage(image.Rect(0, 0, v.Width, v.Height))
	}
	img := v.frame
	draw.Draw(img, img.Rect, &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)

	if v.scene == nil {
		return img, nil
	}

	vp := v.Camera.ViewProjection(float64(v.Width) / float64(v.Height))

	corners := v.scene.BoundingBox.Corners()
	for _, e := range boxEdges {
		a, okA := v.project(vp, corners[e[0]])
		b, okB := v.project(vp, corners[e[1]])
		if okA && okB {
			drawLine(img, a, b, edgeColor)
		}
	}
	for _, p := range v.scene.FeaturePoints {
		if pt, ok := v.project(vp, p); ok {
			drawDot(img, pt, pointColor)
		}
	}
	return img, nil
}

// Close returns the frame buffer to the pool.
func (v *Viewport) Close() {
	if v.frame != nil {
		system.PutImage(v.frame)
		v.frame = nil
	}
}

// project maps a world point to pixel coordinates. Points behind the camera are dropped.
func (v *Viewport) project(vp mgl64.Mat4, p mgl64.Vec3) (image.Point, bool) {
	clip := vp.Mul4x1(p.Vec4(1))
	if clip[3] <= nearPlane {
		return image.Point{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	x := (ndc[0] + 1) / 2 * float64(v.Width)
	y := (1 - ndc[1]) / 2 * float64(v.Height)
	return image.Point{X: int(x), Y: int(y)}, true
}

// drawLine rasterizes a segment with Bresenham, clipping per pixel.
func drawLine(img *image.RGBA, a, b image.Point, c color.RGBA) {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	// skip segments that are absurdly long after projection
	if dx > 8*img.Rect.Dx() || -dy > 8*img.Rect.Dy() {
		return
	}

	err := dx + dy
	x, y := a.X, a.Y
	for {
		if (image.Point{X: x, Y: y}).In(img.Rect) {
			img.SetRGBA(x, y, c)
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func drawDot(img *image.RGBA, p image.Point, c color.RGBA) {
	for y := p.Y - 1; y <= p.Y+1; y++ {
		for x := p.X - 1; x <= p.X+1; x++ {
			if (image.Point{X: x, Y: y}).In(img.Rect) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
