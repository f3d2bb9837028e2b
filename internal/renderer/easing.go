package renderer

import (
	"math"
	"strings"
	"sync"
)

// EasingFunc remaps local segment progress t in [0,1].
type EasingFunc func(t float64) float64

const EasingLinear = "linear"

var (
	easingMu sync.RWMutex
	easings  = map[string]EasingFunc{}
	// normalized key -> canonical name
	easingNames = map[string]string{}
)

func init() {
	RegisterEasing("linear", linear)
	RegisterEasing("easeInQuad", func(t float64) float64 { return t * t })
	RegisterEasing("easeOutQuad", func(t float64) float64 { return 1 - (1-t)*(1-t) })
	RegisterEasing("easeInOutQuad", easeInOutQuad)
	RegisterEasing("easeInCubic", func(t float64) float64 { return t * t * t })
	RegisterEasing("easeOutCubic", func(t float64) float64 { return 1 - pow(1-t, 3) })
	RegisterEasing("easeInOutCubic", easeInOutCubic)
	RegisterEasing("easeInOutSine", func(t float64) float64 { return -(math.Cos(math.Pi*t) - 1) / 2 })
	RegisterEasing("easeOutBack", easeOutBack)

	// common aliases
	aliasEasing("ease", "easeInOutCubic")
	aliasEasing("easeIn", "easeInQuad")
	aliasEasing("easeOut", "easeOutQuad")
	aliasEasing("easeInOut", "easeInOutQuad")
	aliasEasing("smooth", "easeInOutCubic")
}

// RegisterEasing adds or replaces an easing function.
// Lookup ignores case, '-', '_' and spaces, so "ease-in-out-cubic" finds "easeInOutCubic".
func RegisterEasing(name string, fn EasingFunc) {
	easingMu.Lock()
	defer easingMu.Unlock()
	easings[name] = fn
	easingNames[normalizeEasing(name)] = name
}

func aliasEasing(alias, name string) {
	easingMu.Lock()
	defer easingMu.Unlock()
	easingNames[normalizeEasing(alias)] = name
}

// ResolveEasing returns the canonical name and function for name.
// Empty or unknown names resolve to linear.
func ResolveEasing(name string) (string, EasingFunc) {
	easingMu.RLock()
	defer easingMu.RUnlock()
	if canonical, ok := easingNames[normalizeEasing(name)]; ok {
		return canonical, easings[canonical]
	}
	return EasingLinear, linear
}

func normalizeEasing(name string) string {
	r := strings.NewReplacer("-", "", "_", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(name)))
}

func linear(t float64) float64 { return t }

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - pow(-2*t+2, 2)/2
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

// easeOutBack overshoots slightly before settling; clamping keeps the overshoot inside the envelope.
func easeOutBack(t float64) float64 {
	const c1 = 1.70158
	const c3 = c1 + 1
	return 1 + c3*pow(t-1, 3) + c1*pow(t-1, 2)
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
