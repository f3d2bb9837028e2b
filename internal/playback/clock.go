package playback

import (
	"context"
	"sync"
	"time"

	"github.com/ivlev/prompt2path/internal/renderer"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
)

// ManualClock is a clock that only moves when told to. Headless runs drive the
// controller with it so every frame lands exactly 1/fps apart.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

// RunFixed plays one pass to completion at fps ticks per second of clock time and
// returns the number of ticks. c must have been built with clock.Now.
func RunFixed(ctx context.Context, c *Controller, clock *ManualClock, fps int) (int, error) {
	if fps <= 0 {
		fps = 30
	}
	if err := c.Play(ctx); err != nil {
		return 0, err
	}

	step := time.Second / time.Duration(fps)
	total := renderer.TotalDuration(c.Commands())
	limit := int(total/c.State().Speed*float64(fps)) + 2*fps

	ticks := 0
	for c.State().Status == StatusPlaying {
		if err := ctx.Err(); err != nil {
			return ticks, err
		}
		if ticks > limit {
			return ticks, apperrors.AnimationError(nil, "playback did not finish after %d ticks", ticks)
		}
		if err := c.Tick(ctx, clock.Advance(step)); err != nil {
			return ticks, err
		}
		ticks++
	}
	return ticks, nil
}
