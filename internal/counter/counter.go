// Package counter models the count-up animation shown on hero and stats figures.
// The browser script in public/assets/counter.js runs the same frame function.
package counter

import (
	"context"
	"math"
	"sync"
	"time"

	"finitefield.org/fansite/internal/format"
)

const (
	// Duration is the length of one animation.
	Duration = 2 * time.Second
	// Threshold is the visible fraction that starts the animation.
	Threshold = 0.1
	// FrameInterval approximates one display refresh.
	FrameInterval = 16 * time.Millisecond
)

// Frame returns the value shown after elapsed of an animation from 0 to target.
func Frame(target int, elapsed, duration time.Duration) int {
	if duration <= 0 || elapsed >= duration {
		return target
	}
	if elapsed <= 0 {
		return 0
	}
	progress := float64(elapsed) / float64(duration)
	return int(math.Floor(progress * float64(target)))
}

// Display formats value for lang. Approximate figures gain a trailing "+" once the
// animation has reached target.
func Display(value, target int, approximate bool, lang string) string {
	s := format.Number(value, lang)
	if approximate && value == target {
		s += "+"
	}
	return s
}

// Clock supplies the current time and frame ticks.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) (<-chan time.Time, func())
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Run animates from 0 to target, calling onFrame for every tick, and returns once
// target has been emitted or ctx is done. A zero target emits nothing.
func Run(ctx context.Context, target int, duration time.Duration, clock Clock, onFrame func(int)) error {
	if target == 0 {
		return nil
	}
	if clock == nil {
		clock = SystemClock
	}
	start := clock.Now()
	tick, stop := clock.NewTicker(FrameInterval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-tick:
			elapsed := now.Sub(start)
			onFrame(Frame(target, elapsed, duration))
			if elapsed >= duration {
				return nil
			}
		}
	}
}

// Trigger is a one-shot visibility subscription. It fires its callback the first time
// an observation meets Threshold and detaches itself afterwards.
type Trigger struct {
	mu       sync.Mutex
	fn       func()
	attached bool
}

// NewTrigger subscribes fn.
func NewTrigger(fn func()) *Trigger {
	return &Trigger{fn: fn, attached: true}
}

// Observe reports a visible ratio. It returns true when this observation fired.
func (t *Trigger) Observe(ratio float64) bool {
	t.mu.Lock()
	if !t.attached || ratio < Threshold {
		t.mu.Unlock()
		return false
	}
	t.attached = false
	fn := t.fn
	t.fn = nil
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// Unsubscribe detaches the trigger without firing. Safe to call more than once.
func (t *Trigger) Unsubscribe() {
	t.mu.Lock()
	t.attached = false
	t.fn = nil
	t.mu.Unlock()
}

// Attached reports whether the trigger is still waiting.
func (t *Trigger) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attached
}
