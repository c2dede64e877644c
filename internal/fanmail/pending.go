package fanmail

import "context"

// Pending is the eventual outcome of one store write.
type Pending struct {
	done chan struct{}
	err  error
}

// Go runs fn in its own goroutine and returns the future for its result.
func Go(fn func() error) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.err = fn()
	}()
	return p
}

// Done is closed once the write has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the write finishes or ctx ends, whichever is first.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
