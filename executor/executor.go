// Package executor provides a single-goroutine, FIFO task-queue
// abstraction: a small executor per context so state mutation ordering is
// a structural guarantee instead of an ad hoc mutex discipline.
package executor

import (
	"sync"
	"time"
)

// Context is a single-threaded cooperative execution context. Tasks posted
// to it run FIFO, in the order Post was called, on one dedicated goroutine.
type Context struct {
	name  string
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

// New starts a Context with the given name (used only for diagnostics) and
// a bounded task queue of the given capacity.
func New(name string, queueLen int) *Context {
	c := &Context{
		name:  name,
		tasks: make(chan func(), queueLen),
		done:  make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *Context) run() {
	defer c.wg.Done()
	for {
		select {
		case fn := <-c.tasks:
			fn()
		case <-c.done:
			// Drain any remaining tasks so callers blocked on a reply
			// channel inside them are not leaked.
			for {
				select {
				case fn := <-c.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Post enqueues fn to run on this context. It never blocks the caller
// beyond the queue being full; it is a programming error to call Post after
// Close from a context other than this one.
func (c *Context) Post(fn func()) {
	select {
	case c.tasks <- fn:
	case <-c.done:
	}
}

// PostSync enqueues fn and blocks the caller until it has run.
func (c *Context) PostSync(fn func()) {
	done := make(chan struct{})
	c.Post(func() {
		fn()
		close(done)
	})
	<-done
}

// Close stops accepting new tasks and waits, up to grace, for the queue to
// drain before force-returning.
func (c *Context) Close(grace time.Duration) {
	close(c.done)
	waited := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(grace):
	}
}

// Name reports the context's diagnostic name.
func (c *Context) Name() string { return c.name }
