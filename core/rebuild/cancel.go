package rebuild

import "sync"

// CancelToken is a one-shot stop request shared between a controller and a
// running Driver. Cancel may be called any number of times from any goroutine.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancelToken returns an untriggered token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel requests a stop. The driver finishes the tokens in flight and
// starts no new ones.
func (c *CancelToken) Cancel() {
	c.once.Do(func() { close(c.done) })
}

// Cancelled reports whether Cancel has been called.
func (c *CancelToken) Cancelled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed once Cancel has been called.
func (c *CancelToken) Done() <-chan struct{} {
	return c.done
}
