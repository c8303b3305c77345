package rebuild

import "sync"

// Event is a progress notification from a Driver.
type Event interface {
	event()
}

// RunStarted is emitted once, after preflight, before the first token.
type RunStarted struct {
	RunID string `json:"run_id"`
	Total int    `json:"total"`
}

// TokenDone is emitted after each processed token. Done counts processed
// tokens so far, including this one.
type TokenDone struct {
	RunID  string `json:"run_id"`
	Done   int    `json:"done"`
	Total  int    `json:"total"`
	Result Result `json:"result"`
}

// RunFinished is emitted once at the end of every started run, including
// cancelled and aborted ones.
type RunFinished struct {
	Summary *Summary `json:"summary"`
}

func (RunStarted) event()  {}
func (TokenDone) event()   {}
func (RunFinished) event() {}

// Observer receives Driver events. Notify is called synchronously from the
// Driver's collector goroutine, so implementations must return quickly.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) {
	f(e)
}

// Async wraps a slow observer. Events are queued in a buffer of the given
// size and delivered from a separate goroutine; when the buffer is full,
// TokenDone events are dropped. RunStarted and RunFinished are never dropped.
// The wrapper serves one run: it shuts down after delivering RunFinished, or
// on Close for a run that never started.
func Async(o Observer, buffer int) *AsyncObserver {
	if buffer < 1 {
		buffer = 1
	}
	a := &AsyncObserver{
		target: o,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go a.loop()
	return a
}

// AsyncObserver is the Observer returned by Async.
type AsyncObserver struct {
	target Observer
	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func (a *AsyncObserver) Notify(e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	switch e.(type) {
	case RunFinished:
		a.events <- e
		a.closeLocked()
	case RunStarted:
		a.events <- e
	default:
		select {
		case a.events <- e:
		default:
		}
	}
}

// Close stops delivery after the queued events. Later events are ignored.
func (a *AsyncObserver) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
}

func (a *AsyncObserver) closeLocked() {
	if !a.closed {
		a.closed = true
		close(a.events)
	}
}

// Done is closed once every queued event was delivered after shutdown.
func (a *AsyncObserver) Done() <-chan struct{} {
	return a.done
}

func (a *AsyncObserver) loop() {
	defer close(a.done)
	for e := range a.events {
		a.target.Notify(e)
	}
}
