package rebuild

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCancelToken(t *testing.T) {
	c := NewCancelToken()
	assert.False(t, c.Cancelled())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Cancel()
		}()
	}
	wg.Wait()

	assert.True(t, c.Cancelled())
	select {
	case <-c.Done():
	default:
		t.Fatal("Done channel not closed")
	}
}

func TestAsync_DeliversFinish(t *testing.T) {
	release := make(chan struct{})
	got := make(chan Event, 16)
	slow := ObserverFunc(func(e Event) {
		<-release
		got <- e
	})

	o := Async(slow, 1)
	o.Notify(RunStarted{RunID: "r", Total: 50})
	for i := 1; i <= 50; i++ {
		o.Notify(TokenDone{RunID: "r", Done: i, Total: 50})
	}
	close(release)
	o.Notify(RunFinished{Summary: &Summary{RunID: "r"}})

	var events []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-got:
			events = append(events, e)
			if _, ok := e.(RunFinished); ok {
				assert.IsType(t, RunStarted{}, events[0])
				assert.Less(t, len(events), 52, "token events are dropped while the buffer is full")
				return
			}
		case <-timeout:
			t.Fatal("RunFinished was not delivered")
		}
	}
}

func TestAsync_ShutsDownAfterFinish(t *testing.T) {
	var count atomic.Int32
	o := Async(ObserverFunc(func(Event) { count.Add(1) }), 4)
	o.Notify(RunStarted{RunID: "r", Total: 1})
	o.Notify(RunFinished{Summary: &Summary{RunID: "r"}})

	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("delivery goroutine still running after RunFinished")
	}
	assert.Equal(t, int32(2), count.Load())

	o.Notify(TokenDone{RunID: "r", Done: 1, Total: 1})
	o.Close()
	assert.Equal(t, int32(2), count.Load())
}

func TestAsync_CloseWithoutRun(t *testing.T) {
	o := Async(ObserverFunc(func(Event) {}), 1)
	o.Close()
	o.Close()

	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("delivery goroutine still running after Close")
	}
}

func TestLogObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := LogObserver(zap.New(core))

	o.Notify(RunStarted{RunID: "r1", Total: 4})
	o.Notify(TokenDone{Done: 1, Total: 4, Result: Result{TokenID: "1", Status: StatusSuccess, Output: "out/1.png"}})
	o.Notify(TokenDone{Done: 2, Total: 4, Result: Result{TokenID: "2", Status: StatusPartial, Unresolved: []Miss{{Category: "Hat", Value: "Crown"}}}})
	o.Notify(TokenDone{Done: 3, Total: 4, Result: Result{TokenID: "3", Status: StatusFailed, Reason: "boom"}})
	o.Notify(TokenDone{Done: 4, Total: 4, Result: Result{TokenID: "4", Status: StatusSkipped}})
	o.Notify(RunFinished{Summary: &Summary{RunID: "r1", Cancelled: true}})

	entries := logs.All()
	require.Len(t, entries, 6)
	assert.Equal(t, "Rebuild started", entries[0].Message)
	assert.Equal(t, "[OK] Token rebuilt", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, []any{"Hat/Crown"}, entries[2].ContextMap()["unresolved"])
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["reason"])
	assert.Equal(t, zapcore.DebugLevel, entries[4].Level)
	assert.Equal(t, "Rebuild cancelled", entries[5].Message)
}

func TestRequest_Merge(t *testing.T) {
	base := Config{
		MetadataDir:     "meta",
		LayersDir:       "layers",
		OutputDir:       "out",
		Width:           1000,
		Height:          1000,
		Fit:             "stretch",
		Format:          "png",
		PrefixSeparator: "__",
		SkipValues:      []string{"none"},
		SummaryFile:     "_summary.json",
	}.Request()

	got := Request{OutputDir: "elsewhere", Width: 512, Height: 512, SkipExisting: true}.Merge(base)
	assert.Equal(t, "meta", got.MetadataDir)
	assert.Equal(t, "elsewhere", got.OutputDir)
	assert.Equal(t, 512, got.Width)
	assert.Equal(t, "stretch", got.Fit)
	assert.Equal(t, []string{"none"}, got.SkipValues)
	assert.True(t, got.SkipExisting)
	assert.Equal(t, "elsewhere/_summary.json", got.SummaryPath())

	got = Request{SkipValues: []string{}}.Merge(base)
	assert.Empty(t, got.SkipValues)
	assert.Equal(t, 1000, got.Height)

	assert.Equal(t, 3, Request{Workers: 3}.WorkerCount())
	assert.Positive(t, Request{}.WorkerCount())
	assert.Equal(t, "", Request{}.SummaryPath())
	assert.Equal(t, "/tmp/s.json", Request{OutputDir: "out", SummaryFile: "/tmp/s.json"}.SummaryPath())
}

func TestConfig_IndexTTL(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Config{IndexTTLSeconds: 300}.IndexTTL())
}
