package rebuild

import (
	"path/filepath"
	"testing"

	"regen/core/layers"
	core "regen/core/rebuild"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_StartAndFinish(t *testing.T) {
	f := newFixture(t)
	f.token("1.json", "Background", "Blue", "Hat", "Red Cap")
	f.token("2.json", "Background", "Blue", "Hat", "Crown")

	svc := NewService(f.request(), zap.NewNop(), nil, nil, nil)
	runID, err := svc.Start(core.Request{})
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	snap := waitRun(t, svc)
	assert.Equal(t, runID, snap.RunID)
	assert.Equal(t, StateFinished, snap.State)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 2, snap.Done)
	assert.Equal(t, 1, snap.Success)
	assert.Equal(t, 1, snap.Partial)
	assert.InDelta(t, 100.0, snap.Percent, 0.001)
	require.NotNil(t, snap.Summary)
	assert.Equal(t, 2, snap.Summary.Processed)
	assert.False(t, svc.Running())

	assert.FileExists(t, filepath.Join(f.out, "1.png"))
	assert.FileExists(t, filepath.Join(f.out, "2.png"))
	assert.FileExists(t, filepath.Join(f.out, "_summary.json"))
}

func TestService_StartRejectsBrokenEnvironment(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.request(), zap.NewNop(), nil, nil, nil)

	_, err := svc.Start(core.Request{MetadataDir: filepath.Join(f.meta, "missing")})
	assert.ErrorIs(t, err, core.ErrMissingInput)
	assert.False(t, svc.Running())
	assert.Equal(t, StateIdle, svc.Status().State)
}

func TestService_AlreadyRunning(t *testing.T) {
	f := newFixture(t)
	f.token("1.json", "Background", "Blue")

	svc := NewService(f.request(), zap.NewNop(), nil, nil, nil)
	// Hold the run open by marking the service busy.
	svc.mu.Lock()
	svc.running = true
	svc.mu.Unlock()

	_, err := svc.Start(core.Request{})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestService_StopWithoutRun(t *testing.T) {
	svc := NewService(core.Request{}, zap.NewNop(), nil, nil, nil)
	assert.ErrorIs(t, svc.Stop(), ErrNotRunning)
}

func TestService_Stop(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"1.json", "2.json", "3.json", "4.json"} {
		f.token(name, "Background", "Blue")
	}

	svc := NewService(f.request(), zap.NewNop(), nil, nil, nil)
	var stopped bool
	svc.driver = core.NewDriver(zap.NewNop(),
		core.WithObserver(svc),
		core.WithObserver(core.ObserverFunc(func(e core.Event) {
			if _, ok := e.(core.TokenDone); ok && !stopped {
				stopped = true
				assert.NoError(t, svc.Stop())
			}
		})),
	)

	_, err := svc.Start(core.Request{})
	require.NoError(t, err)
	snap := waitRun(t, svc)

	assert.Equal(t, StateCancelled, snap.State)
	assert.Equal(t, 1, snap.Done)
	require.NotNil(t, snap.Summary)
	assert.True(t, snap.Summary.Cancelled)
}

func TestService_IgnoresForeignEvents(t *testing.T) {
	svc := NewService(core.Request{}, zap.NewNop(), nil, nil, nil)
	svc.snapshot = Snapshot{RunID: "run-1", State: StateRunning, Total: 3}

	svc.Notify(core.TokenDone{RunID: "single", Done: 1, Total: 1, Result: core.Result{Status: core.StatusSuccess}})
	assert.Equal(t, 0, svc.Status().Done)

	svc.Notify(core.TokenDone{RunID: "run-1", Done: 1, Total: 3, Result: core.Result{TokenID: "7", Status: core.StatusFailed}})
	snap := svc.Status()
	assert.Equal(t, 1, snap.Done)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, "7", snap.Current)
	assert.InDelta(t, 33.33, snap.Percent, 0.01)
}

func TestService_Resolve(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.request(), zap.NewNop(), layers.NewCache(0), nil, nil)

	res, err := svc.Resolve("hat", "red cap")
	require.NoError(t, err)
	assert.Equal(t, "Red_Cap.png", filepath.Base(res.Candidate.Path))

	_, err = svc.Resolve("Hat", "Crown")
	assert.ErrorIs(t, err, layers.ErrTraitUnresolved)
}

func TestService_HistoryDisabled(t *testing.T) {
	svc := NewService(core.Request{}, zap.NewNop(), nil, nil, nil)

	_, err := svc.Runs(10)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = svc.Run("x")
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestService_RecordsHistory(t *testing.T) {
	f := newFixture(t)
	f.token("1.json", "Background", "Blue")
	history := newHistory(t)

	svc := NewService(f.request(), zap.NewNop(), nil, history, nil)
	runID, err := svc.Start(core.Request{})
	require.NoError(t, err)
	waitRun(t, svc)

	run, err := svc.Run(runID)
	require.NoError(t, err)
	assert.Equal(t, string(StateFinished), run.Status)
	require.Len(t, run.Tokens, 1)
	assert.Equal(t, "1", run.Tokens[0].TokenID)
}

func TestService_WaitWithoutRun(t *testing.T) {
	svc := NewService(core.Request{}, nil, nil, nil, nil)
	snap := waitRun(t, svc)
	assert.Equal(t, StateIdle, snap.State)
}
