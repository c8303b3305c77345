package monitor

import (
	core "regen/core/rebuild"

	tea "github.com/charmbracelet/bubbletea"
)

// RunFunc runs a rebuild, reporting to obs and stopping when cancel fires.
type RunFunc func(obs core.Observer, cancel *core.CancelToken) (*core.Summary, error)

// Run shows the monitor while run executes and returns run's outcome.
// Events reach the screen asynchronously so rendering never stalls workers.
// Closing the monitor early cancels the run and waits for it to finish.
func Run(run RunFunc, opts ...tea.ProgramOption) (*core.Summary, error) {
	cancel := core.NewCancelToken()
	p := tea.NewProgram(NewModel(cancel), opts...)

	type outcome struct {
		summary *core.Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		obs := core.Async(NewBridge(p), 256)
		summary, err := run(obs, cancel)
		obs.Close()
		if summary == nil && err != nil {
			p.Send(MsgError{Err: err})
		}
		done <- outcome{summary, err}
	}()

	if _, err := p.Run(); err != nil {
		cancel.Cancel()
		<-done
		return nil, err
	}

	// The program may exit on a key press before the run ends.
	cancel.Cancel()
	out := <-done
	return out.summary, out.err
}
