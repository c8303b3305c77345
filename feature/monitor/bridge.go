package monitor

import (
	core "regen/core/rebuild"

	tea "github.com/charmbracelet/bubbletea"
)

// MsgRunStarted is sent when the driver begins a run.
type MsgRunStarted struct {
	RunID string
	Total int
}

// MsgTokenDone is sent after each processed token.
type MsgTokenDone struct {
	Done   int
	Total  int
	Result core.Result
}

// MsgRunFinished carries the final summary.
type MsgRunFinished struct {
	Summary *core.Summary
}

// MsgError reports a run that could not start.
type MsgError struct {
	Err error
}

// Bridge implements core.Observer by forwarding each event as a typed
// message to a BubbleTea program. tea.Program.Send is goroutine-safe.
type Bridge struct {
	program *tea.Program
}

var _ core.Observer = (*Bridge)(nil)

// NewBridge creates a bridge that sends messages to the given program.
func NewBridge(p *tea.Program) *Bridge {
	return &Bridge{program: p}
}

// Notify translates a driver event into a program message.
func (b *Bridge) Notify(e core.Event) {
	if msg := toMsg(e); msg != nil {
		b.program.Send(msg)
	}
}

func toMsg(e core.Event) tea.Msg {
	switch ev := e.(type) {
	case core.RunStarted:
		return MsgRunStarted{RunID: ev.RunID, Total: ev.Total}
	case core.TokenDone:
		return MsgTokenDone{Done: ev.Done, Total: ev.Total, Result: ev.Result}
	case core.RunFinished:
		return MsgRunFinished{Summary: ev.Summary}
	}
	return nil
}
