package monitor

import (
	"fmt"
	"strings"

	core "regen/core/rebuild"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// recentLimit is how many finished tokens the log pane shows.
const recentLimit = 8

// Model is the BubbleTea model for a running rebuild.
type Model struct {
	Keys     KeyMap
	Spinner  spinner.Model
	Progress progress.Model

	RunID   string
	Total   int
	Done    int
	Success int
	Partial int
	Failed  int
	Skipped int
	Recent  []core.Result

	Stopping bool
	Summary  *core.Summary
	Err      error

	cancel *core.CancelToken
}

// NewModel creates a model that stops the run through cancel.
func NewModel(cancel *core.CancelToken) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleTitle
	return Model{
		Keys:     DefaultKeyMap(),
		Spinner:  s,
		Progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel:   cancel,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

// Finished reports whether the run ended or failed to start.
func (m Model) Finished() bool {
	return m.Summary != nil || m.Err != nil
}

// Update handles key presses and driver messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Progress.Width = min(max(msg.Width-20, 10), 60)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.Finished() {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case MsgRunStarted:
		m.RunID = msg.RunID
		m.Total = msg.Total

	case MsgTokenDone:
		m.Done = msg.Done
		m.Total = msg.Total
		switch msg.Result.Status {
		case core.StatusSuccess:
			m.Success++
		case core.StatusPartial:
			m.Partial++
		case core.StatusFailed:
			m.Failed++
		case core.StatusSkipped:
			m.Skipped++
		}
		m.Recent = append(m.Recent, msg.Result)
		if len(m.Recent) > recentLimit {
			m.Recent = m.Recent[len(m.Recent)-recentLimit:]
		}

	case MsgRunFinished:
		m.Summary = msg.Summary
		return m, tea.Quit

	case MsgError:
		m.Err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Stop), key.Matches(msg, m.Keys.Quit):
		if m.Finished() {
			return m, tea.Quit
		}
		// Tokens in flight finish; the driver then sends MsgRunFinished.
		if !m.Stopping && m.cancel != nil {
			m.cancel.Cancel()
			m.Stopping = true
		}
	}
	return m, nil
}

// Percent returns the completed fraction in [0, 1].
func (m Model) Percent() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Done) / float64(m.Total)
}

// View renders the progress screen.
func (m Model) View() string {
	var b strings.Builder

	title := "Rebuilding collection"
	switch {
	case m.Err != nil:
		title = "Rebuild failed"
	case m.Summary != nil && m.Summary.Aborted:
		title = "Rebuild aborted"
	case m.Summary != nil && m.Summary.Cancelled:
		title = "Rebuild cancelled"
	case m.Summary != nil:
		title = "Rebuild finished"
	case m.Stopping:
		title = "Stopping after tokens in flight"
	}
	if m.Finished() {
		b.WriteString(styleTitle.Render(title))
	} else {
		b.WriteString(m.Spinner.View() + " " + styleTitle.Render(title))
	}
	b.WriteString("\n\n")

	if m.Err != nil {
		b.WriteString(styleDanger.Render(m.Err.Error()) + "\n")
		return styleBox.Render(b.String()) + "\n"
	}

	b.WriteString(m.Progress.ViewAs(m.Percent()))
	b.WriteString(styleCounter.Render(fmt.Sprintf("  %d/%d", m.Done, m.Total)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s  %s  %s  %s\n",
		styleSuccess.Render(fmt.Sprintf("%s %d ok", iconSuccess, m.Success)),
		styleWarn.Render(fmt.Sprintf("%s %d partial", iconPartial, m.Partial)),
		styleDanger.Render(fmt.Sprintf("%s %d failed", iconFailed, m.Failed)),
		styleMuted.Render(fmt.Sprintf("%s %d skipped", iconSkipped, m.Skipped)),
	))

	if len(m.Recent) > 0 {
		b.WriteString("\n")
		for _, r := range m.Recent {
			b.WriteString(renderResult(r) + "\n")
		}
	}

	if m.Summary != nil && m.Summary.AbortReason != "" {
		b.WriteString("\n" + styleDanger.Render(m.Summary.AbortReason) + "\n")
	}
	if !m.Finished() {
		b.WriteString("\n" + styleMuted.Render(m.Keys.Stop.Help().Key+" "+m.Keys.Stop.Help().Desc) + "\n")
	}
	return styleBox.Render(b.String()) + "\n"
}

func renderResult(r core.Result) string {
	name := r.TokenID
	if name == "" {
		name = r.Source
	}
	switch r.Status {
	case core.StatusSuccess:
		return styleSuccess.Render(iconSuccess) + " " + name
	case core.StatusPartial:
		missing := make([]string, len(r.Unresolved))
		for i, miss := range r.Unresolved {
			missing[i] = miss.Category + "/" + miss.Value
		}
		return styleWarn.Render(iconPartial) + " " + name + styleMuted.Render(" missing "+strings.Join(missing, ", "))
	case core.StatusSkipped:
		return styleMuted.Render(iconSkipped + " " + name)
	default:
		return styleDanger.Render(iconFailed) + " " + name + styleMuted.Render(" "+r.Reason)
	}
}
