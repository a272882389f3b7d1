package fetchview

import (
	"fmt"
	"io"
	"log"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/canvas-todo/internal/keys"
	"github.com/nhle/canvas-todo/internal/source"
	"github.com/nhle/canvas-todo/internal/theme"
)

// maxBarWidth caps the progress bar on wide terminals.
const maxBarWidth = 60

// progressMsg carries a fetch progress notification into the program.
type progressMsg source.Progress

// doneMsg is sent once the work function has returned.
type doneMsg struct{}

// Model renders a spinner, the current course count and a progress bar
// while a fetch runs on another goroutine.
type Model struct {
	title   string
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    *keys.KeyMap
	status  source.Progress
	updates <-chan source.Progress
	cancel  func()
	done    bool
}

// New creates a fetch view that listens on updates. cancel is called when
// the user quits with ctrl+c; it may be nil.
func New(title string, updates <-chan source.Progress, cancel func()) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.CourseStyle

	return Model{
		title:   title,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    keys.DefaultKeyMap(),
		updates: updates,
		cancel:  cancel,
	}
}

// Init starts the spinner and the progress subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForProgress(m.updates))
}

// Update handles progress, completion, resize and spinner messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.status = source.Progress(msg)
		return m, waitForProgress(m.updates)

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		if m.bar.Width > maxBarWidth {
			m.bar.Width = maxBarWidth
		}
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.Hide):
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the spinner line and bar. It is empty once done so the
// final frame leaves nothing behind.
func (m Model) View() string {
	if m.done {
		return ""
	}
	status := "listing courses"
	if m.status.Total > 0 {
		status = m.status.String()
	}
	return fmt.Sprintf("%s %s %s\n%s\n%s\n",
		m.spinner.View(),
		m.title,
		theme.ProgressStyle.Render(status),
		m.bar.ViewAs(m.status.Fraction()),
		m.help.View(m.keys),
	)
}

// waitForProgress returns a tea.Cmd that waits for the next notification.
// A closed channel yields no message.
func waitForProgress(updates <-chan source.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-updates
		if !ok {
			return nil
		}
		return progressMsg(p)
	}
}

// channelSink forwards notifications without ever blocking the caller.
type channelSink struct {
	ch chan<- source.Progress
}

// Report sends p if there is room and drops it otherwise.
func (s channelSink) Report(p source.Progress) {
	select {
	case s.ch <- p:
	default:
		// Drop if the view is behind; the next report supersedes this one.
	}
}

// Run shows the fetch view on out while work runs on its own goroutine,
// and returns work's error. Hiding the view does not stop work; ctrl+c
// calls cancel, which should make work return early.
func Run(
	title string,
	out io.Writer,
	cancel func(),
	work func(sink source.ProgressSink) error,
) error {
	updates := make(chan source.Progress, 16)
	result := make(chan error, 1)

	p := tea.NewProgram(New(title, updates, cancel), tea.WithOutput(out))

	go func() {
		err := work(channelSink{ch: updates})
		close(updates)
		result <- err
		p.Send(doneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		log.Printf("progress view: %v", err)
	}
	return <-result
}

// Plain returns a sink that prints one styled line per notification, for
// logs and non-interactive terminals.
func Plain(out io.Writer) source.ProgressSink {
	return source.ProgressFunc(func(p source.Progress) {
		fmt.Fprintln(out, theme.ProgressStyle.Render(p.String()))
	})
}
