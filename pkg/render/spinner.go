package render

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type spinDoneMsg struct{}

// spinnerModel shows a spinner and a label until it receives spinDoneMsg,
// then clears its line and quits.
type spinnerModel struct {
	spinner spinner.Model
	label   string
	done    bool
}

func newSpinnerModel(label string) spinnerModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle
	return spinnerModel{spinner: sp, label: label}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + mutedStyle.Render(m.label)
}

// Spin runs fn and returns its error. On a terminal a spinner labelled label
// is drawn until fn returns; otherwise fn simply runs.
func (p *Printer) Spin(ctx context.Context, label string, fn func(context.Context) error) error {
	if !p.tty {
		return fn(ctx)
	}

	prog := tea.NewProgram(newSpinnerModel(label),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(p.w),
		tea.WithoutSignalHandler(),
	)

	errc := make(chan error, 1)
	go func() {
		errc <- fn(ctx)
		prog.Send(spinDoneMsg{})
	}()

	// A drawing failure is not fn's failure.
	_, _ = prog.Run()
	return <-errc
}
