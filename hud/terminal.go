package hud

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Terminal renders session state as a single-line HUD via Bubble Tea.
// It satisfies Presenter; each notification is forwarded as a program
// message, so callers never block on rendering.
type Terminal struct {
	program *tea.Program
}

type listeningMsg struct{}
type transcribingMsg struct{}
type previewMsg struct{ text string }
type successMsg struct{ text string }
type errorMsg struct{ reason string }
type dismissMsg struct{}

type hudState int

const (
	hudHidden hudState = iota
	hudListening
	hudTranscribing
	hudSuccess
	hudError
)

var (
	styleListening = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	styleBusy      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleSuccess   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleError     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim       = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

type hudModel struct {
	state hudState
	text  string
}

func (m hudModel) Init() tea.Cmd { return nil }

func (m hudModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case listeningMsg:
		m.state = hudListening
		m.text = ""
	case transcribingMsg:
		m.state = hudTranscribing
		m.text = ""
	case previewMsg:
		if m.state == hudTranscribing {
			m.text = msg.text
		}
	case successMsg:
		m.state = hudSuccess
		m.text = msg.text
	case errorMsg:
		m.state = hudError
		m.text = msg.reason
	case dismissMsg:
		m.state = hudHidden
		m.text = ""
	}
	return m, nil
}

func (m hudModel) View() string {
	switch m.state {
	case hudListening:
		return styleListening.Render("● listening") + styleDim.Render("  (release to stop)") + "\n"
	case hudTranscribing:
		line := styleBusy.Render("… transcribing")
		if m.text != "" {
			line += "  " + styleDim.Render(m.text)
		}
		return line + "\n"
	case hudSuccess:
		return styleSuccess.Render("✓ "+m.text) + "\n"
	case hudError:
		return styleError.Render("✗ "+m.text) + "\n"
	}
	return "\n"
}

func NewTerminal() *Terminal {
	return &Terminal{program: tea.NewProgram(hudModel{})}
}

// Run blocks until the program exits (ctrl+c or Quit).
func (t *Terminal) Run() error {
	_, err := t.program.Run()
	return err
}

func (t *Terminal) Quit() { t.program.Quit() }

func (t *Terminal) ShowListening()    { t.program.Send(listeningMsg{}) }
func (t *Terminal) ShowTranscribing() { t.program.Send(transcribingMsg{}) }

func (t *Terminal) UpdateTranscribingPreview(s string) { t.program.Send(previewMsg{text: s}) }

func (t *Terminal) ShowSuccess(text string) { t.program.Send(successMsg{text: text}) }
func (t *Terminal) ShowError(reason string) { t.program.Send(errorMsg{reason: reason}) }
func (t *Terminal) Dismiss()                { t.program.Send(dismissMsg{}) }
