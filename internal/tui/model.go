// Package tui is the interactive chat interface for the shopping
// assistant.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cartpilot/internal/models"
)

// ChatPort is the TUI-facing subset of the conversation engine.
type ChatPort interface {
	Turn(ctx context.Context, st *models.ConversationState, userInput string)
}

// turnDoneMsg signals that the conversation engine finished a turn.
type turnDoneMsg struct{}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	engine   ChatPort
	state    *models.ConversationState
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	waiting  bool
	ready    bool
}

// New creates a chat TUI over the given engine.
func New(engine ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Tell me what you're shopping for"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		engine:   engine,
		state:    models.NewConversationState(),
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

// Run starts the TUI and blocks until the user quits.
func Run(engine ChatPort) error {
	_, err := tea.NewProgram(New(engine), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		vh := msg.Height - th - ih - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.waiting {
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			st := m.state
			engine := m.engine
			return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
				engine.Turn(context.Background(), st, text)
				return turnDoneMsg{}
			})
		}

	case turnDoneMsg:
		m.waiting = false
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Cartpilot")
	transcript := transcriptStyle.Render(m.viewport.View())
	var footer string
	if m.waiting {
		footer = m.spinner.View() + " thinking..."
	} else {
		footer = inputBoxStyle.Render(m.input.View())
	}
	return header + "\n" + transcript + "\n" + footer
}

func (m Model) renderTranscript() string {
	if len(m.state.History) == 0 {
		return "Say hello to start shopping."
	}
	var sb strings.Builder
	for _, msg := range m.state.History {
		switch msg.Role {
		case models.RoleUser:
			sb.WriteString(userStyle.Render("you") + "  " + msg.Content + "\n\n")
		case models.RoleAssistant:
			sb.WriteString(assistantStyle.Render("cartpilot") + "  " + msg.Content + "\n\n")
		}
	}
	if len(m.state.Products) > 0 {
		sb.WriteString(productHeaderStyle.Render(fmt.Sprintf("%d products on the table", len(m.state.Products))) + "\n")
		for i, p := range m.state.Products {
			sb.WriteString(fmt.Sprintf("  %d. %s", i+1, p.Name))
			if p.DiscountPrice != nil {
				sb.WriteString(fmt.Sprintf("  $%.2f", *p.DiscountPrice))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

var (
	transcriptStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	productHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
