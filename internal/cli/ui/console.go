package ui

import (
	"fmt"
	"log"
	"strings"
	"time"

	"outpost/pkg/sdk"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type consoleModel struct {
	viewport  viewport.Model
	textInput textinput.Model
	client    *sdk.Client
	content   string
	err       error
	ready     bool
	back      bool
	width     int
	height    int
}

type consoleLinesMsg []string
type consoleErrMsg error
type consoleTickMsg time.Time

func initialConsoleModel(client *sdk.Client) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "Type a command..."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 20

	return consoleModel{
		textInput: ti,
		client:    client,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		fetchConsoleCmd(m.client),
		consoleTickCmd(),
	)
}

func fetchConsoleCmd(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		lines, err := client.Console(100)
		if err != nil {
			return consoleErrMsg(err)
		}
		return consoleLinesMsg(lines)
	}
}

func consoleTickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return consoleTickMsg(t)
	})
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			m.back = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.textInput.Value() != "" {
				command := m.textInput.Value()
				m.textInput.SetValue("")
				go m.client.SendCommand(command)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 10
		contentWidth := msg.Width - 6

		if !m.ready {
			m.viewport = viewport.New(contentWidth, msg.Height-headerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = msg.Height - headerHeight
		}

	case consoleLinesMsg:
		m.content = strings.Join(msg, "\n")
		m.viewport.SetContent(m.content)
		m.viewport.GotoBottom()
		m.err = nil

	case consoleErrMsg:
		m.err = msg

	case consoleTickMsg:
		return m, tea.Batch(fetchConsoleCmd(m.client), consoleTickCmd())
	}

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m consoleModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	title := headerStyle.Width(m.width).Render("SERVER CONSOLE")

	console := baseStyle.
		Width(m.width - 4).
		Render(m.viewport.View())

	keys := []string{
		keyStyle.Render("esc") + descStyle.Render(": back"),
		keyStyle.Render("ctrl+c") + descStyle.Render(": quit"),
	}
	helpText := ""
	for i, k := range keys {
		helpText += k
		if i < len(keys)-1 {
			helpText += lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(" • ")
		}
	}

	inputLine := fmt.Sprintf("→ %s", m.textInput.View())
	if m.err != nil {
		inputLine = fmt.Sprintf("%s\n%s",
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.err.Error()),
			inputLine)
	}

	helpLine := lipgloss.NewStyle().
		Width(m.width - 6).
		Align(lipgloss.Center).
		Render(helpText)

	footerContent := lipgloss.JoinVertical(lipgloss.Left,
		inputLine,
		"\n",
		helpLine,
	)

	footerBox := footerStyle.
		Width(m.width - 4).
		Align(lipgloss.Left).
		Render(footerContent)

	return lipgloss.JoinVertical(lipgloss.Center,
		title,
		console,
		footerBox,
	)
}

// RunConsole shows the remote console tail with a command input. Returns
// true when the operator backed out to the dashboard rather than quitting.
func RunConsole(client *sdk.Client) bool {
	p := tea.NewProgram(
		initialConsoleModel(client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	m, err := p.Run()
	if err != nil {
		log.Printf("Error running console UI: %v", err)
		return true
	}

	if consoleModel, ok := m.(consoleModel); ok {
		return consoleModel.back
	}
	return false
}
