package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"outpost/pkg/sdk"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

type statusModel struct {
	snapshot  *sdk.StatusSnapshot
	sub       chan sdk.StatusSnapshot
	err       error
	width     int
	height    int
	message   string
	client    *sdk.Client
	goConsole bool
}

type snapshotMsg sdk.StatusSnapshot
type statusErrMsg error
type statusTickMsg time.Time

// RunStatusDashboard shows the live server status. It prefers the daemon's
// websocket stream and falls back to polling when the dial fails. Returns
// true when the operator asked for the console view.
func RunStatusDashboard(client *sdk.Client) bool {
	var sub chan sdk.StatusSnapshot

	wsURL, err := client.GetWebSocketURL("/ws/status")
	if err == nil {
		conn, _, dialErr := websocket.DefaultDialer.Dial(wsURL, nil)
		if dialErr == nil {
			defer conn.Close()
			sub = make(chan sdk.StatusSnapshot)
			go func() {
				defer close(sub)
				for {
					_, message, err := conn.ReadMessage()
					if err != nil {
						return
					}
					var snapshot sdk.StatusSnapshot
					if json.Unmarshal(message, &snapshot) == nil {
						sub <- snapshot
					}
				}
			}()
		}
	}

	m := statusModel{client: client, sub: sub}

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	finalModel, err := program.Run()
	if err != nil {
		fmt.Printf("Error running dashboard: %v", err)
		os.Exit(1)
	}

	if m, ok := finalModel.(statusModel); ok {
		return m.goConsole
	}
	return false
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(
		fetchStatusCmd(m.client),
		waitForSnapshot(m.sub),
		statusTickCmd(),
	)
}

func waitForSnapshot(sub chan sdk.StatusSnapshot) tea.Cmd {
	return func() tea.Msg {
		if sub == nil {
			return nil
		}
		snapshot, ok := <-sub
		if !ok {
			return nil
		}
		return snapshotMsg(snapshot)
	}
}

func fetchStatusCmd(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		snapshot, err := client.Status()
		if err != nil {
			return statusErrMsg(err)
		}
		return snapshotMsg(*snapshot)
	}
}

func statusTickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m statusModel) dispatch(action string) (tea.Model, tea.Cmd) {
	go m.client.PerformAction(action)
	m.message = fmt.Sprintf("Dispatching %s...", action)
	return m, tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return "clear_message"
	})
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "s":
			return m.dispatch("Start")
		case "x":
			return m.dispatch("Stop")
		case "r":
			return m.dispatch("Restart")
		case "k":
			return m.dispatch("Kill")
		case "enter":
			m.goConsole = true
			return m, tea.Quit
		}
	case string:
		if msg == "clear_message" {
			m.message = ""
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case snapshotMsg:
		snapshot := sdk.StatusSnapshot(msg)
		m.snapshot = &snapshot
		return m, waitForSnapshot(m.sub)
	case statusTickMsg:
		if m.sub != nil {
			// Stream is live; the tick is only a fallback.
			return m, statusTickCmd()
		}
		return m, tea.Batch(fetchStatusCmd(m.client), statusTickCmd())
	case statusErrMsg:
		m.err = msg
		return m, nil
	}

	return m, nil
}

func statusColor(status string) lipgloss.Color {
	switch status {
	case "ONLINE":
		return lipgloss.Color("46")
	case "STARTING", "ESTABLISHING UPLINK":
		return lipgloss.Color("226")
	case "STOPPING":
		return lipgloss.Color("208")
	default:
		return lipgloss.Color("196")
	}
}

func (m statusModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := headerStyle.Width(m.width).Render("OUTPOST UPLINK")
	clock := subHeaderStyle.Render(time.Now().Format("Mon Jan 2 15:04:05"))

	var content string
	if m.snapshot == nil {
		content = "Waiting for first status snapshot..."
	} else {
		s := m.snapshot
		statusLine := lipgloss.NewStyle().Foreground(statusColor(s.Status)).Bold(true).Render(s.Status)
		content = fmt.Sprintf(
			"Server: %s  •  Status: %s\nCPU: %.1f%%  •  RAM: %.1f%%  •  Players: %d/%d  •  Uptime: %s",
			s.ServerName, statusLine,
			s.Stats.CPUUsage, s.Stats.RAMUsage,
			s.Stats.PlayersOnline, s.Stats.PlayersMax,
			s.Stats.Uptime,
		)
	}

	headerBox := baseStyle.
		Width(m.width - 4).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, clock, " ", content))

	logContent := ""
	if m.snapshot != nil {
		for _, entry := range m.snapshot.Log {
			logContent += fmt.Sprintf("[%s] %-6s %s\n",
				entry.Timestamp.Format("15:04:05"), entry.Tag, entry.Message)
		}
	}
	if logContent == "" {
		logContent = "No recent activity."
	}

	logBox := baseStyle.
		Width(m.width - 4).
		Height(m.height - 14).
		Render(logContent)

	keys := []string{
		keyStyle.Render("s") + descStyle.Render(": start"),
		keyStyle.Render("x") + descStyle.Render(": stop"),
		keyStyle.Render("r") + descStyle.Render(": restart"),
		keyStyle.Render("k") + descStyle.Render(": kill"),
		keyStyle.Render("enter") + descStyle.Render(": console"),
		keyStyle.Render("q/esc") + descStyle.Render(": quit"),
	}
	statusLine := ""
	for i, k := range keys {
		statusLine += k
		if i < len(keys)-1 {
			statusLine += lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(" • ")
		}
	}

	footerBox := footerStyle.
		Width(m.width - 4).
		Render(statusLine)

	if m.message != "" {
		footerBox = fmt.Sprintf("%s\n%s",
			lipgloss.NewStyle().MarginLeft(2).Foreground(lipgloss.Color("205")).Bold(true).Render(m.message),
			footerBox)
	}
	if m.err != nil {
		footerBox = fmt.Sprintf("%s\n%s",
			lipgloss.NewStyle().MarginLeft(2).Foreground(lipgloss.Color("196")).Render(m.err.Error()),
			footerBox)
	}

	return lipgloss.JoinVertical(lipgloss.Center,
		title,
		headerBox,
		logBox,
		footerBox,
	)
}
