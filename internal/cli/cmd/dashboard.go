package cmd

import (
	"outpost/internal/cli/ui"
)

func RunDashboard() {
	for {
		openConsole := ui.RunStatusDashboard(Client)
		if !openConsole {
			break
		}
		back := ui.RunConsole(Client)
		if !back {
			break
		}
	}
}
