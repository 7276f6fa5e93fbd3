package domain

// ServerStatus mirrors the MCSS status codes.
type ServerStatus int

const (
	StatusOffline    ServerStatus = 0
	StatusOnline     ServerStatus = 1
	StatusRestarting ServerStatus = 2
	StatusStarting   ServerStatus = 3
	StatusStopping   ServerStatus = 4
	StatusUnknown    ServerStatus = -1
)

func (s ServerStatus) String() string {
	switch s {
	case StatusOffline:
		return "OFFLINE"
	case StatusOnline:
		return "ONLINE"
	case StatusRestarting:
		return "RESTARTING"
	case StatusStarting:
		return "STARTING"
	case StatusStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

type ServerHandle struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Status ServerStatus `json:"status"`
}

// ServerStats is derived from whatever shape the control endpoint returns,
// never stored.
type ServerStats struct {
	CPUUsage      float64 `json:"cpuUsage"`
	RAMUsage      float64 `json:"ramUsage"`
	PlayersOnline int     `json:"playersOnline"`
	PlayersMax    int     `json:"playersMax"`
	Uptime        string  `json:"uptime"`
}
