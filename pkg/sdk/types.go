package sdk

import "time"

type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type Profile struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	AvatarURL   string   `json:"avatarUrl"`
	IsAdmin     bool     `json:"isAdmin"`
	IsApproved  bool     `json:"isApproved"`
	Clearance   int      `json:"clearance"`
	XP          int      `json:"xp"`
	ReadBanners []string `json:"readBannerIds"`
}

type ServerStats struct {
	CPUUsage      float64 `json:"cpu"`
	RAMUsage      float64 `json:"ram"`
	PlayersOnline int     `json:"playersOnline"`
	PlayersMax    int     `json:"playersMax"`
	Uptime        string  `json:"uptime"`
}

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag"`
	Message   string    `json:"message"`
}

// StatusSnapshot mirrors the daemon's polling session state.
type StatusSnapshot struct {
	ServerID     string      `json:"serverId"`
	ServerName   string      `json:"serverName"`
	Status       string      `json:"status"`
	Reachable    bool        `json:"reachable"`
	Establishing bool        `json:"establishing"`
	Stats        ServerStats `json:"stats"`
	Log          []LogEntry  `json:"log"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type Countdown struct {
	Enabled bool      `json:"enabled"`
	Target  time.Time `json:"target"`
	Title   string    `json:"title"`
}

type PortalConfig struct {
	SiteName         string    `json:"siteName"`
	Tagline          string    `json:"tagline"`
	EmergencyEnabled bool      `json:"isEmergencyEnabled"`
	TerminalEnabled  bool      `json:"isTerminalEnabled"`
	IntelEnabled     bool      `json:"isIntelEnabled"`
	Countdown        Countdown `json:"countdown"`
}

type ConfigResponse struct {
	State  string       `json:"state"`
	Config PortalConfig `json:"config"`
}

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

type RoadmapItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Phase     string    `json:"phase"`
	Done      bool      `json:"done"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"created_at"`
}
