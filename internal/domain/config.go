package domain

import "time"

const (
	TierStandard = "standard"
	TierAdmin    = "admin"
)

type Countdown struct {
	Enabled bool      `json:"enabled"`
	Target  time.Time `json:"target"`
	Title   string    `json:"title"`
}

type RemoteControlSettings struct {
	URL        string            `json:"url"`
	MasterKeys map[string]string `json:"masterKeys"`
}

type GlobalConfig struct {
	SiteName         string                `json:"siteName"`
	Tagline          string                `json:"tagline"`
	EmergencyEnabled bool                  `json:"isEmergencyEnabled"`
	TerminalEnabled  bool                  `json:"isTerminalEnabled"`
	IntelEnabled     bool                  `json:"isIntelEnabled"`
	Countdown        Countdown             `json:"countdown"`
	MCSS             RemoteControlSettings `json:"mcss"`
}

// DefaultGlobalConfig returns the configuration used before the first
// successful fetch, with every optional field given an explicit value.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		SiteName:        "Outpost",
		TerminalEnabled: true,
		IntelEnabled:    true,
		MCSS: RemoteControlSettings{
			MasterKeys: map[string]string{
				TierStandard: "",
				TierAdmin:    "",
			},
		},
	}
}
