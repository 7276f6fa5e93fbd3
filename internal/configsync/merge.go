package configsync

import (
	"time"

	"outpost/internal/domain"
)

// NormalizeConfig maps raw backend field names onto the stable shape
// consumers expect, with explicit defaults for every optional field.
func NormalizeConfig(raw map[string]any) domain.GlobalConfig {
	cfg := domain.DefaultGlobalConfig()
	return MergeConfig(cfg, raw)
}

// MergeConfig applies a field-present merge: a key that exists on the patch
// overwrites the corresponding field even when its value is falsy; absent
// keys leave the current value untouched.
func MergeConfig(cfg domain.GlobalConfig, patch map[string]any) domain.GlobalConfig {
	if value, ok := patch["site_name"]; ok {
		cfg.SiteName = asString(value)
	}
	if value, ok := patch["tagline"]; ok {
		cfg.Tagline = asString(value)
	}
	if value, ok := patch["is_emergency_enabled"]; ok {
		cfg.EmergencyEnabled = asBool(value)
	}
	if value, ok := patch["is_terminal_enabled"]; ok {
		cfg.TerminalEnabled = asBool(value)
	}
	if value, ok := patch["is_intel_enabled"]; ok {
		cfg.IntelEnabled = asBool(value)
	}
	if value, ok := patch["countdown_enabled"]; ok {
		cfg.Countdown.Enabled = asBool(value)
	}
	if value, ok := patch["countdown_target"]; ok {
		cfg.Countdown.Target = asTime(value)
	}
	if value, ok := patch["countdown_title"]; ok {
		cfg.Countdown.Title = asString(value)
	}
	if value, ok := patch["mcss_url"]; ok {
		cfg.MCSS.URL = asString(value)
	}

	if cfg.MCSS.MasterKeys == nil {
		cfg.MCSS.MasterKeys = map[string]string{
			domain.TierStandard: "",
			domain.TierAdmin:    "",
		}
	}

	return cfg
}

func asString(value any) string {
	s, _ := value.(string)
	return s
}

func asBool(value any) bool {
	b, _ := value.(bool)
	return b
}

func asTime(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
