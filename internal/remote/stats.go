package remote

import (
	"fmt"
	"strings"

	"outpost/internal/domain"
)

// Candidate key names the control endpoint has historically used for each
// quantity, probed in priority order.
var (
	cpuKeys        = []string{"cpu", "cpuUsage", "cpuLoad", "cpu_percent"}
	ramUsedKeys    = []string{"memoryAmount", "memory", "ram", "ramUsage", "memoryUsed"}
	ramLimitKeys   = []string{"memoryLimit", "maxRam", "ramLimit", "maxMemory"}
	ramPercentKeys = []string{"ramPercent", "memoryPercent", "memory_usage"}
	playersKeys    = []string{"playersOnline", "players", "online"}
	maxPlayersKeys = []string{"playerLimit", "maxPlayers", "playersMax", "slots"}
	uptimeKeys     = []string{"uptime", "uptimeSeconds"}
	idKeys         = []string{"serverId", "guid", "id"}
	nameKeys       = []string{"name", "serverName"}
	statusKeys     = []string{"status", "state"}
)

// NormalizeStats computes typed stats from whatever shape the control
// endpoint currently returns. Array payloads use the last element; fields
// may live under a "latest" sub-object or at the root; key matching is
// exact first, case-insensitive second.
func NormalizeStats(raw any) domain.ServerStats {
	root, ok := statsObject(raw)
	if !ok {
		return domain.ServerStats{Uptime: "00:00:00"}
	}

	var nested map[string]any
	if latest, ok := probe(root, []string{"latest"}); ok {
		nested, _ = latest.(map[string]any)
	}

	stats := domain.ServerStats{
		CPUUsage:      probeFloat(nested, root, cpuKeys),
		PlayersOnline: int(probeFloat(nested, root, playersKeys)),
		PlayersMax:    int(probeFloat(nested, root, maxPlayersKeys)),
		Uptime:        normalizeUptime(nested, root),
	}

	used, usedOK := probeNumber(nested, root, ramUsedKeys)
	limit, limitOK := probeNumber(nested, root, ramLimitKeys)
	switch {
	case usedOK && limitOK && limit > 0:
		stats.RAMUsage = used / limit * 100
	default:
		stats.RAMUsage = probeFloat(nested, root, ramPercentKeys)
	}

	return stats
}

// statsObject resolves the object to probe: the payload itself, or the last
// element of an array payload.
func statsObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		last, ok := v[len(v)-1].(map[string]any)
		return last, ok
	default:
		return nil, false
	}
}

// probe looks candidates up by exact key, then scans all keys
// case-insensitively.
func probe(m map[string]any, candidates []string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, candidate := range candidates {
		if value, ok := m[candidate]; ok {
			return value, true
		}
	}
	for _, candidate := range candidates {
		for key, value := range m {
			if strings.EqualFold(key, candidate) {
				return value, true
			}
		}
	}
	return nil, false
}

// probeNested checks the nested object first, then the root.
func probeNested(nested, root map[string]any, candidates []string) (any, bool) {
	if value, ok := probe(nested, candidates); ok {
		return value, true
	}
	return probe(root, candidates)
}

func probeNumber(nested, root map[string]any, candidates []string) (float64, bool) {
	value, ok := probeNested(nested, root, candidates)
	if !ok {
		return 0, false
	}
	return toFloat(value)
}

func probeFloat(nested, root map[string]any, candidates []string) float64 {
	value, _ := probeNumber(nested, root, candidates)
	return value
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// normalizeUptime formats a numeric seconds value as HH:MM:SS, passes a
// string value through unchanged, and yields a zero duration when absent.
func normalizeUptime(nested, root map[string]any) string {
	value, ok := probeNested(nested, root, uptimeKeys)
	if !ok {
		return "00:00:00"
	}
	if s, ok := value.(string); ok {
		return s
	}
	if seconds, ok := toFloat(value); ok {
		return formatUptime(int64(seconds))
	}
	return "00:00:00"
}

func formatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// normalizeHandle maps a raw server entry onto a typed handle, tolerating
// the endpoint's historical id and status spellings.
func normalizeHandle(entry map[string]any) domain.ServerHandle {
	handle := domain.ServerHandle{Status: domain.StatusUnknown}

	if id, ok := probe(entry, idKeys); ok {
		if s, ok := id.(string); ok {
			handle.ID = s
		}
	}
	if name, ok := probe(entry, nameKeys); ok {
		if s, ok := name.(string); ok {
			handle.Name = s
		}
	}
	if status, ok := probe(entry, statusKeys); ok {
		if code, ok := toFloat(status); ok && code >= 0 && code <= 4 {
			handle.Status = domain.ServerStatus(int(code))
		}
	}
	return handle
}
