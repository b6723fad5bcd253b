// Package featureflags evaluates rollout flags configured as a key=value list.
package featureflags

import (
	"hash/fnv"
	"log/slog"
	"strconv"
	"strings"

	"socialgraph/internal/observability"
)

// RealtimeNotifications gates pushing committed notifications to the recipient's stream.
const RealtimeNotifications = "realtime_notifications"

// Manager holds flags parsed from FEATURE_FLAGS, e.g.
// "realtime_notifications=on,suggestions=25%". Each flag is stored as the
// percentage of users it is enabled for.
type Manager struct {
	rollout map[string]int
}

// NewManager parses raw. Entries that are not name=on|off|true|false|1|0|N%
// are dropped with a warning.
func NewManager(raw string) *Manager {
	rollout := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		name = normalize(name)
		pct, valid := parsePercent(normalize(value))
		if !ok || name == "" || !valid {
			observability.Logger.Warn("ignoring malformed feature flag", slog.String("entry", pair))
			continue
		}
		rollout[name] = pct
	}
	return &Manager{rollout: rollout}
}

func parsePercent(value string) (int, bool) {
	switch value {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}
	raw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return 0, false
	}
	pct, err := strconv.Atoi(raw)
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct, true
}

// Enabled reports whether name is on for userID. Partial rollouts are
// deterministic per user and never include an anonymous caller.
func (m *Manager) Enabled(name string, userID string) bool {
	if m == nil {
		return false
	}
	pct, ok := m.rollout[normalize(name)]
	switch {
	case !ok || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == "":
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID string) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.rollout))
	for name := range m.rollout {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + userID))
	return int(h.Sum32() % 100)
}
