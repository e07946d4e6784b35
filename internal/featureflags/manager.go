// Package featureflags evaluates runtime feature switches configured through FEATURE_FLAGS.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags understood by the application.
const (
	LikeEvents = "like_events"
	Swagger    = "swagger"
)

// rule is a parsed flag value: fully on, fully off, or a percentage rollout.
type rule struct {
	raw     string
	percent int
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "like_events=on,swagger=off,new_ranking=25%"
type Manager struct {
	rules map[string]rule
}

// NewManager parses a comma-separated config string. Malformed entries are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		rules[key] = parseRule(value)
	}

	return &Manager{rules: rules}
}

func parseRule(value string) rule {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}
	case "off", "false", "0":
		return rule{raw: value}
	}
	if pct, ok := strings.CutSuffix(value, "%"); ok {
		if n, err := strconv.Atoi(pct); err == nil {
			return rule{raw: value, percent: min(max(n, 0), 100)}
		}
	}
	return rule{raw: value}
}

// On reports whether a flag is fully enabled, independent of any user.
func (m *Manager) On(name string) bool {
	return m.Enabled(name, 0)
}

// Enabled returns whether a flag is enabled for a given user. Partial rollouts select a
// deterministic bucket per (flag, user) and are never enabled for userID 0.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok || r.percent <= 0 {
		return false
	}
	if r.percent >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < r.percent
}

// Names returns the configured flag names in sorted order.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.rules))
	for name := range m.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw returns the configured flag values as written.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range m.Names() {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
