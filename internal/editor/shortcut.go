package editor

import (
	"sort"
	"strings"
)

// modifier aliases → canonical names.
var modAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"cmd":     "cmd",
	"command": "cmd",
	"meta":    "cmd",
	"super":   "cmd",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
}

var modOrder = map[string]int{"ctrl": 0, "alt": 1, "shift": 2, "cmd": 3}

// SaveChord is the platform save shortcut: cmd+s on macOS, ctrl+s elsewhere.
func SaveChord(goos string) string {
	if goos == "darwin" {
		return "cmd+s"
	}
	return "ctrl+s"
}

// NormalizeChord lowercases a chord, canonicalises modifier names, and orders
// modifiers so "S+Control" and "ctrl+s" compare equal.
func NormalizeChord(chord string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")
	var mods []string
	var keys []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if m, ok := modAliases[p]; ok {
			mods = append(mods, m)
			continue
		}
		keys = append(keys, p)
	}
	sort.Slice(mods, func(i, j int) bool { return modOrder[mods[i]] < modOrder[mods[j]] })
	return strings.Join(append(mods, keys...), "+")
}

// IsSaveChord reports whether chord is the save shortcut on goos.
func IsSaveChord(chord, goos string) bool {
	return NormalizeChord(chord) == SaveChord(goos)
}
