package room

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	maxNameRunes   = 20
	maxAvatarRunes = 200
	defaultName    = "Player"
)

// cleanName normalizes to NFC before truncating so a combining sequence
// counts as the code points a reader sees.
func cleanName(raw string) string {
	name := truncate(norm.NFC.String(strings.TrimSpace(raw)), maxNameRunes)
	if name == "" {
		return defaultName
	}
	return name
}

func cleanAvatar(raw string) string {
	return truncate(strings.TrimSpace(raw), maxAvatarRunes)
}

func truncate(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
