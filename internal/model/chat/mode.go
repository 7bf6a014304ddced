package chat

import (
	"fmt"
	"strings"
)

// Mode selects which database the backend agent queries.
type Mode string

const (
	ModeMongo Mode = "mongo"
	ModeSQL   Mode = "sql"
)

// ParseMode accepts "mongo" or "sql" in any case.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeMongo:
		return ModeMongo, nil
	case ModeSQL:
		return ModeSQL, nil
	default:
		return "", fmt.Errorf("invalid mode %q: use %q or %q", raw, ModeMongo, ModeSQL)
	}
}

// Toggle flips between the two modes.
func (m Mode) Toggle() Mode {
	if m == ModeSQL {
		return ModeMongo
	}
	return ModeSQL
}
