package dispatch

import (
	"fmt"
	"strings"
)

// Mode controls how the caller reacts to a mismatch.
type Mode string

const (
	// ModeStrict blocks mismatched dispatches.
	ModeStrict Mode = "strict"

	// ModeWarning allows mismatched dispatches and records a warning.
	ModeWarning Mode = "warning"
)

// ParseMode accepts strict or warning (case-insensitive). Empty means strict.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeStrict):
		return ModeStrict, nil
	case string(ModeWarning), "warn":
		return ModeWarning, nil
	}
	return "", fmt.Errorf("unknown dispatch mode %q (use strict or warning)", s)
}
