package media

import (
	"fmt"
	"strings"
)

// Mode selects how the codec backend is driven. The harness call blocks in
// both modes; only the backend's internal scheduling differs.
type Mode int

const (
	ModeSync  Mode = iota // Blocking input/output calls on the caller.
	ModeAsync             // Callback-driven input and output queues.
)

// AllModes lists the modes in fan-out order.
var AllModes = []Mode{ModeAsync, ModeSync}

func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "sync" or "async" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync":
		return ModeSync, nil
	case "async":
		return ModeAsync, nil
	}
	return 0, fmt.Errorf("invalid mode %q (use sync or async)", s)
}
