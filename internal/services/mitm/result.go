package mitm

import (
	"fmt"
	"time"

	"keycrack/internal/cipher"
)

// Outcome is the terminal state of a completed search.
type Outcome int

const (
	NotFound Outcome = iota
	Found
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes a finished search. Key is meaningful only when Outcome
// is Found.
type Result struct {
	Outcome    Outcome
	Key        cipher.Key
	Tried      uint64 // high keys scanned
	Hits       uint64 // index hits verified against all pairs
	Collisions int
	Elapsed    time.Duration
}

func (r Result) Found() bool { return r.Outcome == Found }

// Format renders the result for output, tagged with label.
func (r Result) Format(label string) string {
	if !r.Found() {
		return label + ": no key found"
	}
	return label + ": " + r.Key.String()
}
