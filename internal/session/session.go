// Package session implements the session-state gate (spec §4.5): a
// pure function of (hour, minute) classifying the trading calendar into
// CLOSED/PRE/OPEN/POST, plus session-start transition detection.
package session

// State is one of the four session phases.
type State uint8

const (
	Closed State = iota
	Pre
	Open
	Post
)

func (s State) String() string {
	switch s {
	case Pre:
		return "PRE"
	case Open:
		return "OPEN"
	case Post:
		return "POST"
	default:
		return "CLOSED"
	}
}

// Classify is the deterministic (hour, minute) → State function of
// spec §4.5. Seconds are ignored.
func Classify(hour, minute uint8) State {
	switch {
	case isOpen(hour, minute):
		return Open
	case isPost(hour, minute):
		return Post
	case isPre(hour, minute):
		return Pre
	default:
		return Closed
	}
}

func isOpen(h, m uint8) bool {
	return (h == 9 && m >= 30) ||
		h == 10 ||
		(h == 11 && m <= 30) ||
		h == 13 ||
		(h == 14 && m <= 56)
}

func isPost(h, m uint8) bool {
	return (h == 14 && m >= 57) || h == 15
}

func isPre(h, m uint8) bool {
	return h == 9 && m >= 15 && m <= 25
}

// Gate tracks the last-seen (hour, minute) and state so repeated
// updates within the same minute skip recomputation, and so
// IsSessionStart can detect the prev≠OPEN ∧ new=OPEN transition.
type Gate struct {
	haveLast   bool
	lastHour   uint8
	lastMinute uint8
	lastState  State
}

// NewGate builds a Gate with no prior observation. Its state starts
// CLOSED, so a first Update call that lands in OPEN reports a session
// start.
func NewGate() *Gate { return &Gate{} }

// Update classifies (hour, minute), skipping recomputation if it is
// unchanged since the last call, and reports whether this update is the
// prev≠OPEN ∧ new=OPEN transition (spec §4.5's is_session_start).
func (g *Gate) Update(hour, minute uint8) (state State, isSessionStart bool) {
	if g.haveLast && hour == g.lastHour && minute == g.lastMinute {
		return g.lastState, false
	}
	newState := Classify(hour, minute)
	isSessionStart = g.lastState != Open && newState == Open
	g.haveLast = true
	g.lastHour = hour
	g.lastMinute = minute
	g.lastState = newState
	return newState, isSessionStart
}

// State returns the last-computed state, or Closed if Update has never
// been called.
func (g *Gate) State() State { return g.lastState }
