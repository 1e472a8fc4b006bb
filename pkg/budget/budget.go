// Package budget bounds the amount of recursive or iterative work a single
// call may perform. A budget is request-scoped: it is created fresh for every
// top-level operation, decremented per unit of work and never persisted.
package budget

// Budget is a stateful counter of remaining traversal work.
type Budget interface {
	// Consume spends one unit of work. It returns false when the budget is
	// exhausted, in which case the caller must abort with a typed limit error.
	Consume() bool

	// Remaining reports the number of units left.
	Remaining() uint32
}

type limited struct {
	remaining uint32
}

// NewLimited returns a budget allowing up to n units of work.
func NewLimited(n uint32) Budget {
	return &limited{remaining: n}
}

func (l *limited) Consume() bool {
	if l.remaining == 0 {
		return false
	}
	l.remaining--
	return true
}

func (l *limited) Remaining() uint32 {
	return l.remaining
}

type unlimited struct{}

// Unlimited returns a budget that never exhausts. It is meant for internal
// maintenance paths where the work is already bounded by other means.
func Unlimited() Budget {
	return unlimited{}
}

func (unlimited) Consume() bool     { return true }
func (unlimited) Remaining() uint32 { return ^uint32(0) }
