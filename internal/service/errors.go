package service

import "fmt"

// ValidationError rejects a malformed or out-of-turn request. Nothing is
// mutated; the message is surfaced verbatim to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ResourceError rejects an action the combatant cannot pay for. The message
// carries the specific shortfall so callers see need vs have, or the turns
// remaining on a cooldown.
type ResourceError struct {
	Reason            string
	Need              int
	Have              int
	CooldownRemaining int
}

func (e *ResourceError) Error() string {
	switch {
	case e.CooldownRemaining > 0:
		return fmt.Sprintf("%s: %d turns remaining", e.Reason, e.CooldownRemaining)
	case e.Need > 0:
		return fmt.Sprintf("%s: need %d, have %d", e.Reason, e.Need, e.Have)
	default:
		return e.Reason
	}
}

// NotFoundError marks an unknown battle or character.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
