package services

import "fmt"

// Receipt lifecycle statuses.
const (
	StatusDraft             = "draft"
	StatusEmployeeSubmitted = "employee_submitted"
	StatusFounderConfirmed  = "founder_confirmed"
	StatusPostedToInventory = "posted_to_inventory"
	StatusCancelled         = "cancelled"
)

// validTransitions is the single source of truth for the receipt state
// machine. posted_to_inventory and cancelled are terminal.
var validTransitions = map[string][]string{
	StatusDraft:             {StatusEmployeeSubmitted, StatusCancelled},
	StatusEmployeeSubmitted: {StatusFounderConfirmed, StatusCancelled},
	StatusFounderConfirmed:  {StatusPostedToInventory},
	StatusPostedToInventory: {},
	StatusCancelled:         {},
}

// InvalidTransitionError reports a receipt transition the state machine does
// not allow. Controllers map it to a 400 response.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("receipt cannot move from %s to %s", e.From, e.To)
}

// IsValidStatus reports whether s is a known receipt status.
func IsValidStatus(s string) bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminalStatus reports whether no further transition is allowed from s.
func IsTerminalStatus(s string) bool {
	next, ok := validTransitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an InvalidTransitionError when the move is illegal.
func CheckTransition(from, to string) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
