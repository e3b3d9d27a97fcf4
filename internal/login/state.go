package login

import "fmt"

// State is a step of the callback state machine
type State int

const (
	StateStart State = iota
	StateExchanging
	StateProfileFetching
	StateCheckingExistence
	StateRegistering
	StateIssuing
	StateRendering
	StateDone
)

var stateNames = map[State]string{
	StateStart:             "start",
	StateExchanging:        "exchanging",
	StateProfileFetching:   "profile_fetching",
	StateCheckingExistence: "checking_existence",
	StateRegistering:       "registering",
	StateIssuing:           "issuing",
	StateRendering:         "rendering",
	StateDone:              "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is the page a successful callback renders
type Outcome int

const (
	// OutcomeWelcome is a new or freshly registered user
	OutcomeWelcome Outcome = iota + 1
	// OutcomeWelcomeBack is a user the directory already knew
	OutcomeWelcomeBack
	// OutcomeUnknownStatus is a login whose registration got an unexpected answer
	OutcomeUnknownStatus
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWelcome:
		return "welcome"
	case OutcomeWelcomeBack:
		return "welcome_back"
	case OutcomeUnknownStatus:
		return "unknown_status"
	default:
		return "invalid"
	}
}

// CallbackError aborts a callback. The step that failed is kept for logs;
// clients only ever see a generic server error.
type CallbackError struct {
	State State
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("login callback failed while %s: %v", e.State, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
