package managers

import (
	"errors"

	"dialogue-tutor/work-flows/models"
)

var (
	ErrBusy           = errors.New("another exchange is in flight")
	ErrEmptyInput     = errors.New("response is empty")
	ErrNotStarted     = errors.New("dialogue has not been started")
	ErrReviewTooEarly = errors.New("review needs at least one full exchange")
	ErrReviewDisabled = errors.New("end-of-session review is not enabled")
	ErrScenarioLocked = errors.New("scenario cannot change once the dialogue has started")
	ErrStaleExchange  = errors.New("exchange result superseded by a newer action")
)

type Phase int

const (
	PhaseUnstarted Phase = iota
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	default:
		return "unstarted"
	}
}

type ExchangeKind int

const (
	ExchangeNone ExchangeKind = iota
	ExchangeStart
	ExchangeRespond
	ExchangeReview
)

func (k ExchangeKind) String() string {
	switch k {
	case ExchangeStart:
		return "start-dialogue"
	case ExchangeRespond:
		return "respond"
	case ExchangeReview:
		return "review"
	default:
		return "none"
	}
}

// exchange identifies the single outstanding request. Only a completion
// carrying the current token may change state.
type exchange struct {
	kind  ExchangeKind
	token uint64
}

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	SessionID    string
	Scenario     models.Scenario
	Phase        Phase
	InFlight     ExchangeKind
	Turns        []models.Turn
	Display      models.DisplayOptions
	Capabilities models.Capabilities
	Input        string
	Review       *models.Review
}

func (s Snapshot) Started() bool {
	return s.Phase == PhaseActive
}

func (s Snapshot) Pending() bool {
	return s.InFlight != ExchangeNone
}

func (s Snapshot) Reviewing() bool {
	return s.Review != nil
}

// State names the position in the Unstarted / Active / AwaitingResponse machine.
func (s Snapshot) State() string {
	if s.Pending() {
		return "awaiting_response"
	}
	return s.Phase.String()
}
