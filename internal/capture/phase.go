package capture

import "errors"

// Phase is the lifecycle state of a capture session.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseScanning
	PhaseProcessing
	PhaseCaptured
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseScanning:
		return "scanning"
	case PhaseProcessing:
		return "processing"
	case PhaseCaptured:
		return "captured"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// ErrWrongPhase is returned by lifecycle calls made in a phase that does not
// allow them.
var ErrWrongPhase = errors.New("capture: operation not allowed in current phase")

// EventType identifies session events.
type EventType int

const (
	// EventPhaseChanged carries the new Phase.
	EventPhaseChanged EventType = iota
	// EventProgress carries the auto-capture progress as a float64 in [0,1].
	EventProgress
	// EventCaptured carries the *Result once finalization completes.
	EventCaptured
)

// EventListener is called when an event occurs. Listeners run on the
// goroutine that drove the session and must not block.
type EventListener func(data interface{})

type event struct {
	kind EventType
	data interface{}
}
