package core

type CallState int

const (
	CallStateUnknown CallState = iota
	CallStateExecuting
	CallStateSucceeded
	CallStateFailed
	CallStateTimedOut
)

func CallStateFromString(s string) CallState {
	switch s {
	case CallStateUnknown.String():
		return CallStateUnknown

	case CallStateExecuting.String():
		return CallStateExecuting

	case CallStateSucceeded.String():
		return CallStateSucceeded
	case CallStateFailed.String():
		return CallStateFailed
	case CallStateTimedOut.String():
		return CallStateTimedOut

	default:
		return CallStateUnknown
	}
}

func (s CallState) String() string {
	switch s {
	case CallStateUnknown:
		return "unknown"

	case CallStateExecuting:
		return "executing"

	case CallStateSucceeded:
		return "succeeded"
	case CallStateFailed:
		return "failed"
	case CallStateTimedOut:
		return "timed_out"

	default:
		return "unknown"
	}
}

// IsFinal reports whether the callback of a call in this state was delivered.
func (s CallState) IsFinal() bool {
	return s == CallStateSucceeded || s == CallStateFailed || s == CallStateTimedOut
}

// status maps a final state to the status code delivered with the result.
func (s CallState) status() StatusCode {
	switch s {
	case CallStateSucceeded:
		return StatusOK
	case CallStateTimedOut:
		return StatusTimeout
	default:
		return StatusError
	}
}
