package scan

import "fmt"

// Status is the shared scan lifecycle for tracks and folders.
type Status int

const (
	// StatusInit is the starting state. A track that was only identified
	// (opened without measurement) also ends here.
	StatusInit Status = iota
	// StatusProcessing marks work in flight.
	StatusProcessing
	// StatusFail is terminal; the failure cause is recorded alongside.
	StatusFail
	// StatusSuccess is terminal; all numeric fields are populated.
	StatusSuccess
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusFail || s == StatusSuccess
}

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusProcessing:
		return "processing"
	case StatusFail:
		return "fail"
	case StatusSuccess:
		return "success"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// advance enforces the Init → Processing → {Fail, Success} machine. The
// only backward edge is Processing → Init, used when a file is opened for
// identification without measurement.
func advance(from, to Status) (Status, error) {
	if from.Terminal() {
		return from, fmt.Errorf("cannot leave terminal state %s", from)
	}
	switch {
	case from == StatusInit && to == StatusProcessing:
	case from == StatusProcessing && (to == StatusFail || to == StatusSuccess || to == StatusInit):
	default:
		return from, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	return to, nil
}
