package document

import (
	"encoding/json"
	"fmt"
)

// PreviewState is the per-document preview lifecycle.
type PreviewState int

const (
	NotLoaded PreviewState = iota
	Loading
	Loaded
	Failed
)

var stateNames = map[PreviewState]string{
	NotLoaded: "not_loaded",
	Loading:   "loading",
	Loaded:    "loaded",
	Failed:    "error",
}

func (s PreviewState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("PreviewState(%d)", int(s))
}

// MarshalJSON encodes the state by name.
func (s PreviewState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name.
func (s *PreviewState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for st, n := range stateNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("document: unknown preview state %q", name)
}

// Event drives a preview state transition.
type Event int

const (
	EventLoad Event = iota
	EventSucceed
	EventFail
)

func (e Event) String() string {
	switch e {
	case EventLoad:
		return "load"
	case EventSucceed:
		return "succeed"
	case EventFail:
		return "fail"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// ErrInvalidTransition is returned for an event the current state does not accept.
type ErrInvalidTransition struct {
	From  PreviewState
	Event Event
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("document: invalid transition %s --%s-->", e.From, e.Event)
}

// Transition is the only place preview states change.
//
//	NotLoaded --load--> Loading --succeed--> Loaded
//	                    Loading --fail-----> Error
//	Error --load--> Loading
//
// Loaded is terminal. Load on Loading is accepted so an interrupted load can
// be re-dispatched.
func Transition(from PreviewState, ev Event) (PreviewState, error) {
	switch {
	case ev == EventLoad && (from == NotLoaded || from == Failed || from == Loading):
		return Loading, nil
	case ev == EventSucceed && from == Loading:
		return Loaded, nil
	case ev == EventFail && from == Loading:
		return Failed, nil
	}
	return from, &ErrInvalidTransition{From: from, Event: ev}
}
