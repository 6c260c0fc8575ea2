// Package session drives one recording at a time through
// idle -> recording <-> paused -> stopped.
package session

import "errors"

// State is the recorder session state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Active reports whether a recording is in progress (recording or paused).
func (s State) Active() bool {
	return s == StateRecording || s == StatePaused
}

// ParseState is the inverse of String.
func ParseState(s string) State {
	switch s {
	case "recording":
		return StateRecording
	case "paused":
		return StatePaused
	case "stopped":
		return StateStopped
	default:
		return StateIdle
	}
}

var (
	ErrNoCustomer   = errors.New("no customer selected")
	ErrActive       = errors.New("a recording is already in progress")
	ErrNotRecording = errors.New("not recording")
	ErrNotPaused    = errors.New("not paused")
	ErrNotActive    = errors.New("no recording in progress")
)
