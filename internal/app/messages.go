package app

import (
	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/daemon"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
)

// DaemonConnectedMsg is sent when both daemon connections are established.
type DaemonConnectedMsg struct {
	Client   *daemon.Client // for commands
	EvClient *daemon.Client // for event subscription
}

// DaemonConnectErrorMsg is sent when the daemon connection fails.
type DaemonConnectErrorMsg struct {
	Err error
}

// DaemonEventMsg wraps a streamed event from the daemon.
type DaemonEventMsg struct {
	Event daemon.Event
}

// DaemonEventErrorMsg is sent when the event stream encounters an error.
type DaemonEventErrorMsg struct {
	Err error
}

// StatusResponseMsg carries the response to a status command.
type StatusResponseMsg struct {
	Response daemon.Response
}

// CommandResponseMsg carries the response to start, pause, resume or stop.
type CommandResponseMsg struct {
	Cmd      string
	Response daemon.Response
}

// CustomersLoadedMsg carries the customer list sorted by distance from
// Position when a position was available.
type CustomersLoadedMsg struct {
	Customers []customer.Customer
	Position  *geo.Coords
	Err       error
}

// RecordingsLoadedMsg carries the recordings of one customer.
type RecordingsLoadedMsg struct {
	CustomerID string
	Recordings []recording.Recording
	Err        error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}

// ReconnectTickMsg triggers a reconnection attempt.
type ReconnectTickMsg struct{}
