// Package daemon provides the protocol, client and server for controlling
// the recorder daemon over a Unix socket using NDJSON.
package daemon

// Command names.
const (
	CmdStatus    = "status"
	CmdStart     = "start"
	CmdPause     = "pause"
	CmdResume    = "resume"
	CmdStop      = "stop"
	CmdSubscribe = "subscribe"
)

// Event names.
const (
	EventTick   = "tick"
	EventStatus = "status"
	EventSaved  = "saved"
	EventError  = "error"
)

// Command is sent from a client to the daemon.
type Command struct {
	Cmd        string   `json:"cmd"`
	CustomerID string   `json:"customerId,omitempty"`
	Events     []string `json:"events,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK           bool   `json:"ok"`
	State        string `json:"state,omitempty"`
	CustomerID   string `json:"customerId,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	DurationMs   *int64 `json:"durationMs,omitempty"`
	Recording    *bool  `json:"recording,omitempty"`
	Paused       *bool  `json:"paused,omitempty"`
	RecordingID  string `json:"recordingId,omitempty"`
	AudioURI     string `json:"audioUri,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event        string `json:"event"`
	State        string `json:"state,omitempty"`
	CustomerID   string `json:"customerId,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	DurationMs   *int64 `json:"durationMs,omitempty"`
	Recording    *bool  `json:"recording,omitempty"`
	Paused       *bool  `json:"paused,omitempty"`
	RecordingID  string `json:"recordingId,omitempty"`
	Message      string `json:"message,omitempty"`
	Transient    *bool  `json:"transient,omitempty"`
}

// BoolPtr returns a pointer to a bool value. Convenience for building messages.
func BoolPtr(b bool) *bool { return &b }

// Int64Ptr returns a pointer to an int64 value.
func Int64Ptr(n int64) *int64 { return &n }
