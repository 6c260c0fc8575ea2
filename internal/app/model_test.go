package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/daemon"
	"github.com/skydreamer0/VOICEAPP/internal/geo"
	"github.com/skydreamer0/VOICEAPP/internal/location"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
	"github.com/skydreamer0/VOICEAPP/internal/session"
)

type fakeCustomers []customer.Customer

func (f fakeCustomers) List(context.Context) ([]customer.Customer, error) {
	return append([]customer.Customer(nil), f...), nil
}

type fakeRecordings map[string][]recording.Recording

func (f fakeRecordings) ForCustomer(_ context.Context, id string) ([]recording.Recording, error) {
	return f[id], nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func applyUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func withCustomers(m Model, names ...string) Model {
	for i, n := range names {
		m.customers = append(m.customers, customer.Customer{ID: fmt.Sprint(i + 1), Name: n})
	}
	return m
}

func TestNewModel(t *testing.T) {
	m := NewModel(Options{SocketPath: "/tmp/x.sock"})
	if m.connected {
		t.Error("new model should not be connected")
	}
	if m.state != session.StateIdle {
		t.Errorf("state = %v, want idle", m.state)
	}
	if m.focusedPanel != FocusCustomers {
		t.Error("new model should focus customers")
	}
	if m.opts.SocketPath != "/tmp/x.sock" {
		t.Errorf("socket = %q", m.opts.SocketPath)
	}
}

func TestDaemonConnectError(t *testing.T) {
	m := NewModel(Options{})
	m, cmd := applyUpdate(m, DaemonConnectErrorMsg{Err: fmt.Errorf("connection refused")})

	if m.connected {
		t.Error("should not be connected after error")
	}
	if !m.reconnecting {
		t.Error("should be reconnecting after connect error")
	}
	if cmd == nil {
		t.Error("expected a reconnect command")
	}

	m, _ = applyUpdate(m, ReconnectTickMsg{})
	if m.reconnectAttempt != 1 {
		t.Errorf("reconnectAttempt = %d, want 1", m.reconnectAttempt)
	}
}

func TestStatusResponse(t *testing.T) {
	m := NewModel(Options{})
	m.connected = true

	m, _ = applyUpdate(m, StatusResponseMsg{Response: daemon.Response{
		OK:           true,
		State:        "recording",
		CustomerID:   "c1",
		CustomerName: "Alice",
		DurationMs:   daemon.Int64Ptr(65000),
	}})

	if m.state != session.StateRecording {
		t.Errorf("state = %v, want recording", m.state)
	}
	if m.customerName != "Alice" {
		t.Errorf("customerName = %q, want Alice", m.customerName)
	}
	if m.duration != 65*time.Second {
		t.Errorf("duration = %v, want 1m5s", m.duration)
	}
}

func TestCommandResponseError(t *testing.T) {
	m := NewModel(Options{})
	m, cmd := applyUpdate(m, CommandResponseMsg{Cmd: daemon.CmdStart, Response: daemon.Response{Error: "no customer selected"}})

	if m.errorMessage != "no customer selected" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
	if !m.errorTransient || cmd == nil {
		t.Error("command errors should be transient")
	}

	m, _ = applyUpdate(m, ClearTransientErrorMsg{})
	if m.errorMessage != "" {
		t.Errorf("error not cleared: %q", m.errorMessage)
	}
}

func TestPersistentErrorSurvivesClear(t *testing.T) {
	m := NewModel(Options{})
	m.handleEvent(daemon.Event{Event: daemon.EventError, Message: "disk full", Transient: daemon.BoolPtr(false)})
	m, _ = applyUpdate(m, ClearTransientErrorMsg{})
	if m.errorMessage != "disk full" {
		t.Errorf("errorMessage = %q, want disk full", m.errorMessage)
	}
}

func TestStatusAndTickEvents(t *testing.T) {
	m := NewModel(Options{})
	m.handleEvent(daemon.Event{Event: daemon.EventStatus, State: "paused", CustomerID: "c1", CustomerName: "Bob", DurationMs: daemon.Int64Ptr(1000)})
	if m.state != session.StatePaused || m.customerName != "Bob" {
		t.Fatalf("got state %v customer %q", m.state, m.customerName)
	}

	m.handleEvent(daemon.Event{Event: daemon.EventTick, DurationMs: daemon.Int64Ptr(2500)})
	if m.duration != 2500*time.Millisecond {
		t.Errorf("duration = %v, want 2.5s", m.duration)
	}

	m.handleEvent(daemon.Event{Event: daemon.EventStatus, State: "idle"})
	if m.state.Active() || m.customerName != "" {
		t.Errorf("got state %v customer %q after idle", m.state, m.customerName)
	}
}

func TestSavedEventReloadsSelectedCustomer(t *testing.T) {
	recs := fakeRecordings{"1": {{ID: "r1", CustomerID: "1"}}}
	m := withCustomers(NewModel(Options{Recordings: recs}), "Alice", "Bob")

	if cmd := m.handleEvent(daemon.Event{Event: daemon.EventSaved, RecordingID: "r9", CustomerID: "2"}); cmd != nil {
		t.Error("saved event for another customer should not reload")
	}

	cmd := m.handleEvent(daemon.Event{Event: daemon.EventSaved, RecordingID: "r1", CustomerID: "1"})
	if cmd == nil {
		t.Fatal("expected reload command")
	}
	m, _ = applyUpdate(m, cmd())
	if len(m.recordings) != 1 || m.recordings[0].ID != "r1" {
		t.Errorf("recordings = %+v", m.recordings)
	}
}

func TestCustomersLoaded(t *testing.T) {
	cs := fakeCustomers{
		{ID: "far", Name: "Far", Latitude: 25.1, Longitude: 121.5},
		{ID: "near", Name: "Near", Latitude: 25.0331, Longitude: 121.5654},
	}
	opts := Options{Customers: cs, Location: location.Fixed(geo.Coords{Latitude: 25.033, Longitude: 121.5654})}
	m := NewModel(opts)

	m, _ = applyUpdate(m, loadCustomersCmd(opts)())
	if !m.located {
		t.Error("expected located")
	}
	if len(m.customers) != 2 || m.customers[0].ID != "near" {
		t.Fatalf("customers = %+v, want near first", m.customers)
	}
	if m.customers[0].Distance == nil {
		t.Error("expected distance set")
	}

	m.selectedCustomer = 1
	m, _ = applyUpdate(m, CustomersLoadedMsg{Customers: []customer.Customer{cs[0], cs[1]}})
	if m.selectedCustomerID() != "far" {
		t.Errorf("selection = %q, want far kept across reload", m.selectedCustomerID())
	}
}

func TestCustomersLoadedError(t *testing.T) {
	m := NewModel(Options{})
	m, _ = applyUpdate(m, CustomersLoadedMsg{Err: errors.New("locked")})
	if m.errorMessage != "locked" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestRecordingsLoadedIgnoresStale(t *testing.T) {
	m := withCustomers(NewModel(Options{}), "Alice", "Bob")
	m, _ = applyUpdate(m, RecordingsLoadedMsg{CustomerID: "2", Recordings: []recording.Recording{{ID: "x"}}})
	if len(m.recordings) != 0 {
		t.Errorf("stale recordings applied: %+v", m.recordings)
	}
}

func TestNavigation(t *testing.T) {
	recs := fakeRecordings{
		"2": {{ID: "a"}, {ID: "b"}},
	}
	m := withCustomers(NewModel(Options{Recordings: recs}), "Alice", "Bob")

	m, cmd := applyUpdate(m, key("j"))
	if m.selectedCustomer != 1 {
		t.Fatalf("selectedCustomer = %d, want 1", m.selectedCustomer)
	}
	m, _ = applyUpdate(m, cmd())

	m, _ = applyUpdate(m, key("j"))
	if m.selectedCustomer != 1 {
		t.Errorf("selection moved past the end: %d", m.selectedCustomer)
	}

	m, _ = applyUpdate(m, key("tab"))
	if m.focusedPanel != FocusRecordings {
		t.Fatal("tab should focus recordings")
	}
	m, _ = applyUpdate(m, key("j"))
	if m.selectedRecording != 1 {
		t.Errorf("selectedRecording = %d, want 1", m.selectedRecording)
	}
	m, _ = applyUpdate(m, key("k"))
	m, _ = applyUpdate(m, key("k"))
	if m.selectedRecording != 0 {
		t.Errorf("selectedRecording = %d, want 0", m.selectedRecording)
	}

	m, _ = applyUpdate(m, key("tab"))
	m, cmd = applyUpdate(m, key("k"))
	if m.selectedCustomer != 0 || m.recordings != nil {
		t.Errorf("got customer %d recordings %v, want 0 and cleared", m.selectedCustomer, m.recordings)
	}
	if cmd == nil {
		t.Error("expected recordings reload")
	}
}

func TestRecordRequiresCustomer(t *testing.T) {
	m := NewModel(Options{})
	m.connected = true

	m, _ = applyUpdate(m, key("r"))
	if m.errorMessage == "" {
		t.Error("expected an error without a selected customer")
	}
}

func TestKeysIgnoredWhileDisconnected(t *testing.T) {
	m := withCustomers(NewModel(Options{}), "Alice")
	for _, k := range []string{"r", " ", "p", "s"} {
		if _, cmd := applyUpdate(m, key(k)); cmd != nil {
			t.Errorf("key %q returned a command while disconnected", k)
		}
	}
}

func TestPauseAndStopIgnoredWhenIdle(t *testing.T) {
	m := withCustomers(NewModel(Options{}), "Alice")
	m.connected = true
	for _, k := range []string{"p", "s"} {
		if _, cmd := applyUpdate(m, key(k)); cmd != nil {
			t.Errorf("key %q returned a command while idle", k)
		}
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(Options{})
	_, cmd := applyUpdate(m, key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestView(t *testing.T) {
	m := NewModel(Options{})
	if m.View() != "Initializing..." {
		t.Errorf("view before size = %q", m.View())
	}

	m = withCustomers(m, "Alice")
	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 100, Height: 24})
	view := m.View()
	for _, want := range []string{"VOICEAPP", "IDLE", "CUSTOMERS (1)", "Alice", "Quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m.connected = true
	m.state = session.StateRecording
	m.customerID = "1"
	m.customerName = "Alice"
	m.duration = 83 * time.Second
	m.errorMessage = "boom"
	view = m.View()
	for _, want := range []string{"REC", "1m23s", "Pause", "Error: ", "boom"} {
		if !strings.Contains(view, want) {
			t.Errorf("recording view missing %q", want)
		}
	}
}

func TestScrollWindow(t *testing.T) {
	lines := []string{"h", "a", "b", "c", "d", "e"}

	got := scrollWindow(append([]string(nil), lines...), 5, 3)
	if strings.Join(got, ",") != "h,d,e" {
		t.Errorf("got %v, want h,d,e", got)
	}
	got = scrollWindow([]string{"h", "a"}, 1, 4)
	if len(got) != 4 {
		t.Errorf("len = %d, want padded to 4", len(got))
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("got %q", got)
	}
	if got := truncateToWidth("abcdef", 4); got != "abc…" {
		t.Errorf("got %q", got)
	}
}
