package daemon

import (
	"encoding/json"
	"testing"
)

func TestCommandStartWire(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: CmdStart, CustomerID: "1700000000000"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"cmd":"start","customerId":"1700000000000"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestCommandOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: CmdStop})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}

	if _, ok := raw["customerId"]; ok {
		t.Error("stop command should omit customerId")
	}
	if _, ok := raw["events"]; ok {
		t.Error("stop command should omit events")
	}
}

func TestResponseStatus(t *testing.T) {
	j := `{"ok":true,"state":"paused","customerId":"c1","customerName":"Alice","durationMs":12000,"recording":true,"paused":true}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !resp.OK || resp.State != "paused" {
		t.Errorf("ok/state = %v/%q, want true/paused", resp.OK, resp.State)
	}
	if resp.DurationMs == nil || *resp.DurationMs != 12000 {
		t.Errorf("durationMs = %v, want 12000", resp.DurationMs)
	}
	if resp.Paused == nil || !*resp.Paused {
		t.Errorf("paused = %v, want true", resp.Paused)
	}
	if resp.CustomerName != "Alice" {
		t.Errorf("customerName = %q, want %q", resp.CustomerName, "Alice")
	}
}

func TestResponseError(t *testing.T) {
	j := `{"ok":false,"error":"microphone permission denied"}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.OK {
		t.Error("ok = true, want false")
	}
	if resp.Error != "microphone permission denied" {
		t.Errorf("error = %q, want %q", resp.Error, "microphone permission denied")
	}
}

func TestEventTick(t *testing.T) {
	j := `{"event":"tick","durationMs":3000}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.Event != EventTick {
		t.Errorf("event = %q, want %q", ev.Event, EventTick)
	}
	if ev.DurationMs == nil || *ev.DurationMs != 3000 {
		t.Errorf("durationMs = %v, want 3000", ev.DurationMs)
	}
}

func TestEventSaved(t *testing.T) {
	j := `{"event":"saved","recordingId":"9b1d","customerId":"c1"}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.RecordingID != "9b1d" || ev.CustomerID != "c1" {
		t.Errorf("got %+v", ev)
	}
}

func TestEventError(t *testing.T) {
	j := `{"event":"error","message":"no customer selected","transient":true}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.Message != "no customer selected" {
		t.Errorf("message = %q", ev.Message)
	}
	if ev.Transient == nil || !*ev.Transient {
		t.Errorf("transient = %v, want true", ev.Transient)
	}
}

func TestPointerHelpers(t *testing.T) {
	if p := BoolPtr(false); p == nil || *p {
		t.Error("BoolPtr(false) should return pointer to false")
	}
	if p := Int64Ptr(7); p == nil || *p != 7 {
		t.Error("Int64Ptr(7) should return pointer to 7")
	}
}
