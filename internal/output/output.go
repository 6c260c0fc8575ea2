// Package output renders human-readable CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/skydreamer0/VOICEAPP/internal/customer"
	"github.com/skydreamer0/VOICEAPP/internal/recording"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

func (f *Formatter) Header(title string) {
	fmt.Fprintf(f.w, "%s\n\n", headerStyle.Render(title))
}

func (f *Formatter) CustomerListHeader(n int) {
	f.Header(fmt.Sprintf("👥 Customers (%d):", n))
}

func (f *Formatter) CustomerItem(c customer.Customer) {
	dist := ""
	if c.Distance != nil {
		dist = fmt.Sprintf(" %s", FormatDistance(*c.Distance))
	}
	fmt.Fprintf(f.w, "  %s  %s%s  %s\n", dimStyle.Render(c.ID), c.Name, dist, dimStyle.Render(c.Address))
}

func (f *Formatter) CustomerDetail(c customer.Customer) {
	f.field("ID", c.ID)
	f.field("Name", c.Name)
	f.field("Address", c.Address)
	f.field("Phone", c.Phone)
	f.field("Location", fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude))
	if c.Distance != nil {
		f.field("Distance", FormatDistance(*c.Distance))
	}
}

func (f *Formatter) RecordingListHeader(n int) {
	f.Header(fmt.Sprintf("🎙️  Recordings (%d):", n))
}

func (f *Formatter) RecordingItem(r recording.Recording) {
	marker := ""
	if r.IsWebRecording {
		marker = " 🌐"
	}
	fmt.Fprintf(f.w, "  %s  %s  %s  %s%s\n",
		dimStyle.Render(r.ID),
		r.CreatedAt.Local().Format("2006-01-02 15:04"),
		FormatDuration(r.Length()),
		r.CustomerName,
		marker)
}

func (f *Formatter) RecordingDetail(r recording.Recording) {
	f.field("ID", r.ID)
	f.field("Customer", fmt.Sprintf("%s (%s)", r.CustomerName, r.CustomerID))
	f.field("Clinic", r.ClinicName)
	f.field("Phone", r.PhoneNumber)
	if r.Location != nil {
		f.field("Location", r.Location.String())
	}
	f.field("Created", r.CreatedAt.Local().Format(time.RFC3339))
	f.field("Duration", FormatDuration(r.Length()))
	f.field("Type", r.MimeType)
	if r.FileSize > 0 {
		f.field("Size", FormatBytes(r.FileSize))
	}
	f.field("Audio", Abbreviate(r.AudioURI, 80))
	if r.Checksum != "" {
		f.field("Checksum", r.Checksum)
	}
	if r.Transcription != "" {
		f.field("Transcription", r.Transcription)
	}
}

// KeyValue prints one aligned key/value line, even for an empty value.
func (f *Formatter) KeyValue(key string, value any) {
	fmt.Fprintf(f.w, "  %-22s %v\n", key+":", value)
}

func (f *Formatter) field(name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(f.w, "  %-14s %s\n", name+":", value)
}

func (f *Formatter) SessionStatus(state, customerName string, duration time.Duration) {
	icon := "⏹️ "
	switch state {
	case "recording":
		icon = "🔴"
	case "paused":
		icon = "⏸️ "
	}
	line := fmt.Sprintf("%s %s", icon, state)
	if customerName != "" {
		line += fmt.Sprintf(" · %s · %s", customerName, FormatDuration(duration))
	}
	fmt.Fprintln(f.w, line)
}

func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatDistance renders km below 1 as metres.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%.0fm", km*1000)
	}
	return fmt.Sprintf("%.1fkm", km)
}

func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Abbreviate shortens s to at most n runes, marking the cut with "…".
func Abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
