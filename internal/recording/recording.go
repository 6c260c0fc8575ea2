// Package recording manages persisted voice memos and their filtering.
package recording

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skydreamer0/VOICEAPP/internal/geo"
)

// MIME types written by the recorders.
const (
	MimeM4A  = "audio/m4a"
	MimeWebM = "audio/webm"
)

var (
	ErrNotFound = errors.New("recording not found")
	ErrInvalid  = errors.New("invalid recording")
)

// Recording is one captured memo and its metadata. Duration is in
// milliseconds.
type Recording struct {
	ID             string      `json:"id"`
	AudioURI       string      `json:"audioUri"`
	CustomerID     string      `json:"customerId"`
	CustomerName   string      `json:"customerName"`
	ClinicName     string      `json:"clinicName,omitempty"`
	PhoneNumber    string      `json:"phoneNumber,omitempty"`
	Location       *geo.Coords `json:"location,omitempty"`
	CreatedAt      Timestamp   `json:"createdAt"`
	Duration       int64       `json:"duration"`
	IsWebRecording bool        `json:"isWebRecording"`
	MimeType       string      `json:"mimeType"`
	FileSize       int64       `json:"fileSize,omitempty"`
	Checksum       string      `json:"checksum,omitempty"`
	Transcription  string      `json:"transcription,omitempty"`
}

// Length returns the recorded duration.
func (r Recording) Length() time.Duration {
	return time.Duration(r.Duration) * time.Millisecond
}

// Validate checks the fields every stored recording must have.
func (r Recording) Validate() error {
	var missing []string
	if r.ID == "" {
		missing = append(missing, "id")
	}
	if r.AudioURI == "" {
		missing = append(missing, "audioUri")
	}
	if r.CustomerID == "" {
		missing = append(missing, "customerId")
	}
	if r.CustomerName == "" {
		missing = append(missing, "customerName")
	}
	if r.CreatedAt.IsZero() {
		missing = append(missing, "createdAt")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	if r.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalid)
	}
	return nil
}

// IsDataURI reports whether the audio is embedded in the URI.
func (r Recording) IsDataURI() bool {
	return strings.HasPrefix(r.AudioURI, "data:")
}

// DecodeAudio returns the media type and bytes embedded in a base64 data
// URI.
func (r Recording) DecodeAudio() (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(r.AudioURI, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: audio is not embedded", ErrInvalid)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("%w: malformed data uri", ErrInvalid)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}

// FilePath returns the local path behind AudioURI, or "" when the audio
// does not live in a file.
func (r Recording) FilePath() string {
	uri := r.AudioURI
	switch {
	case strings.HasPrefix(uri, "data:"), strings.HasPrefix(uri, "blob:"):
		return ""
	case strings.HasPrefix(uri, "file://"):
		return strings.TrimPrefix(uri, "file://")
	}
	return uri
}

// Patch holds the fields Update may change. Nil fields are left alone.
type Patch struct {
	ClinicName    *string
	PhoneNumber   *string
	Transcription *string
	CustomerName  *string
}

func (p Patch) apply(r *Recording) {
	if p.ClinicName != nil {
		r.ClinicName = *p.ClinicName
	}
	if p.PhoneNumber != nil {
		r.PhoneNumber = *p.PhoneNumber
	}
	if p.Transcription != nil {
		r.Transcription = *p.Transcription
	}
	if p.CustomerName != nil && *p.CustomerName != "" {
		r.CustomerName = *p.CustomerName
	}
}
