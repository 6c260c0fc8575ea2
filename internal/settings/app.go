package settings

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// App holds the application preferences. Fields missing from the stored
// blob keep their defaults.
type App struct {
	DefaultClinicName    string  `json:"defaultClinicName"`
	DefaultPhoneNumber   string  `json:"defaultPhoneNumber"`
	DefaultLatitude      float64 `json:"defaultLatitude"`
	DefaultLongitude     float64 `json:"defaultLongitude"`
	RecordingQuality     Quality `json:"recordingQuality"`
	MaxRecordingDuration int     `json:"maxRecordingDuration"` // minutes
	AutoStopRecording    bool    `json:"autoStopRecording"`
	AutoSaveEnabled      bool    `json:"autoSaveEnabled"`
	SaveLocation         string  `json:"saveLocation"`
	FileNamingPattern    string  `json:"fileNamingPattern"`
	DarkMode             bool    `json:"darkMode"`
	Language             string  `json:"language"`
	FontSize             string  `json:"fontSize"`
	NotificationsEnabled bool    `json:"notificationsEnabled"`
	SoundEnabled         bool    `json:"soundEnabled"`
	VibrationEnabled     bool    `json:"vibrationEnabled"`
	AutoBackupEnabled    bool    `json:"autoBackupEnabled"`
	BackupFrequency      string  `json:"backupFrequency"`
	KeepRecordingDays    int     `json:"keepRecordingDays"`
}

// DefaultApp returns the built-in preferences.
func DefaultApp() App {
	return App{
		DefaultLatitude:      25.0330,
		DefaultLongitude:     121.5654,
		RecordingQuality:     QualityHigh,
		MaxRecordingDuration: 60,
		AutoSaveEnabled:      true,
		SaveLocation:         "recordings",
		FileNamingPattern:    "{customer}_{clinic}_{phone}_{location}_{timestamp}",
		Language:             "zh-TW",
		FontSize:             "medium",
		NotificationsEnabled: true,
		SoundEnabled:         true,
		VibrationEnabled:     true,
		BackupFrequency:      "weekly",
		KeepRecordingDays:    365,
	}
}

// Validate checks the enumerated and numeric fields.
func (a App) Validate() error {
	if !a.RecordingQuality.Valid() {
		return fmt.Errorf("%w: recordingQuality %q", ErrInvalid, a.RecordingQuality)
	}
	if a.MaxRecordingDuration <= 0 {
		return fmt.Errorf("%w: maxRecordingDuration must be positive", ErrInvalid)
	}
	if a.DefaultLatitude < -90 || a.DefaultLatitude > 90 {
		return fmt.Errorf("%w: defaultLatitude out of range", ErrInvalid)
	}
	if a.DefaultLongitude < -180 || a.DefaultLongitude > 180 {
		return fmt.Errorf("%w: defaultLongitude out of range", ErrInvalid)
	}
	switch a.Language {
	case "zh-TW", "en":
	default:
		return fmt.Errorf("%w: language %q", ErrInvalid, a.Language)
	}
	switch a.BackupFrequency {
	case "daily", "weekly", "monthly":
	default:
		return fmt.Errorf("%w: backupFrequency %q", ErrInvalid, a.BackupFrequency)
	}
	if a.KeepRecordingDays < 0 {
		return fmt.Errorf("%w: keepRecordingDays must not be negative", ErrInvalid)
	}
	return nil
}

// Keys returns the JSON keys of App in sorted order.
func Keys() []string {
	m, _ := toMap(DefaultApp())
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the value stored under the JSON key.
func (a App) Lookup(key string) (any, error) {
	m, err := toMap(a)
	if err != nil {
		return nil, err
	}
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return v, nil
}

// With returns a copy of a with the JSON key set from its text form.
// Booleans and numbers are parsed; anything else is taken as a string.
func (a App) With(key, text string) (App, error) {
	m, err := toMap(a)
	if err != nil {
		return a, err
	}
	current, ok := m[key]
	if !ok {
		return a, fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}

	switch current.(type) {
	case bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return a, fmt.Errorf("%w: %s wants true or false", ErrInvalid, key)
		}
		m[key] = b
	case float64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return a, fmt.Errorf("%w: %s wants a number", ErrInvalid, key)
		}
		m[key] = f
	default:
		m[key] = text
	}

	data, err := json.Marshal(m)
	if err != nil {
		return a, err
	}
	var next App
	if err := json.Unmarshal(data, &next); err != nil {
		return a, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return next, next.Validate()
}

func toMap(a App) (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
