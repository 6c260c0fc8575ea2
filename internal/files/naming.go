// Package files names, stores and manages audio files on disk.
package files

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skydreamer0/VOICEAPP/internal/geo"
)

const (
	UnknownClinic = "unknown-clinic"
	UnknownPhone  = "unknown-phone"
)

const (
	isoLayout = "2006-01-02T15:04:05.000Z"
	fieldSep  = "_"
	coordSep  = ","
)

var illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Sanitize replaces every character that is illegal in file names with '_'.
func Sanitize(s string) string {
	return illegalChars.ReplaceAllString(s, "_")
}

// Defaults supplies fallbacks from the application settings.
type Defaults struct {
	ClinicName  string
	PhoneNumber string
}

// NameInfo is the metadata encoded into a recording's file name.
type NameInfo struct {
	CustomerName string
	ClinicName   string
	PhoneNumber  string
	Location     *geo.Coords
	CreatedAt    time.Time
}

// FileName renders info as
//
//	<customer>_<clinic>_<phone>_<lat>,<lon>_<timestamp>
//
// without an extension. Empty clinic and phone fall back to d and then to
// UnknownClinic / UnknownPhone. A missing location renders as 0,0 and a zero
// CreatedAt as the current time.
func FileName(info NameInfo, d Defaults) string {
	clinic := firstNonEmpty(info.ClinicName, d.ClinicName, UnknownClinic)
	phone := firstNonEmpty(info.PhoneNumber, d.PhoneNumber, UnknownPhone)

	var loc geo.Coords
	if info.Location != nil {
		loc = *info.Location
	}

	created := info.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	return strings.Join([]string{
		Sanitize(info.CustomerName),
		Sanitize(clinic),
		Sanitize(phone),
		formatCoord(loc.Latitude) + coordSep + formatCoord(loc.Longitude),
		fileTimestamp(created),
	}, fieldSep)
}

// ParseFileName recovers the metadata from a name produced by FileName. The
// extension, if any, is ignored. Customer names containing '_' cannot be
// told apart from the clinic, so the first field is taken as the customer
// and the remaining leading fields as the clinic.
func ParseFileName(name string) (NameInfo, error) {
	if i := strings.LastIndex(name, "."); i > 0 && !strings.Contains(name[i:], fieldSep) {
		name = name[:i]
	}
	parts := strings.Split(name, fieldSep)
	if len(parts) < 5 {
		return NameInfo{}, fmt.Errorf("parse file name %q: want 5 fields, got %d", name, len(parts))
	}

	n := len(parts)
	info := NameInfo{
		CustomerName: parts[0],
		ClinicName:   strings.Join(parts[1:n-3], fieldSep),
		PhoneNumber:  parts[n-3],
	}

	loc, err := parseCoords(parts[n-2])
	if err != nil {
		return NameInfo{}, fmt.Errorf("parse file name %q: %w", name, err)
	}
	info.Location = &loc

	created, err := parseFileTimestamp(parts[n-1])
	if err != nil {
		return NameInfo{}, fmt.Errorf("parse file name %q: %w", name, err)
	}
	info.CreatedAt = created

	return info, nil
}

func fileTimestamp(t time.Time) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(t.UTC().Format(isoLayout))
}

// parseFileTimestamp reverses fileTimestamp: 2024-01-01T09-30-00-000Z.
// A collision counter after the Z (2024-01-01T09-30-00-000Z-2) is ignored.
func parseFileTimestamp(s string) (time.Time, error) {
	date, clock, ok := strings.Cut(s, "T")
	if !ok {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	clock, counter, _ := strings.Cut(clock, "Z")
	if counter != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(counter, "-"))
		if !strings.HasPrefix(counter, "-") || err != nil || n < 1 {
			return time.Time{}, fmt.Errorf("bad timestamp %q", s)
		}
	}
	fields := strings.Split(clock, "-")
	if len(fields) != 4 {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	iso := fmt.Sprintf("%sT%s:%s:%s.%sZ", date, fields[0], fields[1], fields[2], fields[3])
	t, err := time.Parse(isoLayout, iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatCoord(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func parseCoords(s string) (geo.Coords, error) {
	latStr, lonStr, ok := strings.Cut(s, coordSep)
	if !ok {
		return geo.Coords{}, fmt.Errorf("bad coordinates %q", s)
	}
	lat, err := decimal.NewFromString(latStr)
	if err != nil {
		return geo.Coords{}, fmt.Errorf("bad latitude %q: %w", latStr, err)
	}
	lon, err := decimal.NewFromString(lonStr)
	if err != nil {
		return geo.Coords{}, fmt.Errorf("bad longitude %q: %w", lonStr, err)
	}
	return geo.Coords{Latitude: lat.InexactFloat64(), Longitude: lon.InexactFloat64()}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
