// Package report exports recordings to spreadsheets.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/skydreamer0/VOICEAPP/internal/recording"
)

// SheetName is the name of the exported worksheet.
const SheetName = "Recordings"

var headers = []string{
	"ID", "Customer", "Customer ID", "Clinic", "Phone",
	"Latitude", "Longitude", "Created", "Duration (s)", "Type", "Size (bytes)", "Audio", "Transcription",
}

// Headers returns the column titles of the exported sheet.
func Headers() []string {
	return append([]string(nil), headers...)
}

// Row renders r as the cell values of one sheet row.
func Row(r recording.Recording) []any {
	var lat, lon any
	if r.Location != nil {
		lat, lon = r.Location.Latitude, r.Location.Longitude
	}
	audio := r.AudioURI
	if r.IsDataURI() {
		audio = "(embedded)"
	}
	return []any{
		r.ID,
		r.CustomerName,
		r.CustomerID,
		r.ClinicName,
		r.PhoneNumber,
		lat,
		lon,
		r.CreatedAt.String(),
		r.Length().Seconds(),
		r.MimeType,
		r.FileSize,
		audio,
		r.Transcription,
	}
}

// WriteXLSX writes one header row and one row per recording to path,
// replacing any existing file.
func WriteXLSX(path string, recordings []recording.Recording) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, r := range recordings {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := Row(r)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
