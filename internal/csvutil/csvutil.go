// Package csvutil converts the workout list to and from the CSV
// interchange format. Column names match the remote schema so an export
// round-trips through a spreadsheet and back.
package csvutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/aerobiclabs/aerolog/internal/model"
)

var header = []string{
	"id",
	"date",
	"type",
	"zone",
	"duration_min",
	"watts_avg",
	"distance_km",
	"heart_rate",
	"calories",
	"incline_percent",
	"body_weight_kg",
	"notes",
}

// NewImportID generates an id for an imported row that arrived without
// one: millisecond timestamp plus a random suffix.
func NewImportID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// Export writes the workout list as CSV.
func Export(ws []model.WorkoutLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	for _, wo := range ws {
		record := []string{
			wo.ID,
			wo.Date,
			wo.Type,
			wo.Zone,
			strconv.Itoa(wo.DurationMinutes),
			formatFloat(wo.Watts),
			formatFloat(wo.DistanceKm),
			formatInt(wo.HeartRate),
			formatInt(wo.Calories),
			formatFloat(wo.Incline),
			formatFloat(wo.BodyWeightKg),
			wo.Notes,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing CSV record %s: %w", wo.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func parseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt(s string) *int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &i
}

// canonicalType matches a label against the known type labels ignoring
// case, returning the canonical spelling on a hit and the input
// unchanged otherwise.
func canonicalType(label string, known []string) string {
	fold := cases.Fold()
	folded := fold.String(label)
	for _, k := range known {
		if fold.String(k) == folded {
			return k
		}
	}
	return label
}

// Import parses CSV rows into workout records. Rows without a date are
// skipped, an unparsable duration defaults to 0, a missing id is
// generated, an unknown zone falls back to Zone 2 and type labels are
// canonicalized against knownTypes (the defaults plus the user's custom
// labels).
func Import(r io.Reader, knownTypes []string) ([]model.WorkoutLog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Map column positions from the header row so exports with
	// reordered or missing optional columns still import.
	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["date"]; !ok {
		return nil, fmt.Errorf("CSV header is missing the date column")
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var ws []model.WorkoutLog
	for _, row := range records[1:] {
		date := field(row, "date")
		if date == "" {
			continue
		}

		duration := 0
		if d := parseInt(field(row, "duration_min")); d != nil && *d >= 0 {
			duration = *d
		}

		zone := field(row, "zone")
		if zone != model.Zone2 && zone != model.Zone5 {
			zone = model.Zone2
		}

		id := field(row, "id")
		if id == "" {
			id = NewImportID()
		}

		ws = append(ws, model.WorkoutLog{
			ID:              id,
			Date:            date,
			Type:            canonicalType(field(row, "type"), knownTypes),
			Zone:            zone,
			DurationMinutes: duration,
			Watts:           parseFloat(field(row, "watts_avg")),
			DistanceKm:      parseFloat(field(row, "distance_km")),
			HeartRate:       parseInt(field(row, "heart_rate")),
			Calories:        parseInt(field(row, "calories")),
			Incline:         parseFloat(field(row, "incline_percent")),
			BodyWeightKg:    parseFloat(field(row, "body_weight_kg")),
			Notes:           field(row, "notes"),
		})
	}

	return ws, nil
}
