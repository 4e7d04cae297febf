package model

import "github.com/jackc/pgtype"

// WorkoutRow is a row in the remote workouts table. Column names are the
// backend's snake_case schema, which the hosted REST API also uses as
// JSON keys, so the same struct serves the direct-Postgres store and the
// REST store.
type WorkoutRow struct {
	ID             string   `gorm:"primaryKey" json:"id"`
	UserID         string   `gorm:"index" json:"user_id"`
	Date           string   `json:"date"`
	Type           string   `json:"type"`
	Zone           string   `json:"zone"`
	DurationMin    int      `json:"duration_min"`
	WattsAvg       *float64 `json:"watts_avg,omitempty"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	HeartRate      *int     `json:"heart_rate,omitempty"`
	Calories       *int     `json:"calories,omitempty"`
	InclinePercent *float64 `json:"incline_percent,omitempty"`
	Tempo          string   `json:"tempo,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
	BodyWeightKg   *float64 `json:"body_weight_kg,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

func (WorkoutRow) TableName() string { return "workouts" }

// ProfileRow is a row in the remote profiles table. WorkoutTypes is a
// JSONB array of custom type labels.
type ProfileRow struct {
	UserID       string       `gorm:"primaryKey"`
	BodyWeightKg *float64
	WorkoutTypes pgtype.JSONB `gorm:"type:jsonb;default:'[]'"`
}

func (ProfileRow) TableName() string { return "profiles" }

// RowFromWorkout maps a domain record onto its remote row, scoped to the
// owning user.
func RowFromWorkout(userID string, w WorkoutLog) WorkoutRow {
	return WorkoutRow{
		ID:             w.ID,
		UserID:         userID,
		Date:           w.Date,
		Type:           w.Type,
		Zone:           w.Zone,
		DurationMin:    w.DurationMinutes,
		WattsAvg:       w.Watts,
		DistanceKm:     w.DistanceKm,
		HeartRate:      w.HeartRate,
		Calories:       w.Calories,
		InclinePercent: w.Incline,
		Tempo:          w.Tempo,
		Speed:          w.Speed,
		BodyWeightKg:   w.BodyWeightKg,
		Notes:          w.Notes,
	}
}

// Workout maps the row back to the domain record.
func (r WorkoutRow) Workout() WorkoutLog {
	return WorkoutLog{
		ID:              r.ID,
		Date:            r.Date,
		Type:            r.Type,
		Zone:            r.Zone,
		DurationMinutes: r.DurationMin,
		Watts:           r.WattsAvg,
		DistanceKm:      r.DistanceKm,
		HeartRate:       r.HeartRate,
		Calories:        r.Calories,
		Incline:         r.InclinePercent,
		Tempo:           r.Tempo,
		Speed:           r.Speed,
		BodyWeightKg:    r.BodyWeightKg,
		Notes:           r.Notes,
	}
}

// RowFromSettings maps settings onto a profile row.
func RowFromSettings(userID string, s UserSettings) (ProfileRow, error) {
	row := ProfileRow{UserID: userID, BodyWeightKg: s.BodyWeightKg}
	types := s.WorkoutTypes
	if types == nil {
		types = []string{}
	}
	if err := row.WorkoutTypes.Set(types); err != nil {
		return ProfileRow{}, err
	}
	return row, nil
}

// Settings maps the profile row back to settings.
func (r ProfileRow) Settings() (UserSettings, error) {
	s := UserSettings{BodyWeightKg: r.BodyWeightKg}
	if r.WorkoutTypes.Status == pgtype.Present {
		if err := r.WorkoutTypes.AssignTo(&s.WorkoutTypes); err != nil {
			return s, err
		}
	}
	return s, nil
}
