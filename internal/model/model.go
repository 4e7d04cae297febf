// Package model defines the workout log domain types shared by the local
// cache, the remote stores and the HTTP handlers.
package model

// Training zones. The app only distinguishes steady aerobic work from
// high-intensity intervals.
const (
	Zone2 = "Zone 2"
	Zone5 = "Zone 5"
)

// DefaultWorkoutTypes are the built-in type labels. Users can add their own
// via settings; the Type field on a WorkoutLog is an open string.
var DefaultWorkoutTypes = []string{"Treadmill", "Cycling", "Other"}

// WorkoutLog is one logged exercise session. ID is client-generated,
// immutable and the sole identity used when merging local and remote
// copies. Optional metrics are pointers: nil means "not recorded", never
// zero and never NaN.
type WorkoutLog struct {
	ID              string   `json:"id"`
	Date            string   `json:"date"` // YYYY-MM-DD
	Type            string   `json:"type"`
	Zone            string   `json:"zone"`
	DurationMinutes int      `json:"durationMinutes"`
	Watts           *float64 `json:"watts,omitempty"`
	DistanceKm      *float64 `json:"distanceKm,omitempty"`
	HeartRate       *int     `json:"heartRate,omitempty"`
	Calories        *int     `json:"calories,omitempty"`
	Incline         *float64 `json:"incline,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Tempo           string   `json:"tempo,omitempty"` // e.g. "7'35\""
	Speed           *float64 `json:"speed,omitempty"` // km/h
	BodyWeightKg    *float64 `json:"bodyWeightKg,omitempty"`
}

// UserSettings is the per-user profile. A nil BodyWeightKg means unset,
// not zero.
type UserSettings struct {
	BodyWeightKg *float64 `json:"bodyWeightKg,omitempty"`
	WorkoutTypes []string `json:"workoutTypes,omitempty"`
}

// SettingsPatch is a partial settings update. Nil fields are left
// untouched by Apply, so a body-weight-only save never drops the custom
// workout types.
type SettingsPatch struct {
	BodyWeightKg *float64
	WorkoutTypes []string
}

// Apply merges the patch over the current settings and returns the result.
func (s UserSettings) Apply(p SettingsPatch) UserSettings {
	if p.BodyWeightKg != nil {
		s.BodyWeightKg = p.BodyWeightKg
	}
	if p.WorkoutTypes != nil {
		s.WorkoutTypes = p.WorkoutTypes
	}
	return s
}

// Session is an authenticated identity. Every remote operation is scoped
// by UserID; AccessToken authenticates against the hosted API.
type Session struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	AccessToken string `json:"-"`
}
