// Package workouts implements the workout CRUD and import/export
// endpoints. Input validation lives here, at the presentation boundary;
// the synchronizer trusts what it is handed.
package workouts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aerobiclabs/aerolog/internal/csvutil"
	"github.com/aerobiclabs/aerolog/internal/model"
	"github.com/aerobiclabs/aerolog/internal/sync"
)

type Handler struct {
	sync *sync.Synchronizer
	log  logrus.FieldLogger
}

func NewHandler(s *sync.Synchronizer, log logrus.FieldLogger) *Handler {
	return &Handler{sync: s, log: log}
}

// workoutRequest is the form payload. Duration arrives as whatever the
// form produced; anything unparsable becomes 0.
type workoutRequest struct {
	ID              string          `json:"id"`
	Date            string          `json:"date"`
	Type            string          `json:"type"`
	Zone            string          `json:"zone"`
	DurationMinutes json.RawMessage `json:"durationMinutes"`
	Watts           *float64        `json:"watts"`
	DistanceKm      *float64        `json:"distanceKm"`
	HeartRate       *int            `json:"heartRate"`
	Calories        *int            `json:"calories"`
	Incline         *float64        `json:"incline"`
	Notes           string          `json:"notes"`
	Tempo           string          `json:"tempo"`
	Speed           *float64        `json:"speed"`
	BodyWeightKg    *float64        `json:"bodyWeightKg"`
}

func parseDuration(raw json.RawMessage) int {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	d, err := strconv.Atoi(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func (req *workoutRequest) toWorkout() (model.WorkoutLog, error) {
	if req.Date == "" {
		return model.WorkoutLog{}, fmt.Errorf("date is required")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return model.WorkoutLog{}, fmt.Errorf("date must be YYYY-MM-DD")
	}

	zone := req.Zone
	if zone != model.Zone2 && zone != model.Zone5 {
		zone = model.Zone2
	}

	id := req.ID
	if id == "" {
		// Same shape as the log form: the submit timestamp.
		id = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	return model.WorkoutLog{
		ID:              id,
		Date:            req.Date,
		Type:            req.Type,
		Zone:            zone,
		DurationMinutes: parseDuration(req.DurationMinutes),
		Watts:           req.Watts,
		DistanceKm:      req.DistanceKm,
		HeartRate:       req.HeartRate,
		Calories:        req.Calories,
		Incline:         req.Incline,
		Notes:           req.Notes,
		Tempo:           req.Tempo,
		Speed:           req.Speed,
		BodyWeightKg:    req.BodyWeightKg,
	}, nil
}

// Collection handles GET (list) and POST (add) on /api/workouts.
func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ws := h.sync.GetWorkouts(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ws); err != nil {
			h.log.WithError(err).Error("encoding workout list")
		}
	case http.MethodPost:
		var req workoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		workout, err := req.toWorkout()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.sync.AddWorkout(r.Context(), workout)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(workout); err != nil {
			h.log.WithError(err).Error("encoding created workout")
		}
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// Item handles PUT (update) and DELETE on /api/workouts/{id}.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/workouts/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req workoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		req.ID = id
		workout, err := req.toWorkout()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.sync.UpdateWorkout(r.Context(), workout)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		h.sync.DeleteWorkout(r.Context(), id)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// Import handles POST /api/workouts/import with a CSV body. Responds
// with how many records were actually added after deduplication.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	known := append([]string(nil), model.DefaultWorkoutTypes...)
	known = append(known, h.sync.GetSettings(r.Context()).WorkoutTypes...)

	candidates, err := csvutil.Import(bytes.NewReader(body), known)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	added := h.sync.ImportWorkouts(r.Context(), candidates)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"added": added}); err != nil {
		h.log.WithError(err).Error("encoding import response")
	}
}

// Export handles GET /api/workouts/export, streaming the full list as
// CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	out, err := csvutil.Export(h.sync.GetWorkouts(r.Context()))
	if err != nil {
		h.log.WithError(err).Error("exporting workouts")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=aerolog_workouts_%s.csv", time.Now().Format("2006-01-02")))
	if _, err := w.Write(out); err != nil {
		h.log.WithError(err).Error("writing CSV response")
	}
}
