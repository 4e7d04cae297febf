// Package settings implements the user settings endpoints. The
// positive-finite body weight check happens here; the synchronizer
// stores whatever it is given.
package settings

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/sirupsen/logrus"

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

type settingsRequest struct {
	BodyWeightKg *float64  `json:"bodyWeightKg"`
	WorkoutTypes *[]string `json:"workoutTypes"`
}

// Settings handles GET and PUT on /api/settings. PUT is a partial
// update: absent fields are left alone.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s := h.sync.GetSettings(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s); err != nil {
			h.log.WithError(err).Error("encoding settings")
		}
	case http.MethodPut:
		var req settingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if req.BodyWeightKg != nil {
			bw := *req.BodyWeightKg
			if bw <= 0 || math.IsNaN(bw) || math.IsInf(bw, 0) {
				http.Error(w, "bodyWeightKg must be a positive number", http.StatusBadRequest)
				return
			}
		}

		patch := model.SettingsPatch{BodyWeightKg: req.BodyWeightKg}
		if req.WorkoutTypes != nil {
			patch.WorkoutTypes = *req.WorkoutTypes
		}
		h.sync.SaveSettings(r.Context(), patch)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// BodyWeight handles DELETE /api/settings/body-weight, unsetting the
// field on both sides without touching anything else.
func (h *Handler) BodyWeight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.sync.ClearBodyWeight(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
