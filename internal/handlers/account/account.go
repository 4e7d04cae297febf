// Package account implements the signed-in account operations: push
// sync, full data clear and account deletion.
package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/aerobiclabs/aerolog/internal/sync"
)

type Handler struct {
	sync *sync.Synchronizer
	log  logrus.FieldLogger
}

func NewHandler(s *sync.Synchronizer, log logrus.FieldLogger) *Handler {
	return &Handler{sync: s, log: log}
}

// Sync handles POST /api/account/sync, pushing local data to the cloud
// and reporting counts.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	pushed, total := h.sync.SyncLocalToCloud(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"pushed": pushed, "total": total}); err != nil {
		h.log.WithError(err).Error("encoding sync response")
	}
}

// Clear handles POST /api/account/clear: wipe all workout data on both
// sides. The confirmation prompt happened client-side before this is
// reached.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.sync.ClearWorkouts(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/account: remove every remote row, then the
// profile, then sign out. A failed cascade keeps the session so the
// user can retry.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if err := h.sync.DeleteAccount(r.Context()); err != nil {
		if errors.Is(err, sync.ErrNoSession) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.log.WithError(err).Error("account deletion failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
