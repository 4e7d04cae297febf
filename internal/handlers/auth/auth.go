// Package auth implements the email OTP sign-in flow. A verified code
// establishes both the backend session (cached by the session provider)
// and the cookie session guarding the account routes, then pushes any
// offline data to the cloud.
package auth

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/aerobiclabs/aerolog/internal/session"
	"github.com/aerobiclabs/aerolog/internal/sessions"
	"github.com/aerobiclabs/aerolog/internal/sync"
)

type Handler struct {
	provider *session.CacheProvider
	sync     *sync.Synchronizer
	log      logrus.FieldLogger
}

func NewHandler(p *session.CacheProvider, s *sync.Synchronizer, log logrus.FieldLogger) *Handler {
	return &Handler{provider: p, sync: s, log: log}
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// RequestOTP handles POST /api/auth/otp: email a one-time code.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	if err := h.provider.RequestOTP(r.Context(), req.Email); err != nil {
		h.log.WithError(err).Error("otp request failed")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Verify handles POST /api/auth/verify: exchange the code for a session,
// mark the cookie session authenticated and run the post-sign-in push.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		http.Error(w, "email and code are required", http.StatusBadRequest)
		return
	}

	sess, err := h.provider.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		h.log.WithError(err).Info("otp verification rejected")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	cookie, err := sessions.GetSession(r)
	if err == nil {
		cookie.Values["authenticated"] = true
		cookie.Values["email"] = sess.Email
		if err := sessions.SaveSession(r, w, cookie); err != nil {
			h.log.WithError(err).Error("unable to save cookie session")
		}
	}

	pushed, total := h.sync.SyncLocalToCloud(r.Context())
	h.log.WithFields(logrus.Fields{"pushed": pushed, "total": total}).Info("post-sign-in sync complete")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"email":  sess.Email,
		"pushed": pushed,
		"total":  total,
	}); err != nil {
		h.log.WithError(err).Error("encoding verify response")
	}
}

// SignOut handles POST /api/auth/signout: invalidate the backend session
// and expire the cookie.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if err := h.provider.SignOut(r.Context()); err != nil {
		h.log.WithError(err).Error("sign-out failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	cookie, err := sessions.GetSession(r)
	if err == nil {
		cookie.Values["authenticated"] = false
		cookie.Options.MaxAge = -1
		if err := sessions.SaveSession(r, w, cookie); err != nil {
			h.log.WithError(err).Error("unable to expire cookie session")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
