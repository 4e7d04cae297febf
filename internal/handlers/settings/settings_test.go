package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"

	"github.com/aerobiclabs/aerolog/internal/cache"
	"github.com/aerobiclabs/aerolog/internal/model"
	"github.com/aerobiclabs/aerolog/internal/sync"
)

type signedOutProvider struct{}

func (signedOutProvider) Current(context.Context) (*model.Session, error) { return nil, nil }
func (signedOutProvider) SignOut(context.Context) error                   { return nil }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	r := miniredis.RunT(t)
	che, err := cache.NewRedisCache(context.Background(), fmt.Sprintf("redis://%s", r.Addr()))
	if err != nil {
		t.Fatal(err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	return NewHandler(sync.New(che, nil, signedOutProvider{}, log), log)
}

func getSettings(t *testing.T, h *Handler) model.UserSettings {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rr := httptest.NewRecorder()
	h.Settings(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get returned %d", rr.Code)
	}
	var s model.UserSettings
	if err := json.Unmarshal(rr.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSettingsPartialUpdate(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"bodyWeightKg":72.5,"workoutTypes":["Rowing"]}`))
	rr := httptest.NewRecorder()
	h.Settings(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("put returned %d: %s", rr.Code, rr.Body.String())
	}

	// Only the body weight this time; the custom types must survive.
	req = httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"bodyWeightKg":71}`))
	rr = httptest.NewRecorder()
	h.Settings(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("put returned %d", rr.Code)
	}

	s := getSettings(t, h)
	if s.BodyWeightKg == nil || *s.BodyWeightKg != 71 {
		t.Errorf("expected body weight 71, got %v", s.BodyWeightKg)
	}
	if !reflect.DeepEqual(s.WorkoutTypes, []string{"Rowing"}) {
		t.Errorf("expected workout types preserved, got %v", s.WorkoutTypes)
	}
}

func TestSettingsRejectsBadBodyWeight(t *testing.T) {
	h := newTestHandler(t)

	for _, body := range []string{
		`{"bodyWeightKg":0}`,
		`{"bodyWeightKg":-5}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
		rr := httptest.NewRecorder()
		h.Settings(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: got status %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestBodyWeightDelete(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"bodyWeightKg":80,"workoutTypes":["Rowing"]}`))
	rr := httptest.NewRecorder()
	h.Settings(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("put returned %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/settings/body-weight", nil)
	rr = httptest.NewRecorder()
	h.BodyWeight(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d", rr.Code)
	}

	s := getSettings(t, h)
	if s.BodyWeightKg != nil {
		t.Errorf("expected body weight cleared, got %v", *s.BodyWeightKg)
	}
	if !reflect.DeepEqual(s.WorkoutTypes, []string{"Rowing"}) {
		t.Errorf("expected workout types untouched, got %v", s.WorkoutTypes)
	}
}

func TestBodyWeightMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/settings/body-weight", nil)
	rr := httptest.NewRecorder()
	h.BodyWeight(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}
