package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aerobiclabs/aerolog/internal/client"
	"github.com/aerobiclabs/aerolog/internal/model"
)

// RESTStore talks to the hosted record API. Rows are addressed with
// eq-filters on id and user_id; upserts use the merge-duplicates
// preference so re-pushing an already synced record updates it in place.
type RESTStore struct {
	c *client.Client
}

// profileRow is the profiles table row as the REST API serializes it.
// Distinct from model.ProfileRow because the API speaks plain JSON
// arrays, not JSONB wrappers.
type profileRow struct {
	UserID       string   `json:"user_id"`
	BodyWeightKg *float64 `json:"body_weight_kg"`
	WorkoutTypes []string `json:"workout_types"`
}

// NewRESTStore returns a store backed by the hosted API at baseURL,
// authenticating every request with the project apikey plus the
// session's bearer token.
func NewRESTStore(baseURL *url.URL, apikey string, hc *http.Client) *RESTStore {
	c := client.NewClient(baseURL, hc)
	c.SetHeader("apikey", apikey)
	return &RESTStore{c: c}
}

func (s *RESTStore) request(ctx context.Context, sess model.Session, method, path string, body interface{}) (*http.Request, error) {
	req, err := s.c.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	return req, nil
}

func (s *RESTStore) ListWorkouts(ctx context.Context, sess model.Session) ([]model.WorkoutLog, error) {
	path := fmt.Sprintf("/rest/v1/workouts?user_id=eq.%s&order=date.desc", url.QueryEscape(sess.UserID))
	req, err := s.request(ctx, sess, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating list workouts request: %w", err)
	}

	var rows []model.WorkoutRow
	resp, err := s.c.Do(req, &rows)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}

	ws := make([]model.WorkoutLog, 0, len(rows))
	for _, r := range rows {
		ws = append(ws, r.Workout())
	}
	return ws, nil
}

func (s *RESTStore) InsertWorkout(ctx context.Context, sess model.Session, w model.WorkoutLog) error {
	row := model.RowFromWorkout(sess.UserID, w)
	req, err := s.request(ctx, sess, http.MethodPost, "/rest/v1/workouts", row)
	if err != nil {
		return fmt.Errorf("creating insert workout request: %w", err)
	}

	resp, err := s.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("inserting workout %s: %w", w.ID, err)
	}
	return nil
}

func (s *RESTStore) UpdateWorkout(ctx context.Context, sess model.Session, w model.WorkoutLog) error {
	// Zero matched rows comes back as a 2xx with an empty body, which is
	// what we want: the record may not have been pushed yet.
	path := fmt.Sprintf("/rest/v1/workouts?id=eq.%s&user_id=eq.%s", url.QueryEscape(w.ID), url.QueryEscape(sess.UserID))
	row := model.RowFromWorkout(sess.UserID, w)
	req, err := s.request(ctx, sess, http.MethodPatch, path, row)
	if err != nil {
		return fmt.Errorf("creating update workout request: %w", err)
	}

	resp, err := s.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("updating workout %s: %w", w.ID, err)
	}
	return nil
}

func (s *RESTStore) DeleteWorkout(ctx context.Context, sess model.Session, id string) error {
	path := fmt.Sprintf("/rest/v1/workouts?id=eq.%s&user_id=eq.%s", url.QueryEscape(id), url.QueryEscape(sess.UserID))
	req, err := s.request(ctx, sess, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("creating delete workout request: %w", err)
	}

	resp, err := s.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	return nil
}

func (s *RESTStore) UpsertWorkouts(ctx context.Context, sess model.Session, ws []model.WorkoutLog) error {
	if len(ws) == 0 {
		return nil
	}

	rows := make([]model.WorkoutRow, 0, len(ws))
	for _, w := range ws {
		rows = append(rows, model.RowFromWorkout(sess.UserID, w))
	}

	req, err := s.request(ctx, sess, http.MethodPost, "/rest/v1/workouts?on_conflict=id", rows)
	if err != nil {
		return fmt.Errorf("creating upsert workouts request: %w", err)
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := s.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("upserting %d workouts: %w", len(rows), err)
	}
	return nil
}

func (s *RESTStore) DeleteAllWorkouts(ctx context.Context, sess model.Session) error {
	path := fmt.Sprintf("/rest/v1/workouts?user_id=eq.%s", url.QueryEscape(sess.UserID))
	req, err := s.request(ctx, sess, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("creating delete all workouts request: %w", err)
	}

	resp, err := s.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("deleting all workouts: %w", err)
	}
	return nil
}

// GetProfile returns the user's profile row, or (nil, nil) when the
// profile has never been created.
func (s *RESTStore) GetProfile(ctx context.Context, sess model.Session) (*model.UserSettings, error) {
	path := fmt.Sprintf("/rest/v1/profiles?user_id=eq.%s", url.QueryEscape(sess.UserID))
	req, err := s.request(ctx, sess, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating get profile request: %w", err)
	}

	var rows []profileRow
	resp, err := s.c.Do(req, &rows)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return &model.UserSettings{
		BodyWeightKg: rows[0].BodyWeightKg,
		WorkoutTypes: rows[0].WorkoutTypes,
	}, nil
}

func (s *RESTStore) UpsertProfile(ctx context.Context, sess model.Session, settings model.UserSettings) error {
	row := profileRow{
		UserID:       sess.UserID,
		BodyWeightKg: settings.BodyWeightKg,
		WorkoutTypes: settings.WorkoutTypes,
	}
	if row.WorkoutTypes == nil {
		row.WorkoutTypes = []string{}
	}

	req, err := s.request(ctx, sess, http.MethodPost, "/rest/v1/profiles?on_conflict=user_id", []profileRow{row})
	if err != nil {
		return fmt.Errorf("creating upsert profile request: %w", err)
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := s.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// ClearProfileBodyWeight nulls the body_weight_kg column. An explicit
// null sentinel, not an omitted field, so the column is actually
// cleared.
func (s *RESTStore) ClearProfileBodyWeight(ctx context.Context, sess model.Session) error {
	path := fmt.Sprintf("/rest/v1/profiles?user_id=eq.%s", url.QueryEscape(sess.UserID))
	req, err := s.request(ctx, sess, http.MethodPatch, path, map[string]interface{}{"body_weight_kg": nil})
	if err != nil {
		return fmt.Errorf("creating clear body weight request: %w", err)
	}

	resp, err := s.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("clearing body weight: %w", err)
	}
	return nil
}

func (s *RESTStore) DeleteProfile(ctx context.Context, sess model.Session) error {
	path := fmt.Sprintf("/rest/v1/profiles?user_id=eq.%s", url.QueryEscape(sess.UserID))
	req, err := s.request(ctx, sess, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("creating delete profile request: %w", err)
	}

	resp, err := s.c.Do(req, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}
