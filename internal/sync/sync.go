// Package sync orchestrates the local record store and the remote record
// service. It owns no state of its own: every operation reads and writes
// the two stores and picks the remote copy over the local one per record
// id. Remote legs run only when a session exists and their failures are
// logged, never surfaced; the local copy is always the fallback source
// of truth.
package sync

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/aerobiclabs/aerolog/internal/cache"
	"github.com/aerobiclabs/aerolog/internal/model"
	"github.com/aerobiclabs/aerolog/internal/remote"
	"github.com/aerobiclabs/aerolog/internal/session"
)

// Local cache keys. Each holds one JSON blob: the full workout list and
// the settings object. There is no per-record addressing; every write is
// read-whole, modify, write-whole.
const (
	workoutsKey = "aerolog_workouts"
	settingsKey = "aerolog_settings"
)

// ErrNoSession is returned by DeleteAccount when nobody is signed in.
var ErrNoSession = errors.New("sync: no active session")

// Synchronizer is a stateless orchestrator between the local store and
// the remote service.
type Synchronizer struct {
	cache    cache.Cache
	remote   remote.Store
	sessions session.Provider
	log      logrus.FieldLogger
}

func New(c cache.Cache, r remote.Store, s session.Provider, log logrus.FieldLogger) *Synchronizer {
	return &Synchronizer{cache: c, remote: r, sessions: s, log: log}
}

// session resolves the current identity, treating lookup failures as
// signed-out.
func (s *Synchronizer) session(ctx context.Context) *model.Session {
	sess, err := s.sessions.Current(ctx)
	if err != nil {
		s.log.WithError(err).Warn("session lookup failed; treating as signed out")
		return nil
	}
	return sess
}

// localWorkouts reads the cached list. A corrupt or unreadable blob is
// logged and papered over with an empty list.
func (s *Synchronizer) localWorkouts(ctx context.Context) []model.WorkoutLog {
	var ws []model.WorkoutLog
	err := s.cache.GetJSON(ctx, workoutsKey, &ws)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.log.WithError(err).Error("failed to read local workouts")
		return []model.WorkoutLog{}
	}
	if ws == nil {
		ws = []model.WorkoutLog{}
	}
	return ws
}

func (s *Synchronizer) localSettings(ctx context.Context) model.UserSettings {
	var settings model.UserSettings
	err := s.cache.GetJSON(ctx, settingsKey, &settings)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.log.WithError(err).Error("failed to read local settings")
		return model.UserSettings{}
	}
	return settings
}

func (s *Synchronizer) writeWorkouts(ctx context.Context, ws []model.WorkoutLog) bool {
	if err := s.cache.SetJSON(ctx, workoutsKey, ws); err != nil {
		s.log.WithError(err).Error("failed to persist local workouts")
		return false
	}
	return true
}

// mergeWorkouts unions the two lists by id: the remote value wins for
// every id present remotely, records only known locally (not yet pushed)
// are preserved, no id appears twice.
func mergeWorkouts(local, rem []model.WorkoutLog) []model.WorkoutLog {
	merged := make([]model.WorkoutLog, 0, len(rem)+len(local))
	seen := make(map[string]struct{}, len(rem))
	for _, w := range rem {
		if _, ok := seen[w.ID]; ok {
			continue
		}
		seen[w.ID] = struct{}{}
		merged = append(merged, w)
	}
	for _, w := range local {
		if _, ok := seen[w.ID]; ok {
			continue
		}
		seen[w.ID] = struct{}{}
		merged = append(merged, w)
	}
	return merged
}

func sortByDateDesc(ws []model.WorkoutLog) {
	// Dates are YYYY-MM-DD strings, so lexicographic order is date order.
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Date > ws[j].Date })
}

// GetWorkouts returns the best-known list, freshest first. When a
// session exists the remote list is fetched and union-merged over the
// local one (remote wins per id, local-only records survive) and the
// merged set becomes the new local cache. Remote failures fall back to
// the local list; a corrupt local blob yields an empty list. Never
// errors to the caller.
func (s *Synchronizer) GetWorkouts(ctx context.Context) []model.WorkoutLog {
	local := s.localWorkouts(ctx)

	sess := s.session(ctx)
	if sess == nil {
		sortByDateDesc(local)
		return local
	}

	rem, err := s.remote.ListWorkouts(ctx, *sess)
	if err != nil {
		s.log.WithError(err).Warn("remote fetch failed; returning local workouts")
		sortByDateDesc(local)
		return local
	}

	merged := mergeWorkouts(local, rem)
	s.writeWorkouts(ctx, merged)

	sortByDateDesc(merged)
	return merged
}

// AddWorkout prepends the record locally and mirrors it remotely when
// signed in. Failures on either leg are logged, not surfaced.
func (s *Synchronizer) AddWorkout(ctx context.Context, w model.WorkoutLog) {
	existing := s.localWorkouts(ctx)
	updated := append([]model.WorkoutLog{w}, existing...)
	if !s.writeWorkouts(ctx, updated) {
		return
	}

	sess := s.session(ctx)
	if sess == nil {
		return
	}
	if err := s.remote.InsertWorkout(ctx, *sess, w); err != nil {
		s.log.WithError(err).WithField("id", w.ID).Warn("remote insert failed; will reconcile on next sync")
	}
}

// UpdateWorkout replaces the record with a matching id in place. All
// other records are untouched and the list length never changes. A
// remote update matching zero rows is fine: the record may not have been
// pushed yet.
func (s *Synchronizer) UpdateWorkout(ctx context.Context, w model.WorkoutLog) {
	existing := s.localWorkouts(ctx)
	for i := range existing {
		if existing[i].ID == w.ID {
			existing[i] = w
		}
	}
	if !s.writeWorkouts(ctx, existing) {
		return
	}

	sess := s.session(ctx)
	if sess == nil {
		return
	}
	if err := s.remote.UpdateWorkout(ctx, *sess, w); err != nil {
		s.log.WithError(err).WithField("id", w.ID).Warn("remote update failed; will reconcile on next sync")
	}
}

// DeleteWorkout removes the record with the given id on both sides.
func (s *Synchronizer) DeleteWorkout(ctx context.Context, id string) {
	existing := s.localWorkouts(ctx)
	updated := make([]model.WorkoutLog, 0, len(existing))
	for _, w := range existing {
		if w.ID != id {
			updated = append(updated, w)
		}
	}
	if !s.writeWorkouts(ctx, updated) {
		return
	}

	sess := s.session(ctx)
	if sess == nil {
		return
	}
	if err := s.remote.DeleteWorkout(ctx, *sess, id); err != nil {
		s.log.WithError(err).WithField("id", id).Warn("remote delete failed; will reconcile on next sync")
	}
}

// ImportWorkouts appends candidates whose id is not already present.
// Membership is by id only, not content. Returns the number actually
// added; when nothing survives deduplication no remote call is made.
func (s *Synchronizer) ImportWorkouts(ctx context.Context, candidates []model.WorkoutLog) int {
	existing := s.localWorkouts(ctx)
	seen := make(map[string]struct{}, len(existing))
	for _, w := range existing {
		seen[w.ID] = struct{}{}
	}

	var added []model.WorkoutLog
	for _, w := range candidates {
		if _, ok := seen[w.ID]; ok {
			continue
		}
		seen[w.ID] = struct{}{}
		added = append(added, w)
	}
	if len(added) == 0 {
		return 0
	}

	if !s.writeWorkouts(ctx, append(existing, added...)) {
		return 0
	}

	sess := s.session(ctx)
	if sess != nil {
		// Upsert rather than insert so ids colliding with already synced
		// rows don't fail the whole batch.
		if err := s.remote.UpsertWorkouts(ctx, *sess, added); err != nil {
			s.log.WithError(err).Warn("remote upsert of imported workouts failed")
		}
	}

	return len(added)
}

// SyncLocalToCloud pushes the local settings (when body weight is set)
// and the whole local workout list via upsert, then re-runs the read
// path to pull the reconciled view. Intended to run once after sign-in.
// Returns how many records were pushed and the resulting total.
func (s *Synchronizer) SyncLocalToCloud(ctx context.Context) (pushed, total int) {
	sess := s.session(ctx)
	if sess == nil {
		return 0, 0
	}

	settings := s.localSettings(ctx)
	if settings.BodyWeightKg != nil {
		if err := s.remote.UpsertProfile(ctx, *sess, settings); err != nil {
			s.log.WithError(err).Warn("settings push failed")
		}
	}

	local := s.localWorkouts(ctx)
	if len(local) > 0 {
		if err := s.remote.UpsertWorkouts(ctx, *sess, local); err != nil {
			s.log.WithError(err).Warn("workout push failed; pulling best-effort view anyway")
		}
	}

	merged := s.GetWorkouts(ctx)
	return len(local), len(merged)
}

// GetSettings prefers the remote profile when signed in and the fetch
// succeeds, caching it locally; otherwise the local cache.
func (s *Synchronizer) GetSettings(ctx context.Context) model.UserSettings {
	sess := s.session(ctx)
	if sess != nil {
		settings, err := s.remote.GetProfile(ctx, *sess)
		if err != nil {
			s.log.WithError(err).Warn("remote settings fetch failed; returning local settings")
		} else if settings != nil {
			if err := s.cache.SetJSON(ctx, settingsKey, settings); err != nil {
				s.log.WithError(err).Error("failed to cache remote settings")
			}
			return *settings
		}
	}

	return s.localSettings(ctx)
}

// SaveSettings shallow-merges the patch over the current settings, always
// locally and, when signed in, as a full-object upsert remotely. A
// partial patch never erases unrelated fields.
func (s *Synchronizer) SaveSettings(ctx context.Context, patch model.SettingsPatch) {
	merged := s.localSettings(ctx).Apply(patch)
	if err := s.cache.SetJSON(ctx, settingsKey, merged); err != nil {
		s.log.WithError(err).Error("failed to persist local settings")
		return
	}

	sess := s.session(ctx)
	if sess == nil {
		return
	}
	if err := s.remote.UpsertProfile(ctx, *sess, merged); err != nil {
		s.log.WithError(err).Warn("remote settings upsert failed")
	}
}

// ClearBodyWeight unsets the body weight locally and nulls the remote
// column, leaving every other settings field intact.
func (s *Synchronizer) ClearBodyWeight(ctx context.Context) {
	settings := s.localSettings(ctx)
	settings.BodyWeightKg = nil
	if err := s.cache.SetJSON(ctx, settingsKey, settings); err != nil {
		s.log.WithError(err).Error("failed to persist local settings")
		return
	}

	sess := s.session(ctx)
	if sess == nil {
		return
	}
	if err := s.remote.ClearProfileBodyWeight(ctx, *sess); err != nil {
		s.log.WithError(err).Warn("remote body weight clear failed")
	}
}

// ClearWorkouts wipes the local workout and settings blobs and, when
// signed in, deletes every remote workout row and nulls the remote body
// weight. Confirmation prompts are the caller's responsibility.
func (s *Synchronizer) ClearWorkouts(ctx context.Context) {
	if err := s.cache.Remove(ctx, workoutsKey); err != nil {
		s.log.WithError(err).Error("failed to clear local workouts")
	}
	if err := s.cache.Remove(ctx, settingsKey); err != nil {
		s.log.WithError(err).Error("failed to clear local settings")
	}

	sess := s.session(ctx)
	if sess == nil {
		return
	}
	if err := s.remote.DeleteAllWorkouts(ctx, *sess); err != nil {
		s.log.WithError(err).Warn("remote workout wipe failed")
	}
	if err := s.remote.ClearProfileBodyWeight(ctx, *sess); err != nil {
		s.log.WithError(err).Warn("remote body weight clear failed")
	}
}

// DeleteAccount removes all remote rows for the user and signs out. The
// cascade is ordered and fail-fast: a workout-deletion failure stops the
// profile deletion, and sign-out happens only after both deletions
// succeed, so a half-deleted account keeps its session for a retry.
func (s *Synchronizer) DeleteAccount(ctx context.Context) error {
	sess := s.session(ctx)
	if sess == nil {
		return ErrNoSession
	}

	if err := s.remote.DeleteAllWorkouts(ctx, *sess); err != nil {
		return err
	}
	if err := s.remote.DeleteProfile(ctx, *sess); err != nil {
		return err
	}

	return s.sessions.SignOut(ctx)
}
