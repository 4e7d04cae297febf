// Package remote implements the hosted record service: two tables,
// workouts and profiles, scoped to the authenticated user. Store is the
// seam the synchronizer writes through; RESTStore talks to the hosted
// PostgREST-style API and PostgresStore connects straight to the
// database for self-hosted deployments.
package remote

import (
	"context"

	"github.com/aerobiclabs/aerolog/internal/model"
)

// Store is the remote leg of every synchronizer operation. All methods
// are scoped by the session's user id; row-level isolation beyond that
// filter is the backend's job.
type Store interface {
	ListWorkouts(ctx context.Context, sess model.Session) ([]model.WorkoutLog, error)
	InsertWorkout(ctx context.Context, sess model.Session, w model.WorkoutLog) error
	UpdateWorkout(ctx context.Context, sess model.Session, w model.WorkoutLog) error
	DeleteWorkout(ctx context.Context, sess model.Session, id string) error
	UpsertWorkouts(ctx context.Context, sess model.Session, ws []model.WorkoutLog) error
	DeleteAllWorkouts(ctx context.Context, sess model.Session) error

	GetProfile(ctx context.Context, sess model.Session) (*model.UserSettings, error)
	UpsertProfile(ctx context.Context, sess model.Session, s model.UserSettings) error
	ClearProfileBodyWeight(ctx context.Context, sess model.Session) error
	DeleteProfile(ctx context.Context, sess model.Session) error
}
