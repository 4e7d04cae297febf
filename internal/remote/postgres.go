package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/aerobiclabs/aerolog/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore talks straight to the backing database. Used for
// self-hosted deployments where the REST layer is not in the path; the
// user_id filter on every query stands in for the hosted API's row-level
// policies.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore wraps an existing gorm connection, e.g. one opened by
// OpenPostgres or an in-memory SQLite database in tests.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens the database and migrates the workouts and profiles
// tables.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.AutoMigrate(&model.WorkoutRow{}, &model.ProfileRow{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return db, nil
}

func (s *PostgresStore) ListWorkouts(ctx context.Context, sess model.Session) ([]model.WorkoutLog, error) {
	var rows []model.WorkoutRow
	err := s.db.WithContext(ctx).Where("user_id = ?", sess.UserID).Order("date desc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}

	ws := make([]model.WorkoutLog, 0, len(rows))
	for _, r := range rows {
		ws = append(ws, r.Workout())
	}
	return ws, nil
}

func (s *PostgresStore) InsertWorkout(ctx context.Context, sess model.Session, w model.WorkoutLog) error {
	row := model.RowFromWorkout(sess.UserID, w)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting workout %s: %w", w.ID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateWorkout(ctx context.Context, sess model.Session, w model.WorkoutLog) error {
	// Save the full row; zero matched rows is not an error as the record
	// may not have been pushed yet.
	row := model.RowFromWorkout(sess.UserID, w)
	err := s.db.WithContext(ctx).
		Model(&model.WorkoutRow{}).
		Where("id = ? AND user_id = ?", w.ID, sess.UserID).
		Select("*").Omit("id", "user_id").
		Updates(row).Error
	if err != nil {
		return fmt.Errorf("updating workout %s: %w", w.ID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteWorkout(ctx context.Context, sess model.Session, id string) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, sess.UserID).
		Delete(&model.WorkoutRow{}).Error
	if err != nil {
		return fmt.Errorf("deleting workout %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) UpsertWorkouts(ctx context.Context, sess model.Session, ws []model.WorkoutLog) error {
	if len(ws) == 0 {
		return nil
	}

	rows := make([]model.WorkoutRow, 0, len(ws))
	for _, w := range ws {
		rows = append(rows, model.RowFromWorkout(sess.UserID, w))
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upserting %d workouts: %w", len(rows), err)
	}
	return nil
}

func (s *PostgresStore) DeleteAllWorkouts(ctx context.Context, sess model.Session) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ?", sess.UserID).
		Delete(&model.WorkoutRow{}).Error
	if err != nil {
		return fmt.Errorf("deleting all workouts: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, sess model.Session) (*model.UserSettings, error) {
	var row model.ProfileRow
	err := s.db.WithContext(ctx).Where("user_id = ?", sess.UserID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}

	settings, err := row.Settings()
	if err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &settings, nil
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, sess model.Session, settings model.UserSettings) error {
	row, err := model.RowFromSettings(sess.UserID, settings)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearProfileBodyWeight(ctx context.Context, sess model.Session) error {
	err := s.db.WithContext(ctx).
		Model(&model.ProfileRow{}).
		Where("user_id = ?", sess.UserID).
		Update("body_weight_kg", nil).Error
	if err != nil {
		return fmt.Errorf("clearing body weight: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, sess model.Session) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ?", sess.UserID).
		Delete(&model.ProfileRow{}).Error
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}
