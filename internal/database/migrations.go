package database

import (
	"errors"
	"time"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/evaluations"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillUsernameKeys   = "2025-10-01_backfill_username_keys"
	migrationPruneOutOfRangeRatings = "2025-10-15_prune_out_of_range_evaluations"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillUsernameKeys, apply: backfillUsernameKeys},
		{name: migrationPruneOutOfRangeRatings, apply: pruneOutOfRangeEvaluations},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Accounts imported before case-insensitive usernames carry an empty key.
func backfillUsernameKeys(db *gorm.DB) error {
	return db.Model(&users.User{}).
		Where("username_key = '' OR username_key IS NULL").
		Update("username_key", gorm.Expr("LOWER(TRIM(username))")).Error
}

func pruneOutOfRangeEvaluations(db *gorm.DB) error {
	return db.Where("puzzle_id < ? OR puzzle_id > ?", 1, puzzles.MaxPuzzleID).
		Delete(&evaluations.Evaluation{}).Error
}
