package evaluations

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 3

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "evaluations.service.new"
	opSave       = "evaluations.save"
	opGet        = "evaluations.get"
	opList       = "evaluations.list"
	opRecent     = "evaluations.recent"
	opStats      = "evaluations.stats"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// Save records value for the puzzle, replacing any earlier rating.
func (s *Service) Save(ctx context.Context, userID string, puzzleID int, value Value) (Evaluation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Evaluation{}, newServiceError(opSave, "missing_user_id", ErrInvalidUserID)
	}
	if !puzzles.ValidID(puzzleID) {
		return Evaluation{}, newServiceError(opSave, "invalid_puzzle_id", ErrInvalidPuzzleID)
	}
	if _, err := ParseValue(string(value)); err != nil {
		return Evaluation{}, newServiceError(opSave, "invalid_value", err)
	}

	now := s.clock().UTC().Unix()
	evaluation := Evaluation{
		UserID:           userID,
		PuzzleID:         puzzleID,
		Value:            value,
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "puzzle_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"evaluation", "updated_at_s"}),
	}).Create(&evaluation).Error
	if err != nil {
		s.logError(opSave, "upsert_failed", err, zap.String("user_id", userID), zap.Int("puzzle_id", puzzleID))
		return Evaluation{}, newServiceError(opSave, "upsert_failed", err)
	}

	stored, _, err := s.Get(ctx, userID, puzzleID)
	if err != nil {
		return Evaluation{}, err
	}
	return stored, nil
}

// Get returns the user's rating for a puzzle; ok is false when none exists.
func (s *Service) Get(ctx context.Context, userID string, puzzleID int) (Evaluation, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Evaluation{}, false, newServiceError(opGet, "missing_user_id", ErrInvalidUserID)
	}

	var evaluation Evaluation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND puzzle_id = ?", userID, puzzleID).
		Take(&evaluation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Evaluation{}, false, nil
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("user_id", userID), zap.Int("puzzle_id", puzzleID))
		return Evaluation{}, false, newServiceError(opGet, "query_failed", err)
	}
	return evaluation, true, nil
}

// List returns every rating of the user, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]Evaluation, error) {
	return s.query(ctx, opList, userID, "created_at_s ASC, puzzle_id ASC", 0)
}

// Recent returns the user's most recently updated ratings.
func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]Evaluation, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.query(ctx, opRecent, userID, "updated_at_s DESC, created_at_s DESC, puzzle_id DESC", limit)
}

// Stats aggregates the user's ratings. SuccessRate is the rounded share of
// solved puzzles in percent.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	evaluations, err := s.query(ctx, opStats, userID, "puzzle_id ASC", 0)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	stats.TotalPuzzles = len(evaluations)
	for _, evaluation := range evaluations {
		switch evaluation.Value {
		case Solved:
			stats.SolvedCount++
		case Partial:
			stats.PartialCount++
		case Failed:
			stats.FailedCount++
		}
		level, ok := puzzles.DifficultyFor(evaluation.PuzzleID)
		if !ok {
			continue
		}
		switch level {
		case puzzles.Easy:
			stats.DifficultyBreakdown.Easy++
		case puzzles.Medium:
			stats.DifficultyBreakdown.Medium++
		case puzzles.Hard:
			stats.DifficultyBreakdown.Hard++
		}
	}
	if stats.TotalPuzzles > 0 {
		stats.SuccessRate = int(math.Round(float64(stats.SolvedCount) / float64(stats.TotalPuzzles) * 100))
	}
	return stats, nil
}

func (s *Service) query(ctx context.Context, operation, userID, order string, limit int) ([]Evaluation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, newServiceError(operation, "missing_user_id", ErrInvalidUserID)
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order(order)
	if limit > 0 {
		query = query.Limit(limit)
	}
	evaluations := make([]Evaluation, 0)
	if err := query.Find(&evaluations).Error; err != nil {
		s.logError(operation, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(operation, "query_failed", err)
	}
	return evaluations, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("evaluations service error", attrs...)
}
