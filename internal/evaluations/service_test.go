package evaluations

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	current := c.now
	c.now = c.now.Add(time.Minute)
	return current
}

func newTestService(t *testing.T, logger *zap.Logger) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "evaluations.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Evaluation{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	clock := &stepClock{now: time.Unix(1700000000, 0)}
	service, err := NewService(ServiceConfig{Database: db, Clock: clock.Now, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestParseValue(t *testing.T) {
	for _, raw := range []string{"failed", "Partial", " SOLVED "} {
		if _, err := ParseValue(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}
	if _, err := ParseValue("maybe"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestSaveUpsertsSingleRow(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()

	first, err := service.Save(ctx, "user-1", 42, Failed)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := service.Save(ctx, "user-1", 42, Solved)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if second.Value != Solved {
		t.Fatalf("expected last write to win, got %s", second.Value)
	}
	if second.CreatedAtSeconds != first.CreatedAtSeconds {
		t.Fatalf("expected creation time to be kept, got %d and %d", first.CreatedAtSeconds, second.CreatedAtSeconds)
	}
	if second.UpdatedAtSeconds <= first.UpdatedAtSeconds {
		t.Fatalf("expected update time to advance")
	}

	all, err := service.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one row per user and puzzle, got %d", len(all))
	}
}

func TestGetReportsAbsence(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()

	if _, ok, err := service.Get(ctx, "user-1", 7); err != nil || ok {
		t.Fatalf("expected no evaluation, got ok=%v err=%v", ok, err)
	}
	if _, err := service.Save(ctx, "user-2", 7, Partial); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, ok, _ := service.Get(ctx, "user-1", 7); ok {
		t.Fatalf("expected evaluations to be scoped per user")
	}
	evaluation, ok, err := service.Get(ctx, "user-2", 7)
	if err != nil || !ok || evaluation.Value != Partial {
		t.Fatalf("unexpected evaluation %+v ok=%v err=%v", evaluation, ok, err)
	}
}

func TestSaveValidatesInput(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   string
		puzzleID int
		value    Value
		code     string
		cause    error
	}{
		{name: "missing user", userID: " ", puzzleID: 1, value: Solved, code: "evaluations.save.missing_user_id", cause: ErrInvalidUserID},
		{name: "puzzle too low", userID: "u", puzzleID: 0, value: Solved, code: "evaluations.save.invalid_puzzle_id", cause: ErrInvalidPuzzleID},
		{name: "puzzle too high", userID: "u", puzzleID: 1129, value: Solved, code: "evaluations.save.invalid_puzzle_id", cause: ErrInvalidPuzzleID},
		{name: "unknown value", userID: "u", puzzleID: 1, value: Value("great"), code: "evaluations.save.invalid_value", cause: ErrInvalidValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Save(ctx, tc.userID, tc.puzzleID, tc.value)
			var serviceErr *ServiceError
			if !errors.As(err, &serviceErr) {
				t.Fatalf("expected ServiceError, got %v", err)
			}
			if serviceErr.Code() != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, serviceErr.Code())
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("expected cause %v, got %v", tc.cause, err)
			}
		})
	}
}

func TestRecentOrdersByLastUpdate(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()

	for _, id := range []int{10, 20, 30, 40} {
		if _, err := service.Save(ctx, "user-1", id, Partial); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if _, err := service.Save(ctx, "user-1", 10, Solved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	recent, err := service.Recent(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != DefaultRecentLimit {
		t.Fatalf("expected %d evaluations, got %d", DefaultRecentLimit, len(recent))
	}
	expected := []int{10, 40, 30}
	for i, id := range expected {
		if recent[i].PuzzleID != id {
			t.Fatalf("expected order %v, got %+v", expected, recent)
		}
	}

	limited, err := service.Recent(ctx, "user-1", 1)
	if err != nil || len(limited) != 1 || limited[0].PuzzleID != 10 {
		t.Fatalf("unexpected limited result %+v (%v)", limited, err)
	}

	all, err := service.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 4 || all[0].PuzzleID != 10 || all[3].PuzzleID != 40 {
		t.Fatalf("expected list in creation order, got %+v", all)
	}
}

func TestStats(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()

	saves := []struct {
		puzzleID int
		value    Value
	}{
		{1, Solved}, {222, Solved}, {223, Partial}, {500, Failed}, {985, Solved}, {1128, Failed},
	}
	for _, save := range saves {
		if _, err := service.Save(ctx, "user-1", save.puzzleID, save.value); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	stats, err := service.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	expected := Stats{
		TotalPuzzles: 6,
		SolvedCount:  3,
		PartialCount: 1,
		FailedCount:  2,
		SuccessRate:  50,
		DifficultyBreakdown: DifficultyBreakdown{
			Easy:   2,
			Medium: 2,
			Hard:   2,
		},
	}
	if stats != expected {
		t.Fatalf("unexpected stats %+v", stats)
	}

	empty, err := service.Stats(ctx, "someone-else")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if empty != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", empty)
	}
}

func TestStatsRoundsSuccessRate(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()
	for id, value := range map[int]Value{1: Solved, 2: Solved, 3: Failed} {
		if _, err := service.Save(ctx, "user-1", id, value); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	stats, err := service.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.SuccessRate != 67 {
		t.Fatalf("expected 67%% success rate, got %d", stats.SuccessRate)
	}
}

func TestQueryFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	service := newTestService(t, zap.New(core))

	sqlDB, err := service.db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	_ = sqlDB.Close()

	_, err = service.List(context.Background(), "user-1")
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "evaluations.list.query_failed" {
		t.Fatalf("expected query_failed service error, got %v", err)
	}
	if logs.FilterMessage("evaluations service error").Len() != 1 {
		t.Fatalf("expected one logged error, got %v", logs.All())
	}
}

func TestNewServiceRequiresDatabase(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "evaluations.service.new.missing_database" {
		t.Fatalf("expected missing_database error, got %v", err)
	}
}
