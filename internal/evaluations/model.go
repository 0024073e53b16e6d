// Package evaluations records how a user rated their own attempt at a puzzle.
package evaluations

import (
	"errors"
	"fmt"
	"strings"
)

// Value is a self-assessment.
type Value string

const (
	Failed  Value = "failed"
	Partial Value = "partial"
	Solved  Value = "solved"
)

var (
	// ErrInvalidValue indicates an evaluation outside failed, partial and solved.
	ErrInvalidValue = errors.New("evaluations: invalid evaluation value")
	// ErrInvalidPuzzleID indicates a puzzle id outside the catalogue.
	ErrInvalidPuzzleID = errors.New("evaluations: invalid puzzle id")
	// ErrInvalidUserID indicates an empty user identifier.
	ErrInvalidUserID = errors.New("evaluations: invalid user id")
)

// ParseValue validates raw input.
func ParseValue(raw string) (Value, error) {
	value := Value(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case Failed, Partial, Solved:
		return value, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
}

func (v Value) String() string {
	return string(v)
}

// Evaluation is the latest rating a user gave a puzzle. There is one row per
// (user, puzzle); saving again overwrites it.
type Evaluation struct {
	UserID           string `gorm:"column:user_id;primaryKey;size:64;not null"`
	PuzzleID         int    `gorm:"column:puzzle_id;primaryKey;not null"`
	Value            Value  `gorm:"column:evaluation;size:16;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null;index"`
}

// TableName exposes the table backing evaluations.
func (Evaluation) TableName() string {
	return "evaluations"
}

// DifficultyBreakdown counts evaluated puzzles per difficulty bucket.
type DifficultyBreakdown struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Stats summarises a user's evaluations.
type Stats struct {
	TotalPuzzles        int                 `json:"totalPuzzles"`
	SolvedCount         int                 `json:"solvedCount"`
	PartialCount        int                 `json:"partialCount"`
	FailedCount         int                 `json:"failedCount"`
	SuccessRate         int                 `json:"successRate"`
	DifficultyBreakdown DifficultyBreakdown `json:"difficultyBreakdown"`
}
