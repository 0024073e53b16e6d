package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/evaluations"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"go.uber.org/zap"
)

type evaluationPayload struct {
	PuzzleID   int               `json:"puzzleId"`
	Evaluation evaluations.Value `json:"evaluation"`
	UpdatedAt  int64             `json:"updated_at_s,omitempty"`
}

type puzzleSummaryPayload struct {
	Description string `json:"descr"`
	FEN         string `json:"fen"`
	Direction   string `json:"direction"`
	Solution    string `json:"solution"`
}

type recentEvaluationPayload struct {
	evaluationPayload
	Puzzle *puzzleSummaryPayload `json:"puzzle"`
}

func (h *httpHandler) handleGetEvaluation(c *gin.Context) {
	puzzleID, err := strconv.Atoi(c.Param("puzzleId"))
	if err != nil || !puzzles.ValidID(puzzleID) {
		respondError(c, http.StatusBadRequest, "invalid_puzzle_id", "Invalid puzzle ID")
		return
	}
	evaluation, found, err := h.evaluations.Get(c.Request.Context(), c.GetString(userIDContextKey), puzzleID)
	if err != nil {
		h.respondServiceError(c, "Failed to get evaluation", err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"evaluation": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": evaluation.Value})
}

func (h *httpHandler) handleSaveEvaluation(c *gin.Context) {
	var request saveEvaluationPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Puzzle ID and evaluation are required")
		return
	}
	if err := validate.Struct(request); err != nil {
		message := "Puzzle ID and evaluation are required"
		code := "invalid_request"
		switch {
		case hasTag(err, "puzzleId", "required"), hasTag(err, "evaluation", "required"):
		case hasTag(err, "evaluation", "oneof"):
			code, message = "invalid_evaluation", "Invalid evaluation value"
		default:
			code, message = "invalid_puzzle_id", "Invalid puzzle ID"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": code, "message": message, "details": validationDetails(err)})
		return
	}

	value, err := evaluations.ParseValue(request.Evaluation)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_evaluation", "Invalid evaluation value")
		return
	}
	userID := c.GetString(userIDContextKey)
	if _, err := h.evaluations.Save(c.Request.Context(), userID, request.PuzzleID, value); err != nil {
		switch {
		case errors.Is(err, evaluations.ErrInvalidValue):
			respondError(c, http.StatusBadRequest, "invalid_evaluation", "Invalid evaluation value")
		case errors.Is(err, evaluations.ErrInvalidPuzzleID):
			respondError(c, http.StatusBadRequest, "invalid_puzzle_id", "Invalid puzzle ID")
		default:
			h.respondServiceError(c, "Failed to save evaluation", err)
		}
		return
	}
	h.logger.Debug("evaluation saved",
		zap.String("user_id", userID),
		zap.Int("puzzle_id", request.PuzzleID),
		zap.String("evaluation", value.String()))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Evaluation saved"})
}

func (h *httpHandler) handleListEvaluations(c *gin.Context) {
	list, err := h.evaluations.List(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondServiceError(c, "Failed to get user evaluations", err)
		return
	}
	response := make([]evaluationPayload, 0, len(list))
	for _, evaluation := range list {
		response = append(response, toEvaluationPayload(evaluation))
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": response})
}

func (h *httpHandler) handleRecentEvaluations(c *gin.Context) {
	limit := evaluations.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, http.StatusBadRequest, "invalid_limit", "Limit must be a positive integer")
			return
		}
		limit = parsed
	}

	recent, err := h.evaluations.Recent(c.Request.Context(), c.GetString(userIDContextKey), limit)
	if err != nil {
		h.respondServiceError(c, "Failed to get recent evaluations", err)
		return
	}
	response := make([]recentEvaluationPayload, 0, len(recent))
	for _, evaluation := range recent {
		entry := recentEvaluationPayload{evaluationPayload: toEvaluationPayload(evaluation)}
		puzzle, err := h.puzzles.Get(c.Request.Context(), evaluation.PuzzleID)
		if err == nil {
			entry.Puzzle = &puzzleSummaryPayload{
				Description: puzzle.Description,
				FEN:         puzzle.FEN,
				Direction:   puzzle.Direction,
				Solution:    puzzle.Solution,
			}
		} else if !errors.Is(err, puzzles.ErrPuzzleNotFound) {
			h.logger.Warn("recent evaluation puzzle lookup failed", zap.Int("puzzle_id", evaluation.PuzzleID), zap.Error(err))
		}
		response = append(response, entry)
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": response})
}

func (h *httpHandler) handleEvaluationStats(c *gin.Context) {
	stats, err := h.evaluations.Stats(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondServiceError(c, "Failed to get user stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func toEvaluationPayload(evaluation evaluations.Evaluation) evaluationPayload {
	return evaluationPayload{
		PuzzleID:   evaluation.PuzzleID,
		Evaluation: evaluation.Value,
		UpdatedAt:  evaluation.UpdatedAtSeconds,
	}
}
