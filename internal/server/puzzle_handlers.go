package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
)

func (h *httpHandler) handleListPuzzles(c *gin.Context) {
	all, err := h.puzzles.All(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "Failed to list puzzles", err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *httpHandler) handleGetPuzzle(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_puzzle_id", "Invalid puzzle ID")
		return
	}
	puzzle, err := h.puzzles.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, puzzles.ErrInvalidPuzzleID):
		respondError(c, http.StatusBadRequest, "invalid_puzzle_id", "Invalid puzzle ID")
	case errors.Is(err, puzzles.ErrPuzzleNotFound):
		respondError(c, http.StatusNotFound, "puzzle_not_found", "Puzzle not found")
	case err != nil:
		h.respondServiceError(c, "Failed to load puzzle", err)
	default:
		c.JSON(http.StatusOK, puzzle)
	}
}

func (h *httpHandler) handleRandomPuzzle(c *gin.Context) {
	difficulty, err := puzzles.ParseDifficulty(c.Param("difficulty"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_difficulty", "Invalid difficulty level")
		return
	}
	puzzle, err := h.puzzles.Random(c.Request.Context(), difficulty)
	switch {
	case errors.Is(err, puzzles.ErrNoPuzzles), errors.Is(err, puzzles.ErrPuzzleNotFound):
		respondError(c, http.StatusNotFound, "no_puzzles", fmt.Sprintf("No %s puzzles found", difficulty))
	case err != nil:
		h.respondServiceError(c, "Failed to pick a puzzle", err)
	default:
		c.JSON(http.StatusOK, puzzle)
	}
}

func (h *httpHandler) handlePuzzleRange(c *gin.Context) {
	min, minErr := strconv.Atoi(c.Param("min"))
	max, maxErr := strconv.Atoi(c.Param("max"))
	if minErr != nil || maxErr != nil {
		respondError(c, http.StatusBadRequest, "invalid_range", "Invalid range")
		return
	}
	result, err := h.puzzles.Range(c.Request.Context(), min, max)
	switch {
	case errors.Is(err, puzzles.ErrInvalidRange):
		respondError(c, http.StatusBadRequest, "invalid_range", "Invalid range")
	case err != nil:
		h.respondServiceError(c, "Failed to list puzzles", err)
	default:
		c.JSON(http.StatusOK, result)
	}
}
