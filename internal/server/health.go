package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type collectionCount struct {
	Count int64 `json:"count"`
}

type healthPayload struct {
	Status      string                     `json:"status"`
	Database    string                     `json:"database"`
	Collections map[string]collectionCount `json:"collections"`
	Rooms       int                        `json:"rooms"`
	Connections int                        `json:"connections"`
	Timestamp   string                     `json:"timestamp"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	userCount, err := h.users.Count(ctx)
	if err != nil {
		h.logger.Error("health check failed", zap.String("collection", "users"), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "ERROR", "database": "unavailable", "error": "database_unavailable"})
		return
	}
	puzzleCount, err := h.puzzles.Count(ctx)
	if err != nil {
		h.logger.Error("health check failed", zap.String("collection", "puzzles"), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "ERROR", "database": "connected", "error": "puzzle_store_unavailable"})
		return
	}

	c.JSON(http.StatusOK, healthPayload{
		Status:   "OK",
		Database: "connected",
		Collections: map[string]collectionCount{
			"users":   {Count: userCount},
			"puzzles": {Count: int64(puzzleCount)},
		},
		Rooms:       h.rooms.Count(),
		Connections: h.rooms.Connections(),
		Timestamp:   h.clock().UTC().Format(time.RFC3339Nano),
	})
}

func (h *httpHandler) handleGetRoom(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("roomId"))
	snapshot, ok := h.rooms.Room(roomID)
	if !ok {
		respondError(c, http.StatusNotFound, "room_not_found", "Room not found")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
