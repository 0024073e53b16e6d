package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/auth"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/evaluations"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/rooms"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/users"
	"go.uber.org/zap"
)

const (
	userIDContextKey   = "woodpecker_user_id"
	usernameContextKey = "woodpecker_username"
)

var (
	errMissingTokenManager      = errors.New("token manager dependency required")
	errMissingUsersService      = errors.New("users service dependency required")
	errMissingPuzzlesService    = errors.New("puzzles service dependency required")
	errMissingEvaluationService = errors.New("evaluations service dependency required")
	errMissingRoomRegistry      = errors.New("room registry dependency required")
)

type TokenManager interface {
	IssueToken(ctx context.Context, principal auth.Principal) (string, int64, error)
	ValidateToken(token string) (auth.Principal, error)
}

type Dependencies struct {
	TokenManager   TokenManager
	Users          *users.Service
	Puzzles        *puzzles.Service
	Evaluations    *evaluations.Service
	Rooms          *rooms.Registry
	AllowedOrigins []string
	Clock          func() time.Time
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Users == nil {
		return nil, errMissingUsersService
	}
	if deps.Puzzles == nil {
		return nil, errMissingPuzzlesService
	}
	if deps.Evaluations == nil {
		return nil, errMissingEvaluationService
	}
	if deps.Rooms == nil {
		return nil, errMissingRoomRegistry
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	origins := explicitOrigins(deps.AllowedOrigins)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(origins...))

	handler := &httpHandler{
		tokens:      deps.TokenManager,
		users:       deps.Users,
		puzzles:     deps.Puzzles,
		evaluations: deps.Evaluations,
		rooms:       deps.Rooms,
		upgrader:    newUpgrader(origins),
		clock:       clock,
		logger:      logger,
	}

	api := router.Group("/api")
	api.POST("/auth/register", handler.handleRegister)
	api.POST("/auth/login", handler.handleLogin)
	api.GET("/auth/me", handler.authorizeRequest, handler.handleMe)

	api.GET("/puzzles", handler.handleListPuzzles)
	api.GET("/puzzles/random/:difficulty", handler.handleRandomPuzzle)
	api.GET("/puzzles/range/:min/:max", handler.handlePuzzleRange)
	api.GET("/puzzles/:id", handler.handleGetPuzzle)

	protected := api.Group("/evaluations")
	protected.Use(handler.authorizeRequest)
	protected.POST("/save", handler.handleSaveEvaluation)
	protected.GET("/user/all", handler.handleListEvaluations)
	protected.GET("/user/recent", handler.handleRecentEvaluations)
	protected.GET("/user/stats", handler.handleEvaluationStats)
	protected.GET("/:puzzleId", handler.handleGetEvaluation)

	api.GET("/health", handler.handleHealth)
	api.GET("/rooms/:roomId", handler.handleGetRoom)

	router.GET("/ws", handler.handleWebSocket)

	return router, nil
}

type httpHandler struct {
	tokens      TokenManager
	users       *users.Service
	puzzles     *puzzles.Service
	evaluations *evaluations.Service
	rooms       *rooms.Registry
	upgrader    websocket.Upgrader
	clock       func() time.Time
	logger      *zap.Logger
}

// corsMiddleware allows the listed origins, or any origin when none are given.
func corsMiddleware(origins ...string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// explicitOrigins returns nil when the list is empty or holds the "*" wildcard.
func explicitOrigins(origins []string) []string {
	for _, origin := range origins {
		if origin == "*" {
			return nil
		}
	}
	return origins
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, err := auth.BearerToken(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Access token required"})
		return
	}
	principal, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid or expired token"})
		return
	}
	c.Set(userIDContextKey, principal.UserID)
	c.Set(usernameContextKey, principal.Username)
	c.Next()
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": code, "message": message})
}

func (h *httpHandler) respondServiceError(c *gin.Context, message string, err error) {
	var serviceErr *evaluations.ServiceError
	if errors.As(err, &serviceErr) {
		h.logger.Error(message, zap.String("code", serviceErr.Code()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": serviceErr.Code(), "message": message})
		return
	}
	h.logger.Error(message, zap.Error(err))
	respondError(c, http.StatusInternalServerError, "internal_error", message)
}
