package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/auth"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/users"
	"go.uber.org/zap"
)

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type authResponsePayload struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expiresIn"`
	User      userPayload `json:"user"`
}

func (h *httpHandler) bindCredentials(c *gin.Context) (credentialsPayload, bool) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Username and password are required")
		return credentialsPayload{}, false
	}
	if err := validate.Struct(request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Username and password are required",
			"details": validationDetails(err),
		})
		return credentialsPayload{}, false
	}
	return request, true
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	request, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	user, err := h.users.Register(c.Request.Context(), request.Username, request.Password)
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort):
		respondError(c, http.StatusBadRequest, "password_too_short", "Password must be at least 6 characters long")
		return
	case errors.Is(err, auth.ErrPasswordTooLong):
		respondError(c, http.StatusBadRequest, "password_too_long", "Password must be at most 72 bytes long")
		return
	case errors.Is(err, users.ErrInvalidUsername):
		respondError(c, http.StatusBadRequest, "invalid_username", "Username may contain only letters, digits, '.', '_' and '-'")
		return
	case errors.Is(err, users.ErrUsernameTaken):
		respondError(c, http.StatusConflict, "username_taken", "Username already exists")
		return
	case err != nil:
		h.logger.Error("registration failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "registration_failed", "Registration failed")
		return
	}

	h.respondWithToken(c, http.StatusCreated, "Registration successful", user)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	request, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), request.Username, request.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		h.logger.Info("login rejected", zap.String("username", request.Username))
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "login_failed", "Login failed")
		return
	}

	h.respondWithToken(c, http.StatusOK, "Login successful", user)
}

func (h *httpHandler) respondWithToken(c *gin.Context, status int, message string, user users.User) {
	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), auth.Principal{UserID: user.ID, Username: user.Username})
	if err != nil {
		h.logger.Error("failed to issue token", zap.String("user_id", user.ID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "token_issue_failed", "Could not issue a token")
		return
	}
	c.JSON(status, authResponsePayload{
		Message:   message,
		Token:     token,
		ExpiresIn: expiresIn,
		User:      userPayload{ID: user.ID, Username: user.Username},
	})
}

func (h *httpHandler) handleMe(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	user, err := h.users.Get(c.Request.Context(), userID)
	if errors.Is(err, users.ErrUserNotFound) {
		respondError(c, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	if err != nil {
		h.logger.Error("user lookup failed", zap.String("user_id", userID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal_error", "User lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userPayload{ID: user.ID, Username: user.Username}})
}
