// Package client talks to the woodpecker API: the HTTP endpoints for accounts,
// puzzles and evaluations, and the WebSocket relay for shared rooms.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/evaluations"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/rooms"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type AuthResult struct {
	Message   string `json:"message"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
	User      User   `json:"user"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// API is a typed client for the HTTP surface. It remembers the token from the
// last successful Register or Login.
type API struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*API)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *API) {
		if httpClient != nil {
			a.httpClient = httpClient
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithToken(token string) Option {
	return func(a *API) {
		a.token = strings.TrimSpace(token)
	}
}

// New returns a client for the server at baseURL, e.g. "http://localhost:3001".
func New(baseURL string, opts ...Option) *API {
	api := &API{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}

func (a *API) BaseURL() string {
	return a.baseURL
}

func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = strings.TrimSpace(token)
	a.mu.Unlock()
}

func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// LoggedIn reports whether a token is held.
func (a *API) LoggedIn() bool {
	return a.Token() != ""
}

func (a *API) Register(ctx context.Context, username, password string) (AuthResult, error) {
	return a.authenticate(ctx, "/api/auth/register", username, password)
}

func (a *API) Login(ctx context.Context, username, password string) (AuthResult, error) {
	return a.authenticate(ctx, "/api/auth/login", username, password)
}

// Logout forgets the token.
func (a *API) Logout() {
	a.SetToken("")
}

func (a *API) authenticate(ctx context.Context, path, username, password string) (AuthResult, error) {
	var result AuthResult
	body := map[string]string{"username": username, "password": password}
	if err := a.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return AuthResult{}, err
	}
	if result.Token == "" {
		return AuthResult{}, errors.New("client: server returned no token")
	}
	a.SetToken(result.Token)
	return result, nil
}

func (a *API) Me(ctx context.Context) (User, error) {
	var response struct {
		User User `json:"user"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/auth/me", nil, &response); err != nil {
		return User{}, err
	}
	return response.User, nil
}

func (a *API) Puzzle(ctx context.Context, id int) (puzzles.Puzzle, error) {
	var puzzle puzzles.Puzzle
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/puzzles/%d", id), nil, &puzzle); err != nil {
		return puzzles.Puzzle{}, err
	}
	return puzzle, nil
}

func (a *API) RandomPuzzle(ctx context.Context, difficulty puzzles.Difficulty) (puzzles.Puzzle, error) {
	var puzzle puzzles.Puzzle
	path := "/api/puzzles/random/" + url.PathEscape(string(difficulty))
	if err := a.do(ctx, http.MethodGet, path, nil, &puzzle); err != nil {
		return puzzles.Puzzle{}, err
	}
	return puzzle, nil
}

func (a *API) SaveEvaluation(ctx context.Context, puzzleID int, value evaluations.Value) error {
	body := map[string]any{"puzzleId": puzzleID, "evaluation": value}
	return a.do(ctx, http.MethodPost, "/api/evaluations/save", body, nil)
}

// Evaluation returns the caller's rating of puzzleID; ok is false when unrated.
func (a *API) Evaluation(ctx context.Context, puzzleID int) (evaluations.Value, bool, error) {
	var response struct {
		Evaluation *evaluations.Value `json:"evaluation"`
	}
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/evaluations/%d", puzzleID), nil, &response); err != nil {
		return "", false, err
	}
	if response.Evaluation == nil {
		return "", false, nil
	}
	return *response.Evaluation, true, nil
}

func (a *API) Stats(ctx context.Context) (evaluations.Stats, error) {
	var response struct {
		Stats evaluations.Stats `json:"stats"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/evaluations/user/stats", nil, &response); err != nil {
		return evaluations.Stats{}, err
	}
	return response.Stats, nil
}

// Room fetches the snapshot of a shared room.
func (a *API) Room(ctx context.Context, roomID string) (rooms.Snapshot, error) {
	var snapshot rooms.Snapshot
	if err := a.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(roomID), nil, &snapshot); err != nil {
		return rooms.Snapshot{}, err
	}
	return snapshot, nil
}

func (a *API) do(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	a.logger.Debug("api request", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			apiErr.Code = errResp.Error
			apiErr.Message = errResp.Message
			if apiErr.Message == "" {
				apiErr.Message = errResp.Error
			}
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("client: decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
