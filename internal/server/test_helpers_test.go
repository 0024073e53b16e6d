package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/auth"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/database"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/evaluations"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/rooms"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/users"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

var testCatalogue = []puzzles.Puzzle{
	{ID: 1, Description: "Mate in one", FEN: "6k1/5ppp/8/8/8/8/5PPP/3R2K1", Direction: "w", Solution: "1. Rd8#"},
	{ID: 2, Description: "Win the queen", FEN: "4k3/8/8/3q4/8/8/8/3RK3", Direction: "w"},
	{ID: 500, Description: "Fork", FEN: "r3k3/8/8/8/8/8/8/4K2N", Direction: "w", Solution: "1. Ng3"},
	{ID: 1000, Description: "Deflection", FEN: "8/8/8/8/8/8/8/K6k", Direction: "b", Solution: "1... Kg2"},
}

type testServer struct {
	handler http.Handler
	issuer  *auth.TokenIssuer
	rooms   *rooms.Registry
}

func newTestServer(t *testing.T, logger *zap.Logger) *testServer {
	t.Helper()
	return newTestServerWithCatalogue(t, logger, testCatalogue)
}

func newTestServerWithCatalogue(t *testing.T, logger *zap.Logger, catalogue []puzzles.Puzzle) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "woodpecker.db"), logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	usersService, err := users.NewService(users.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	evaluationsService, err := evaluations.NewService(evaluations.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create evaluations service: %v", err)
	}

	store, err := puzzles.OpenBadgerStore("", true)
	if err != nil {
		t.Fatalf("failed to open puzzle store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := puzzles.Seed(context.Background(), store, catalogue); err != nil {
		t.Fatalf("failed to seed puzzles: %v", err)
	}
	puzzlesService, err := puzzles.NewService(puzzles.ServiceConfig{
		Store:  store,
		Logger: logger,
		Pick:   func(int) int { return 0 },
	})
	if err != nil {
		t.Fatalf("failed to create puzzles service: %v", err)
	}

	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "woodpecker-api",
		Audience:      "woodpecker-trainer",
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}

	registry := rooms.NewRegistry(rooms.RegistryConfig{Logger: logger})
	handler, err := NewHTTPHandler(Dependencies{
		TokenManager: issuer,
		Users:        usersService,
		Puzzles:      puzzlesService,
		Evaluations:  evaluationsService,
		Rooms:        registry,
		Clock:        func() time.Time { return fixedNow },
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return &testServer{handler: handler, issuer: issuer, rooms: registry}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func (s *testServer) register(t *testing.T, username, password string) string {
	t.Helper()
	recorder := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", recorder.Code, recorder.Body.String())
	}
	var response authResponsePayload
	decodeBody(t, recorder, &response)
	return response.Token
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}
