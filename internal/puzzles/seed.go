package puzzles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/corentings/chess/v2"
	"go.uber.org/zap"
)

type catalogueEntry struct {
	Description string `json:"descr"`
	FEN         string `json:"fen"`
	Direction   string `json:"direction"`
	Solution    string `json:"solution"`
	Unicode     string `json:"unicode"`
	Lichess     string `json:"lichess"`
}

// LoadFile reads a catalogue file shaped as {"<id>": {descr, fen, ...}}.
// Keys that are not ids in range are skipped. FEN strings are URL-unescaped
// when possible and kept raw otherwise; entries the chess library rejects
// are still returned, with a warning.
func LoadFile(path string, logger *zap.Logger) ([]Puzzle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return Parse(data, logger)
}

// Parse decodes catalogue JSON; see LoadFile.
func Parse(data []byte, logger *zap.Logger) ([]Puzzle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	result := make([]Puzzle, 0, len(entries))
	for key, raw := range entries {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || !ValidID(id) {
			logger.Debug("skipping catalogue key", zap.String("key", key))
			continue
		}
		var entry catalogueEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			logger.Warn("skipping malformed catalogue entry", zap.Int("puzzle_id", id), zap.Error(err))
			continue
		}

		puzzle := Puzzle{
			ID:          id,
			Description: entry.Description,
			FEN:         unescapeFEN(entry.FEN),
			Direction:   normalizeDirection(entry.Direction),
			Solution:    entry.Solution,
			Unicode:     entry.Unicode,
			Lichess:     entry.Lichess,
		}
		if puzzle.Unicode == "" {
			diagram, err := Diagram(puzzle.FEN, puzzle.Direction)
			if err != nil {
				logger.Warn("catalogue fen rejected by chess library",
					zap.Int("puzzle_id", id),
					zap.String("fen", puzzle.FEN),
					zap.Error(err))
			} else {
				puzzle.Unicode = diagram
			}
		}
		result = append(result, puzzle)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Diagram renders fen as a unicode board. A bare piece-placement field is
// completed with the side to move taken from direction.
func Diagram(fen, direction string) (string, error) {
	opt, err := chess.FEN(completeFEN(fen, direction))
	if err != nil {
		return "", err
	}
	game := chess.NewGame(opt)
	return game.Position().Board().Draw(), nil
}

// Seed writes puzzles to store.
func Seed(ctx context.Context, store Store, puzzles []Puzzle) error {
	if store == nil {
		return errMissingStore
	}
	return store.Put(ctx, puzzles...)
}

// SeedIfEmpty loads path into store unless the store already holds puzzles.
// It reports how many puzzles were written.
func SeedIfEmpty(ctx context.Context, store Store, path string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	count, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Debug("puzzle store already seeded", zap.Int("count", count))
		return 0, nil
	}
	puzzles, err := LoadFile(path, logger)
	if err != nil {
		return 0, err
	}
	if err := Seed(ctx, store, puzzles); err != nil {
		return 0, err
	}
	logger.Info("puzzle store seeded", zap.String("path", path), zap.Int("count", len(puzzles)))
	return len(puzzles), nil
}

func unescapeFEN(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func normalizeDirection(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "b", "black":
		return "b"
	default:
		return "w"
	}
}

func completeFEN(fen, direction string) string {
	fields := strings.Fields(fen)
	switch len(fields) {
	case 0:
		return ""
	case 6:
		return strings.Join(fields, " ")
	}
	return fmt.Sprintf("%s %s - - 0 1", fields[0], normalizeDirection(direction))
}
