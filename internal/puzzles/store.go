package puzzles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "puzzle:"

var errStoreClosed = errors.New("puzzles: store is closed")

// Store persists catalogue entries by id.
type Store interface {
	Get(ctx context.Context, id int) (Puzzle, bool, error)
	Put(ctx context.Context, puzzles ...Puzzle) error
	IDs(ctx context.Context, min, max int) ([]int, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// BadgerStore keeps puzzles as JSON values under zero-padded keys so that
// iteration follows id order.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the catalogue at path. An in-memory store ignores path.
func OpenBadgerStore(path string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open puzzle store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func puzzleKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%06d", keyPrefix, id))
}

func idFromKey(key []byte) (int, bool) {
	raw, ok := strings.CutPrefix(string(key), keyPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *BadgerStore) Get(ctx context.Context, id int) (Puzzle, bool, error) {
	if s == nil || s.db == nil {
		return Puzzle{}, false, errStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return Puzzle{}, false, err
	}

	var puzzle Puzzle
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(puzzleKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &puzzle)
		})
	})
	if err != nil {
		return Puzzle{}, false, fmt.Errorf("read puzzle %d: %w", id, err)
	}
	return puzzle, found, nil
}

func (s *BadgerStore) Put(ctx context.Context, puzzles ...Puzzle) error {
	if s == nil || s.db == nil {
		return errStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := s.db.NewWriteBatch()
	defer batch.Cancel()
	for _, puzzle := range puzzles {
		if !ValidID(puzzle.ID) {
			return fmt.Errorf("store puzzle %d: %w", puzzle.ID, ErrInvalidPuzzleID)
		}
		data, err := json.Marshal(puzzle)
		if err != nil {
			return fmt.Errorf("encode puzzle %d: %w", puzzle.ID, err)
		}
		if err := batch.Set(puzzleKey(puzzle.ID), data); err != nil {
			return fmt.Errorf("store puzzle %d: %w", puzzle.ID, err)
		}
	}
	if err := batch.Flush(); err != nil {
		return fmt.Errorf("flush puzzles: %w", err)
	}
	return nil
}

// IDs lists the stored ids inside [min, max] in ascending order.
func (s *BadgerStore) IDs(ctx context.Context, min, max int) ([]int, error) {
	if s == nil || s.db == nil {
		return nil, errStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]int, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(puzzleKey(min)); it.Valid(); it.Next() {
			id, ok := idFromKey(it.Item().Key())
			if !ok {
				continue
			}
			if id > max {
				break
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan puzzles: %w", err)
	}
	return ids, nil
}

func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	ids, err := s.IDs(ctx, 1, MaxPuzzleID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
