package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/board"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/client"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/evaluations"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/puzzles"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/rooms"
	"go.uber.org/zap"
)

var errUsage = errors.New("wrong arguments")

type command struct {
	name        string
	usage       string
	description string
	run         func(args []string) error
}

// shell owns the solo trainer and, once a room is joined, the shared board.
// Clicks go to the room board while a room is joined.
type shell struct {
	ctx      context.Context
	api      *client.API
	trainer  *client.Trainer
	logger   *zap.Logger
	dialRoom func(ctx context.Context) (*client.Room, error)

	outMu sync.Mutex
	out   io.Writer

	room     *client.Room
	commands map[string]*command
	order    []string
}

func newShell(ctx context.Context, api *client.API, out io.Writer, logger *zap.Logger) *shell {
	s := &shell{
		ctx:      ctx,
		api:      api,
		trainer:  client.NewTrainer(api),
		logger:   logger,
		out:      out,
		commands: make(map[string]*command),
	}
	s.dialRoom = func(ctx context.Context) (*client.Room, error) {
		wsURL, err := client.WebSocketURL(api.BaseURL())
		if err != nil {
			return nil, err
		}
		return client.DialRoom(ctx, wsURL, client.WithRoomLogger(s.logger))
	}

	s.register("register", "register <username> <password>", "Create an account and log in", s.runRegister)
	s.register("login", "login <username> <password>", "Log in", s.runLogin)
	s.register("logout", "logout", "Forget the access token", s.runLogout)
	s.register("me", "me", "Show the logged in user", s.runMe)
	s.register("puzzle", "puzzle <id>", "Load a puzzle by id", s.runPuzzle)
	s.register("random", "random <easy|medium|hard>", "Load a random puzzle", s.runRandom)
	s.register("board", "board", "Draw the board", s.runBoard)
	s.register("click", "click <cell>...", "Click one or more cells (A1..H8, trays w1..w6 and b1..b6; type B-file squares upper-case)", s.runClick)
	s.register("restart", "restart", "Restore the puzzle start position", s.runRestart)
	s.register("solution", "solution", "Reveal the solution", s.runSolution)
	s.register("rate", "rate <failed|partial|solved>", "Rate the current puzzle", s.runRate)
	s.register("stats", "stats", "Show your statistics", s.runStats)
	s.register("join", "join <room> [puzzle id]", "Join a shared board", s.runJoin)
	s.register("members", "members", "List the other room members", s.runMembers)
	s.register("reset", "reset", "Reset the shared board for everyone", s.runReset)
	s.register("leave", "leave", "Leave the shared board", s.runLeave)
	s.register("help", "help", "Show available commands", s.runHelp)
	return s
}

func (s *shell) register(name, usage, description string, run func(args []string) error) {
	s.commands[name] = &command{name: name, usage: usage, description: description, run: run}
	s.order = append(s.order, name)
}

func (s *shell) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, ok := s.commands[strings.ToLower(fields[0])]
	if !ok {
		s.printf("Unknown command: %s\nType 'help' for available commands\n", fields[0])
		return
	}
	if err := cmd.run(fields[1:]); err != nil {
		if errors.Is(err, errUsage) {
			s.printf("Usage: %s\n", cmd.usage)
			return
		}
		s.printf("Error: %v\n", err)
	}
}

func (s *shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *shell) prompt() string {
	parts := []string{"woodpecker"}
	if puzzle, ok := s.currentPuzzle(); ok {
		parts = append(parts, fmt.Sprintf("#%d", puzzle.ID))
	}
	if s.inRoom() {
		parts = append(parts, "@"+s.room.RoomID())
	}
	return strings.Join(parts, " ") + "> "
}

func (s *shell) inRoom() bool {
	return s.room != nil && s.room.RoomID() != ""
}

func (s *shell) currentPuzzle() (puzzles.Puzzle, bool) {
	if s.inRoom() {
		return s.room.Puzzle(), true
	}
	return s.trainer.Puzzle()
}

func (s *shell) render() string {
	if s.inRoom() {
		return s.room.Render()
	}
	return s.trainer.Render()
}

func (s *shell) close() {
	if s.room != nil {
		_ = s.room.Close()
	}
}

func (s *shell) runRegister(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	result, err := s.api.Register(s.ctx, args[0], args[1])
	if err != nil {
		return err
	}
	s.printf("%s as %s\n", result.Message, result.User.Username)
	return nil
}

func (s *shell) runLogin(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	result, err := s.api.Login(s.ctx, args[0], args[1])
	if err != nil {
		return err
	}
	s.printf("%s as %s\n", result.Message, result.User.Username)
	return nil
}

func (s *shell) runLogout([]string) error {
	s.api.Logout()
	s.printf("Logged out\n")
	return nil
}

func (s *shell) runMe([]string) error {
	user, err := s.api.Me(s.ctx)
	if err != nil {
		return err
	}
	s.printf("%s (%s)\n", user.Username, user.ID)
	return nil
}

func (s *shell) runPuzzle(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || !puzzles.ValidID(id) {
		return fmt.Errorf("puzzle id must be between 1 and 1128")
	}
	s.show(s.api.FetchPuzzle(s.ctx, id))
	return nil
}

func (s *shell) runRandom(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	difficulty, err := puzzles.ParseDifficulty(args[0])
	if err != nil {
		return err
	}
	s.show(s.api.FetchRandom(s.ctx, difficulty))
	return nil
}

func (s *shell) show(puzzle puzzles.Puzzle) {
	if s.inRoom() {
		s.room.Load(puzzle)
	} else {
		s.trainer.Show(puzzle)
	}
	s.printPuzzle(puzzle)
}

func (s *shell) printPuzzle(puzzle puzzles.Puzzle) {
	side := "White"
	if client.SideToMove(puzzle.Direction) == board.Black {
		side = "Black"
	}
	difficulty, _ := puzzles.DifficultyFor(puzzle.ID)
	s.printf("Puzzle #%d (%s) %s\n%s to move\n%s", puzzle.ID, difficulty, puzzle.Description, side, s.render())
}

func (s *shell) runBoard([]string) error {
	if _, ok := s.currentPuzzle(); !ok {
		return client.ErrNoPuzzle
	}
	s.printf("%s", s.render())
	return nil
}

func (s *shell) runClick(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if _, ok := s.currentPuzzle(); !ok {
		return client.ErrNoPuzzle
	}
	for _, raw := range args {
		cell, err := board.ParseCell(raw)
		if err != nil {
			return err
		}
		var move board.Move
		var committed bool
		if s.inRoom() {
			move, committed = s.room.Click(cell)
		} else {
			move, committed = s.trainer.Click(cell)
		}
		if committed {
			s.printf("%s %s -> %s\n", move.Piece, move.From, move.To)
		}
	}
	s.printf("%s", s.render())
	return nil
}

func (s *shell) runRestart([]string) error {
	if s.inRoom() {
		return fmt.Errorf("use 'reset' to restart a shared board")
	}
	if _, ok := s.trainer.Puzzle(); !ok {
		return client.ErrNoPuzzle
	}
	s.trainer.Restart()
	s.printf("%s", s.trainer.Render())
	return nil
}

func (s *shell) runSolution([]string) error {
	if s.inRoom() {
		s.printf("Solution: %s\n", s.room.Puzzle().Solution)
		return nil
	}
	solution, err := s.trainer.Solution()
	if err != nil {
		return err
	}
	s.printf("Solution: %s\n", solution)
	return nil
}

func (s *shell) runRate(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	value, err := evaluations.ParseValue(args[0])
	if err != nil {
		return err
	}
	if s.inRoom() {
		s.trainer.Show(s.room.Puzzle())
	}
	if err := s.trainer.Rate(s.ctx, value); err != nil {
		return err
	}
	puzzle, _ := s.trainer.Puzzle()
	s.printf("Puzzle #%d rated %s\n", puzzle.ID, value)
	return nil
}

func (s *shell) runStats([]string) error {
	stats, err := s.api.Stats(s.ctx)
	if err != nil {
		return err
	}
	s.printf("Rated %d: %d solved, %d partial, %d failed (%d%% solved)\n",
		stats.TotalPuzzles, stats.SolvedCount, stats.PartialCount, stats.FailedCount, stats.SuccessRate)
	s.printf("Easy %d, medium %d, hard %d\n",
		stats.DifficultyBreakdown.Easy, stats.DifficultyBreakdown.Medium, stats.DifficultyBreakdown.Hard)
	return nil
}

func (s *shell) runJoin(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	puzzle, ok := s.trainer.Puzzle()
	if len(args) == 2 {
		id, err := strconv.Atoi(args[1])
		if err != nil || !puzzles.ValidID(id) {
			return fmt.Errorf("puzzle id must be between 1 and 1128")
		}
		puzzle, ok = s.api.FetchPuzzle(s.ctx, id), true
	}
	if !ok {
		return fmt.Errorf("load a puzzle first or pass a puzzle id")
	}
	if s.room == nil || !s.room.Connected() {
		room, err := s.dialRoom(s.ctx)
		if err != nil {
			return err
		}
		s.room = room
		go s.follow(room)
	}
	if err := s.room.Join(args[0], puzzle); err != nil {
		return err
	}
	s.printf("Joined %s with puzzle #%d\n%s", args[0], puzzle.ID, s.room.Render())
	return nil
}

// follow reports relay events until the connection ends. A late joiner
// switches to the puzzle the room was created with.
func (s *shell) follow(room *client.Room) {
	for envelope := range room.Events() {
		switch envelope.Event {
		case rooms.EventRoomJoined:
			if id := room.RoomPuzzleID(); id != 0 && id != room.Puzzle().ID {
				puzzle := s.api.FetchPuzzle(s.ctx, id)
				room.Load(puzzle)
				s.printf("\nThe room is working on puzzle #%d\n%s", id, room.Render())
			}
		case rooms.EventUserJoined:
			s.printf("\nA peer joined (%d in room)\n", len(room.Members())+1)
		case rooms.EventUserLeft:
			s.printf("\nA peer left (%d in room)\n", len(room.Members())+1)
		case rooms.EventPieceMoved, rooms.EventSidePieceMoved:
			s.printf("\nPeer moved\n%s", room.Render())
		case rooms.EventBoardReset:
			s.printf("\nBoard reset\n%s", room.Render())
		case rooms.EventError:
			var payload rooms.ErrorPayload
			_ = json.Unmarshal(envelope.Payload, &payload)
			s.printf("\nRoom error: %s\n", payload.Message)
		}
	}
	s.printf("\nRoom connection closed\n")
}

func (s *shell) runMembers([]string) error {
	if !s.inRoom() {
		return client.ErrNotInRoom
	}
	members := s.room.Members()
	s.printf("%d other member(s): %s\n", len(members), strings.Join(members, ", "))
	return nil
}

func (s *shell) runReset([]string) error {
	if !s.inRoom() {
		return client.ErrNotInRoom
	}
	return s.room.Reset()
}

func (s *shell) runLeave([]string) error {
	if !s.inRoom() {
		return client.ErrNotInRoom
	}
	roomID := s.room.RoomID()
	if err := s.room.Leave(); err != nil {
		return err
	}
	s.printf("Left %s\n", roomID)
	return nil
}

func (s *shell) runHelp([]string) error {
	for _, name := range s.order {
		cmd := s.commands[name]
		s.printf("  %-32s %s\n", cmd.usage, cmd.description)
	}
	s.printf("  %-32s %s\n", "exit", "Leave the trainer")
	return nil
}
