// Package game implements the tic-tac-toe engine: per-game boards, the
// shared turn counter, resynchronisation verdicts, and inactivity sweeping.
// The engine is pure state machine; the node layer turns verdicts into
// frames on the wire.
package game

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

// InactivityTimeout bounds how long an idle game survives before the
// sweeper collects it.
const InactivityTimeout = 60 * time.Second

const (
	SymbolX = "X"
	SymbolO = "O"

	OutcomeX    = "X"
	OutcomeO    = "O"
	OutcomeDraw = "DRAW"
)

// winningLines enumerates the three rows, three columns and two diagonals.
var winningLines = [8][3]int64{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Move is one recorded ply of a game's shared move sequence.
type Move struct {
	Turn     int64
	Position int64
	Symbol   string
}

// Result describes a finished game. Line is empty for a draw.
type Result struct {
	Outcome string
	Line    []int64
}

// LineString renders the winning line as the comma triple used on the wire.
func (r *Result) LineString() string {
	parts := make([]string, len(r.Line))
	for i, p := range r.Line {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}

// Game holds one active match against a single opponent.
type Game struct {
	ID           string
	Opponent     string
	MySymbol     string
	TheirSymbol  string
	Board        [9]string
	NextTurn     int64
	LastActivity time.Time

	moves map[int64]Move            // applied history, keyed by turn
	held  map[int64]*proto.TTTMove  // future moves waiting on missing history
}

// BoardString renders the board as nine comma-separated cells, empty string
// for a vacant cell.
func (g *Game) BoardString() string {
	return strings.Join(g.Board[:], ",")
}

func otherSymbol(s string) string {
	if s == SymbolX {
		return SymbolO
	}
	return SymbolX
}

// checkResult returns the finished-game result, or nil while play continues.
func (g *Game) checkResult() *Result {
	for _, line := range winningLines {
		a, b, c := g.Board[line[0]], g.Board[line[1]], g.Board[line[2]]
		if a != "" && a == b && b == c {
			return &Result{Outcome: a, Line: line[:]}
		}
	}
	for _, cell := range g.Board {
		if cell == "" {
			return nil
		}
	}
	return &Result{Outcome: OutcomeDraw}
}

// VerdictKind classifies what the node should do with an inbound move.
type VerdictKind int

const (
	// VerdictApplied: one or more moves landed on the board; ACK each.
	VerdictApplied VerdictKind = iota
	// VerdictDuplicate: turn already applied; re-ACK and drop.
	VerdictDuplicate
	// VerdictNeedState: unknown game; send TICTACTOE_STATE_REQUEST.
	VerdictNeedState
	// VerdictNeedHistory: future turn; send TICTACTOE_MOVE_REQUEST
	// for [FromTurn, ToTurn] and hold the move.
	VerdictNeedHistory
	// VerdictRejected: occupied cell or wrong symbol; drop.
	VerdictRejected
)

// Verdict is the engine's decision about an inbound TICTACTOE_MOVE.
type Verdict struct {
	Kind     VerdictKind
	FromTurn int64 // NeedHistory range start
	ToTurn   int64 // NeedHistory range end
	// Applied lists the moves placed on the board, in turn order: the
	// triggering move plus any held future moves it unblocked. The node
	// ACKs each entry carrying a message ID.
	Applied []*proto.TTTMove
	// Result is set when an applied move finished the game.
	Result *Result
}

// Manager owns every active game, keyed by game ID.
type Manager struct {
	mu    sync.Mutex
	games map[string]*Game

	now func() time.Time
	log *slog.Logger
}

// NewManager returns an empty game table.
func NewManager() *Manager {
	return &Manager{
		games: make(map[string]*Game),
		now:   time.Now,
		log:   logger.Logger().With("component", "game"),
	}
}

func newGame(id, opponent, mySymbol string, now time.Time) *Game {
	return &Game{
		ID:           id,
		Opponent:     opponent,
		MySymbol:     mySymbol,
		TheirSymbol:  otherSymbol(mySymbol),
		NextTurn:     1,
		LastActivity: now,
		moves:        make(map[int64]Move),
		held:         make(map[int64]*proto.TTTMove),
	}
}

// StartLocal registers a game this node initiated; the inviter keeps the
// symbol it chose.
func (m *Manager) StartLocal(gameID, opponent, mySymbol string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.games[gameID]; dup {
		return nil, errors.NewGameError("invite", fmt.Errorf("game %s already active", gameID))
	}
	g := newGame(gameID, opponent, mySymbol, m.now())
	m.games[gameID] = g
	return g, nil
}

// HandleInvite registers a game started by the opponent; the invitee takes
// the symbol the inviter did not pick. A repeated invite for a live game
// returns the existing state.
func (m *Manager) HandleInvite(inv *proto.TTTInvite) *Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[inv.GameID]; ok {
		g.LastActivity = m.now()
		return g
	}
	g := newGame(inv.GameID, inv.From, otherSymbol(inv.Symbol), m.now())
	m.games[inv.GameID] = g
	m.log.Info("game invite", "game_id", inv.GameID, "from", inv.From, "my_symbol", g.MySymbol)
	return g
}

// Get returns a game by ID.
func (m *Manager) Get(gameID string) (*Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	return g, ok
}

// PlayLocal applies this node's own move and returns the recorded ply along
// with any finishing result. The caller sends the TICTACTOE_MOVE (and on a
// result, TICTACTOE_RESULT) to the opponent.
func (m *Manager) PlayLocal(gameID string, position int64) (Move, *Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return Move{}, nil, errors.NewGameError("move", fmt.Errorf("unknown game %s", gameID))
	}
	if position < 0 || position > 8 {
		return Move{}, nil, errors.NewGameError("move", fmt.Errorf("position %d out of range", position))
	}
	if g.Board[position] != "" {
		return Move{}, nil, errors.NewGameError("move", fmt.Errorf("cell %d occupied", position))
	}
	mv := Move{Turn: g.NextTurn, Position: position, Symbol: g.MySymbol}
	m.applyLocked(g, mv)
	res := g.checkResult()
	return mv, res, nil
}

func (m *Manager) applyLocked(g *Game, mv Move) {
	g.Board[mv.Position] = mv.Symbol
	g.moves[mv.Turn] = mv
	delete(g.held, mv.Turn)
	g.NextTurn = mv.Turn + 1
	g.LastActivity = m.now()
}

// HandleMove runs the inbound-move state machine:
//
//	unknown game       -> NeedState
//	turn < expected    -> Duplicate (re-ACK)
//	turn > expected    -> hold the move, NeedHistory [expected, turn-1]
//	turn = expected    -> apply if the cell is free and the symbol is the
//	                      opponent's, then drain any held moves it unblocks
func (m *Manager) HandleMove(mv *proto.TTTMove) Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[mv.GameID]
	if !ok {
		return Verdict{Kind: VerdictNeedState}
	}
	g.LastActivity = m.now()

	switch {
	case mv.Turn < g.NextTurn:
		return Verdict{Kind: VerdictDuplicate}
	case mv.Turn > g.NextTurn:
		g.held[mv.Turn] = mv
		return Verdict{Kind: VerdictNeedHistory, FromTurn: g.NextTurn, ToTurn: mv.Turn - 1}
	}

	if mv.Position < 0 || mv.Position > 8 || g.Board[mv.Position] != "" || mv.Symbol != g.TheirSymbol {
		m.log.Warn("rejected move", "game_id", mv.GameID, "turn", mv.Turn, "position", mv.Position, "symbol", mv.Symbol)
		return Verdict{Kind: VerdictRejected}
	}

	v := Verdict{Kind: VerdictApplied, Applied: []*proto.TTTMove{mv}}
	m.applyLocked(g, Move{Turn: mv.Turn, Position: mv.Position, Symbol: mv.Symbol})

	// Drain held future moves now that the gap is closed.
	for {
		next, ok := g.held[g.NextTurn]
		if !ok {
			break
		}
		delete(g.held, next.Turn)
		if next.Position < 0 || next.Position > 8 || g.Board[next.Position] != "" {
			break
		}
		m.applyLocked(g, Move{Turn: next.Turn, Position: next.Position, Symbol: next.Symbol})
		v.Applied = append(v.Applied, next)
	}

	if res := g.checkResult(); res != nil {
		v.Result = res
	}
	return v
}

// Unplay reverts this node's own most recent move after a delivery failure
// so both boards stay aligned.
func (m *Manager) Unplay(gameID string, mv Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return errors.NewGameError("unplay", fmt.Errorf("unknown game %s", gameID))
	}
	if g.NextTurn != mv.Turn+1 {
		return errors.NewGameError("unplay", fmt.Errorf("turn %d is not the latest move", mv.Turn))
	}
	g.Board[mv.Position] = ""
	delete(g.moves, mv.Turn)
	g.NextTurn = mv.Turn
	g.LastActivity = m.now()
	return nil
}

// HandleResult deletes the game named by an inbound TICTACTOE_RESULT. It
// reports whether the game was still live; a result for a game already
// finished locally changes nothing.
func (m *Manager) HandleResult(gameID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.games[gameID]
	delete(m.games, gameID)
	return ok
}

// Finish deletes a game this node declared the result for.
func (m *Manager) Finish(gameID string) { m.HandleResult(gameID) }

// StateResponse builds the authoritative board snapshot for a peer that
// lost the game state.
func (m *Manager) StateResponse(gameID string) (board string, nextTurn int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return "", 0, errors.NewGameError("state", fmt.Errorf("unknown game %s", gameID))
	}
	return g.BoardString(), g.NextTurn, nil
}

// AdoptState replaces a game's board and turn counter with the opponent's
// authoritative snapshot, creating the game if it is unknown locally.
func (m *Manager) AdoptState(resp *proto.TTTStateResponse, mySymbol string) error {
	cells := strings.Split(resp.Board, ",")
	if len(cells) != 9 {
		return errors.NewGameError("state", fmt.Errorf("board %q is not nine cells", resp.Board))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[resp.GameID]
	if !ok {
		g = newGame(resp.GameID, resp.From, mySymbol, m.now())
		m.games[resp.GameID] = g
	}
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell != "" && cell != SymbolX && cell != SymbolO {
			return errors.NewGameError("state", fmt.Errorf("bad cell %q", cell))
		}
		g.Board[i] = cell
	}
	g.NextTurn = resp.Turn
	g.LastActivity = m.now()
	return nil
}

// MovesInRange returns this node's applied moves with turns in [from, to],
// for replay after a TICTACTOE_MOVE_REQUEST.
func (m *Manager) MovesInRange(gameID string, from, to int64) ([]Move, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, errors.NewGameError("replay", fmt.Errorf("unknown game %s", gameID))
	}
	var out []Move
	for t := from; t <= to; t++ {
		if mv, ok := g.moves[t]; ok && mv.Symbol == g.MySymbol {
			out = append(out, mv)
		}
	}
	return out, nil
}

// Sweep deletes games idle longer than InactivityTimeout and returns their
// IDs so the node can surface a notice.
func (m *Manager) Sweep() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-InactivityTimeout)
	var expired []string
	for id, g := range m.games {
		if g.LastActivity.Before(cutoff) {
			delete(m.games, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// Len reports the number of active games.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}
