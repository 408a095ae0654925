package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrOutOfBounds         = errors.New("coordinate out of bounds")
	ErrOverlap             = errors.New("ships overlap")
	ErrPlacementExhausted  = errors.New("no legal placement found")
	ErrIncompletePlacement = errors.New("not all required ships placed")
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrShotInFlight        = errors.New("a shot is already in flight")
	ErrNotInFlight         = errors.New("no shot in flight")
	ErrWrongPhase          = errors.New("operation not allowed in current phase")
	ErrInvalidPlayer       = errors.New("invalid player")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrClassComplete       = errors.New("all ships of this class already placed")
	ErrInvalidOrientation  = errors.New("invalid orientation")
	ErrUnknownKind         = errors.New("unknown ship kind")
	ErrNoTargets           = errors.New("no unrevealed cells left")
)

type Phase int

const (
	PhasePlacingPlayer1 Phase = iota
	PhasePlacingPlayer2
	PhaseAwaitingShot
	PhaseResolvingShot
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhasePlacingPlayer1:
		return "placing_player1"
	case PhasePlacingPlayer2:
		return "placing_player2"
	case PhaseAwaitingShot:
		return "awaiting_shot"
	case PhaseResolvingShot:
		return "resolving_shot"
	case PhaseGameOver:
		return "game_over"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func placingPhase(player int) Phase {
	if player == 0 {
		return PhasePlacingPlayer1
	}
	return PhasePlacingPlayer2
}

type PlayerKind int

const (
	Human PlayerKind = iota
	AI
)

func (k PlayerKind) String() string {
	if k == AI {
		return "ai"
	}
	return "human"
}

func ParsePlayerKind(s string) (PlayerKind, error) {
	switch strings.ToLower(s) {
	case "human":
		return Human, nil
	case "ai":
		return AI, nil
	default:
		return Human, fmt.Errorf("unknown player kind %q", s)
	}
}

type Player struct {
	Kind   PlayerKind
	board  *Board
	placed map[OccupationKind]int
	shots  int
}

func newPlayer(kind PlayerKind) *Player {
	return &Player{
		Kind:   kind,
		board:  NewBoard(),
		placed: make(map[OccupationKind]int),
	}
}

type EventKind int

const (
	EventPhaseChanged EventKind = iota
	EventShotResolved
	EventMatchWon
	EventForfeited
)

func (k EventKind) String() string {
	switch k {
	case EventPhaseChanged:
		return "phase_changed"
	case EventShotResolved:
		return "shot_resolved"
	case EventMatchWon:
		return "match_won"
	case EventForfeited:
		return "forfeited"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a fire-and-forget notification for the presentation layer.
// Winner is -1 until the match is over.
type Event struct {
	Kind    EventKind
	Phase   Phase
	Shooter int
	Outcome ShotOutcome
	Winner  int
}

type MatchOptions struct {
	Roster Roster
	Rand   *rand.Rand
	// ManualSettle keeps each accepted shot in flight until Settle is called.
	ManualSettle bool
	// OnEvent is called outside the match lock, one event at a time, in the
	// order the match produced them across all callers. It may call back into
	// the match; events raised by such calls are delivered after it returns.
	OnEvent func(Event)
}

// Match is the turn controller of one game between two players.
type Match struct {
	mu sync.Mutex

	roster   Roster
	placer   *AutoPlacer
	targeter *Targeter

	players [2]*Player
	phase   Phase
	active  int
	winner  int
	pending ShotOutcome

	manualSettle bool
	onEvent      func(Event)
	queue        []Event
	dispatching  bool
}

// StartMatch sets up two empty boards in PhasePlacingPlayer1. Computer
// players place their fleets straight away, so a match between two AIs
// returns already finished.
func StartMatch(player1, player2 PlayerKind, opts MatchOptions) (*Match, error) {
	roster := opts.Roster
	if roster == nil {
		roster = DefaultRoster
	}
	if err := roster.validate(); err != nil {
		return nil, err
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	m := &Match{
		roster:       roster,
		placer:       NewAutoPlacer(rng),
		targeter:     NewTargeter(rng),
		players:      [2]*Player{newPlayer(player1), newPlayer(player2)},
		winner:       -1,
		manualSettle: opts.ManualSettle,
		onEvent:      opts.OnEvent,
	}

	m.mu.Lock()
	err := m.beginPlacing(0)
	if err == nil {
		err = m.playAI()
	}
	m.mu.Unlock()
	m.flush()
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Match) emit(ev Event) {
	if m.onEvent != nil {
		m.queue = append(m.queue, ev)
	}
}

func (m *Match) drain() []Event {
	evs := m.queue
	m.queue = nil
	return evs
}

// flush delivers queued events. Only one goroutine dispatches at a time; a
// caller that finds a dispatch in progress leaves its events to it.
func (m *Match) flush() {
	m.mu.Lock()
	if m.dispatching {
		m.mu.Unlock()
		return
	}
	m.dispatching = true
	for len(m.queue) > 0 {
		evs := m.drain()
		m.mu.Unlock()
		for _, ev := range evs {
			m.onEvent(ev)
		}
		m.mu.Lock()
	}
	m.dispatching = false
	m.mu.Unlock()
}

// run executes fn under the lock and delivers the events it produced.
func (m *Match) run(fn func() error) error {
	m.mu.Lock()
	err := fn()
	m.mu.Unlock()
	m.flush()
	return err
}

func (m *Match) setPhase(p Phase) {
	m.phase = p
	m.emit(Event{Kind: EventPhaseChanged, Phase: p, Shooter: m.active, Winner: m.winner})
}

func (m *Match) player(i int) (*Player, error) {
	if i != 0 && i != 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPlayer, i)
	}
	return m.players[i], nil
}

func (m *Match) placingPlayer(i int) (*Player, error) {
	p, err := m.player(i)
	if err != nil {
		return nil, err
	}
	if m.phase != placingPhase(i) {
		return nil, fmt.Errorf("%w: player %d cannot place during %s", ErrWrongPhase, i+1, m.phase)
	}
	return p, nil
}

func (m *Match) beginPlacing(i int) error {
	m.setPhase(placingPhase(i))
	if m.players[i].Kind != AI {
		return nil
	}
	if err := m.autoPlace(i); err != nil {
		return err
	}
	return m.confirmReady(i)
}

// CheckPlacement returns the footprint SubmitPlacement would place, without
// placing it.
func (m *Match) CheckPlacement(player int, kind OccupationKind, base Coordinate, o Orientation) ([]Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.placingPlayer(player)
	if err != nil {
		return nil, err
	}
	return m.footprint(p, kind, base, o)
}

func (m *Match) footprint(p *Player, kind OccupationKind, base Coordinate, o Orientation) ([]Coordinate, error) {
	class, ok := m.roster.Class(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not in the roster", ErrUnknownKind, kind)
	}
	if p.placed[kind] >= class.Count {
		return nil, fmt.Errorf("%w: %s", ErrClassComplete, kind)
	}
	cells, err := Footprint(base, class.Size, o)
	if err != nil {
		return nil, err
	}
	if err := Validate(&p.board.grid, cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// SubmitPlacement places one ship for the player whose placement phase is
// active. A rejected placement leaves the board unchanged.
func (m *Match) SubmitPlacement(player int, kind OccupationKind, base Coordinate, o Orientation) (ShipID, error) {
	id := NoShip
	err := m.run(func() error {
		p, err := m.placingPlayer(player)
		if err != nil {
			return err
		}
		cells, err := m.footprint(p, kind, base, o)
		if err != nil {
			return err
		}
		id, err = p.board.Place(kind, cells)
		if err != nil {
			return err
		}
		p.placed[kind]++
		return nil
	})
	return id, err
}

// AutoPlaceFleet replaces the player's fleet with a random legal one.
func (m *Match) AutoPlaceFleet(player int) error {
	return m.run(func() error {
		if _, err := m.placingPlayer(player); err != nil {
			return err
		}
		return m.autoPlace(player)
	})
}

func (m *Match) autoPlace(i int) error {
	p := m.players[i]
	clear(p.placed)
	if err := m.placer.PlaceRoster(p.board, m.roster); err != nil {
		p.board.Clear()
		return err
	}
	for _, class := range m.roster {
		p.placed[class.Kind] = class.Count
	}
	return nil
}

// ClearPlacement removes every ship the player has placed so far.
func (m *Match) ClearPlacement(player int) error {
	return m.run(func() error {
		p, err := m.placingPlayer(player)
		if err != nil {
			return err
		}
		p.board.Clear()
		clear(p.placed)
		return nil
	})
}

// Remaining reports, per ship kind, how many ships the player still has to
// place.
func (m *Match) Remaining(player int) (map[OccupationKind]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.player(player)
	if err != nil {
		return nil, err
	}
	return m.remaining(p), nil
}

func (m *Match) remaining(p *Player) map[OccupationKind]int {
	out := make(map[OccupationKind]int)
	for _, class := range m.roster {
		if n := class.Count - p.placed[class.Kind]; n > 0 {
			out[class.Kind] = n
		}
	}
	return out
}

// ConfirmPlacementReady ends the player's placement phase once every
// required ship is on the board.
func (m *Match) ConfirmPlacementReady(player int) error {
	return m.run(func() error {
		if err := m.confirmReady(player); err != nil {
			return err
		}
		return m.playAI()
	})
}

func (m *Match) confirmReady(i int) error {
	p, err := m.placingPlayer(i)
	if err != nil {
		return err
	}
	if missing := m.remaining(p); len(missing) > 0 {
		kinds := make([]string, 0, len(missing))
		for k, n := range missing {
			kinds = append(kinds, fmt.Sprintf("%d %s", n, k))
		}
		sort.Strings(kinds)
		return fmt.Errorf("%w: missing %s", ErrIncompletePlacement, strings.Join(kinds, ", "))
	}
	if i == 0 {
		return m.beginPlacing(1)
	}
	m.active = 0
	m.setPhase(PhaseAwaitingShot)
	return nil
}

// SubmitShot fires the active player's shot at coord. Shooting a revealed
// cell returns an outcome with WasAlreadyRevealed set and keeps the turn.
func (m *Match) SubmitShot(coord Coordinate) (ShotOutcome, error) {
	var out ShotOutcome
	err := m.run(func() error {
		var err error
		if out, err = m.fire(coord); err != nil {
			return err
		}
		return m.playAI()
	})
	return out, err
}

// SubmitShotAs is SubmitShot for callers that must prove it is their turn.
func (m *Match) SubmitShotAs(player int, coord Coordinate) (ShotOutcome, error) {
	var out ShotOutcome
	err := m.run(func() error {
		if _, err := m.player(player); err != nil {
			return err
		}
		if m.phase == PhaseAwaitingShot && m.active != player {
			return ErrNotYourTurn
		}
		var err error
		if out, err = m.fire(coord); err != nil {
			return err
		}
		return m.playAI()
	})
	return out, err
}

// RequestAIShot lets the targeting heuristic choose and fire the active
// player's shot.
func (m *Match) RequestAIShot() (Coordinate, ShotOutcome, error) {
	var (
		target Coordinate
		out    ShotOutcome
	)
	err := m.run(func() error {
		if m.phase == PhaseAwaitingShot && m.players[m.active].Kind != AI {
			return ErrNotYourTurn
		}
		var err error
		if target, out, err = m.aiShot(); err != nil {
			return err
		}
		return m.playAI()
	})
	return target, out, err
}

func (m *Match) aiShot() (Coordinate, ShotOutcome, error) {
	if err := m.checkShotPhase(); err != nil {
		return Coordinate{}, ShotOutcome{}, err
	}
	target, err := m.targeter.NextTarget(m.players[1-m.active].board.View())
	if err != nil {
		return Coordinate{}, ShotOutcome{}, err
	}
	out, err := m.fire(target)
	return target, out, err
}

// playAI keeps firing for computer players while it is their turn and no
// shot is waiting to settle.
func (m *Match) playAI() error {
	for m.phase == PhaseAwaitingShot && m.players[m.active].Kind == AI {
		target, out, err := m.aiShot()
		if err != nil {
			return err
		}
		if out.WasAlreadyRevealed {
			return fmt.Errorf("targeting chose revealed cell %s", target)
		}
	}
	return nil
}

func (m *Match) checkShotPhase() error {
	switch m.phase {
	case PhaseAwaitingShot:
		return nil
	case PhaseResolvingShot:
		return ErrShotInFlight
	default:
		return fmt.Errorf("%w: cannot shoot during %s", ErrWrongPhase, m.phase)
	}
}

func (m *Match) fire(coord Coordinate) (ShotOutcome, error) {
	if err := m.checkShotPhase(); err != nil {
		return ShotOutcome{}, err
	}
	out, err := Resolve(m.players[1-m.active].board, coord)
	if err != nil || out.WasAlreadyRevealed {
		return out, err
	}

	m.players[m.active].shots++
	m.pending = out
	m.setPhase(PhaseResolvingShot)
	m.emit(Event{Kind: EventShotResolved, Phase: m.phase, Shooter: m.active, Outcome: out, Winner: m.winner})
	if !m.manualSettle {
		m.settle()
	}
	return out, nil
}

// Settle signals that the presentation has finished showing the shot in
// flight. The turn then passes, or the match ends.
func (m *Match) Settle() error {
	return m.run(func() error {
		if m.phase != PhaseResolvingShot {
			return ErrNotInFlight
		}
		m.settle()
		return m.playAI()
	})
}

func (m *Match) settle() {
	out := m.pending
	m.pending = ShotOutcome{}
	if out.OpponentFleetEmpty {
		m.winner = m.active
		m.setPhase(PhaseGameOver)
		m.emit(Event{Kind: EventMatchWon, Phase: m.phase, Shooter: m.active, Outcome: out, Winner: m.winner})
		return
	}
	m.active = 1 - m.active
	m.setPhase(PhaseAwaitingShot)
}

// Forfeit ends the match in the opponent's favour.
func (m *Match) Forfeit(player int) error {
	return m.run(func() error {
		if _, err := m.player(player); err != nil {
			return err
		}
		if m.phase == PhaseGameOver {
			return fmt.Errorf("%w: match already over", ErrWrongPhase)
		}
		m.pending = ShotOutcome{}
		m.winner = 1 - player
		m.setPhase(PhaseGameOver)
		m.emit(Event{Kind: EventForfeited, Phase: m.phase, Shooter: player, Winner: m.winner})
		return nil
	})
}

func (m *Match) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Active returns the index of the player whose turn it is.
func (m *Match) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhasePlacingPlayer2 {
		return 1
	}
	if m.phase == PhasePlacingPlayer1 {
		return 0
	}
	return m.active
}

func (m *Match) Winner() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner, m.winner >= 0
}

func (m *Match) PlayerKind(player int) (PlayerKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.player(player)
	if err != nil {
		return Human, err
	}
	return p.Kind, nil
}

func (m *Match) ShotsFired(player int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.player(player)
	if err != nil {
		return 0
	}
	return p.shots
}

func (m *Match) Roster() Roster {
	return m.roster
}

// OwnCell is a cell of a player's own grid as that player sees it.
type OwnCell struct {
	Tile     Tile
	Revealed bool
}

type OwnBoard [GridSize][GridSize]OwnCell

// Own copies the player's own grid, ships included.
func (m *Match) Own(player int) (OwnBoard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out OwnBoard
	p, err := m.player(player)
	if err != nil {
		return out, err
	}
	g := &p.board.grid
	for x := 0; x < GridSize; x++ {
		for z := 0; z < GridSize; z++ {
			out[x][z] = OwnCell{Tile: g.tiles[x][z], Revealed: g.revealed[x][z]}
		}
	}
	return out, nil
}

// Opponent copies what the player knows about the opposing grid.
func (m *Match) Opponent(player int) (Sight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.player(player); err != nil {
		return Sight{}, err
	}
	return m.players[1-player].board.Sight(), nil
}

// Fleet returns the player's ships that are still afloat.
func (m *Match) Fleet(player int) ([]Ship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.player(player)
	if err != nil {
		return nil, err
	}
	return p.board.fleet.Ships(), nil
}
