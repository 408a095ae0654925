package game

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type placement struct {
	kind OccupationKind
	base Coordinate
	o    Orientation
}

// Ships on rows 0-4 starting at column 0; row 5 onwards is open water.
var standardFleet = []placement{
	{Carrier, Coordinate{X: 0, Z: 0}, Rot0},
	{Battleship, Coordinate{X: 1, Z: 0}, Rot0},
	{Cruiser, Coordinate{X: 2, Z: 0}, Rot0},
	{Submarine, Coordinate{X: 3, Z: 0}, Rot0},
	{Destroyer, Coordinate{X: 4, Z: 0}, Rot0},
}

func placeStandardFleet(t *testing.T, m *Match, player int) {
	t.Helper()
	for _, p := range standardFleet {
		if _, err := m.SubmitPlacement(player, p.kind, p.base, p.o); err != nil {
			t.Fatalf("placing %s for player %d: %v", p.kind, player+1, err)
		}
	}
}

func newHumanMatch(t *testing.T, opts MatchOptions) *Match {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = testRand()
	}
	m, err := StartMatch(Human, Human, opts)
	if err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	placeStandardFleet(t, m, 0)
	if err := m.ConfirmPlacementReady(0); err != nil {
		t.Fatalf("player 1 ready: %v", err)
	}
	placeStandardFleet(t, m, 1)
	if err := m.ConfirmPlacementReady(1); err != nil {
		t.Fatalf("player 2 ready: %v", err)
	}
	return m
}

func TestStartMatch(t *testing.T) {
	m, err := StartMatch(Human, AI, MatchOptions{Rand: testRand()})
	if err != nil {
		t.Fatalf("StartMatch failed: %v", err)
	}
	if m.Phase() != PhasePlacingPlayer1 {
		t.Errorf("expected %s, got %s", PhasePlacingPlayer1, m.Phase())
	}
	if _, over := m.Winner(); over {
		t.Error("fresh match should have no winner")
	}
	for i := 0; i < 2; i++ {
		fleet, _ := m.Fleet(i)
		if len(fleet) != 0 {
			t.Errorf("player %d should start with an empty fleet", i+1)
		}
	}
}

func TestStartMatchRejectsBadRoster(t *testing.T) {
	_, err := StartMatch(Human, Human, MatchOptions{Roster: Roster{{Kind: Empty, Size: 2, Count: 1}}})
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = StartMatch(Human, Human, MatchOptions{Roster: Roster{{Kind: Carrier, Size: 11, Count: 1}}})
	require.Error(t, err)
}

func TestSubmitPlacement(t *testing.T) {
	m, _ := StartMatch(Human, Human, MatchOptions{Rand: testRand()})

	t.Run("accepted", func(t *testing.T) {
		id, err := m.SubmitPlacement(0, Cruiser, Coordinate{X: 2, Z: 2}, Rot0)
		require.NoError(t, err)
		require.NotEqual(t, NoShip, id)
		own, _ := m.Own(0)
		require.Equal(t, Cruiser, own[2][3].Tile.Kind)
	})

	t.Run("overlap", func(t *testing.T) {
		_, err := m.SubmitPlacement(0, Destroyer, Coordinate{X: 2, Z: 3}, Rot0)
		require.ErrorIs(t, err, ErrOverlap)
	})

	t.Run("out of bounds", func(t *testing.T) {
		_, err := m.SubmitPlacement(0, Carrier, Coordinate{X: 9, Z: 8}, Rot0)
		require.ErrorIs(t, err, ErrOutOfBounds)
	})

	t.Run("class complete", func(t *testing.T) {
		_, err := m.SubmitPlacement(0, Cruiser, Coordinate{X: 6, Z: 0}, Rot0)
		require.ErrorIs(t, err, ErrClassComplete)
	})

	t.Run("wrong player", func(t *testing.T) {
		_, err := m.SubmitPlacement(1, Destroyer, Coordinate{X: 0, Z: 0}, Rot0)
		require.ErrorIs(t, err, ErrWrongPhase)
		_, err = m.SubmitPlacement(2, Destroyer, Coordinate{X: 0, Z: 0}, Rot0)
		require.ErrorIs(t, err, ErrInvalidPlayer)
	})

	t.Run("no overlap after every placement", func(t *testing.T) {
		fleet, _ := m.Fleet(0)
		seen := make(map[Coordinate]bool)
		for _, s := range fleet {
			for _, c := range s.Cells {
				require.False(t, seen[c])
				seen[c] = true
			}
		}
	})
}

func TestCheckPlacementDoesNotPlace(t *testing.T) {
	m, _ := StartMatch(Human, Human, MatchOptions{Rand: testRand()})
	cells, err := m.CheckPlacement(0, Destroyer, Coordinate{X: 0, Z: 0}, Rot90)
	require.NoError(t, err)
	require.Equal(t, []Coordinate{{0, 0}, {1, 0}}, cells)

	fleet, _ := m.Fleet(0)
	require.Empty(t, fleet)
}

func TestConfirmPlacementReadyIncomplete(t *testing.T) {
	m, _ := StartMatch(Human, Human, MatchOptions{Rand: testRand()})
	_, _ = m.SubmitPlacement(0, Carrier, Coordinate{X: 0, Z: 0}, Rot0)

	err := m.ConfirmPlacementReady(0)
	require.ErrorIs(t, err, ErrIncompletePlacement)
	require.Equal(t, PhasePlacingPlayer1, m.Phase())

	remaining, err := m.Remaining(0)
	require.NoError(t, err)
	require.Equal(t, map[OccupationKind]int{Battleship: 1, Cruiser: 1, Submarine: 1, Destroyer: 1}, remaining)
}

func TestClearAndAutoPlace(t *testing.T) {
	m, _ := StartMatch(Human, Human, MatchOptions{Rand: testRand()})
	_, _ = m.SubmitPlacement(0, Carrier, Coordinate{X: 0, Z: 0}, Rot0)

	require.NoError(t, m.ClearPlacement(0))
	fleet, _ := m.Fleet(0)
	require.Empty(t, fleet)
	remaining, _ := m.Remaining(0)
	require.Len(t, remaining, len(DefaultRoster))

	require.NoError(t, m.AutoPlaceFleet(0))
	fleet, _ = m.Fleet(0)
	require.Len(t, fleet, DefaultRoster.TotalShips())
	remaining, _ = m.Remaining(0)
	require.Empty(t, remaining)

	require.NoError(t, m.ConfirmPlacementReady(0))
	require.Equal(t, PhasePlacingPlayer2, m.Phase())
	require.ErrorIs(t, m.AutoPlaceFleet(0), ErrWrongPhase)
}

func TestAIOpponentPlacesImmediately(t *testing.T) {
	m, _ := StartMatch(Human, AI, MatchOptions{Rand: testRand()})
	require.NoError(t, m.AutoPlaceFleet(0))
	require.NoError(t, m.ConfirmPlacementReady(0))

	require.Equal(t, PhaseAwaitingShot, m.Phase())
	require.Equal(t, 0, m.Active())
	fleet, _ := m.Fleet(1)
	require.Len(t, fleet, DefaultRoster.TotalShips())
}

func TestTurnsAlternate(t *testing.T) {
	m := newHumanMatch(t, MatchOptions{})
	require.Equal(t, PhaseAwaitingShot, m.Phase())
	require.Equal(t, 0, m.Active())

	out, err := m.SubmitShot(Coordinate{X: 5, Z: 5})
	require.NoError(t, err)
	require.False(t, out.Hit)
	require.Equal(t, 1, m.Active())

	out, err = m.SubmitShot(Coordinate{X: 0, Z: 0})
	require.NoError(t, err)
	require.True(t, out.Hit)
	require.Equal(t, 0, m.Active(), "a hit still passes the turn")
}

func TestRevealedShotKeepsTurn(t *testing.T) {
	m := newHumanMatch(t, MatchOptions{})
	_, _ = m.SubmitShot(Coordinate{X: 0, Z: 0})
	_, _ = m.SubmitShot(Coordinate{X: 9, Z: 9})

	before, _ := m.Fleet(1)
	out, err := m.SubmitShot(Coordinate{X: 0, Z: 0})
	require.NoError(t, err)
	require.True(t, out.WasAlreadyRevealed)
	require.Equal(t, 0, m.Active())
	require.Equal(t, PhaseAwaitingShot, m.Phase())
	after, _ := m.Fleet(1)
	require.Equal(t, before, after)
	require.Equal(t, 1, m.ShotsFired(0))
}

func TestSubmitShotAsChecksTurn(t *testing.T) {
	m := newHumanMatch(t, MatchOptions{})
	_, err := m.SubmitShotAs(1, Coordinate{X: 0, Z: 0})
	require.ErrorIs(t, err, ErrNotYourTurn)
	_, err = m.SubmitShotAs(0, Coordinate{X: -1, Z: 0})
	require.ErrorIs(t, err, ErrInvalidCoordinate)
	require.Equal(t, 0, m.Active())
	_, err = m.SubmitShotAs(0, Coordinate{X: 0, Z: 0})
	require.NoError(t, err)
}

func TestShotBeforeCombat(t *testing.T) {
	m, _ := StartMatch(Human, Human, MatchOptions{Rand: testRand()})
	_, err := m.SubmitShot(Coordinate{X: 0, Z: 0})
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestManualSettleGuardsReentry(t *testing.T) {
	m := newHumanMatch(t, MatchOptions{ManualSettle: true})

	_, err := m.SubmitShot(Coordinate{X: 5, Z: 5})
	require.NoError(t, err)
	require.Equal(t, PhaseResolvingShot, m.Phase())

	_, err = m.SubmitShot(Coordinate{X: 6, Z: 6})
	require.ErrorIs(t, err, ErrShotInFlight)
	sight, _ := m.Opponent(0)
	require.Equal(t, CellUnknown, sight.Cell(Coordinate{X: 6, Z: 6}))

	require.NoError(t, m.Settle())
	require.Equal(t, PhaseAwaitingShot, m.Phase())
	require.Equal(t, 1, m.Active())
	require.ErrorIs(t, m.Settle(), ErrNotInFlight)
}

func TestSinkingEveryShipWins(t *testing.T) {
	var events []Event
	m := newHumanMatch(t, MatchOptions{OnEvent: func(ev Event) { events = append(events, ev) }})
	events = nil

	targets := []Coordinate{}
	for _, p := range standardFleet {
		class, _ := DefaultRoster.Class(p.kind)
		cells, _ := Footprint(p.base, class.Size, p.o)
		targets = append(targets, cells...)
	}

	miss := 0
	for i, c := range targets {
		out, err := m.SubmitShot(c)
		require.NoError(t, err)
		require.True(t, out.Hit)
		if i < len(targets)-1 {
			require.False(t, out.OpponentFleetEmpty)
			// Player 2 misses in open water to hand the turn back.
			_, err = m.SubmitShot(Coordinate{X: 5 + miss/GridSize, Z: miss % GridSize})
			require.NoError(t, err)
			miss++
			continue
		}
		require.True(t, out.OpponentFleetEmpty)
		require.True(t, out.Sunk())
	}

	require.Equal(t, PhaseGameOver, m.Phase())
	winner, over := m.Winner()
	require.True(t, over)
	require.Equal(t, 0, winner)

	won := 0
	for _, ev := range events {
		if ev.Kind == EventMatchWon {
			won++
			require.Equal(t, 0, ev.Winner)
		}
	}
	require.Equal(t, 1, won)

	_, err := m.SubmitShot(Coordinate{X: 9, Z: 9})
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestSingleCellFleetMatchWon(t *testing.T) {
	var events []Event
	roster := Roster{{Kind: Destroyer, Size: 1, Count: 1}}
	m, err := StartMatch(Human, Human, MatchOptions{
		Roster:  roster,
		Rand:    testRand(),
		OnEvent: func(ev Event) { events = append(events, ev) },
	})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := m.SubmitPlacement(i, Destroyer, Coordinate{X: 9, Z: 9}, Rot0)
		require.NoError(t, err)
		require.NoError(t, m.ConfirmPlacementReady(i))
	}
	events = nil

	out, err := m.SubmitShot(Coordinate{X: 9, Z: 9})
	require.NoError(t, err)
	require.True(t, out.OpponentFleetEmpty)

	kinds := make([]EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	require.Equal(t, []EventKind{EventPhaseChanged, EventShotResolved, EventPhaseChanged, EventMatchWon}, kinds)
	require.Equal(t, PhaseResolvingShot, events[0].Phase)
	require.Equal(t, PhaseGameOver, events[2].Phase)
	require.Equal(t, 0, events[3].Winner)
}

func TestMatchWonOnlyOnFleetEmpty(t *testing.T) {
	var won int
	m := newHumanMatch(t, MatchOptions{OnEvent: func(ev Event) {
		if ev.Kind == EventMatchWon {
			won++
		}
	}})
	// Sink the destroyer only; the rest of the fleet stays afloat.
	_, _ = m.SubmitShot(Coordinate{X: 4, Z: 0})
	_, _ = m.SubmitShot(Coordinate{X: 9, Z: 9})
	out, err := m.SubmitShot(Coordinate{X: 4, Z: 1})
	require.NoError(t, err)
	require.Equal(t, Destroyer, out.SunkKind)
	require.False(t, out.OpponentFleetEmpty)
	require.Zero(t, won)
}

func TestHumanVersusAIPlaysAutomatically(t *testing.T) {
	m, _ := StartMatch(Human, AI, MatchOptions{Rand: testRand()})
	placeStandardFleet(t, m, 0)
	require.NoError(t, m.ConfirmPlacementReady(0))

	_, err := m.SubmitShot(Coordinate{X: 0, Z: 0})
	require.NoError(t, err)
	require.Equal(t, 1, m.ShotsFired(1), "AI answers straight away")
	require.Equal(t, 0, m.Active())
	require.Equal(t, PhaseAwaitingShot, m.Phase())

	_, _, err = m.RequestAIShot()
	require.ErrorIs(t, err, ErrNotYourTurn)
}

func TestHumanVersusAIManualSettle(t *testing.T) {
	m, _ := StartMatch(Human, AI, MatchOptions{Rand: testRand(), ManualSettle: true})
	placeStandardFleet(t, m, 0)
	require.NoError(t, m.ConfirmPlacementReady(0))

	_, err := m.SubmitShot(Coordinate{X: 9, Z: 9})
	require.NoError(t, err)
	require.Equal(t, 0, m.ShotsFired(1))

	// Settling the human shot lets the AI fire; its shot is then in flight.
	require.NoError(t, m.Settle())
	require.Equal(t, 1, m.ShotsFired(1))
	require.Equal(t, PhaseResolvingShot, m.Phase())
	require.Equal(t, 1, m.Active())

	require.NoError(t, m.Settle())
	require.Equal(t, PhaseAwaitingShot, m.Phase())
	require.Equal(t, 0, m.Active())
}

func TestAIVersusAIFinishes(t *testing.T) {
	m, err := StartMatch(AI, AI, MatchOptions{Rand: testRand()})
	require.NoError(t, err)
	require.Equal(t, PhaseGameOver, m.Phase())

	winner, over := m.Winner()
	require.True(t, over)
	loserFleet, _ := m.Fleet(1 - winner)
	require.Empty(t, loserFleet)
	require.LessOrEqual(t, m.ShotsFired(winner), GridSize*GridSize)
}

func TestForfeit(t *testing.T) {
	var events []Event
	m := newHumanMatch(t, MatchOptions{OnEvent: func(ev Event) { events = append(events, ev) }})
	events = nil

	require.NoError(t, m.Forfeit(0))
	require.Len(t, events, 2)
	require.Equal(t, EventPhaseChanged, events[0].Kind)
	require.Equal(t, EventForfeited, events[1].Kind)
	require.Equal(t, 0, events[1].Shooter)
	require.Equal(t, 1, events[1].Winner)
	for _, ev := range events {
		if ev.Kind == EventMatchWon {
			t.Errorf("forfeit must not report a sunk fleet, got %+v", ev)
		}
	}
	defenderFleet, err := m.Fleet(1)
	require.NoError(t, err)
	require.NotEmpty(t, defenderFleet)

	winner, over := m.Winner()
	require.True(t, over)
	require.Equal(t, 1, winner)
	require.Equal(t, PhaseGameOver, m.Phase())

	err = m.Forfeit(1)
	if !errors.Is(err, ErrWrongPhase) {
		t.Errorf("expected ErrWrongPhase, got %v", err)
	}
}

func TestOpponentViewHidesShips(t *testing.T) {
	m := newHumanMatch(t, MatchOptions{})
	sight, err := m.Opponent(0)
	require.NoError(t, err)
	for x := 0; x < GridSize; x++ {
		for z := 0; z < GridSize; z++ {
			require.Equal(t, CellUnknown, sight[x][z])
		}
	}

	_, _ = m.SubmitShot(Coordinate{X: 0, Z: 0})
	sight, _ = m.Opponent(0)
	require.Equal(t, CellHit, sight.Cell(Coordinate{X: 0, Z: 0}))

	own, _ := m.Own(1)
	require.True(t, own[0][0].Revealed)
	require.Equal(t, Carrier, own[0][1].Tile.Kind)
	require.False(t, own[0][1].Revealed)
}

func TestParsePlayerKind(t *testing.T) {
	k, err := ParsePlayerKind("AI")
	require.NoError(t, err)
	require.Equal(t, AI, k)
	_, err = ParsePlayerKind("robot")
	require.Error(t, err)
}

func TestEventsStayOrderedAcrossCallers(t *testing.T) {
	var (
		mu       sync.Mutex
		shooters []int
	)
	m, err := StartMatch(Human, AI, MatchOptions{
		Rand: testRand(),
		OnEvent: func(ev Event) {
			if ev.Kind != EventShotResolved {
				return
			}
			mu.Lock()
			shooters = append(shooters, ev.Shooter)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	placeStandardFleet(t, m, 0)
	require.NoError(t, m.ConfirmPlacementReady(0))

	const workers = 4
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < GridSize*GridSize; i += workers {
				_, err := m.SubmitShotAs(0, Coordinate{X: i / GridSize, Z: i % GridSize})
				if errors.Is(err, ErrWrongPhase) {
					return
				}
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, PhaseGameOver, m.Phase())
	require.NotEmpty(t, shooters)
	for i, s := range shooters {
		if s != i%2 {
			t.Fatalf("shot %d fired by player %d, want %d: %v", i, s, i%2, shooters)
		}
	}
}

func TestEventHandlerMaySettle(t *testing.T) {
	var (
		m     *Match
		kinds []EventKind
	)
	m = newHumanMatch(t, MatchOptions{
		ManualSettle: true,
		OnEvent: func(ev Event) {
			kinds = append(kinds, ev.Kind)
			if ev.Kind == EventShotResolved {
				require.NoError(t, m.Settle())
			}
		},
	})
	kinds = nil

	_, err := m.SubmitShot(Coordinate{X: 9, Z: 9})
	require.NoError(t, err)
	require.Equal(t, []EventKind{EventPhaseChanged, EventShotResolved, EventPhaseChanged}, kinds)
	require.Equal(t, PhaseAwaitingShot, m.Phase())
	require.Equal(t, 1, m.Active())
}
