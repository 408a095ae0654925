package tui

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/trezz/shipdit/server/internal/game"
)

const (
	human = 0
	ai    = 1

	defaultSplash = 600 * time.Millisecond
)

type Options struct {
	Rand *rand.Rand
	// Seat is who plays the first board. With game.AI the computer plays
	// both sides and the match runs by itself, one splash per shot.
	Seat game.PlayerKind
	// AutoPlace fills the human fleet at random when a match starts.
	AutoPlace bool
	// Splash is how long a shot stays highlighted before the turn passes.
	Splash time.Duration
}

// settleSignal is posted to the screen when a shot splash has been shown.
type settleSignal struct{}

type splash struct {
	shooter int
	outcome game.ShotOutcome
}

// App is a terminal client playing one local match against the computer.
type App struct {
	screen tcell.Screen
	opts   Options
	match  *game.Match

	cursor game.Coordinate
	orient game.Orientation
	kind   game.OccupationKind
	status string
	splash *splash

	after func(d time.Duration, f func())
}

func New(screen tcell.Screen, opts Options) (*App, error) {
	if opts.Splash <= 0 {
		opts.Splash = defaultSplash
	}
	a := &App{
		screen: screen,
		opts:   opts,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	if err := a.newMatch(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) newMatch() error {
	a.cursor = game.Coordinate{}
	a.orient = game.Rot0
	a.splash = nil
	m, err := game.StartMatch(a.opts.Seat, game.AI, game.MatchOptions{
		Rand:         a.opts.Rand,
		ManualSettle: true,
		OnEvent:      a.onEvent,
	})
	if err != nil {
		return err
	}
	a.match = m
	a.status = "Place your fleet."
	if a.opts.Seat == game.AI {
		a.status = "The computer takes your seat. Press q to leave."
		return nil
	}

	if a.opts.AutoPlace {
		if err := m.AutoPlaceFleet(human); err != nil {
			return err
		}
		a.status = "Fleet placed. Press y when ready."
	}
	a.pickKind()
	return nil
}

// Run draws the match and processes terminal events until the user quits.
func (a *App) Run() {
	a.draw()
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		if !a.HandleEvent(ev) {
			return
		}
	}
}

// HandleEvent applies one terminal event and redraws. It returns false when
// the user asked to quit.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if !a.handleKey(ev) {
			return false
		}
	case *tcell.EventInterrupt:
		if _, ok := ev.Data().(settleSignal); ok && a.splash != nil {
			a.splash = nil
			if err := a.match.Settle(); err != nil {
				a.status = err.Error()
			}
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	a.draw()
	return true
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		a.move(-1, 0)
	case tcell.KeyDown:
		a.move(1, 0)
	case tcell.KeyLeft:
		a.move(0, -1)
	case tcell.KeyRight:
		a.move(0, 1)
	case tcell.KeyTab:
		a.cycleKind()
	case tcell.KeyEnter:
		a.act()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'k':
			a.move(-1, 0)
		case 'j':
			a.move(1, 0)
		case 'h':
			a.move(0, -1)
		case 'l':
			a.move(0, 1)
		case 'r':
			a.orient = a.orient.Next()
		case ' ':
			a.act()
		case 'a':
			a.report(a.match.AutoPlaceFleet(human), "Fleet placed. Press y when ready.")
			a.pickKind()
		case 'c':
			a.report(a.match.ClearPlacement(human), "Board cleared.")
			a.pickKind()
		case 'y':
			a.report(a.match.ConfirmPlacementReady(human), "Battle stations! Fire at the enemy grid.")
		case 'F':
			if err := a.match.Forfeit(human); err != nil {
				a.status = describeError(err)
			} else {
				a.splash = nil
			}
		case 'n':
			if a.match.Phase() == game.PhaseGameOver {
				if err := a.newMatch(); err != nil {
					a.status = err.Error()
				}
			}
		}
	}
	return true
}

func (a *App) report(err error, ok string) {
	if err != nil {
		a.status = describeError(err)
		return
	}
	a.status = ok
}

func (a *App) move(dx, dz int) {
	next := game.Coordinate{X: a.cursor.X + dx, Z: a.cursor.Z + dz}
	if next.InBounds() {
		a.cursor = next
	}
}

// act places the selected ship or fires, depending on the phase.
func (a *App) act() {
	switch a.match.Phase() {
	case game.PhasePlacingPlayer1:
		if a.kind == game.Empty {
			a.status = "All ships placed. Press y when ready."
			return
		}
		if _, err := a.match.SubmitPlacement(human, a.kind, a.cursor, a.orient); err != nil {
			a.status = describeError(err)
			return
		}
		a.status = fmt.Sprintf("%s placed.", a.kind)
		a.pickKind()
	case game.PhaseAwaitingShot, game.PhaseResolvingShot:
		out, err := a.match.SubmitShotAs(human, a.cursor)
		if err != nil {
			a.status = describeError(err)
			return
		}
		if out.WasAlreadyRevealed {
			a.status = fmt.Sprintf("Already fired at %s. Pick another cell.", out.Coordinate)
		}
	case game.PhaseGameOver:
		a.status = "The battle is over. Press n for a new match."
	}
}

// pickKind keeps the selected kind if ships of it are still to be placed,
// otherwise selects the first kind left in roster order.
func (a *App) pickKind() {
	left, err := a.match.Remaining(human)
	if err != nil || len(left) == 0 {
		a.kind = game.Empty
		return
	}
	if left[a.kind] > 0 {
		return
	}
	for _, class := range a.match.Roster() {
		if left[class.Kind] > 0 {
			a.kind = class.Kind
			return
		}
	}
}

func (a *App) cycleKind() {
	left, err := a.match.Remaining(human)
	if err != nil || len(left) == 0 {
		return
	}
	roster := a.match.Roster()
	start := 0
	for i, class := range roster {
		if class.Kind == a.kind {
			start = i + 1
		}
	}
	for i := 0; i < len(roster); i++ {
		class := roster[(start+i)%len(roster)]
		if left[class.Kind] > 0 {
			a.kind = class.Kind
			return
		}
	}
}

func (a *App) onEvent(ev game.Event) {
	switch ev.Kind {
	case game.EventShotResolved:
		a.splash = &splash{shooter: ev.Shooter, outcome: ev.Outcome}
		a.status = describeShot(ev.Shooter, ev.Outcome)
		a.after(a.opts.Splash, func() {
			a.screen.PostEvent(tcell.NewEventInterrupt(settleSignal{}))
		})
	case game.EventMatchWon:
		if ev.Winner == human {
			a.status = "Victory! The enemy fleet is destroyed. Press n for a new match."
		} else {
			a.status = "Defeat. Your fleet lies at the bottom. Press n for a new match."
		}
	case game.EventForfeited:
		if ev.Shooter == human {
			a.status = "Defeat. You struck your colours. Press n for a new match."
		} else {
			a.status = "Victory! The enemy struck its colours. Press n for a new match."
		}
	}
}

func describeShot(shooter int, out game.ShotOutcome) string {
	who := "You fire"
	if shooter == ai {
		who = "Enemy fires"
	}
	switch {
	case out.Sunk():
		return fmt.Sprintf("%s at %s: hit, %s sunk!", who, out.Coordinate, out.SunkKind)
	case out.Hit:
		return fmt.Sprintf("%s at %s: hit!", who, out.Coordinate)
	default:
		return fmt.Sprintf("%s at %s: miss.", who, out.Coordinate)
	}
}

func describeError(err error) string {
	switch {
	case errors.Is(err, game.ErrOverlap):
		return "Ships cannot overlap."
	case errors.Is(err, game.ErrOutOfBounds):
		return "The ship must stay on the board."
	case errors.Is(err, game.ErrShotInFlight):
		return "Wait for the splash to clear."
	case errors.Is(err, game.ErrIncompletePlacement):
		return "Place every ship first: " + err.Error()
	default:
		return err.Error()
	}
}
