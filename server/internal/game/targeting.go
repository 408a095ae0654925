package game

import (
	"math/rand/v2"
)

// CellState is what a shooter knows about a cell of the opposing grid.
type CellState int

const (
	CellUnknown CellState = iota
	CellMiss
	CellHit
	CellSunk
)

func (s CellState) String() string {
	switch s {
	case CellMiss:
		return "miss"
	case CellHit:
		return "hit"
	case CellSunk:
		return "sunk"
	default:
		return "unknown"
	}
}

// View exposes the opposing grid as the shooter sees it: only revealed cells
// carry information.
type View interface {
	Cell(c Coordinate) CellState
}

// Sight is a copied View of a board at one instant.
type Sight [GridSize][GridSize]CellState

func (s *Sight) Cell(c Coordinate) CellState {
	if !c.InBounds() {
		return CellUnknown
	}
	return s[c.X][c.Z]
}

// boardView reads a live board without ever exposing unrevealed tiles.
type boardView struct {
	b *Board
}

func (v boardView) Cell(c Coordinate) CellState {
	if !v.b.grid.IsRevealed(c) {
		return CellUnknown
	}
	t := v.b.grid.tiles[c.X][c.Z]
	switch {
	case !t.IsOccupied():
		return CellMiss
	case t.Sunk:
		return CellSunk
	default:
		return CellHit
	}
}

// View returns the opponent's live view of this board.
func (b *Board) View() View {
	return boardView{b: b}
}

func (b *Board) Sight() Sight {
	var s Sight
	v := b.View()
	for x := 0; x < GridSize; x++ {
		for z := 0; z < GridSize; z++ {
			s[x][z] = v.Cell(Coordinate{X: x, Z: z})
		}
	}
	return s
}

// Targeter picks shots for a computer player with a hunt-and-target heuristic:
// while some ship is hit but afloat it fires next to the hits, otherwise it
// fires at a random unrevealed cell.
type Targeter struct {
	rng *rand.Rand
}

func NewTargeter(rng *rand.Rand) *Targeter {
	return &Targeter{rng: rng}
}

func (t *Targeter) NextTarget(v View) (Coordinate, error) {
	if pool := HuntCandidates(v); len(pool) > 0 {
		return pool[t.rng.IntN(len(pool))], nil
	}
	var unknown []Coordinate
	for x := 0; x < GridSize; x++ {
		for z := 0; z < GridSize; z++ {
			c := Coordinate{X: x, Z: z}
			if v.Cell(c) == CellUnknown {
				unknown = append(unknown, c)
			}
		}
	}
	if len(unknown) == 0 {
		return Coordinate{}, ErrNoTargets
	}
	return unknown[t.rng.IntN(len(unknown))], nil
}

// HuntCandidates pools the unrevealed orthogonal neighbours of every hit
// cell whose ship is still afloat. A cell bordering two seeds appears twice,
// which weights it accordingly.
func HuntCandidates(v View) []Coordinate {
	var pool []Coordinate
	for x := 0; x < GridSize; x++ {
		for z := 0; z < GridSize; z++ {
			seed := Coordinate{X: x, Z: z}
			if v.Cell(seed) != CellHit {
				continue
			}
			for _, n := range seed.Orthogonal() {
				if v.Cell(n) == CellUnknown {
					pool = append(pool, n)
				}
			}
		}
	}
	return pool
}
