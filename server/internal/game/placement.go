package game

import (
	"fmt"
	"math/rand/v2"
)

// Orientation is the heading of a ship from its base cell, in 90 degree steps.
type Orientation int

const (
	Rot0   Orientation = iota // towards +Z
	Rot90                     // towards +X
	Rot180                    // towards -Z
	Rot270                    // towards -X
)

const orientationCount = 4

func (o Orientation) Valid() bool {
	return o >= Rot0 && o <= Rot270
}

// Next returns the orientation after a quarter turn.
func (o Orientation) Next() Orientation {
	return (o + 1) % orientationCount
}

func (o Orientation) step() Coordinate {
	switch o {
	case Rot90:
		return Coordinate{X: 1}
	case Rot180:
		return Coordinate{Z: -1}
	case Rot270:
		return Coordinate{X: -1}
	default:
		return Coordinate{Z: 1}
	}
}

// Footprint lists the cells a ship of the given size covers, starting at base.
// Cells may fall off the board; Validate catches that.
func Footprint(base Coordinate, size int, o Orientation) ([]Coordinate, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrientation, int(o))
	}
	d := o.step()
	cells := make([]Coordinate, size)
	for i := range cells {
		cells[i] = Coordinate{X: base.X + d.X*i, Z: base.Z + d.Z*i}
	}
	return cells, nil
}

// Validate accepts a footprint when every cell is on the board and free.
// It never mutates the grid.
func Validate(g *Grid, cells []Coordinate) error {
	seen := make(map[Coordinate]bool, len(cells))
	for _, c := range cells {
		if !c.InBounds() {
			return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
		}
		if seen[c] || g.IsOccupied(c) {
			return fmt.Errorf("%w at %s", ErrOverlap, c)
		}
		seen[c] = true
	}
	return nil
}

const defaultMaxBaseAttempts = 1000

// AutoPlacer finds random legal footprints. For each sampled base cell it
// tries the four orientations in random order before sampling a new base.
type AutoPlacer struct {
	rng             *rand.Rand
	MaxBaseAttempts int
}

func NewAutoPlacer(rng *rand.Rand) *AutoPlacer {
	return &AutoPlacer{rng: rng, MaxBaseAttempts: defaultMaxBaseAttempts}
}

// Find returns an accepted footprint for a ship of the given size without
// placing it.
func (a *AutoPlacer) Find(g *Grid, size int) ([]Coordinate, error) {
	for attempt := 0; attempt < a.MaxBaseAttempts; attempt++ {
		base := Coordinate{X: a.rng.IntN(GridSize), Z: a.rng.IntN(GridSize)}
		for _, o := range a.rng.Perm(orientationCount) {
			cells, _ := Footprint(base, size, Orientation(o))
			if Validate(g, cells) == nil {
				return cells, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: size %d after %d base cells", ErrPlacementExhausted, size, a.MaxBaseAttempts)
}

// PlaceRoster clears the board and places every ship of the roster.
func (a *AutoPlacer) PlaceRoster(b *Board, r Roster) error {
	b.Clear()
	for _, class := range r {
		for i := 0; i < class.Count; i++ {
			cells, err := a.Find(&b.grid, class.Size)
			if err != nil {
				return fmt.Errorf("placing %s: %w", class.Kind, err)
			}
			if _, err := b.Place(class.Kind, cells); err != nil {
				return err
			}
		}
	}
	return nil
}
