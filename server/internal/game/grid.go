package game

import (
	"fmt"
	"strings"
)

// ShipID indexes a ship within one player's fleet. NoShip marks water and the
// cells of ships that have already sunk.
type ShipID int

const NoShip ShipID = 0

type Tile struct {
	Kind OccupationKind
	Ship ShipID
	Sunk bool
}

func (t Tile) IsOccupied() bool {
	return t.Kind != Empty
}

// Grid is one player's 10x10 occupancy map plus the record of which cells the
// opponent has fired at. Every bounds and occupancy check lives here.
type Grid struct {
	tiles    [GridSize][GridSize]Tile
	revealed [GridSize][GridSize]bool
}

// Place writes kind and id into every cell of coords. Nothing is written
// unless all cells are on the board and free.
func (g *Grid) Place(id ShipID, kind OccupationKind, coords []Coordinate) error {
	if kind == Empty {
		return fmt.Errorf("%w: cannot place empty water", ErrUnknownKind)
	}
	seen := make(map[Coordinate]bool, len(coords))
	for _, c := range coords {
		if err := checkBounds(c); err != nil {
			return err
		}
		if seen[c] || g.tiles[c.X][c.Z].IsOccupied() {
			return fmt.Errorf("%w at %s", ErrOverlap, c)
		}
		seen[c] = true
	}
	for _, c := range coords {
		g.tiles[c.X][c.Z] = Tile{Kind: kind, Ship: id}
	}
	return nil
}

func (g *Grid) Tile(c Coordinate) (Tile, error) {
	if err := checkBounds(c); err != nil {
		return Tile{}, err
	}
	return g.tiles[c.X][c.Z], nil
}

// IsOccupied reports false for cells off the board.
func (g *Grid) IsOccupied(c Coordinate) bool {
	return c.InBounds() && g.tiles[c.X][c.Z].IsOccupied()
}

func (g *Grid) IsRevealed(c Coordinate) bool {
	return c.InBounds() && g.revealed[c.X][c.Z]
}

// MarkRevealed is idempotent.
func (g *Grid) MarkRevealed(c Coordinate) error {
	if err := checkBounds(c); err != nil {
		return err
	}
	g.revealed[c.X][c.Z] = true
	return nil
}

// markSunk detaches the cells from their ship while keeping the kind so a
// sunk hull stays recognisable.
func (g *Grid) markSunk(coords []Coordinate) {
	for _, c := range coords {
		t := &g.tiles[c.X][c.Z]
		t.Ship = NoShip
		t.Sunk = true
	}
}

func (g *Grid) reset() {
	g.tiles = [GridSize][GridSize]Tile{}
	g.revealed = [GridSize][GridSize]bool{}
}

// String dumps the occupancy map one row per line, e.g. "|..CCCCC...|".
func (g *Grid) String() string {
	var sb strings.Builder
	for x := 0; x < GridSize; x++ {
		sb.WriteByte('|')
		for z := 0; z < GridSize; z++ {
			sb.WriteByte(g.tiles[x][z].Kind.Letter())
		}
		sb.WriteString("|\n")
	}
	return sb.String()
}
