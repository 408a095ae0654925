package game

import "fmt"

const GridSize = 10

// Coordinate identifies one cell. X selects the row and Z the column.
type Coordinate struct {
	X, Z int
}

func (c Coordinate) InBounds() bool {
	return c.X >= 0 && c.X < GridSize && c.Z >= 0 && c.Z < GridSize
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Orthogonal returns the up/down/left/right neighbours of c that lie on the
// board. Diagonals are never included.
func (c Coordinate) Orthogonal() []Coordinate {
	out := make([]Coordinate, 0, 4)
	for _, d := range [...]Coordinate{{X: -1}, {X: 1}, {Z: -1}, {Z: 1}} {
		n := Coordinate{X: c.X + d.X, Z: c.Z + d.Z}
		if n.InBounds() {
			out = append(out, n)
		}
	}
	return out
}

func checkBounds(c Coordinate) error {
	if !c.InBounds() {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	return nil
}
