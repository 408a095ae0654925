package game

import "fmt"

// Board ties a player's Grid to the Fleet its tiles reference.
type Board struct {
	grid  Grid
	fleet Fleet
}

func NewBoard() *Board {
	return &Board{fleet: newFleet()}
}

func (b *Board) Grid() *Grid {
	return &b.grid
}

func (b *Board) Fleet() *Fleet {
	return &b.fleet
}

// Place puts a new ship on the board. The fleet only grows when the grid
// accepted every cell.
func (b *Board) Place(kind OccupationKind, cells []Coordinate) (ShipID, error) {
	if len(cells) == 0 {
		return NoShip, fmt.Errorf("%w: ship has no cells", ErrInvalidCoordinate)
	}
	id := b.fleet.nextID + 1
	if err := b.grid.Place(id, kind, cells); err != nil {
		return NoShip, err
	}
	s := b.fleet.add(kind, cells)
	return s.ID, nil
}

// ApplyDamage registers one hit on the ship. When the hit count reaches the
// ship's size the ship leaves the fleet and the returned snapshot is sunk.
func (b *Board) ApplyDamage(id ShipID) (Ship, error) {
	s, ok := b.fleet.get(id)
	if !ok {
		return Ship{}, fmt.Errorf("no ship %d afloat", id)
	}
	s.Hits++
	snapshot := s.clone()
	if s.IsSunk() {
		b.fleet.remove(id)
		b.grid.markSunk(s.Cells)
	}
	return snapshot, nil
}

// Clear removes every ship and every revealed mark.
func (b *Board) Clear() {
	b.grid.reset()
	b.fleet.reset()
}

func (b *Board) String() string {
	return b.grid.String()
}
