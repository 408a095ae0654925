package game

import "fmt"

// ShotOutcome describes what one shot did. SunkShip is NoShip unless the shot
// finished a ship off.
type ShotOutcome struct {
	Coordinate         Coordinate
	WasAlreadyRevealed bool
	Hit                bool
	SunkShip           ShipID
	SunkKind           OccupationKind
	OpponentFleetEmpty bool
}

func (o ShotOutcome) Sunk() bool {
	return o.SunkShip != NoShip
}

// Resolve fires at target on the defender's board. A cell that was already
// revealed yields WasAlreadyRevealed and leaves the board untouched.
func Resolve(defender *Board, target Coordinate) (ShotOutcome, error) {
	if !target.InBounds() {
		return ShotOutcome{}, fmt.Errorf("%w: %s", ErrInvalidCoordinate, target)
	}
	out := ShotOutcome{Coordinate: target}
	if defender.grid.IsRevealed(target) {
		out.WasAlreadyRevealed = true
		out.OpponentFleetEmpty = defender.fleet.IsEmpty()
		return out, nil
	}

	if err := defender.grid.MarkRevealed(target); err != nil {
		return ShotOutcome{}, err
	}
	tile := defender.grid.tiles[target.X][target.Z]
	if tile.IsOccupied() && tile.Ship != NoShip {
		out.Hit = true
		ship, err := defender.ApplyDamage(tile.Ship)
		if err != nil {
			return ShotOutcome{}, err
		}
		if ship.IsSunk() {
			out.SunkShip = ship.ID
			out.SunkKind = ship.Kind
		}
	}
	out.OpponentFleetEmpty = defender.fleet.IsEmpty()
	return out, nil
}
