package game

import "fmt"

// OccupationKind describes what, if anything, occupies a cell.
type OccupationKind int

const (
	Empty OccupationKind = iota
	Carrier
	Battleship
	Cruiser
	Submarine
	Destroyer
)

var kindNames = map[OccupationKind]string{
	Empty:      "empty",
	Carrier:    "carrier",
	Battleship: "battleship",
	Cruiser:    "cruiser",
	Submarine:  "submarine",
	Destroyer:  "destroyer",
}

func (k OccupationKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Letter is the single character used when a grid is dumped as text.
func (k OccupationKind) Letter() byte {
	switch k {
	case Carrier:
		return 'C'
	case Battleship:
		return 'B'
	case Cruiser:
		return 'R'
	case Submarine:
		return 'S'
	case Destroyer:
		return 'D'
	default:
		return '.'
	}
}

// ParseKind maps a ship class name back to its kind.
func ParseKind(name string) (OccupationKind, error) {
	for k, n := range kindNames {
		if k != Empty && n == name {
			return k, nil
		}
	}
	return Empty, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

type ShipClass struct {
	Kind  OccupationKind
	Size  int
	Count int
}

// Roster is the fixed set of ship classes each player must place.
type Roster []ShipClass

var DefaultRoster = Roster{
	{Kind: Carrier, Size: 5, Count: 1},
	{Kind: Battleship, Size: 4, Count: 1},
	{Kind: Cruiser, Size: 3, Count: 1},
	{Kind: Submarine, Size: 3, Count: 1},
	{Kind: Destroyer, Size: 2, Count: 1},
}

func (r Roster) Class(kind OccupationKind) (ShipClass, bool) {
	for _, c := range r {
		if c.Kind == kind {
			return c, true
		}
	}
	return ShipClass{}, false
}

func (r Roster) TotalShips() int {
	n := 0
	for _, c := range r {
		n += c.Count
	}
	return n
}

func (r Roster) validate() error {
	seen := make(map[OccupationKind]bool)
	for _, c := range r {
		if c.Kind == Empty || kindNames[c.Kind] == "" {
			return fmt.Errorf("%w: %d", ErrUnknownKind, int(c.Kind))
		}
		if seen[c.Kind] {
			return fmt.Errorf("roster lists %s twice", c.Kind)
		}
		if c.Size < 1 || c.Size > GridSize || c.Count < 0 {
			return fmt.Errorf("roster entry %s has invalid size or count", c.Kind)
		}
		seen[c.Kind] = true
	}
	if r.TotalShips() == 0 {
		return fmt.Errorf("roster has no ships")
	}
	return nil
}
