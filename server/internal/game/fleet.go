package game

type Ship struct {
	ID    ShipID
	Kind  OccupationKind
	Cells []Coordinate
	Hits  int
}

func (s *Ship) Size() int {
	return len(s.Cells)
}

func (s *Ship) IsSunk() bool {
	return s.Hits >= s.Size()
}

func (s *Ship) clone() Ship {
	out := *s
	out.Cells = append([]Coordinate(nil), s.Cells...)
	return out
}

// Fleet is the ordered set of a player's ships that are still afloat.
type Fleet struct {
	ships  map[ShipID]*Ship
	order  []ShipID
	nextID ShipID
}

func newFleet() Fleet {
	return Fleet{ships: make(map[ShipID]*Ship)}
}

func (f *Fleet) add(kind OccupationKind, cells []Coordinate) *Ship {
	f.nextID++
	s := &Ship{
		ID:    f.nextID,
		Kind:  kind,
		Cells: append([]Coordinate(nil), cells...),
	}
	f.ships[s.ID] = s
	f.order = append(f.order, s.ID)
	return s
}

func (f *Fleet) get(id ShipID) (*Ship, bool) {
	s, ok := f.ships[id]
	return s, ok
}

func (f *Fleet) remove(id ShipID) {
	if _, ok := f.ships[id]; !ok {
		return
	}
	delete(f.ships, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			return
		}
	}
}

func (f *Fleet) Len() int {
	return len(f.order)
}

func (f *Fleet) IsEmpty() bool {
	return len(f.order) == 0
}

// Ships returns copies of the afloat ships in placement order.
func (f *Fleet) Ships() []Ship {
	out := make([]Ship, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.ships[id].clone())
	}
	return out
}

func (f *Fleet) reset() {
	f.ships = make(map[ShipID]*Ship)
	f.order = nil
}
