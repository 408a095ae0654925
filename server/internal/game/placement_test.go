package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestFootprintOrientations(t *testing.T) {
	base := Coordinate{X: 5, Z: 5}
	tests := []struct {
		o    Orientation
		want []Coordinate
	}{
		{Rot0, []Coordinate{{5, 5}, {5, 6}, {5, 7}}},
		{Rot90, []Coordinate{{5, 5}, {6, 5}, {7, 5}}},
		{Rot180, []Coordinate{{5, 5}, {5, 4}, {5, 3}}},
		{Rot270, []Coordinate{{5, 5}, {4, 5}, {3, 5}}},
	}
	for _, tt := range tests {
		got, err := Footprint(base, 3, tt.o)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "orientation %d", tt.o)
	}

	_, err := Footprint(base, 3, Orientation(4))
	require.ErrorIs(t, err, ErrInvalidOrientation)
	require.Equal(t, Rot0, Rot270.Next())
}

func TestValidate(t *testing.T) {
	b := NewBoard()
	accepted, _ := Footprint(Coordinate{X: 2, Z: 2}, 3, Rot0)
	require.NoError(t, Validate(b.Grid(), accepted))
	_, err := b.Place(Cruiser, accepted)
	require.NoError(t, err)

	overlapping, _ := Footprint(Coordinate{X: 2, Z: 3}, 2, Rot0)
	require.ErrorIs(t, Validate(b.Grid(), overlapping), ErrOverlap)

	offBoard, _ := Footprint(Coordinate{X: 0, Z: 1}, 3, Rot180)
	require.ErrorIs(t, Validate(b.Grid(), offBoard), ErrOutOfBounds)

	offBoard, _ = Footprint(Coordinate{X: 1, Z: 0}, 3, Rot270)
	require.ErrorIs(t, Validate(b.Grid(), offBoard), ErrOutOfBounds)
}

func TestAutoPlacerPlacesWholeRosterWithoutOverlap(t *testing.T) {
	placer := NewAutoPlacer(testRand())
	for round := 0; round < 50; round++ {
		b := NewBoard()
		require.NoError(t, placer.PlaceRoster(b, DefaultRoster))
		require.Equal(t, DefaultRoster.TotalShips(), b.Fleet().Len())

		seen := make(map[Coordinate]ShipID)
		for _, s := range b.Fleet().Ships() {
			class, ok := DefaultRoster.Class(s.Kind)
			require.True(t, ok)
			require.Equal(t, class.Size, s.Size())
			for _, c := range s.Cells {
				require.True(t, c.InBounds())
				_, dup := seen[c]
				require.False(t, dup, "cell %s shared by two ships", c)
				seen[c] = s.ID
			}
		}
		require.Len(t, seen, 17)
	}
}

func TestAutoPlacerExhausted(t *testing.T) {
	b := NewBoard()
	for x := 0; x < GridSize; x++ {
		cells, _ := Footprint(Coordinate{X: x}, GridSize, Rot0)
		_, err := b.Place(Carrier, cells)
		require.NoError(t, err)
	}

	placer := NewAutoPlacer(testRand())
	placer.MaxBaseAttempts = 20
	_, err := placer.Find(b.Grid(), 2)
	require.ErrorIs(t, err, ErrPlacementExhausted)
}

func TestAutoPlacerReplacesPreviousFleet(t *testing.T) {
	b := NewBoard()
	_, err := b.Place(Destroyer, []Coordinate{{0, 0}, {0, 1}})
	require.NoError(t, err)
	require.NoError(t, b.Grid().MarkRevealed(Coordinate{X: 9, Z: 9}))

	require.NoError(t, NewAutoPlacer(testRand()).PlaceRoster(b, DefaultRoster))
	require.Equal(t, DefaultRoster.TotalShips(), b.Fleet().Len())
	require.False(t, b.Grid().IsRevealed(Coordinate{X: 9, Z: 9}))
}
