package transport

import (
	"fmt"
	"math"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/trezz/shipdit/server/internal/game"
	"github.com/trezz/shipdit/server/internal/lobby"
	"github.com/trezz/shipdit/server/internal/player"
)

// The connected human always sits in the first seat, the computer in the
// second.
const (
	humanSeat = 0
	aiSeat    = 1
)

func seatName(seat int) string {
	switch seat {
	case humanSeat:
		return "you"
	case aiSeat:
		return "computer"
	default:
		return ""
	}
}

func stringField(msg *structpb.Struct, name string) string {
	return msg.GetFields()[name].GetStringValue()
}

func intField(msg *structpb.Struct, name string) (int, error) {
	v, ok := msg.GetFields()[name]
	if !ok {
		return 0, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("missing field %q", name))
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("field %q must be an integer", name))
	}
	return int(n.NumberValue), nil
}

func coordField(msg *structpb.Struct) (game.Coordinate, error) {
	x, err := intField(msg, "x")
	if err != nil {
		return game.Coordinate{}, err
	}
	z, err := intField(msg, "z")
	if err != nil {
		return game.Coordinate{}, err
	}
	return game.Coordinate{X: x, Z: z}, nil
}

func respond(fields map[string]any) (*Response, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(st), nil
}

// ownRows renders the player's grid as one string per row X, indexed by Z.
func ownRows(b game.OwnBoard) []any {
	rows := make([]any, game.GridSize)
	for x := 0; x < game.GridSize; x++ {
		row := make([]byte, game.GridSize)
		for z := 0; z < game.GridSize; z++ {
			cell := b[x][z]
			switch {
			case cell.Tile.Sunk:
				row[z] = '#'
			case cell.Revealed && cell.Tile.IsOccupied():
				row[z] = 'x'
			case cell.Revealed:
				row[z] = 'o'
			default:
				row[z] = cell.Tile.Kind.Letter()
			}
		}
		rows[x] = string(row)
	}
	return rows
}

func sightRows(s game.Sight) []any {
	rows := make([]any, game.GridSize)
	for x := 0; x < game.GridSize; x++ {
		row := make([]byte, game.GridSize)
		for z := 0; z < game.GridSize; z++ {
			switch s[x][z] {
			case game.CellMiss:
				row[z] = 'o'
			case game.CellHit:
				row[z] = 'x'
			case game.CellSunk:
				row[z] = '#'
			default:
				row[z] = '.'
			}
		}
		rows[x] = string(row)
	}
	return rows
}

func outcomeFields(o game.ShotOutcome) map[string]any {
	f := map[string]any{
		"x":                o.Coordinate.X,
		"z":                o.Coordinate.Z,
		"already_revealed": o.WasAlreadyRevealed,
		"hit":              o.Hit,
		"fleet_destroyed":  o.OpponentFleetEmpty,
	}
	if o.Sunk() {
		f["sunk"] = o.SunkKind.String()
	}
	return f
}

func matchState(sess *lobby.Session) (map[string]any, error) {
	m := sess.Match

	own, err := m.Own(humanSeat)
	if err != nil {
		return nil, err
	}
	sight, err := m.Opponent(humanSeat)
	if err != nil {
		return nil, err
	}
	left, err := m.Remaining(humanSeat)
	if err != nil {
		return nil, err
	}
	ships, err := m.Fleet(humanSeat)
	if err != nil {
		return nil, err
	}

	remaining := make(map[string]any, len(left))
	for kind, n := range left {
		remaining[kind.String()] = n
	}
	fleet := make([]any, 0, len(ships))
	for _, ship := range ships {
		fleet = append(fleet, map[string]any{
			"kind": ship.Kind.String(),
			"size": ship.Size(),
			"hits": ship.Hits,
		})
	}

	phase := m.Phase()
	yourTurn := m.Active() == humanSeat && (phase == game.PhasePlacingPlayer1 || phase == game.PhaseAwaitingShot)

	state := map[string]any{
		"match_id":       sess.ID,
		"phase":          phase.String(),
		"your_turn":      yourTurn,
		"shots_fired":    m.ShotsFired(humanSeat),
		"opponent_shots": m.ShotsFired(aiSeat),
		"remaining":      remaining,
		"own":            ownRows(own),
		"opponent":       sightRows(sight),
		"fleet":          fleet,
	}
	if winner, over := m.Winner(); over {
		state["winner"] = seatName(winner)
	}
	return state, nil
}

func eventNotification(matchID string, ev game.Event) player.Notification {
	payload := map[string]any{
		"phase":   ev.Phase.String(),
		"shooter": seatName(ev.Shooter),
	}
	switch ev.Kind {
	case game.EventShotResolved:
		payload["outcome"] = outcomeFields(ev.Outcome)
	case game.EventMatchWon, game.EventForfeited:
		payload["winner"] = seatName(ev.Winner)
	}
	return player.Notification{
		Type:    ev.Kind.String(),
		MatchID: matchID,
		Payload: payload,
	}
}

func notificationMessage(n player.Notification) (*structpb.Struct, error) {
	fields := map[string]any{"type": n.Type}
	if n.MatchID != "" {
		fields["match_id"] = n.MatchID
	}
	if n.Payload != nil {
		fields["payload"] = n.Payload
	}
	return structpb.NewStruct(fields)
}
