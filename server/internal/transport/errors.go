package transport

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/trezz/shipdit/server/internal/game"
	"github.com/trezz/shipdit/server/internal/lobby"
)

var (
	errMissingToken = errors.New("missing session token")
	errInvalidToken = errors.New("invalid session token")
	errNoMatch      = errors.New("not in a match")
)

// toConnectError maps game and lobby failures onto RPC status codes.
func toConnectError(err error) error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return err
	}

	code := connect.CodeInternal
	switch {
	case errors.Is(err, game.ErrOutOfBounds),
		errors.Is(err, game.ErrOverlap),
		errors.Is(err, game.ErrInvalidCoordinate),
		errors.Is(err, game.ErrInvalidOrientation),
		errors.Is(err, game.ErrUnknownKind),
		errors.Is(err, game.ErrClassComplete),
		errors.Is(err, game.ErrInvalidPlayer):
		code = connect.CodeInvalidArgument
	case errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrShotInFlight),
		errors.Is(err, game.ErrNotInFlight),
		errors.Is(err, game.ErrIncompletePlacement),
		errors.Is(err, lobby.ErrAlreadyInMatch):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, game.ErrPlacementExhausted):
		code = connect.CodeResourceExhausted
	case errors.Is(err, lobby.ErrMatchNotFound), errors.Is(err, errNoMatch):
		code = connect.CodeNotFound
	case errors.Is(err, errMissingToken), errors.Is(err, errInvalidToken):
		code = connect.CodeUnauthenticated
	}
	return connect.NewError(code, err)
}
