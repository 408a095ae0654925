package transport

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/trezz/shipdit/server/internal/lobby"
	"github.com/trezz/shipdit/server/internal/player"
	"github.com/trezz/shipdit/server/internal/stats"
)

const ServiceName = "shipdit.v1.ShipditService"

const (
	ConnectProcedure         = "/" + ServiceName + "/Connect"
	ListPlayersProcedure     = "/" + ServiceName + "/ListPlayers"
	StartMatchProcedure      = "/" + ServiceName + "/StartMatch"
	PlaceShipProcedure       = "/" + ServiceName + "/PlaceShip"
	AutoPlaceProcedure       = "/" + ServiceName + "/AutoPlace"
	ClearPlacementProcedure  = "/" + ServiceName + "/ClearPlacement"
	ConfirmReadyProcedure    = "/" + ServiceName + "/ConfirmReady"
	FireProcedure            = "/" + ServiceName + "/Fire"
	GetStateProcedure        = "/" + ServiceName + "/GetState"
	ForfeitProcedure         = "/" + ServiceName + "/Forfeit"
	DisconnectProcedure      = "/" + ServiceName + "/Disconnect"
	GetStatsProcedure        = "/" + ServiceName + "/GetStats"
	SubscribeEventsProcedure = "/" + ServiceName + "/SubscribeEvents"
)

type (
	Request  = connect.Request[structpb.Struct]
	Response = connect.Response[structpb.Struct]
)

type Options struct {
	IdleTimeout time.Duration
	Recorder    stats.Recorder
	Logger      zerolog.Logger
}

// ShipditServer hosts one human-versus-computer match per connected player.
type ShipditServer struct {
	registry *player.Registry
	lobby    *lobby.Lobby
	recorder stats.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewShipditServer(opts Options) *ShipditServer {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 15 * time.Minute
	}
	if opts.Recorder == nil {
		opts.Recorder = stats.Nop{}
	}

	s := &ShipditServer{
		registry: player.NewRegistry(),
		recorder: opts.Recorder,
		logger:   opts.Logger.With().Str("component", "transport").Logger(),
		now:      time.Now,
	}
	s.lobby = lobby.New(opts.IdleTimeout, opts.Logger)
	s.lobby.OnExpired = s.handleExpired

	return s
}

// Close stops the idle reaper.
func (s *ShipditServer) Close() {
	s.lobby.Stop()
}

// Handler mounts every procedure of the service. The returned path is the
// prefix to register on the outer mux.
func (s *ShipditServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()

	unary := map[string]func(context.Context, *Request) (*Response, error){
		ConnectProcedure:        s.Connect,
		ListPlayersProcedure:    s.ListPlayers,
		StartMatchProcedure:     s.StartMatch,
		PlaceShipProcedure:      s.PlaceShip,
		AutoPlaceProcedure:      s.AutoPlace,
		ClearPlacementProcedure: s.ClearPlacement,
		ConfirmReadyProcedure:   s.ConfirmReady,
		FireProcedure:           s.Fire,
		GetStateProcedure:       s.GetState,
		ForfeitProcedure:        s.Forfeit,
		DisconnectProcedure:     s.Disconnect,
		GetStatsProcedure:       s.GetStats,
	}
	for procedure, fn := range unary {
		mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
	}
	mux.Handle(SubscribeEventsProcedure, connect.NewServerStreamHandler(SubscribeEventsProcedure, s.SubscribeEvents, opts...))

	return "/" + ServiceName + "/", mux
}
