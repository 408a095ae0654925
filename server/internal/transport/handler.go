package transport

import (
	"context"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/trezz/shipdit/server/internal/game"
	"github.com/trezz/shipdit/server/internal/lobby"
	"github.com/trezz/shipdit/server/internal/player"
	"github.com/trezz/shipdit/server/internal/stats"
)

func (s *ShipditServer) authenticate(msg *structpb.Struct) (*player.Player, error) {
	token := stringField(msg, "session_token")
	if token == "" {
		return nil, toConnectError(errMissingToken)
	}
	p, ok := s.registry.GetByToken(token)
	if !ok {
		return nil, toConnectError(errInvalidToken)
	}
	return p, nil
}

func (s *ShipditServer) Connect(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	p, err := s.registry.Register(stringField(req.Msg, "display_name"))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info().Str("player_id", p.ID).Str("display_name", p.DisplayName).Msg("player connected")

	return respond(map[string]any{
		"player_id":     p.ID,
		"display_name":  p.DisplayName,
		"session_token": p.SessionToken,
	})
}

func (s *ShipditServer) ListPlayers(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	if _, err := s.authenticate(req.Msg); err != nil {
		return nil, err
	}

	online := s.registry.Online()
	players := make([]any, len(online))
	for i, p := range online {
		players[i] = map[string]any{
			"player_id":    p.ID,
			"display_name": p.DisplayName,
			"status":       p.Status().String(),
			"listening":    p.Feed.Subscribers() > 0,
		}
	}

	return respond(map[string]any{"players": players})
}

// GetStats reports the ledger's win tally next to the live server load.
func (s *ShipditServer) GetStats(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	if _, err := s.authenticate(req.Msg); err != nil {
		return nil, err
	}

	humanWins, err := s.recorder.CountWins(ctx, stats.WinnerHuman)
	if err != nil {
		s.logger.Error().Err(err).Msg("counting human wins")
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	aiWins, err := s.recorder.CountWins(ctx, stats.WinnerAI)
	if err != nil {
		s.logger.Error().Err(err).Msg("counting computer wins")
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	return respond(map[string]any{
		"human_wins":     humanWins,
		"ai_wins":        aiWins,
		"players_online": s.registry.Len(),
		"open_matches":   s.lobby.Len(),
	})
}

func (s *ShipditServer) StartMatch(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	p, err := s.authenticate(req.Msg)
	if err != nil {
		return nil, err
	}

	sess, err := s.lobby.Open(p.ID, func(matchID string) game.MatchOptions {
		return game.MatchOptions{
			OnEvent: func(ev game.Event) {
				p.Feed.Publish(eventNotification(matchID, ev))
			},
		}
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	p.JoinMatch(sess.ID)
	p.Feed.Publish(player.Notification{Type: "match_started", MatchID: sess.ID})

	return s.stateResponse(sess, nil)
}

func (s *ShipditServer) PlaceShip(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	return s.withMatch(req, stats.ReasonFleetSunk, func(m *game.Match) (map[string]any, error) {
		kind, err := game.ParseKind(stringField(req.Msg, "kind"))
		if err != nil {
			return nil, err
		}
		base, err := coordField(req.Msg)
		if err != nil {
			return nil, err
		}
		rot, err := intField(req.Msg, "orientation")
		if err != nil {
			return nil, err
		}
		o := game.Orientation(rot)

		if req.Msg.GetFields()["dry_run"].GetBoolValue() {
			cells, err := m.CheckPlacement(humanSeat, kind, base, o)
			if err != nil {
				return nil, err
			}
			footprint := make([]any, len(cells))
			for i, c := range cells {
				footprint[i] = map[string]any{"x": c.X, "z": c.Z}
			}
			return map[string]any{"cells": footprint}, nil
		}

		id, err := m.SubmitPlacement(humanSeat, kind, base, o)
		if err != nil {
			return nil, err
		}
		return map[string]any{"ship_id": int(id)}, nil
	})
}

func (s *ShipditServer) AutoPlace(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	return s.withMatch(req, stats.ReasonFleetSunk, func(m *game.Match) (map[string]any, error) {
		return nil, m.AutoPlaceFleet(humanSeat)
	})
}

func (s *ShipditServer) ClearPlacement(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	return s.withMatch(req, stats.ReasonFleetSunk, func(m *game.Match) (map[string]any, error) {
		return nil, m.ClearPlacement(humanSeat)
	})
}

func (s *ShipditServer) ConfirmReady(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	return s.withMatch(req, stats.ReasonFleetSunk, func(m *game.Match) (map[string]any, error) {
		return nil, m.ConfirmPlacementReady(humanSeat)
	})
}

// Fire shoots at the computer's grid. The computer's reply shots are played
// before the response is sent and reach the client as events.
func (s *ShipditServer) Fire(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	return s.withMatch(req, stats.ReasonFleetSunk, func(m *game.Match) (map[string]any, error) {
		target, err := coordField(req.Msg)
		if err != nil {
			return nil, err
		}
		out, err := m.SubmitShotAs(humanSeat, target)
		if err != nil {
			return nil, err
		}
		return map[string]any{"outcome": outcomeFields(out)}, nil
	})
}

func (s *ShipditServer) GetState(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	return s.withMatch(req, stats.ReasonFleetSunk, func(*game.Match) (map[string]any, error) {
		return nil, nil
	})
}

func (s *ShipditServer) Forfeit(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	return s.withMatch(req, stats.ReasonForfeit, func(m *game.Match) (map[string]any, error) {
		return nil, m.Forfeit(humanSeat)
	})
}

// Disconnect forfeits the player's open match, if any, and forgets the
// player. Open event streams end.
func (s *ShipditServer) Disconnect(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	p, err := s.authenticate(req.Msg)
	if err != nil {
		return nil, err
	}

	if sess, err := s.lobby.ForPlayer(p.ID); err == nil {
		if sess.Match.Phase() != game.PhaseGameOver {
			_ = sess.Match.Forfeit(humanSeat)
		}
		if s.lobby.Close(sess.ID) {
			s.record(sess, stats.ReasonForfeit)
		}
	}
	s.registry.Remove(p.ID)

	s.logger.Info().Str("player_id", p.ID).Msg("player disconnected")
	return respond(map[string]any{})
}

// SubscribeEvents streams the player's notifications until the client goes
// away. The first message is always "subscribed".
func (s *ShipditServer) SubscribeEvents(
	ctx context.Context,
	req *Request,
	stream *connect.ServerStream[structpb.Struct],
) error {
	p, err := s.authenticate(req.Msg)
	if err != nil {
		return err
	}

	events, cancel := p.Feed.Subscribe()
	defer cancel()

	hello, err := notificationMessage(player.Notification{Type: "subscribed", MatchID: p.MatchID()})
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	if err := stream.Send(hello); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := notificationMessage(n)
			if err != nil {
				s.logger.Error().Err(err).Str("type", n.Type).Msg("failed to encode notification")
				continue
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// withMatch runs fn against the caller's match and answers with the match
// state merged with fn's fields. A match that fn ended is closed and recorded
// with reason.
func (s *ShipditServer) withMatch(
	req *Request,
	reason string,
	fn func(m *game.Match) (map[string]any, error),
) (*Response, error) {
	p, err := s.authenticate(req.Msg)
	if err != nil {
		return nil, err
	}
	sess, err := s.lobby.ForPlayer(p.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	extra, err := fn(sess.Match)
	if err != nil {
		return nil, toConnectError(err)
	}

	if sess.Match.Phase() == game.PhaseGameOver && s.lobby.Close(sess.ID) {
		p.JoinMatch("")
		s.record(sess, reason)
	}

	return s.stateResponse(sess, extra)
}

func (s *ShipditServer) stateResponse(sess *lobby.Session, extra map[string]any) (*Response, error) {
	state, err := matchState(sess)
	if err != nil {
		return nil, toConnectError(err)
	}
	for k, v := range extra {
		state[k] = v
	}
	return respond(state)
}

func (s *ShipditServer) handleExpired(sess *lobby.Session) {
	if p, ok := s.registry.GetByID(sess.PlayerID); ok {
		p.JoinMatch("")
		p.Feed.Publish(player.Notification{Type: "match_expired", MatchID: sess.ID})
	}
	s.record(sess, stats.ReasonExpired)
}

func (s *ShipditServer) record(sess *lobby.Session, reason string) {
	winner := stats.WinnerNone
	if seat, over := sess.Match.Winner(); over {
		winner = stats.WinnerAI
		if seat == humanSeat {
			winner = stats.WinnerHuman
		}
	}

	r := stats.Result{
		MatchID:    sess.ID,
		PlayerID:   sess.PlayerID,
		Winner:     winner,
		Reason:     reason,
		HumanShots: sess.Match.ShotsFired(humanSeat),
		AIShots:    sess.Match.ShotsFired(aiSeat),
		StartedAt:  sess.Created,
		FinishedAt: s.now(),
	}

	log := s.logger.With().Str("match_id", sess.ID).Str("winner", winner).Str("reason", reason).Logger()
	if err := s.recorder.Record(context.Background(), r); err != nil {
		log.Error().Err(err).Msg("failed to record match result")
		return
	}
	log.Info().Int("human_shots", r.HumanShots).Int("ai_shots", r.AIShots).Msg("match finished")
}
