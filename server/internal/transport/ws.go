package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trezz/shipdit/server/internal/player"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// FeedHandler serves the player's notifications as JSON text frames on a
// websocket. The session token travels in the "token" query parameter.
// When allowedOrigins is empty every origin is accepted.
func (s *ShipditServer) FeedHandler(allowedOrigins []string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout: time.Second * 5,
		ReadBufferSize:   2048,
		WriteBufferSize:  2048,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.registry.GetByToken(r.URL.Query().Get("token"))
		if !ok {
			http.Error(w, errInvalidToken.Error(), http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn().Err(err).Str("player_id", p.ID).Msg("websocket upgrade failed")
			return
		}

		s.logger.Info().Str("player_id", p.ID).Str("remote", ws.RemoteAddr().String()).Msg("feed connected")
		go s.serveFeed(ws, p)
	})
}

func (s *ShipditServer) serveFeed(ws *websocket.Conn, p *player.Player) {
	events, cancel := p.Feed.Subscribe()
	closed := make(chan struct{})
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		cancel()
		ws.Close()
		s.logger.Info().Str("player_id", p.ID).Msg("feed closed")
	}()

	// The read side only exists to notice the client leaving and to answer
	// pings.
	go func() {
		defer close(closed)
		ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug().Err(err).Str("player_id", p.ID).Msg("feed read failed")
				}
				return
			}
		}
	}()

	write := func(n player.Notification) bool {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(n); err != nil {
			s.logger.Debug().Err(err).Str("player_id", p.ID).Msg("feed write failed")
			return false
		}
		return true
	}

	if !write(player.Notification{Type: "subscribed", MatchID: p.MatchID()}) {
		return
	}

	for {
		select {
		case <-closed:
			return
		case n, ok := <-events:
			if !ok {
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if !write(n) {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
