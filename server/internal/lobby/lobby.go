package lobby

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trezz/shipdit/server/internal/game"
)

var (
	ErrAlreadyInMatch = errors.New("player already has a match")
	ErrMatchNotFound  = errors.New("match not found")
)

const (
	minReapInterval = 100 * time.Millisecond
	maxReapInterval = 30 * time.Second
)

// Session is one hosted match between a connected player and the computer.
type Session struct {
	ID       string
	PlayerID string
	Match    *game.Match
	Created  time.Time

	mu         sync.Mutex
	lastActive time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = now
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// OptionsFunc builds the match options once the session id is known, so
// event callbacks can be routed by id.
type OptionsFunc func(sessionID string) game.MatchOptions

type OnExpired func(s *Session)

type Lobby struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	byPlayer    map[string]string
	idleTimeout time.Duration
	now         func() time.Time
	logger      zerolog.Logger

	OnExpired OnExpired

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(idleTimeout time.Duration, logger zerolog.Logger) *Lobby {
	l := newLobby(idleTimeout, logger)
	l.wg.Add(1)
	go l.runReaper(reapInterval(idleTimeout))
	return l
}

func newLobby(idleTimeout time.Duration, logger zerolog.Logger) *Lobby {
	return &Lobby{
		sessions:    make(map[string]*Session),
		byPlayer:    make(map[string]string),
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger.With().Str("component", "lobby").Logger(),
		stopCh:      make(chan struct{}),
	}
}

func reapInterval(idle time.Duration) time.Duration {
	d := idle / 10
	if d < minReapInterval {
		return minReapInterval
	}
	if d > maxReapInterval {
		return maxReapInterval
	}
	return d
}

func (l *Lobby) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

// Open starts a human-versus-computer match for the player.
func (l *Lobby) Open(playerID string, opts OptionsFunc) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byPlayer[playerID]; exists {
		return nil, ErrAlreadyInMatch
	}

	id := uuid.New().String()
	var mo game.MatchOptions
	if opts != nil {
		mo = opts(id)
	}
	m, err := game.StartMatch(game.Human, game.AI, mo)
	if err != nil {
		return nil, err
	}

	now := l.now()
	s := &Session{
		ID:         id,
		PlayerID:   playerID,
		Match:      m,
		Created:    now,
		lastActive: now,
	}
	l.sessions[id] = s
	l.byPlayer[playerID] = id

	l.logger.Info().Str("match_id", id).Str("player_id", playerID).Msg("match opened")
	return s, nil
}

// Get returns the session and marks it active.
func (l *Lobby) Get(id string) (*Session, error) {
	l.mu.RLock()
	s, ok := l.sessions[id]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrMatchNotFound
	}
	s.touch(l.now())
	return s, nil
}

func (l *Lobby) ForPlayer(playerID string) (*Session, error) {
	l.mu.RLock()
	id, ok := l.byPlayer[playerID]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrMatchNotFound
	}
	return l.Get(id)
}

// Close drops the session and reports whether it was still open. Closing an
// unknown id is a no-op.
func (l *Lobby) Close(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked(id)
}

func (l *Lobby) closeLocked(id string) bool {
	s, ok := l.sessions[id]
	if !ok {
		return false
	}
	delete(l.sessions, id)
	if l.byPlayer[s.PlayerID] == id {
		delete(l.byPlayer, s.PlayerID)
	}
	return true
}

func (l *Lobby) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}

func (l *Lobby) runReaper(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.reapExpired()
		}
	}
}

func (l *Lobby) reapExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, s := range l.sessions {
		if now.Sub(s.LastActive()) <= l.idleTimeout {
			continue
		}
		l.closeLocked(id)
		l.logger.Info().Str("match_id", id).Dur("idle", now.Sub(s.LastActive())).Msg("match expired")
		if l.OnExpired != nil {
			go l.OnExpired(s)
		}
	}
}
