package player

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

var rankNames = []string{
	"Admiral",
	"Commodore",
	"Captain",
	"Commander",
	"Lieutenant",
	"Ensign",
	"Bosun",
	"Gunner",
	"Navigator",
	"Helmsman",
}

var epithetNames = []string{
	"Ironside",
	"Stormborn",
	"of the Reef",
	"Deepwater",
	"Saltbeard",
	"the Steady",
	"Broadside",
	"of the Narrows",
	"Keelhaul",
	"the Tidewatcher",
	"Longshot",
	"Fogbound",
	"the Unsinkable",
	"Foghorn",
	"of the Shoals",
}

type Status int

const (
	StatusOnline Status = iota
	StatusInMatch
)

func (s Status) String() string {
	if s == StatusInMatch {
		return "in_match"
	}
	return "online"
}

type Player struct {
	ID           string
	DisplayName  string
	SessionToken string
	Feed         *Feed

	mu      sync.RWMutex
	status  Status
	matchID string
}

func (p *Player) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Player) MatchID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.matchID
}

// JoinMatch records the match the player is in. An empty id returns the
// player to the online pool.
func (p *Player) JoinMatch(matchID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matchID = matchID
	if matchID == "" {
		p.status = StatusOnline
	} else {
		p.status = StatusInMatch
	}
}

type Registry struct {
	mu            sync.RWMutex
	players       map[string]*Player
	tokenToPlayer map[string]*Player
}

func NewRegistry() *Registry {
	return &Registry{
		players:       make(map[string]*Player),
		tokenToPlayer: make(map[string]*Player),
	}
}

func (r *Registry) Register(displayName string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if displayName == "" {
		displayName = generateCaptainName()
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}

	player := &Player{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		SessionToken: token,
		Feed:         NewFeed(feedBuffer),
		status:       StatusOnline,
	}

	r.players[player.ID] = player
	r.tokenToPlayer[token] = player

	return player, nil
}

func (r *Registry) GetByID(id string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	player, ok := r.players[id]
	return player, ok
}

func (r *Registry) GetByToken(token string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	player, ok := r.tokenToPlayer[token]
	return player, ok
}

// Online lists players who are connected but not in a match.
func (r *Registry) Online() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var available []*Player
	for _, player := range r.players {
		if player.Status() == StatusOnline {
			available = append(available, player)
		}
	}
	return available
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if player, ok := r.players[id]; ok {
		delete(r.tokenToPlayer, player.SessionToken)
		player.Feed.Close()
		delete(r.players, id)
	}
}

func generateCaptainName() string {
	rankIdx, _ := rand.Int(rand.Reader, big.NewInt(int64(len(rankNames))))
	epithetIdx, _ := rand.Int(rand.Reader, big.NewInt(int64(len(epithetNames))))

	return rankNames[rankIdx.Int64()] + " " + epithetNames[epithetIdx.Int64()]
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
