package stats

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const (
	maxOpenConns = 20
	maxIdleConns = 5
	connMaxLife  = time.Minute * 15

	// QueryTimeout bounds every ledger statement.
	QueryTimeout = time.Second * 10
)

const (
	WinnerHuman = "human"
	WinnerAI    = "ai"
	WinnerNone  = "none"

	ReasonFleetSunk = "fleet_sunk"
	ReasonForfeit   = "forfeit"
	ReasonExpired   = "expired"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Result is the ledger row written when a hosted match ends.
type Result struct {
	MatchID    string
	PlayerID   string
	Winner     string
	Reason     string
	HumanShots int
	AIShots    int
	StartedAt  time.Time
	FinishedAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, r Result) error
	// CountWins returns how many recorded matches the given side won.
	CountWins(ctx context.Context, winner string) (int64, error)
}

// Nop discards results. It is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Result) error { return nil }

func (Nop) CountWins(context.Context, string) (int64, error) { return 0, nil }

type Postgres struct {
	db         *sql.DB
	serverAddr pqtype.Inet
}

var _ Recorder = (*Postgres)(nil)

// NewPostgres records results through db. serverIP tags every row with the
// host that ran the match; nil leaves the column NULL.
func NewPostgres(db *sql.DB, serverIP net.IP) *Postgres {
	p := &Postgres{db: db}
	if serverIP != nil {
		bits := 8 * net.IPv6len
		if v4 := serverIP.To4(); v4 != nil {
			serverIP = v4
			bits = 8 * net.IPv4len
		}
		p.serverAddr = pqtype.Inet{
			IPNet: net.IPNet{IP: serverIP, Mask: net.CIDRMask(bits, bits)},
			Valid: true,
		}
	}
	return p
}

const insertResult = `INSERT INTO match_results
    (match_id, player_id, winner, reason, human_shots, ai_shots, started_at, finished_at, server_addr, summary)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (match_id) DO NOTHING`

func (p *Postgres) Record(ctx context.Context, r Result) error {
	summary, err := json.Marshal(map[string]any{
		"duration_seconds": r.FinishedAt.Sub(r.StartedAt).Seconds(),
		"total_shots":      r.HumanShots + r.AIShots,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, err = p.db.ExecContext(ctx, insertResult,
		r.MatchID, r.PlayerID, r.Winner, r.Reason, r.HumanShots, r.AIShots,
		r.StartedAt, r.FinishedAt, p.serverAddr,
		pqtype.NullRawMessage{RawMessage: summary, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("recording match %s: %w", r.MatchID, err)
	}
	return nil
}

func (p *Postgres) CountWins(ctx context.Context, winner string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	var n int64
	err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM match_results WHERE winner = $1`, winner).Scan(&n)
	return n, err
}

// Connect opens the database, checks it is reachable and brings the schema
// up to date.
func Connect(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLife)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}

	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	if dirty {
		return errors.New("database schema is dirty")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
