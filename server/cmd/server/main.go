package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/trezz/shipdit/server/internal/config"
	"github.com/trezz/shipdit/server/internal/stats"
	"github.com/trezz/shipdit/server/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := cfg.NewLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder, db := openRecorder(ctx, cfg, logger)
	if db != nil {
		defer db.Close()
	}

	server := transport.NewShipditServer(transport.Options{
		IdleTimeout: cfg.MatchIdleTimeout,
		Recorder:    recorder,
		Logger:      logger,
	})
	defer server.Close()

	mux := http.NewServeMux()

	path, handler := server.Handler(
		connect.WithInterceptors(transport.NewLoggingInterceptor(logger)),
	)
	mux.Handle(path, handler)
	mux.Handle("/ws", server.FeedHandler(cfg.Origins()))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(corsMiddleware(cfg.Origins(), mux), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("port", cfg.Port).Str("stage", string(cfg.Stage)).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
	logger.Info().Msg("server stopped")
}

// openRecorder connects the result ledger when a database is configured.
func openRecorder(ctx context.Context, cfg config.Config, logger zerolog.Logger) (stats.Recorder, *sql.DB) {
	if cfg.DatabaseURL == "" {
		logger.Info().Msg("no DATABASE_URL, match results are not recorded")
		return stats.Nop{}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, stats.QueryTimeout)
	defer cancel()

	db, err := stats.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open result ledger")
	}
	logger.Info().Msg("result ledger ready")
	return stats.NewPostgres(db, outboundIP()), db
}

// outboundIP is the local address used to reach the outside world, or nil
// when there is no route.
func outboundIP() net.IP {
	conn, err := net.Dial("udp", "192.0.2.1:9")
	if err != nil {
		return nil
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP
}

func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(allowed) > 0 {
			origin = r.Header.Get("Origin")
			if !allowed[origin] {
				origin = ""
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
