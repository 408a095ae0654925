package transport

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

// NewLoggingInterceptor logs every unary call with its duration. Failures
// are logged at warn level with their status code.
func NewLoggingInterceptor(logger zerolog.Logger) connect.UnaryInterceptorFunc {
	logger = logger.With().Str("component", "rpc").Logger()
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			ev := logger.Debug()
			if err != nil {
				ev = logger.Warn().Err(err).Str("code", connect.CodeOf(err).String())
			}
			ev.Str("procedure", req.Spec().Procedure).
				Str("peer", req.Peer().Addr).
				Dur("duration", time.Since(start)).
				Msg("rpc")
			return resp, err
		}
	}
}
