package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hakoniwa.dev/internal/sim/world"
	"hakoniwa.dev/internal/transport/observer"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr       string
	TickRateHz int
}

const defaultServeTickRate = 24

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a paced forest and stream its ticks to observers",
		Long: `Run the forest at a fixed tick rate and serve, on a loopback address:
  GET /healthz   liveness
  GET /metrics   Prometheus text metrics
  GET /status    latest world metrics as JSON
  GET /ws        websocket tick stream (send {"type":"SUBSCRIBE","protocol_version":"0.1"} first)

Examples:
  hakoniwa serve
  hakoniwa serve --addr 127.0.0.1:9090 --tick-rate 240`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts, nil)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8080", "http listen address")
	cmd.Flags().IntVar(&opts.TickRateHz, "tick-rate", 0, "ticks per second (0 uses tick_rate_hz, or 24 when that is 0 too)")

	return cmd
}

// runServe blocks until ctx is done or the world reaches max_ticks. ready, when
// non-nil, receives the bound address once the listener is up.
func runServe(ctx context.Context, cmd *cobra.Command, opts *ServeOptions, ready chan<- string) error {
	tune, err := opts.loadTuning()
	if err != nil {
		return err
	}
	switch {
	case opts.TickRateHz > 0:
		tune.TickRateHz = opts.TickRateHz
	case tune.TickRateHz == 0:
		tune.TickRateHz = defaultServeTickRate
	}

	bcast := observer.NewBroadcaster()
	s, err := openSession(tune, sessionOptions{
		logOut:    cmd.ErrOrStderr(),
		telemetry: true,
		sinks:     []world.TickLogger{bcast},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "listen", err)
	}
	srv := &http.Server{
		Handler:           observer.NewServer(s.world, bcast, s.log).Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := s.log.WithField("addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server")
		}
	}()
	log.Info("observer listening")
	if ready != nil {
		ready <- ln.Addr().String()
	}

	runErr := s.world.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "run", runErr)
	}
	return nil
}
