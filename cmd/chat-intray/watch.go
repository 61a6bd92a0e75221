/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/app"
	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/metrics"
	"github.com/spf13/cobra"
)

// WatchOptions configure a live session.
type WatchOptions struct {
	Format      string
	MetricsAddr string
}

type watchClient interface {
	Watch(ctx context.Context, opts WatchOptions, in io.Reader, out io.Writer) error
}

// NewWatchCmd creates the watch command with explicit dependencies.
func NewWatchCmd(client watchClient) *cobra.Command {
	if client == nil {
		panic("NewWatchCmd: client dependency cannot be nil")
	}

	var formatFlag string
	var metricsAddrFlag string

	watchCmd := &cobra.Command{
		Use:   "watch [OPTIONS]",
		Short: "Run a live session with window title alerts",
		Long: `Run a live session: follow the event stream, keep unread counts fresh,
blink the window title while hidden and ring the bell on new messages.

USAGE:
    chat-intray watch [OPTIONS]

Line commands are read from stdin:
    focus          window became visible
    blur           window became hidden
    read <ch>      mark a channel read
    unread <ch>    mark a channel unread
    status         print the unread status line

OPTIONS:
    --format=<format>       status line format (default: status_format)
    --metrics-addr=<addr>   serve Prometheus metrics on addr, e.g. :9464
    -h, --help              Show this help`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := WatchOptions{
				Format:      app.DetermineStatusFormat(formatFlag, config.Get("status_format", ""), cmd.Flags().Changed("format")),
				MetricsAddr: metricsAddrFlag,
			}
			return client.Watch(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	watchCmd.Flags().StringVar(&formatFlag, "format", "compact", "Status line format or template")
	watchCmd.Flags().StringVar(&metricsAddrFlag, "metrics-addr", "", "Address to serve /metrics on")

	return watchCmd
}

// Watch runs a session until interrupted. Exhausting stdin stops line
// commands, not the session.
func (r *runtime) Watch(ctx context.Context, opts WatchOptions, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder metrics.Recorder = metrics.Noop{}
	var m *metrics.Metrics
	if opts.MetricsAddr != "" {
		m = metrics.New()
		recorder = m
	}

	s, runner, err := r.newSession(out, recorder)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer runner.Wait()
	defer s.Close()

	if m != nil {
		m.RegisterGaugeFunc("chat_intray_unread_cache_hit_ratio", "Fraction of bulk unread lookups served from cache.", s.CacheHitRate)
		m.RegisterGaugeFunc("chat_intray_hooks_pending", "Asynchronous hooks still running.", func() float64 {
			return float64(runner.Pending())
		})
		srv := serveMetrics(opts.MetricsAddr, m)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	colors.Info("Watching unread messages, Ctrl+C to stop")
	if err := app.NewWatchUseCase(s, opts.Format).Serve(ctx, in, out); err != nil {
		colors.Warning(fmt.Sprintf("stopped reading commands: %v", err))
	}
	return <-runErr
}

func serveMetrics(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			colors.Error(fmt.Sprintf("metrics server: %v", err))
		}
	}()
	colors.StructuredInfo("metrics", "serve", "started", nil, "", map[string]any{"addr": addr})
	return srv
}

// watchCmd represents the watch command
var watchCmd = NewWatchCmd(appRuntime)

func init() {
	cmd.RootCmd.AddCommand(watchCmd)
}
