package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/anirudhbiyani/identity-session/pkg/identity"
)

var (
	watchAddr     string
	watchRefresh  time.Duration
	watchPassword string
	watchGlobal   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [username]",
	Short: "Keep a session fresh and serve its state and metrics over HTTP",
	Long: `Watch restores or signs in a session, then keeps it fresh with the refresh
timer until interrupted. The listener on --addr serves:

  /healthz   200 while authenticated, 503 otherwise
  /state     the session summary as JSON (no tokens)
  /metrics   Prometheus metrics

The session is signed out when the command exits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts := []identity.Option{identity.WithMetrics(identity.NewMetrics(reg))}
		if watchRefresh > 0 {
			opts = append(opts, identity.WithRefreshPeriod(watchRefresh))
		}

		a, err := newApp(ctx, cmd, opts...)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.orch.Start(ctx); err != nil {
			return err
		}
		if err := a.answerChallenges(ctx); err != nil {
			return err
		}
		if !a.orch.Snapshot().Authenticated {
			var username string
			if len(args) == 1 {
				username = args[0]
			}
			if err := a.signIn(ctx, username, watchPassword, false); err != nil {
				return err
			}
		}
		if err := a.print(); err != nil {
			return err
		}

		server := &http.Server{
			Addr:              watchAddr,
			Handler:           a.handler(reg),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "Watching session, serving on %s (refresh every %s)\n", watchAddr, a.refreshPeriod())

		var serveErr error
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down...")
		case serveErr = <-done:
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && serveErr == nil {
			serveErr = fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := a.orch.SignOut(shutdownCtx, watchGlobal); err != nil && serveErr == nil {
			serveErr = err
		}
		return serveErr
	},
}

func (a *app) refreshPeriod() time.Duration {
	if watchRefresh > 0 {
		return watchRefresh
	}
	return a.cfg.RefreshPeriod()
}

// handler serves the watch endpoints.
func (a *app) handler(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !a.orch.Snapshot().Authenticated {
			http.Error(w, "not authenticated", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	})

	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summarize(a.orch.Snapshot(), a.history.Path()))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return r
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchAddr, "addr", "127.0.0.1:9464", "Address to serve state and metrics on")
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", 0, "Refresh period; overrides refresh_interval from the config")
	watchCmd.Flags().StringVar(&watchPassword, "password", "", "Password (prompted when omitted)")
	watchCmd.Flags().BoolVar(&watchGlobal, "global", false, "Sign out of every device when exiting")
}
