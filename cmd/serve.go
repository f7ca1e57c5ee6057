package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sched-sim/sched-sim/broker"
	"github.com/sched-sim/sched-sim/sim"
)

var (
	// CLI flags for the server
	serveConfigPath string // Optional YAML config file
	serveAddr       string // Listen address
	servePolicy     string // Scheduling policy name
	serveQuantum    int    // Round Robin quantum
	serveTickMS     int    // Tick interval in milliseconds
)

// serveCmd runs the simulation server: engine + clock + session broker.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduling simulation server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := DefaultServeConfig()
		if serveConfigPath != "" {
			var err error
			if cfg, err = LoadServeConfig(serveConfigPath); err != nil {
				logrus.Fatalf("Invalid config: %v", err)
			}
		}
		// Explicit flags override file values.
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}
		if cmd.Flags().Changed("policy") {
			cfg.Policy = servePolicy
		}
		if cmd.Flags().Changed("quantum") {
			cfg.Quantum = serveQuantum
		}
		if cmd.Flags().Changed("tick-interval") {
			cfg.TickIntervalMS = serveTickMS
		}

		policy, err := sim.NewPolicy(cfg.Policy, cfg.Quantum)
		if err != nil {
			logrus.Fatalf("Invalid policy: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine := sim.NewEngine(policy)
		b := broker.New(engine)
		clock := sim.NewClock(time.Duration(cfg.TickIntervalMS)*time.Millisecond, b.Step)
		b.SetClock(clock)

		go b.Run(ctx)
		go func() {
			if err := clock.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.Errorf("clock stopped: %v", err)
			}
		}()

		srv := &http.Server{
			Addr:    cfg.Addr,
			Handler: broker.NewServer(b),
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logrus.Infof("Serving on %s, policy=%s, tick=%dms", cfg.Addr, policy.Kind, cfg.TickIntervalMS)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Failing to bind the listener is the only fatal startup error.
			logrus.Fatalf("Server failed: %v", err)
		}
		logrus.Info("Server stopped")
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to YAML config file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":5555", "Listen address")
	serveCmd.Flags().StringVar(&servePolicy, "policy", "FCFS", "Scheduling policy (FCFS, SJF, SRTF, RR, PRIORITY)")
	serveCmd.Flags().IntVar(&serveQuantum, "quantum", sim.DefaultQuantum, "Round Robin quantum in ticks")
	serveCmd.Flags().IntVar(&serveTickMS, "tick-interval", 1000, "Tick interval in milliseconds")
	rootCmd.AddCommand(serveCmd)
}
