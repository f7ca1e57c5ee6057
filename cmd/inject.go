package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sched-sim/sched-sim/client"
	"github.com/sched-sim/sched-sim/sim"
)

var (
	// CLI flags for the injector
	injectServer   string // Server host:port
	injectArrival  int    // Arrival tick for the one-shot spec
	injectBurst    int    // Burst ticks for the one-shot spec
	injectPriority int    // Priority for the one-shot spec
	injectRandom   int    // Number of random specs to submit instead
	injectSeed     int64  // Seed for random spec generation
)

// injectCmd submits processes to a running server: a single spec from flags,
// or a seeded random batch with --random.
var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Submit new processes to a running simulation",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var specs []sim.ProcessSpec
		if injectRandom > 0 {
			base, err := currentTick(ctx, injectServer)
			if err != nil {
				logrus.Fatalf("Could not read server state: %v", err)
			}
			gen := sim.NewSpecGenerator(injectSeed)
			for i := 0; i < injectRandom; i++ {
				specs = append(specs, gen.Next(base))
			}
		} else {
			specs = []sim.ProcessSpec{{
				ArrivalTick: injectArrival,
				BurstTotal:  injectBurst,
				Priority:    injectPriority,
			}}
		}

		inj := client.NewInjector(wsURL(injectServer))
		acks, err := inj.Run(ctx, specs)
		if err != nil {
			logrus.Fatalf("Injection failed: %v", err)
		}
		accepted := 0
		for _, ack := range acks {
			if ack.Accepted {
				accepted++
			}
		}
		logrus.Infof("Injected %d/%d processes", accepted, len(acks))
	},
}

// currentTick asks the server's state endpoint for the tick counter, so
// random arrivals land at or after the present.
func currentTick(ctx context.Context, server string) (int, error) {
	url := fmt.Sprintf("http://%s/api/v1/state", server)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("state endpoint returned %s", resp.Status)
	}
	var snap sim.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return 0, err
	}
	return snap.Tick, nil
}

func init() {
	injectCmd.Flags().StringVar(&injectServer, "server", "127.0.0.1:5555", "Server address (host:port)")
	injectCmd.Flags().IntVar(&injectArrival, "arrival", 0, "Arrival tick")
	injectCmd.Flags().IntVar(&injectBurst, "burst", 5, "Burst ticks")
	injectCmd.Flags().IntVar(&injectPriority, "priority", 5, "Priority (lower = higher)")
	injectCmd.Flags().IntVar(&injectRandom, "random", 0, "Submit N random processes instead of the flag spec")
	injectCmd.Flags().Int64Var(&injectSeed, "seed", 42, "Seed for random process generation")
	rootCmd.AddCommand(injectCmd)
}
