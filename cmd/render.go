package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sched-sim/sched-sim/client"
)

var renderServer string // Server host:port

// renderCmd attaches a terminal renderer to a running server.
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Observe the live simulation as a terminal view",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r := client.NewRenderer(wsURL(renderServer), os.Stdout)
		if err := r.Run(ctx); err != nil {
			logrus.Fatalf("Renderer failed: %v", err)
		}
	},
}

// wsURL builds the websocket endpoint URL from a host:port.
func wsURL(server string) string {
	return fmt.Sprintf("ws://%s/ws", server)
}

func init() {
	renderCmd.Flags().StringVar(&renderServer, "server", "127.0.0.1:5555", "Server address (host:port)")
	rootCmd.AddCommand(renderCmd)
}
