// Command overlayctl drives the stream overlays and the control panel against
// a running stream data service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/overlay/internal/adapters/http/client"
	"github.com/okian/overlay/internal/config"
	"github.com/okian/overlay/pkg/logger"
	"github.com/spf13/cobra"
)

// cli carries what every subcommand needs once the root has run.
type cli struct {
	cfg *config.Config
	log logger.Logger

	storeURL string
	logLevel string
}

func (c *cli) remote() *client.HTTP {
	return client.NewHTTP(c.cfg.StoreURL, client.WithTimeout(c.cfg.HTTPTimeout()))
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "overlayctl",
		Short: "Run stream overlays and operate the control panel",
		Long: `overlayctl talks to the stream data service.

Overlays poll the shared record and print their render state:
  overlayctl burndown
  overlayctl score --once

The panel commands edit the cached form state and publish it:
  overlayctl panel set score-value 1200
  overlayctl panel submit
  overlayctl panel trigger STAR`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if c.storeURL != "" {
				cfg.StoreURL = c.storeURL
			}
			if c.logLevel != "" {
				cfg.LogLevel = c.logLevel
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			c.cfg = cfg
			c.log = logger.Named("overlayctl")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.storeURL, "store-url", "", "stream data service base URL (overrides OVERLAY_STORE_URL)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newBurndownCmd(c),
		newScoreCmd(c),
		newPanelCmd(c),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
