package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/okian/overlay/internal/overlay"
	"github.com/okian/overlay/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// sink is the part of an overlay the commands drive.
type sink interface {
	overlay.Sink
	Run(ctx context.Context) error
	ID() string
}

func newBurndownCmd(c *cli) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "burndown",
		Short: "Run the burn-down overlay",
		Long: `Polls the record, animates the remaining value and posts a FIREWORKS
event once the goal is reached. The view is printed whenever it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := overlay.NewBurndownOverlay(c.remote(), c.overlayOptions("burndown")...)
			return runOverlay(cmd.Context(), cmd.OutOrStdout(), c, o, once, func() any { return o.View() })
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "fetch once, print the view and exit")
	return cmd
}

func newScoreCmd(c *cli) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run the score overlay",
		Long: `Polls the record and prints the score, the rotating message and any
celebration particles whenever they change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := overlay.NewScoreOverlay(c.remote(), c.overlayOptions("score")...)
			return runOverlay(cmd.Context(), cmd.OutOrStdout(), c, o, once, func() any { return o.View() })
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "fetch once, print the view and exit")
	return cmd
}

func (c *cli) overlayOptions(name string) []overlay.Option {
	return []overlay.Option{
		overlay.WithLogger(c.log.Named(name)),
		overlay.WithPollInterval(c.cfg.PollInterval()),
		overlay.WithAnimationWindow(c.cfg.AnimationWindow()),
		overlay.WithFireworksDuration(c.cfg.FireworksDuration()),
	}
}

func runOverlay(ctx context.Context, out io.Writer, c *cli, o sink, once bool, view func() any) error {
	if once {
		rec, err := c.remote().Fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetch record: %w", err)
		}
		if follow := o.Apply(rec, time.Now()); follow != nil {
			follow(ctx)
		}
		return writeJSON(out, view())
	}

	c.log.Info(ctx, "overlay running",
		logger.String("instance", o.ID()),
		logger.String("store", c.cfg.StoreURL),
		logger.Duration("interval", c.cfg.PollInterval()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.Run(gctx) })
	g.Go(func() error { return report(gctx, out, c.cfg.PollInterval(), view) })
	return g.Wait()
}

// report prints view every interval when its JSON differs from the last print.
func report(ctx context.Context, out io.Writer, interval time.Duration, view func() any) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		b, err := json.Marshal(view())
		if err != nil {
			return err
		}
		if bytes.Equal(b, last) {
			continue
		}
		last = b
		if _, err := fmt.Fprintf(out, "%s\n", b); err != nil {
			return err
		}
	}
}
