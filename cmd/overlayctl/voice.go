package main

import (
	"context"
	"errors"
	"io"

	"github.com/okian/overlay/internal/panel"
	"github.com/okian/overlay/internal/voice"
	"github.com/spf13/cobra"
)

// finiteEngine ends the listener once the wrapped engine has nothing left.
type finiteEngine struct {
	voice.Engine
	done context.CancelFunc
}

func (e finiteEngine) Start(ctx context.Context) (<-chan string, error) {
	ch, err := e.Engine.Start(ctx)
	if errors.Is(err, voice.ErrEngineUnavailable) {
		e.done()
	}
	return ch, err
}

func newPanelVoiceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "voice",
		Short: "Trigger effects from recognized phrases read on stdin",
		Long: `Reads one recognized phrase per line from stdin and triggers the matching
effect while listening is on:
  ナイス -> STAR, ありがとう -> LOVE, よっしゃ -> SPARKLE, やべぇ/やばい -> BUBBLE
Listening is switched on for the session and restored afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
				return c.listen(cmd.Context(), ctl, cmd.InOrStdin())
			})
		},
	}
}

func (c *cli) listen(ctx context.Context, ctl *panel.Controller, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	was := ctl.Snapshot().IsListening
	intent, stop := ctl.WatchListening()
	defer stop()

	l := voice.NewListener(finiteEngine{Engine: voice.NewReaderEngine(in), done: cancel}, ctl,
		voice.WithQueueSize(c.cfg.VoiceQueueSize),
		voice.WithRestartDelay(c.cfg.VoiceRestartDelay()),
		voice.WithLogger(c.log.Named("voice")),
	)
	if err := ctl.SetListening(ctx, true); err != nil {
		return err
	}
	defer func() { _ = ctl.SetListening(context.Background(), was) }()

	return l.Run(ctx, intent, false)
}
