package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/overlay/internal/cache"
	"github.com/okian/overlay/internal/cache/sqlite"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/internal/panel"
	"github.com/okian/overlay/pkg/logger"
	"github.com/spf13/cobra"
)

var effectNames = []string{
	model.EffectFireworks,
	model.EffectLove,
	model.EffectStar,
	model.EffectSparkle,
	model.EffectBubble,
}

func newPanelCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Edit and publish the control panel form",
		Long: `The form state lives in the cache (OVERLAY_CACHE_PATH, a SQLite file).
On first use it is loaded from the stream data service; afterwards every edit is
saved locally until "submit" publishes it.`,
	}
	cmd.AddCommand(
		newPanelShowCmd(c),
		newPanelSetCmd(c),
		newPanelMessageCmd(c),
		newPanelPresetCmd(c),
		newPanelSubmitCmd(c),
		newPanelTriggerCmd(c),
		newPanelClearCacheCmd(c),
		newPanelVoiceCmd(c),
	)
	return cmd
}

// withPanel opens the cache, mounts a controller and runs fn. A failed initial
// fetch is logged and the defaults are used; a corrupt cache is an error unless
// allowCorrupt is set.
func (c *cli) withPanel(ctx context.Context, allowCorrupt bool, fn func(ctl *panel.Controller) error) error {
	backend, err := c.openBackend()
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	ctl := panel.New(c.remote(), cache.New(backend, cache.WithLogger(c.log.Named("cache"))),
		panel.WithCacheKey(c.cfg.CacheKey),
		panel.WithSubmitReset(c.cfg.SubmitReset()),
		panel.WithTriggerReset(c.cfg.TriggerReset()),
		panel.WithLogger(c.log.Named("panel")),
	)
	err = ctl.Mount(ctx)
	switch {
	case errors.Is(err, panel.ErrCorruptCache):
		if !allowCorrupt {
			return fmt.Errorf("%w (run: overlayctl panel clear-cache)", err)
		}
	case err != nil:
		c.log.Warn(ctx, "using default form state", logger.Error(err))
	}
	return fn(ctl)
}

func (c *cli) openBackend() (*sqlite.Backend, error) {
	if c.cfg.CachePath == "" {
		return sqlite.NewMemoryBackend()
	}
	return sqlite.NewFileBackend(c.cfg.CachePath)
}

func newPanelShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the form state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
				return writeJSON(cmd.OutOrStdout(), ctl.Snapshot())
			})
		},
	}
}

// setters maps "set" field names to controller mutations. The receiver comes
// first so method expressions fit.
var setters = map[string]func(ctl *panel.Controller, ctx context.Context, v string) error{
	"tab": func(ctl *panel.Controller, ctx context.Context, v string) error {
		return ctl.SetActiveTab(ctx, panel.Tab(v))
	},
	"listening": func(ctl *panel.Controller, ctx context.Context, v string) error {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		return ctl.SetListening(ctx, on)
	},
	"score-label":    (*panel.Controller).SetScoreLabel,
	"score-value":    (*panel.Controller).SetScoreValue,
	"burndown-label": (*panel.Controller).SetBurndownLabel,
	"burndown-target": func(ctl *panel.Controller, ctx context.Context, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		return ctl.SetBurndownTarget(ctx, f)
	},
	"burndown-entries": func(ctl *panel.Controller, ctx context.Context, v string) error {
		// Accept "1,2,3" on the command line as well as newline separated text.
		return ctl.SetBurndownEntriesText(ctx, strings.ReplaceAll(v, ",", "\n"))
	},
	"font-family": (*panel.Controller).SetFontFamily,
	"font-size": func(ctl *panel.Controller, ctx context.Context, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		return ctl.SetFontSize(ctx, f)
	},
	"transition-effect": func(ctl *panel.Controller, ctx context.Context, v string) error {
		return ctl.SetTransitionEffect(ctx, model.TransitionEffect(v))
	},
	"transition-duration": func(ctl *panel.Controller, ctx context.Context, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		return ctl.SetTransitionDuration(ctx, f)
	},
	"preset":  (*panel.Controller).SetActivePreset,
	"message": (*panel.Controller).SetCurrentMessage,
}

func setterNames() []string {
	names := make([]string, 0, len(setters))
	for k := range setters {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func newPanelSetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Change one form field",
		Long:  "Fields: " + strings.Join(setterNames(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := setters[args[0]]
			if !ok {
				return fmt.Errorf("unknown field %q (fields: %s)", args[0], strings.Join(setterNames(), ", "))
			}
			return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
				if err := set(ctl, cmd.Context(), args[1]); err != nil {
					return fmt.Errorf("set %s: %w", args[0], err)
				}
				return nil
			})
		},
	}
}

func newPanelMessageCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Manage messages of the active preset",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <text>",
			Short: "Append a message to the active preset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
					if err := ctl.SetCurrentMessage(cmd.Context(), args[0]); err != nil {
						return err
					}
					return ctl.AddMessage(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a message from the active preset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("message id: %w", err)
				}
				return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
					return ctl.RemoveMessage(cmd.Context(), id)
				})
			},
		},
	)
	return cmd
}

func newPanelPresetCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage message presets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create an empty preset (select it with: set preset <name>)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
					return ctl.AddPreset(cmd.Context(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Delete a preset",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
					return ctl.RemovePreset(cmd.Context(), args[0])
				})
			},
		},
	)
	return cmd
}

func newPanelSubmitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Publish the form to the stream data service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
				if err := ctl.Submit(cmd.Context()); err != nil {
					return err
				}
				return printLine(cmd.OutOrStdout(), "submitted")
			})
		},
	}
}

func newPanelTriggerCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "trigger <effect>",
		Short:     "Publish the form with a celebration event",
		Long:      "Effects: " + strings.Join(effectNames, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: effectNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToUpper(args[0])
			if !slices.Contains(effectNames, name) {
				return fmt.Errorf("unknown effect %q (effects: %s)", args[0], strings.Join(effectNames, ", "))
			}
			return c.withPanel(cmd.Context(), false, func(ctl *panel.Controller) error {
				if _, err := ctl.TriggerEffect(cmd.Context(), name); err != nil {
					return err
				}
				return printLine(cmd.OutOrStdout(), "triggered "+name)
			})
		},
	}
}

func newPanelClearCacheCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop the cached form state and reload it from the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withPanel(cmd.Context(), true, func(ctl *panel.Controller) error {
				if err := ctl.ClearCache(cmd.Context()); err != nil {
					return err
				}
				return printLine(cmd.OutOrStdout(), "cache cleared")
			})
		},
	}
}

func printLine(w io.Writer, msg string) error {
	_, err := fmt.Fprintln(w, msg)
	return err
}
