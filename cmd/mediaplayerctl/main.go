// Command mediaplayerctl drives a running media player over its remote
// control WebSocket.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mediaplayer/internal/remote"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type options struct {
	url     string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "mediaplayerctl",
		Short:        "Remote control for the media player",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.url, "url", "u", "ws://localhost:8081/api/ws", "Remote control WebSocket URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Time allowed for a command")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log connection details")

	root.AddCommand(
		simpleCmd(opts, "play", "Start playback", func(ctx context.Context, c *remote.Client) error {
			return c.Play(ctx)
		}),
		simpleCmd(opts, "pause", "Pause playback", func(ctx context.Context, c *remote.Client) error {
			return c.Pause(ctx)
		}),
		floatCmd(opts, "seek", "Move every stream to SECONDS", "SECONDS", (*remote.Client).Seek),
		floatCmd(opts, "volume", "Set the main audio volume (0 to 1)", "LEVEL", (*remote.Client).SetVolume),
		floatCmd(opts, "rate", "Set the playback rate", "RATE", (*remote.Client).SetPlaybackRate),
		&cobra.Command{
			Use:   "enable STREAM",
			Short: "Show a stream",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd.Context(), opts, func(ctx context.Context, c *remote.Client) error {
					return c.EnableStream(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "disable STREAM",
			Short: "Hide a stream",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd.Context(), opts, func(ctx context.Context, c *remote.Client) error {
					enabled, err := c.DisableStream(ctx, args[0])
					if err != nil {
						return err
					}
					if enabled {
						fmt.Fprintf(cmd.OutOrStdout(), "%s stays enabled (main audio)\n", args[0])
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "press BUTTON",
			Short: "Run the action of a button plugin",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd.Context(), opts, func(ctx context.Context, c *remote.Client) error {
					return c.PressButton(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "state",
			Short: "Print the player state as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withClient(cmd.Context(), opts, func(ctx context.Context, c *remote.Client) error {
					state, err := c.GetState(ctx)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(state)
				})
			},
		},
		watchCmd(opts),
	)

	return root
}

func newLogger(opts *options) *zap.Logger {
	if !opts.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// withClient connects, runs fn under the command timeout and disconnects
func withClient(ctx context.Context, opts *options, fn func(ctx context.Context, c *remote.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	c := remote.NewClient(opts.url, newLogger(opts))
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect()

	return fn(ctx, c)
}

func simpleCmd(opts *options, use, short string, fn func(ctx context.Context, c *remote.Client) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), opts, fn)
		},
	}
}

func floatCmd(opts *options, use, short, arg string, fn func(c *remote.Client, ctx context.Context, v float64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " " + arg,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", arg, args[0], err)
			}
			return withClient(cmd.Context(), opts, func(ctx context.Context, c *remote.Client) error {
				return fn(c, ctx, v)
			})
		},
	}
}

// watchCmd prints broadcast events until interrupted
func watchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print button presses and end of playback as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			c := remote.NewClient(opts.url, newLogger(opts))
			if err := c.Connect(ctx); err != nil {
				return err
			}
			defer c.Disconnect()

			out := cmd.OutOrStdout()
			show := func(e remote.Event) {
				fmt.Fprintf(out, "%s %s %s\n", e.TimeFired.Format(time.RFC3339), e.EventType, string(e.Data))
			}
			c.Subscribe(remote.EventButtonPress, show)
			c.Subscribe(remote.EventEnded, show)

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if !c.IsConnected() {
						return fmt.Errorf("connection to %s lost", opts.url)
					}
				}
			}
		},
	}
}
