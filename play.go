package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"paddle/console_view"
	"paddle/models"
	"paddle/reinforcement"
	"paddle/server"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newPlayCommand(opts *options) *cobra.Command {
	var host, port string
	var web, console bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play in real time, drawn in the browser and/or the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if !web && !console {
				return fmt.Errorf("%w: nothing to draw, enable --web or --console", reinforcement.ErrInvalidConfig)
			}

			session, manual, err := newSession(cfg)
			if err != nil {
				return err
			}
			if manual != nil && !web {
				return fmt.Errorf("%w: manual mode reads keys from the web page, enable --web", reinforcement.ErrInvalidConfig)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			group, groupCtx := errgroup.WithContext(ctx)

			sinks := []reinforcement.FrameFunc{}
			if web {
				frames := make(chan models.Frame)
				var input server.InputFunc
				if manual != nil {
					input = manual.Press
				}
				srv, err := server.NewServer(groupCtx, net.JoinHostPort(host, port), session.Frame(), frames, input)
				if err != nil {
					return err
				}
				group.Go(func() error {
					return srv.Serve(groupCtx)
				})
				sinks = append(sinks, reinforcement.Publisher(frames))
			}
			if console {
				frames := make(chan models.Frame, 1)
				view := console_view.NewConsoleView(os.Stdout)
				group.Go(func() error {
					return view.Run(groupCtx, frames)
				})
				sinks = append(sinks, reinforcement.Publisher(frames))
			}

			group.Go(func() error {
				session.Run(groupCtx, pace(groupCtx.Done(), cfg.TickPeriod()), func(frame models.Frame) {
					for _, publish := range sinks {
						publish(frame)
					}
				})
				return nil
			})
			return group.Wait()
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "web server host")
	cmd.Flags().StringVar(&port, "port", "8080", "web server port")
	cmd.Flags().BoolVar(&web, "web", true, "serve the game page")
	cmd.Flags().BoolVar(&console, "console", false, "draw the game in the terminal")
	return cmd
}

// pace emits a tick per period until done.
func pace(done <-chan struct{}, period time.Duration) <-chan time.Time {
	ticks := make(chan time.Time)
	go func() {
		defer close(ticks)
		for range channerics.NewTicker(done, period) {
			select {
			case ticks <- time.Now():
			case <-done:
				return
			}
		}
	}()
	return ticks
}
