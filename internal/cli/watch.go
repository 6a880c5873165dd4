package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"desktop-realtime/internal/desktop"
	"desktop-realtime/internal/eventbus"
	"desktop-realtime/internal/realtime"
)

// WatchOptions watch 명령 플래그
type WatchOptions struct {
	*RootOptions
	DesktopID int64
	Cursors   bool // cursor_move 도 출력
}

// NewWatchCommand watch 명령 생성
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Mount a desktop and print connection state, presence and events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.DesktopID, "desktop", 0, "desktop id")
	cmd.Flags().BoolVar(&opts.Cursors, "cursors", false, "print cursor movement too")
	cmd.MarkFlagRequired("desktop")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts *WatchOptions) error {
	if err := opts.requireToken(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	bus := eventbus.New()

	var s *desktop.Session
	cfg := opts.sessionConfig(opts.DesktopID, bus)
	cfg.OnEvent = func(ev realtime.Event) {
		if ev.Type == realtime.EventCursorMove && !opts.Cursors {
			return
		}
		fmt.Fprintln(out, renderEvent(ev))
		if ev.Type == realtime.EventPresenceSync {
			fmt.Fprintln(out, renderRoster(s.Users()))
		}
	}

	s, err := desktop.New(cfg)
	if err != nil {
		return err
	}

	bus.Subscribe(eventbus.TopicConnection, func(p any) {
		if c, ok := p.(desktop.ConnectionChange); ok {
			fmt.Fprintln(out, renderState(c.To, s.Banner()))
		}
	})

	if err := s.Mount(ctx); err != nil {
		return err
	}
	d := s.Desktop()
	fmt.Fprintf(out, "%s %q: %d assets\n", labelStyle.Render(fmt.Sprintf("desktop %d", d.ID)), d.Title, len(s.Assets()))

	<-ctx.Done()
	return s.Unmount()
}
