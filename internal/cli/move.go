package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"desktop-realtime/internal/desktop"
	"desktop-realtime/internal/eventbus"
)

// MoveOptions move 명령 플래그
type MoveOptions struct {
	*RootOptions
	DesktopID int64
	AssetID   int64
	X, Y      float64
	Wait      time.Duration
}

// NewMoveCommand move 명령 생성
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move one asset the way a drag would: persist and broadcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			bus := eventbus.New()
			s, err := desktop.New(opts.sessionConfig(opts.DesktopID, bus))
			if err != nil {
				return err
			}
			if err := s.Mount(cmd.Context()); err != nil {
				return err
			}

			if !waitConnected(bus, s, opts.Wait) {
				fmt.Fprintln(cmd.ErrOrStderr(), renderState(s.State(), "peers will see the move on their next refetch"))
			}

			moveErr := s.MoveAsset(opts.AssetID, opts.X, opts.Y)
			// Unmount 가 REST 쓰기를 기다린다
			if err := s.Unmount(); err != nil {
				return err
			}
			if moveErr != nil {
				return fmt.Errorf("asset %d: %w", opts.AssetID, moveErr)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved asset %d to (%.1f, %.1f)\n", opts.AssetID, opts.X, opts.Y)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.DesktopID, "desktop", 0, "desktop id")
	cmd.Flags().Int64Var(&opts.AssetID, "asset", 0, "asset id")
	cmd.Flags().Float64Var(&opts.X, "x", 0, "world x")
	cmd.Flags().Float64Var(&opts.Y, "y", 0, "world y")
	cmd.Flags().DurationVar(&opts.Wait, "wait", 5*time.Second, "how long to wait for the relay before moving")
	cmd.MarkFlagRequired("desktop")
	cmd.MarkFlagRequired("asset")

	return cmd
}
