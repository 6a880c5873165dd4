// Package cli deskctl: 실행 중인 relay 에 헤드리스 데스크톱 세션을 붙이는 운영 도구
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"desktop-realtime/internal/api"
	"desktop-realtime/internal/canvas"
	"desktop-realtime/internal/config"
	"desktop-realtime/internal/desktop"
	"desktop-realtime/internal/eventbus"
	"desktop-realtime/internal/realtime"
)

// RootOptions 전역 플래그
type RootOptions struct {
	APIURL      string
	RealtimeURL string
	Token       string

	cfg *config.Config
}

// NewRootCommand deskctl 루트 명령
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "deskctl",
		Short:         "Operate collaborative desktops from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.LoadClient()
			if opts.APIURL == "" {
				opts.APIURL = opts.cfg.API.BaseURL
			}
			if opts.RealtimeURL == "" {
				opts.RealtimeURL = opts.cfg.Realtime.URL
			}
			if opts.Token == "" {
				opts.Token = opts.cfg.API.Token
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", "", "REST base URL (default $API_URL)")
	cmd.PersistentFlags().StringVar(&opts.RealtimeURL, "realtime", "", "relay base URL (default $REALTIME_URL)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "access token (default $API_TOKEN)")

	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func (o *RootOptions) requireToken() error {
	if o.Token == "" {
		return fmt.Errorf("no access token: pass --token or set API_TOKEN")
	}
	return nil
}

func (o *RootOptions) apiClient() *api.Client {
	return api.New(api.Options{
		BaseURL: o.APIURL,
		Token:   o.Token,
		Timeout: o.cfg.API.Timeout,
	})
}

// sessionConfig 설정 -> 데스크톱 세션 Config
func (o *RootOptions) sessionConfig(desktopID int64, bus *eventbus.Bus) desktop.Config {
	cfg := o.cfg
	return desktop.Config{
		DesktopID:    desktopID,
		Token:        o.Token,
		RealtimeURL:  o.RealtimeURL,
		Collaborator: o.apiClient(),
		Dialer:       realtime.NewWSDialer(cfg.WebSocket.WriteTimeout),
		Bus:          bus,
		Canvas: canvas.Options{
			BroadcastInterval: cfg.Canvas.BroadcastThrottle,
			ZoomSensitivity:   cfg.Canvas.ZoomSensitivity,
			CullPadding:       cfg.Canvas.CullPadding,
			FitPadding:        cfg.Canvas.FitPadding,
		},
		Realtime: realtime.Options{
			PollInterval:         cfg.Realtime.PollInterval,
			HeartbeatInterval:    cfg.WebSocket.HeartbeatInterval,
			MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
			Backoff:              realtime.Backoff{Base: cfg.Realtime.ReconnectBase, Max: cfg.Realtime.ReconnectMax},
		},
		SaveDelay:         cfg.Canvas.ViewportSaveDebounce,
		DefaultAssetWidth: cfg.Canvas.DefaultAssetWidth,
		Viewport:          canvas.Viewport{Size: canvas.Size{W: 1280, H: 800}},
	}
}

// waitConnected connected 가 되거나 timeout 까지 대기
func waitConnected(bus *eventbus.Bus, s *desktop.Session, timeout time.Duration) bool {
	if s.State() == realtime.StateConnected {
		return true
	}
	connected := make(chan struct{}, 1)
	unsubscribe := bus.Subscribe(eventbus.TopicConnection, func(p any) {
		if c, ok := p.(desktop.ConnectionChange); ok && c.To == realtime.StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if s.State() == realtime.StateConnected {
		return true
	}
	select {
	case <-connected:
		return true
	case <-time.After(timeout):
		return false
	}
}
