package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"desktop-realtime/internal/auth"
)

// TokenOptions token 명령 플래그
type TokenOptions struct {
	*RootOptions
	UserID int64
	Email  string
	Name   string
	Secret string
	Expiry time.Duration
}

// NewTokenCommand token 명령 생성
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := opts.Secret
			if secret == "" {
				secret = opts.cfg.Auth.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("no signing secret: pass --secret or set JWT_SECRET")
			}
			expiry := opts.Expiry
			if expiry <= 0 {
				expiry = opts.cfg.Auth.AccessTokenExpiry
			}

			token, err := auth.NewJWTManager(secret, expiry).GenerateAccessToken(opts.UserID, opts.Email, opts.Name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.UserID, "user", 0, "user id")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&opts.Name, "name", "", "first name claim")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "signing secret (default $JWT_SECRET)")
	cmd.Flags().DurationVar(&opts.Expiry, "expiry", 0, "token lifetime (default $ACCESS_TOKEN_EXPIRY)")
	cmd.MarkFlagRequired("user")

	return cmd
}
