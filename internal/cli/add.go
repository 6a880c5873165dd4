package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"

	"desktop-realtime/internal/model"
)

// AddOptions add 명령 플래그
type AddOptions struct {
	*RootOptions
	DesktopID int64
	Type      string
	URL       string
	Content   string
	X, Y      float64
	ChatID    string
}

// NewAddCommand add 명령 생성
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Place a new asset on a desktop",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireToken(); err != nil {
				return err
			}
			asset, err := opts.asset()
			if err != nil {
				return err
			}
			created, err := opts.apiClient().AddAsset(cmd.Context(), opts.DesktopID, asset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s asset %d at (%.1f, %.1f)\n", created.AssetType, created.ID, created.PosX, created.PosY)
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.DesktopID, "desktop", 0, "desktop id")
	cmd.Flags().StringVar(&opts.Type, "type", "text", "asset type (image|video|text)")
	cmd.Flags().StringVar(&opts.URL, "url", "", "media url for image/video")
	cmd.Flags().StringVar(&opts.Content, "content", "", "text content")
	cmd.Flags().Float64Var(&opts.X, "x", 0, "world x")
	cmd.Flags().Float64Var(&opts.Y, "y", 0, "world y")
	cmd.Flags().StringVar(&opts.ChatID, "chat", "", "source chat id stored in metadata")
	cmd.MarkFlagRequired("desktop")

	return cmd
}

func (o *AddOptions) asset() (model.DesktopAsset, error) {
	a := model.DesktopAsset{
		AssetType: model.AssetType(o.Type),
		URL:       o.URL,
		Content:   o.Content,
		PosX:      o.X,
		PosY:      o.Y,
	}
	if !a.AssetType.Valid() {
		return model.DesktopAsset{}, fmt.Errorf("unknown asset type %q", o.Type)
	}
	if a.AssetType.HasMedia() && a.URL == "" {
		return model.DesktopAsset{}, fmt.Errorf("%s assets need --url", a.AssetType)
	}
	if o.ChatID != "" {
		meta, err := json.Marshal(map[string]string{"chatId": o.ChatID})
		if err != nil {
			return model.DesktopAsset{}, err
		}
		a.Metadata = datatypes.JSON(meta)
	}
	return a, nil
}
