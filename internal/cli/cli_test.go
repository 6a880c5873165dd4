package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desktop-realtime/internal/auth"
	"desktop-realtime/internal/presence"
	"desktop-realtime/internal/realtime"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--user", "12", "--email", "seo@eum.io", "--name", "Seo", "--secret", "dev-secret", "--expiry", "1h")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager("dev-secret", time.Hour).ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(12), claims.UserID)
	assert.Equal(t, "Seo", claims.FirstName)
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token", "--user", "12")
	assert.ErrorContains(t, err, "no signing secret")
}

func TestCommandsNeedAccessToken(t *testing.T) {
	t.Setenv("API_TOKEN", "")
	for _, args := range [][]string{
		{"watch", "--desktop", "1"},
		{"move", "--desktop", "1", "--asset", "2"},
		{"add", "--desktop", "1"},
	} {
		_, err := execute(t, args...)
		assert.ErrorContains(t, err, "no access token", args[0])
	}
}

func TestAddOptionsAsset(t *testing.T) {
	opts := &AddOptions{Type: "text", Content: "memo", X: 3, Y: 4, ChatID: "room-7"}
	a, err := opts.asset()
	require.NoError(t, err)
	chatID, ok := a.SourceChatID()
	assert.True(t, ok)
	assert.Equal(t, "room-7", chatID)

	_, err = (&AddOptions{Type: "image"}).asset()
	assert.Error(t, err)
	_, err = (&AddOptions{Type: "gif", URL: "x"}).asset()
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	roster := renderRoster([]presence.ConnectedUser{
		{UserID: 1, Initial: "J", FirstName: "Jiwoo", SessionCount: 2},
		{UserID: 2, Initial: "S", Email: "seo@eum.io", SessionCount: 1},
	})
	assert.Contains(t, roster, "Jiwoo")
	assert.Contains(t, roster, "×2")
	assert.Contains(t, roster, "seo@eum.io")
	assert.Contains(t, renderRoster(nil), "nobody")

	assert.Contains(t, renderState(realtime.StatePolling, "live sync unavailable"), "polling")

	ev := realtime.Event{
		Type:    realtime.EventAssetMoved,
		Sender:  &realtime.Sender{SessionID: "a", UserID: 1, FirstName: "Jiwoo"},
		Payload: realtime.AssetPosition{AssetID: 4, PosX: 10, PosY: 20.5},
	}
	line := renderEvent(ev)
	assert.Contains(t, line, "asset_moved")
	assert.Contains(t, line, "Jiwoo")
	assert.Contains(t, line, "asset 4 → (10.0, 20.5)")
}
