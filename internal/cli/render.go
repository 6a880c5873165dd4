package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"desktop-realtime/internal/presence"
	"desktop-realtime/internal/realtime"
)

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle = lipgloss.NewStyle().Bold(true)

	stateColors = map[realtime.State]lipgloss.Color{
		realtime.StateConnecting:   lipgloss.Color("244"),
		realtime.StateConnected:    lipgloss.Color("42"),
		realtime.StateReconnecting: lipgloss.Color("214"),
		realtime.StatePolling:      lipgloss.Color("196"),
	}
)

// renderState 연결 상태 + 배너
func renderState(s realtime.State, banner string) string {
	out := labelStyle.Foreground(stateColors[s]).Render("● " + s.String())
	if banner != "" {
		out += " " + dimStyle.Render("("+banner+")")
	}
	return out
}

// renderRoster 접속자 목록 (사용자 색상)
func renderRoster(users []presence.ConnectedUser) string {
	if len(users) == 0 {
		return dimStyle.Render("nobody else here")
	}
	parts := make([]string, 0, len(users))
	for _, u := range users {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(presence.UserColorHex(u.UserID)))
		name := u.FirstName
		if name == "" {
			name = u.Email
		}
		entry := style.Render("["+u.Initial+"]") + " " + name
		if u.SessionCount > 1 {
			entry += dimStyle.Render(fmt.Sprintf(" ×%d", u.SessionCount))
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, "  ")
}

// renderEvent 적용된 원격 이벤트 한 줄
func renderEvent(ev realtime.Event) string {
	who := "relay"
	if ev.Sender != nil {
		who = ev.Sender.FirstName
		if who == "" {
			who = ev.Sender.SessionID
		}
		who = lipgloss.NewStyle().Foreground(lipgloss.Color(presence.UserColorHex(ev.Sender.UserID))).Render(who)
	}

	var detail string
	switch p := ev.Payload.(type) {
	case realtime.AssetPosition:
		detail = fmt.Sprintf("asset %d → (%.1f, %.1f)", p.AssetID, p.PosX, p.PosY)
	case realtime.AssetRef:
		detail = fmt.Sprintf("asset %d", p.AssetID)
	case realtime.CursorPosition:
		detail = fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
	case realtime.PresenceSync:
		detail = fmt.Sprintf("%d sessions", len(p.Sessions))
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", labelStyle.Render(ev.Type.String()), who, dimStyle.Render(detail)))
}
