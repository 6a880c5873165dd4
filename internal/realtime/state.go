package realtime

// State 연결 상태
type State int

const (
	// 첫 연결 시도 결과가 나오기 전
	StateConnecting State = iota
	// 소켓이 열리고 첫 프레임을 받음
	StateConnected
	// 실시간 불가. 일정 간격으로 refetch 후 재연결 시도
	StatePolling
	// 열려 있던 소켓이 끊겨 backoff 로 재연결 중
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePolling:
		return "polling"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

func (s State) Live() bool {
	return s == StateConnected
}

// Degraded "live sync unavailable" 배너 표시 여부
func (s State) Degraded() bool {
	return s == StatePolling || s == StateReconnecting
}
