package realtime

// transition 상태 머신에 사실 하나를 넣은 결과
type transition struct {
	From    State
	To      State
	Refetch bool
}

func (t transition) changed() bool {
	return t.From != t.To
}

// machine I/O 없는 연결 상태 전이
type machine struct {
	state       State
	failures    int
	maxAttempts int
}

func newMachine(maxAttempts int) *machine {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &machine{state: StateConnecting, maxAttempts: maxAttempts}
}

// opened 첫 프레임 수신. degraded 상태에서 복귀하면 한 번 전체 refetch
// (놓친 이벤트를 재전송해 주지 않으므로)
func (m *machine) opened() transition {
	t := transition{From: m.state, To: StateConnected}
	t.Refetch = m.state.Degraded()
	m.state = StateConnected
	m.failures = 0
	return t
}

// openFailed 연결 실패. maxAttempts 번 실패하면 polling 으로
func (m *machine) openFailed() transition {
	t := transition{From: m.state}
	switch m.state {
	case StateConnecting, StateReconnecting:
		m.failures++
		if m.failures >= m.maxAttempts {
			m.state = StatePolling
		}
	case StateConnected:
		m.failures = 1
		m.state = StateReconnecting
	}
	t.To = m.state
	return t
}

// dropped 열린 소켓이 예기치 않게 끊김
func (m *machine) dropped() transition {
	t := transition{From: m.state}
	if m.state == StateConnected {
		m.state = StateReconnecting
		m.failures = 0
	}
	t.To = m.state
	return t
}

// serverClosed relay 가 close 프레임을 보냄. 빠른 재시도는 의미 없음
func (m *machine) serverClosed() transition {
	t := transition{From: m.state, To: StatePolling}
	m.state = StatePolling
	m.failures = 0
	return t
}

// attempt 다음 재시도 번호 (backoff 용)
func (m *machine) attempt() int {
	return m.failures
}
