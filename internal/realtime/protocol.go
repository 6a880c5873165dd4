package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType 실시간 메시지 타입
type EventType string

const (
	EventAssetMoved      EventType = "asset_moved"
	EventAssetDragging   EventType = "asset_dragging"
	EventAssetRemoved    EventType = "asset_removed"
	EventAssetSelected   EventType = "asset_selected"
	EventAssetDeselected EventType = "asset_deselected"
	EventCursorMove      EventType = "cursor_move"
	EventCursorLeave     EventType = "cursor_leave"

	// relay 가 보내는 채널 접속 세션 목록
	EventPresenceSync EventType = "presence_sync"

	EventPing EventType = "ping"
	EventPong EventType = "pong"
)

func (t EventType) String() string {
	return string(t)
}

// Known 프로토콜에 있는 타입인지
func (t EventType) Known() bool {
	switch t {
	case EventAssetMoved, EventAssetDragging, EventAssetRemoved,
		EventAssetSelected, EventAssetDeselected,
		EventCursorMove, EventCursorLeave,
		EventPresenceSync, EventPing, EventPong:
		return true
	}
	return false
}

// Relayed 클라이언트가 보낸 메시지를 다른 세션으로 중계하는 타입인지
func (t EventType) Relayed() bool {
	switch t {
	case EventAssetMoved, EventAssetDragging, EventAssetRemoved,
		EventAssetSelected, EventAssetDeselected,
		EventCursorMove, EventCursorLeave:
		return true
	}
	return false
}

// Mutates 에셋 상태를 바꾸는 타입. relay 는 편집 권한 세션의 것만 중계
func (t EventType) Mutates() bool {
	switch t {
	case EventAssetMoved, EventAssetDragging, EventAssetRemoved:
		return true
	}
	return false
}

var (
	ErrUnknownEvent     = errors.New("unknown event type")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Sender 메시지를 보낸 세션. relay 가 덮어쓰므로 클라이언트 값은 무시된다
type Sender struct {
	SessionID string `json:"sessionId"`
	UserID    int64  `json:"userId"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
}

// Envelope {type, payload} 와이어 포맷
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Sender  *Sender         `json:"sender,omitempty"`
}

// AssetPosition asset_moved / asset_dragging 페이로드
type AssetPosition struct {
	AssetID int64   `json:"assetId"`
	PosX    float64 `json:"posX"`
	PosY    float64 `json:"posY"`
}

// AssetRef asset_removed / asset_selected / asset_deselected 페이로드
type AssetRef struct {
	AssetID int64 `json:"assetId"`
}

// CursorPosition cursor_move 페이로드 (월드 좌표)
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceSync struct {
	Sessions []Sender `json:"sessions"`
}

// Event 디코딩 + 검증된 메시지. 페이로드 없는 타입은 Payload 가 nil
type Event struct {
	Type    EventType
	Sender  *Sender
	Payload any
}

// Encode 메시지 직렬화. nil 페이로드는 {}
func Encode(t EventType, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

// ParseEnvelope 바깥 envelope 만 파싱 (타입 확인, payload 는 raw)
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !env.Type.Known() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	return env, nil
}

// Decode 파싱 + 검증
func Decode(data []byte) (Event, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return Event{}, err
	}
	return DecodeEnvelope(env)
}

// DecodeEnvelope 파싱된 envelope 의 payload 검증
func DecodeEnvelope(env Envelope) (Event, error) {
	ev := Event{Type: env.Type, Sender: env.Sender}

	switch env.Type {
	case EventAssetMoved, EventAssetDragging:
		var p struct {
			AssetID *int64   `json:"assetId"`
			PosX    *float64 `json:"posX"`
			PosY    *float64 `json:"posY"`
		}
		if err := unmarshalPayload(env, &p); err != nil {
			return Event{}, err
		}
		if p.AssetID == nil || *p.AssetID <= 0 || p.PosX == nil || p.PosY == nil {
			return Event{}, fmt.Errorf("%w: %s needs assetId, posX, posY", ErrMalformedPayload, env.Type)
		}
		ev.Payload = AssetPosition{AssetID: *p.AssetID, PosX: *p.PosX, PosY: *p.PosY}

	case EventAssetRemoved, EventAssetSelected, EventAssetDeselected:
		var p struct {
			AssetID *int64 `json:"assetId"`
		}
		if err := unmarshalPayload(env, &p); err != nil {
			return Event{}, err
		}
		if p.AssetID == nil || *p.AssetID <= 0 {
			return Event{}, fmt.Errorf("%w: %s needs assetId", ErrMalformedPayload, env.Type)
		}
		ev.Payload = AssetRef{AssetID: *p.AssetID}

	case EventCursorMove:
		var p struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		}
		if err := unmarshalPayload(env, &p); err != nil {
			return Event{}, err
		}
		if p.X == nil || p.Y == nil {
			return Event{}, fmt.Errorf("%w: cursor_move needs x, y", ErrMalformedPayload)
		}
		ev.Payload = CursorPosition{X: *p.X, Y: *p.Y}

	case EventPresenceSync:
		var p PresenceSync
		if err := unmarshalPayload(env, &p); err != nil {
			return Event{}, err
		}
		for _, s := range p.Sessions {
			if s.SessionID == "" {
				return Event{}, fmt.Errorf("%w: presence_sync session without id", ErrMalformedPayload)
			}
		}
		ev.Payload = p

	case EventCursorLeave, EventPing, EventPong:
		// no payload
	}

	if env.Type.keyedBySession() && (env.Sender == nil || env.Sender.SessionID == "") {
		return Event{}, fmt.Errorf("%w: %s without sender", ErrMalformedPayload, env.Type)
	}
	return ev, nil
}

// keyedBySession 보낸 세션 기준으로 저장되는 이벤트 (커서, 선택 오버레이)
func (t EventType) keyedBySession() bool {
	switch t {
	case EventAssetSelected, EventAssetDeselected, EventCursorMove, EventCursorLeave:
		return true
	}
	return false
}

func unmarshalPayload(env Envelope, v any) error {
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return fmt.Errorf("%w: %s without payload", ErrMalformedPayload, env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
	}
	return nil
}
