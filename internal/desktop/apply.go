package desktop

import (
	"desktop-realtime/internal/realtime"
)

// apply 원격 이벤트를 로컬 입력과 같은 store 연산으로 반영
// 마지막에 적용된 것이 이긴다 (병합 없음). s.mu 보유 상태에서 호출
func (s *Session) apply(ev realtime.Event) {
	switch ev.Type {
	case realtime.EventAssetMoved, realtime.EventAssetDragging:
		p := ev.Payload.(realtime.AssetPosition)
		s.store.Move(p.AssetID, p.PosX, p.PosY)

	case realtime.EventAssetRemoved:
		p := ev.Payload.(realtime.AssetRef)
		s.removeLocal(p.AssetID)

	case realtime.EventAssetSelected:
		p := ev.Payload.(realtime.AssetRef)
		if _, ok := s.store.Get(p.AssetID); ok {
			s.tracker.Select(*ev.Sender, p.AssetID)
		}

	case realtime.EventAssetDeselected:
		p := ev.Payload.(realtime.AssetRef)
		s.tracker.Deselect(ev.Sender.SessionID, p.AssetID)

	case realtime.EventCursorMove:
		p := ev.Payload.(realtime.CursorPosition)
		s.tracker.MoveCursor(*ev.Sender, p.X, p.Y)

	case realtime.EventCursorLeave:
		s.tracker.LeaveCursor(ev.Sender.SessionID)

	case realtime.EventPresenceSync:
		p := ev.Payload.(realtime.PresenceSync)
		s.tracker.ApplySync(p.Sessions)
	}
}

// removeLocal 에셋과 그 참조 제거. 모르는 ID 면 무시 (asset_removed 중복 무해)
func (s *Session) removeLocal(id int64) bool {
	if !s.store.Remove(id) {
		return false
	}
	s.engine.ForgetAsset(id)
	s.tracker.ForgetAsset(id)
	return true
}
