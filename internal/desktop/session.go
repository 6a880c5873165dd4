// Package desktop 협업 데스크톱 하나의 마운트 단위 (에셋, 엔진, 프레즌스, 전송, 뷰포트 저장)
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"desktop-realtime/internal/canvas"
	"desktop-realtime/internal/eventbus"
	"desktop-realtime/internal/model"
	"desktop-realtime/internal/presence"
	"desktop-realtime/internal/realtime"
	"desktop-realtime/internal/viewport"
)

// BannerLiveSyncUnavailable degraded 상태 배너
const BannerLiveSyncUnavailable = "live sync unavailable"

// persistTimeout 백그라운드 REST 쓰기 타임아웃
const persistTimeout = 10 * time.Second

var (
	ErrAlreadyMounted = errors.New("desktop already mounted")
	ErrNotMounted     = errors.New("desktop not mounted")
	ErrUnknownAsset   = errors.New("unknown asset")
)

// Collaborator 세션이 저장에 쓰는 REST 인터페이스
type Collaborator interface {
	FetchDetail(ctx context.Context, desktopID int64) (*model.DesktopDetail, error)
	UpdateAsset(ctx context.Context, desktopID, assetID int64, patch model.AssetPatch) error
	RemoveAsset(ctx context.Context, desktopID, assetID int64) error
	BatchUpdateAssets(ctx context.Context, desktopID int64, moves []model.AssetMove) error
	BatchRemoveAssets(ctx context.Context, desktopID int64, ids []int64) error
	SaveViewport(ctx context.Context, desktopID int64, v model.ViewportState) error
}

// ConnectionChange eventbus.TopicConnection 페이로드
type ConnectionChange struct {
	DesktopID int64
	From      realtime.State
	To        realtime.State
}

// Config 세션 설정
type Config struct {
	DesktopID    int64
	SessionID    string
	Token        string
	RealtimeURL  string
	Collaborator Collaborator
	Dialer       realtime.Dialer
	Bus          *eventbus.Bus
	Clock        clock.Clock

	Canvas            canvas.Options
	Realtime          realtime.Options
	SaveDelay         time.Duration
	DefaultAssetWidth float64
	Viewport          canvas.Viewport

	// 원격 이벤트, refetch, 연결 변경 후 호출 (세션 락 밖)
	OnChange func()
	OnEvent func(realtime.Event)
}

// Session 마운트된 데스크톱
type Session struct {
	cfg Config

	mu       sync.Mutex
	desktop  model.Desktop
	shares   []model.DesktopShare
	store    *canvas.Store
	geometry *canvas.GeometryCache
	engine   *canvas.Engine
	tracker  *presence.Tracker

	transport *realtime.Client
	saver     *viewport.Saver

	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe []func()
	persisting  sync.WaitGroup
}

// New 마운트 전 세션 생성
func New(cfg Config) (*Session, error) {
	if cfg.Collaborator == nil {
		return nil, errors.New("desktop: collaborator is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Bus == nil {
		cfg.Bus = eventbus.New()
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = realtime.NewWSDialer(10 * time.Second)
	}

	url, err := realtime.ChannelURL(cfg.RealtimeURL, cfg.DesktopID, cfg.Token, cfg.SessionID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		store:    canvas.NewStore(),
		geometry: canvas.NewGeometryCache(cfg.DefaultAssetWidth),
		tracker:  presence.NewTracker(cfg.SessionID),
	}

	rtOpts := cfg.Realtime
	rtOpts.URL = url
	rtOpts.Dialer = cfg.Dialer
	rtOpts.Clock = cfg.Clock
	s.transport = realtime.NewClient(rtOpts, s)

	s.saver = s.newSaver()

	canvasOpts := cfg.Canvas
	canvasOpts.Clock = cfg.Clock
	canvasOpts.OnCameraChange = func(c canvas.Camera) {
		s.saver.Touch(model.ViewportState{X: c.X, Y: c.Y, Zoom: c.Zoom})
	}
	s.engine = canvas.NewEngine(s.store, s.geometry, s.transport, mutator{s}, canvasOpts)
	s.engine.SetViewport(cfg.Viewport)

	return s, nil
}

func (s *Session) ID() int64 { return s.cfg.DesktopID }

// SessionID relay 가 이 세션 메시지에 찍는 ID
func (s *Session) SessionID() string { return s.cfg.SessionID }

// Mount 데스크톱 로드, 저장된 카메라 복원, 전송 시작
// 초기 fetch 가 실패하면 마운트 실패
func (s *Session) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyMounted
	}
	s.mu.Unlock()

	detail, err := s.cfg.Collaborator.FetchDetail(ctx, s.cfg.DesktopID)
	if err != nil {
		return fmt.Errorf("fetch desktop %d: %w", s.cfg.DesktopID, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.applyDetail(detail)
	s.engine.SetCamera(canvas.Camera{
		X:    detail.Desktop.ViewportX,
		Y:    detail.Desktop.ViewportY,
		Zoom: detail.Desktop.ViewportZoom,
	})
	// Unmount 에서 닫힌 saver 는 재사용 불가라 마운트마다 새로 만든다
	s.saver = s.newSaver()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.unsubscribe = append(s.unsubscribe, s.cfg.Bus.Subscribe(eventbus.TopicRefresh, s.onRefreshRequested))
	done := s.done
	s.mu.Unlock()

	log.Printf("[Desktop %d] mounted with %d assets (session %s)", s.cfg.DesktopID, len(detail.Assets), s.cfg.SessionID)

	go func() {
		defer close(done)
		s.transport.Run(runCtx)
	}()
	return nil
}

// Unmount cursor_leave 전송, 대기 중인 뷰포트 저장, 전송 중지 후 진행 중인 쓰기 대기
func (s *Session) Unmount() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return ErrNotMounted
	}
	cancel, done, unsubscribe, saver := s.cancel, s.done, s.unsubscribe, s.saver
	s.cancel, s.done, s.unsubscribe = nil, nil, nil
	s.engine.PointerLeave()
	s.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	saver.Close()
	cancel()
	<-done
	s.persisting.Wait()

	s.tracker.Reset()
	log.Printf("[Desktop %d] unmounted", s.cfg.DesktopID)
	return nil
}

// HandleEvent realtime.Handler 구현
func (s *Session) HandleEvent(ev realtime.Event) {
	s.mu.Lock()
	s.apply(ev)
	s.mu.Unlock()

	if s.cfg.OnEvent != nil {
		s.cfg.OnEvent(ev)
	}
	s.changed()
}

func (s *Session) Refetch() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.refetch(ctx); err != nil {
		log.Printf("[Desktop %d] refetch failed: %v", s.cfg.DesktopID, err)
	}
}

// StateChanged connected 를 벗어나면 원격 오버레이 초기화 (다음 presence_sync 로 재구성)
func (s *Session) StateChanged(from, to realtime.State) {
	if from == realtime.StateConnected {
		s.tracker.Reset()
	}
	s.cfg.Bus.Publish(eventbus.TopicConnection, ConnectionChange{DesktopID: s.cfg.DesktopID, From: from, To: to})
	s.changed()
}

func (s *Session) onRefreshRequested(payload any) {
	if id, ok := payload.(int64); ok && id != 0 && id != s.cfg.DesktopID {
		return
	}
	go s.Refetch()
}

func (s *Session) refetch(ctx context.Context) error {
	detail, err := s.cfg.Collaborator.FetchDetail(ctx, s.cfg.DesktopID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.applyDetail(detail)
	s.mu.Unlock()

	s.changed()
	return nil
}

// applyDetail 컬렉션 교체. 카메라는 마운트 때만 복원하므로 건드리지 않음. s.mu 보유
func (s *Session) applyDetail(detail *model.DesktopDetail) {
	keep := make(map[int64]struct{}, len(detail.Assets))
	for _, a := range detail.Assets {
		keep[a.ID] = struct{}{}
	}
	for _, a := range s.store.All() {
		if _, ok := keep[a.ID]; !ok {
			s.engine.ForgetAsset(a.ID)
			s.tracker.ForgetAsset(a.ID)
		}
	}

	s.desktop = detail.Desktop
	s.shares = detail.Shares
	s.store.Replace(detail.Assets)
}

func (s *Session) newSaver() *viewport.Saver {
	desktopID := s.cfg.DesktopID
	return viewport.NewSaver(s.cfg.Clock, s.cfg.SaveDelay, func(ctx context.Context, v model.ViewportState) error {
		return s.cfg.Collaborator.SaveViewport(ctx, desktopID, v)
	})
}

func (s *Session) changed() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}

// persist 백그라운드 REST 쓰기. 실패는 로그만 남기고 낙관적 상태는 다음 refetch 까지 유지
func (s *Session) persist(what string, fn func(ctx context.Context) error) {
	s.persisting.Add(1)
	go func() {
		defer s.persisting.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("[Desktop %d] %s failed: %v", s.cfg.DesktopID, what, err)
		}
	}()
}

// mutator canvas.Mutator 어댑터
type mutator struct {
	s *Session
}

func (m mutator) MoveAsset(id int64, x, y float64) {
	desktopID := m.s.cfg.DesktopID
	m.s.persist("move asset", func(ctx context.Context) error {
		return m.s.cfg.Collaborator.UpdateAsset(ctx, desktopID, id, model.MovePatch(x, y))
	})
}

func (m mutator) BatchMoveAssets(moves []model.AssetMove) {
	desktopID := m.s.cfg.DesktopID
	moves = append([]model.AssetMove(nil), moves...)
	m.s.persist("batch move", func(ctx context.Context) error {
		return m.s.cfg.Collaborator.BatchUpdateAssets(ctx, desktopID, moves)
	})
}

func (m mutator) RemoveAsset(id int64) {
	desktopID := m.s.cfg.DesktopID
	m.s.persist("remove asset", func(ctx context.Context) error {
		return m.s.cfg.Collaborator.RemoveAsset(ctx, desktopID, id)
	})
}

func (m mutator) BatchRemoveAssets(ids []int64) {
	desktopID := m.s.cfg.DesktopID
	ids = append([]int64(nil), ids...)
	m.s.persist("batch remove", func(ctx context.Context) error {
		return m.s.cfg.Collaborator.BatchRemoveAssets(ctx, desktopID, ids)
	})
}
