package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

type fakeBackend struct {
	mu sync.Mutex

	config    *domain.ConnectionConfig
	configErr error

	updateResp *domain.ConnectionConfig
	updateErr  error
	updates    []domain.ConfigUpdate

	status    domain.SyncStatus
	statusErr error

	syncResp domain.MessageResponse
	syncErr  error
	syncReqs []domain.ManualSyncRequest

	disconnectResp  domain.MessageResponse
	disconnectErr   error
	disconnectCalls int

	authResp domain.AuthInitResponse
	authErr  error
	authReqs []domain.AuthInitRequest

	history    domain.SyncHistoryPage
	historyErr error
	cursors    []domain.HistoryCursor
}

func (b *fakeBackend) GetConfig(ctx context.Context) (*domain.ConnectionConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config, b.configErr
}

func (b *fakeBackend) UpdateConfig(ctx context.Context, update domain.ConfigUpdate) (*domain.ConnectionConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, update)
	return b.updateResp, b.updateErr
}

func (b *fakeBackend) GetSyncStatus(ctx context.Context) (domain.SyncStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status, b.statusErr
}

func (b *fakeBackend) TriggerSync(ctx context.Context, req domain.ManualSyncRequest) (domain.MessageResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncReqs = append(b.syncReqs, req)
	return b.syncResp, b.syncErr
}

func (b *fakeBackend) Disconnect(ctx context.Context) (domain.MessageResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectCalls++
	return b.disconnectResp, b.disconnectErr
}

func (b *fakeBackend) InitAuth(ctx context.Context, req domain.AuthInitRequest) (domain.AuthInitResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.authReqs = append(b.authReqs, req)
	return b.authResp, b.authErr
}

func (b *fakeBackend) History(ctx context.Context, cursor domain.HistoryCursor) (domain.SyncHistoryPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursors = append(b.cursors, cursor)
	return b.history, b.historyErr
}

type fakeWindow struct {
	url         string
	closed      atomic.Bool
	closeCalls  atomic.Int32
	closedCheck atomic.Int32
}

func (w *fakeWindow) Closed() bool {
	w.closedCheck.Add(1)
	return w.closed.Load()
}

func (w *fakeWindow) Close() {
	w.closeCalls.Add(1)
	w.closed.Store(true)
}

type fakeOpener struct {
	mu      sync.Mutex
	err     error
	windows []*fakeWindow
}

func (o *fakeOpener) Open(ctx context.Context, sessionID, url string) (ports.AuthWindow, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	w := &fakeWindow{url: url}
	o.windows = append(o.windows, w)
	return w, nil
}

func (o *fakeOpener) window(i int) *fakeWindow {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i >= len(o.windows) {
		return nil
	}
	return o.windows[i]
}

type memSessionRepo struct {
	mu   sync.Mutex
	byID map[string]domain.PanelSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: map[string]domain.PanelSession{}}
}

func (r *memSessionRepo) Get(ctx context.Context, id string) (domain.PanelSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.PanelSession{}, ports.ErrNotFound
	}
	return s, nil
}

func (r *memSessionRepo) Put(ctx context.Context, s domain.PanelSession) (domain.PanelSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	return s, nil
}

func (r *memSessionRepo) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.byID {
		if s.UpdatedAt.Before(before) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []ports.Event
}

func (b *recordingBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ports.Event{Topic: topic, Payload: append([]byte(nil), payload...)})
}

func (b *recordingBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event)
	close(ch)
	return ch, func() {}
}

func (b *recordingBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Topic)
	}
	return out
}

func ts(v int64) *int64 { return &v }
