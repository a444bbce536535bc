package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/investdesk/internal/clock"
	"github.com/hitoshi/investdesk/internal/metrics"
	"github.com/hitoshi/investdesk/internal/model"
)

// DefaultDuration はトーストが自動的に消えるまでの既定時間。
const DefaultDuration = 4 * time.Second

// Store は表示中のトースト一覧を管理する。
// 同一メッセージでも重複排除せず積み上げ、トーストごとに独立した消去タイマーを持つ。
type Store struct {
	clock    clock.Clock
	duration time.Duration
	metrics  metrics.Recorder

	mu          sync.Mutex
	toasts      []model.Toast
	timers      map[string]clock.Timer
	unsubscribe func()
}

// NewStore はemitterを1回だけ購読するStoreを生成する。
// durationが0以下の場合はDefaultDurationを使う。
func NewStore(emitter Emitter, clk clock.Clock, duration time.Duration, rec metrics.Recorder) *Store {
	if duration <= 0 {
		duration = DefaultDuration
	}
	s := &Store{
		clock:    clk,
		duration: duration,
		metrics:  rec,
		timers:   make(map[string]clock.Timer),
	}
	s.unsubscribe = emitter.Subscribe(s.add)
	return s
}

// add はトーストを末尾に追加し、消去タイマーを開始する。
func (s *Store) add(message string, kind model.ToastType) {
	t := model.Toast{
		ID:        uuid.New().String(),
		Message:   message,
		Type:      kind,
		CreatedAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.toasts = append(s.toasts, t)
	s.timers[t.ID] = s.clock.AfterFunc(s.duration, func() { s.expire(t.ID) })
	s.mu.Unlock()

	s.metrics.RecordToast(string(kind))
}

// List は表示中のトーストを発行順に返す。
func (s *Store) List() []model.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Toast, len(s.toasts))
	copy(out, s.toasts)
	return out
}

// Dismiss は期限前にトーストを消す。該当がなければfalseを返す。
func (s *Store) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
	}
	return s.removeLocked(id)
}

// Close は購読を解除し、残っているタイマーを停止する。
func (s *Store) Close() {
	s.unsubscribe()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Store) expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *Store) removeLocked(id string) bool {
	delete(s.timers, id)
	for i, t := range s.toasts {
		if t.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return true
		}
	}
	return false
}
