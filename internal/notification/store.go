// Package notification はログインユーザーの通知一覧と未読数を管理する。
//
// 一覧は新しい順に並び、全件取得（Refresh）で置き換え、リアルタイム配信（Push）では先頭に追加する。
// 未読数は全件取得時のみ数え直し、それ以外の操作では差分で更新する。
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/hitoshi/investdesk/internal/apiclient"
	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/metrics"
	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/security"
	"github.com/hitoshi/investdesk/internal/wire"
	"github.com/tidwall/gjson"
)

// PathNotifications は通知一覧のエンドポイント。
const PathNotifications = "/user/notifications"

// defaultMaxConcurrent は一括既読化の同時呼び出し数の既定値。
const defaultMaxConcurrent = 10

// API は通知ストアが使うバックエンドAPIのインターフェース。
type API interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, body any) ([]byte, error)
}

// Store は通知ストア。データはログイン中のセッションに紐づき、ログアウトで破棄する。
type Store struct {
	api           API
	sanitizer     security.TextSanitizer
	metrics       metrics.Recorder
	logger        *slog.Logger
	maxConcurrent int

	mu         sync.Mutex
	items      []model.Notification
	unread     int
	userID     string
	generation uint64

	// pending は呼び出し元が待たない既読化や初回取得の完了待ちに使う
	pending sync.WaitGroup
}

// NewStore はStoreを生成する。maxConcurrentが0以下の場合は既定値10を使う。
func NewStore(api API, sanitizer security.TextSanitizer, rec metrics.Recorder, logger *slog.Logger, maxConcurrent int) *Store {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Store{
		api:           api,
		sanitizer:     sanitizer,
		metrics:       rec,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// Snapshot は通知一覧のコピーを新しい順で返す。
func (s *Store) Snapshot() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// UnreadCount は未読数を返す。
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Refresh は通知を全件取得して一覧を置き換え、未読数を数え直す。
// 503（メンテナンス）はログのみでエラーにしない。
// 取得中に届いたPushは取得結果で上書きされ得る（後から届いたレスポンスが勝つ）。
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	body, err := s.api.Get(ctx, PathNotifications)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
			s.logger.Warn("メンテナンス中のため通知を取得できませんでした")
			return nil
		}
		return fmt.Errorf("failed to fetch notifications: %w", err)
	}

	items := wire.Notifications(body)
	unread := 0
	for i := range items {
		s.sanitize(&items[i])
		if !items[i].Read {
			unread++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 取得中にセッションが変わった場合は別ユーザーの結果なので捨てる
	if s.generation != gen {
		return nil
	}
	s.items = items
	s.unread = unread
	s.metrics.RecordNotificationsIngested(string(model.NotificationSourceRefresh), len(items))
	return nil
}

// MarkAsRead は通知を楽観的に既読にし、ネットワーク呼び出しの完了を待たずに戻る。
// 未読数は最大1だけ減らし0未満にはしない。呼び出しに失敗しても元に戻さず、ログのみ残す。
// 既に既読の通知に対しては何もしない。ローカル状態が変わった場合にtrueを返す。
func (s *Store) MarkAsRead(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx >= 0 && s.items[idx].Read {
		s.mu.Unlock()
		return false
	}
	changed := false
	if idx >= 0 {
		s.items[idx].Read = true
		if s.unread > 0 {
			s.unread--
		}
		changed = true
	}
	s.mu.Unlock()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.markRemote(context.WithoutCancel(ctx), id)
	}()
	return changed
}

// MarkAllAsRead は未読の通知ごとに既読化を並行して呼び出し、全ての呼び出しが終わってから
// 全件を既読・未読数0にする。個々の失敗はログのみ。途中の状態は公開しない。
// 呼び出した件数を返す。
func (s *Store) MarkAllAsRead(ctx context.Context) int {
	s.mu.Lock()
	gen := s.generation
	var ids []string
	for _, n := range s.items {
		if !n.Read {
			ids = append(ids, n.ID)
		}
	}
	s.mu.Unlock()

	// semaphoreパターンで同時呼び出し数を制御
	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}

		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.markRemote(ctx, id)
		}(id)
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return len(ids)
	}
	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	return len(ids)
}

// Push はリアルタイム配信の通知を取り込む。IDが取り出せない場合は捨ててfalseを返す。
func (s *Store) Push(raw []byte) bool {
	n, ok := wire.Notification(gjson.ParseBytes(raw))
	if !ok {
		s.logger.Warn("IDのない通知を受信したため破棄しました")
		return false
	}
	return s.Ingest(n)
}

// Ingest は正規化済みの通知を一覧の先頭に追加し、未読数を1増やす。全件取得は行わない。
// 未ログインの場合は破棄してfalseを返す。
func (s *Store) Ingest(n model.Notification) bool {
	s.sanitize(&n)
	n.Read = false

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return false
	}
	s.items = append([]model.Notification{n}, s.items...)
	s.unread++
	s.metrics.RecordNotificationsIngested(string(model.NotificationSourcePush), 1)
	return true
}

// HandleSessionChange は認証状態の変化に追従する。
// 未ログインになったら一覧と未読数を即座に破棄し、ログインしたら（ユーザーが変わった場合のみ）初回取得を開始する。
func (s *Store) HandleSessionChange(ctx context.Context, state auth.State, user model.User) {
	switch state {
	case auth.StateAuthenticated:
		s.mu.Lock()
		if s.userID == user.ID {
			s.mu.Unlock()
			return
		}
		s.resetLocked()
		s.userID = user.ID
		s.mu.Unlock()

		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn("通知の初回取得に失敗しました", slog.String("error", err.Error()))
			}
		}()

	case auth.StateUnauthenticated:
		s.mu.Lock()
		s.resetLocked()
		s.userID = ""
		s.mu.Unlock()
	}
}

// Wait は待たずに開始した既読化や初回取得の完了を待つ。
func (s *Store) Wait() {
	s.pending.Wait()
}

func (s *Store) markRemote(ctx context.Context, id string) {
	path := PathNotifications + "/" + url.PathEscape(id) + "/read"
	if _, err := s.api.Put(apiclient.Quiet(ctx), path, nil); err != nil {
		s.logger.Warn("通知の既読化に失敗しました",
			slog.String("notification_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) resetLocked() {
	s.generation++
	s.items = nil
	s.unread = 0
}

func (s *Store) indexLocked(id string) int {
	for i, n := range s.items {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) sanitize(n *model.Notification) {
	n.Title = s.sanitizer.Sanitize(n.Title)
	n.Message = s.sanitizer.Sanitize(n.Message)
}
