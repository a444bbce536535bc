// Package toast はユーザー向けの一時的な通知（トースト）を提供する。
//
// Emitterは描画側を知らないコード（APIクライアント等）から通知を発行するための
// 発行/購読チャネルで、Storeはそれを1回だけ購読して表示中のトースト一覧を管理する。
package toast

import (
	"sort"
	"sync"

	"github.com/hitoshi/investdesk/internal/model"
)

// Listener はトースト発行の購読者。
type Listener func(message string, kind model.ToastType)

// Emitter はトーストの発行/購読インターフェース。
type Emitter interface {
	// Notify は現在購読中の全リスナーへメッセージを配信する。
	Notify(message string, kind model.ToastType)
	// Subscribe はリスナーを登録し、登録解除関数を返す。
	Subscribe(fn Listener) (unsubscribe func())
}

// Bus はEmitterのプロセス内実装。依存関係を明示するため、使う側へ注入して使う。
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

// NewBus はBusを生成する。
func NewBus() *Bus {
	return &Bus{listeners: make(map[int]Listener)}
}

// Notify は登録順にリスナーへ配信する。リスナーはロック外で呼び出す。
func (b *Bus) Notify(message string, kind model.ToastType) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, len(ids))
	for i, id := range ids {
		fns[i] = b.listeners[id]
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(message, kind)
	}
}

// Subscribe はリスナーを登録する。返された関数は何度呼んでもよい。
func (b *Bus) Subscribe(fn Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}
