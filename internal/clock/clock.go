// Package clock は時刻取得と遅延実行を抽象化する。
// キャッシュの有効期限やトーストの自動消去をテストで決定的に検証するために注入する。
package clock

import "time"

// Clock は現在時刻と遅延実行を提供する。
type Clock interface {
	Now() time.Time
	// AfterFunc はd経過後にfを別ゴルーチンで実行する。
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer はAfterFuncで登録した遅延実行を表す。
type Timer interface {
	// Stop は未実行であれば実行を取り消し、取り消せた場合にtrueを返す。
	Stop() bool
}

// Real はシステム時刻を使うClock。
type Real struct{}

// Now は現在時刻を返す。
func (Real) Now() time.Time { return time.Now() }

// AfterFunc はtime.AfterFuncに委譲する。
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
