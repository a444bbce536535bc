package auth

// State は認証ストアの状態。
// unauthenticated → loading → authenticated、authenticated → unauthenticated の遷移のみを持つ。
// 解決に失敗した場合はエラー状態を持たず unauthenticated に戻る。
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateAuthenticated
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}
