package apiclient

import "context"

type quietKey struct{}

// Quiet は汎用エラー時のトースト通知を抑止するコンテキストを返す。
// 既読化のようなベストエフォートの呼び出しに使う。401/403/503の処理は抑止しない。
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

func isQuiet(ctx context.Context) bool {
	quiet, _ := ctx.Value(quietKey{}).(bool)
	return quiet
}
