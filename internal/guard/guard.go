// Package guard はログイン必須画面の表示可否を認証状態から決定する。
// ロールや権限のモデルは持たず、これが唯一のアクセス制御となる。
package guard

import (
	"net/url"

	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/navigation"
)

// Kind は表示可否の判定結果の種類。
type Kind int

const (
	// Wait はセッション解決中のため待機表示を出す。
	Wait Kind = iota
	// Redirect は未ログインのためランディングへ遷移する。
	Redirect
	// Render は保護された内容を表示する。
	Render
)

// String は判定名を返す。
func (k Kind) String() string {
	switch k {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	default:
		return "render"
	}
}

// Decision は表示可否の判定結果。Redirectの場合はToとFrom（遷移前の場所）を持つ。
type Decision struct {
	Kind Kind
	To   string
	From string
}

// Decide は認証状態と表示しようとしている場所から判定する。
func Decide(state auth.State, location string) Decision {
	switch state {
	case auth.StateLoading:
		return Decision{Kind: Wait}
	case auth.StateAuthenticated:
		return Decision{Kind: Render}
	default:
		return Decision{Kind: Redirect, To: navigation.RouteLanding, From: location}
	}
}

// Location はリダイレクト先のURLを返す。元の場所はfromクエリに保持する。
func (d Decision) Location() string {
	if d.Kind != Redirect {
		return ""
	}
	if d.From == "" {
		return d.To
	}
	return d.To + "?" + url.Values{"from": {d.From}}.Encode()
}
