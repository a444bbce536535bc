// Package wire はバックエンドのレスポンスを内部の正規形へ変換する。
//
// バックエンドはエンドポイントごとに形の揺れがある（id と _id、minAmount と
// minInvestment.usd、配列の直返しと {"data": [...]} の包み等）。
// 変換はシステム境界での取り込み時に1回だけ行い、下流のコードはワイヤ形式の違いで分岐しない。
package wire

import (
	"time"

	"github.com/hitoshi/investdesk/internal/model"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// First は候補パスのうち最初に存在する値を返す。
func First(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// ID は id / _id のいずれかから識別子を文字列として取り出す。
// 数値IDやMongoDBの拡張JSON形式（{"$oid": "..."}）も文字列に揃える。
func ID(r gjson.Result) string {
	v := First(r, "id", "_id")
	if v.IsObject() {
		if oid := v.Get(`\$oid`); oid.Exists() {
			return oid.String()
		}
		return ""
	}
	return v.String()
}

// Decimal はJSONの数値または数値文字列を10進数へ変換する。
// 数値はgjsonの生テキストから変換し、float64経由の丸め誤差を避ける。
// 存在しない値・解釈できない値はゼロとする。
func Decimal(r gjson.Result) decimal.Decimal {
	var text string
	switch r.Type {
	case gjson.Number:
		text = r.Raw
	case gjson.String:
		text = r.Str
	default:
		return decimal.Zero
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Amount は金額を正規化する。
// {"ngn": .., "usd": ..} 形式は通貨別、数値・数値文字列は通貨非依存として扱う。
func Amount(r gjson.Result) model.Amount {
	if r.IsObject() {
		ngn, usd := r.Get("ngn"), r.Get("usd")
		if !ngn.Exists() {
			ngn = r.Get("NGN")
		}
		if !usd.Exists() {
			usd = r.Get("USD")
		}
		if ngn.Exists() || usd.Exists() {
			return model.DualAmount(Decimal(ngn), Decimal(usd))
		}
		return model.SingleAmount(decimal.Zero)
	}
	return model.SingleAmount(Decimal(r))
}

// Time はRFC3339形式またはUNIXミリ秒の時刻を解釈する。解釈できない場合はゼロ値を返す。
func Time(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.String:
		if t, err := time.Parse(time.RFC3339Nano, r.Str); err == nil {
			return t
		}
	case gjson.Number:
		return time.UnixMilli(r.Int()).UTC()
	}
	return time.Time{}
}

// Unwrap は {"data": ...} で包まれたレスポンスの中身を返す。包まれていなければそのまま返す。
func Unwrap(body []byte) gjson.Result {
	root := gjson.ParseBytes(body)
	if data := root.Get("data"); data.Exists() && (data.IsObject() || data.IsArray()) {
		return data
	}
	return root
}

// List はレスポンスから配列を取り出す。
// 配列の直返し、{"<key>": [...]}、{"data": [...]}、{"data": {"<key>": [...]}} を受け付ける。
func List(body []byte, key string) []gjson.Result {
	root := gjson.ParseBytes(body)
	candidates := []gjson.Result{
		root,
		root.Get(key),
		root.Get("data"),
		root.Get("data." + key),
	}
	for _, c := range candidates {
		if c.IsArray() {
			return c.Array()
		}
	}
	return nil
}

// ErrorMessage はエラーレスポンスからサーバーのメッセージを取り出す。
func ErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	return First(root, "message", "error.message", "error", "msg").String()
}
