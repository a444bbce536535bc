package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency は表示通貨を表す。
type Currency string

const (
	// CurrencyNGN はナイラ表示。
	CurrencyNGN Currency = "NGN"
	// CurrencyUSD は米ドル表示。
	CurrencyUSD Currency = "USD"
)

// ParseCurrency は文字列を表示通貨に変換する。
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case CurrencyNGN, CurrencyUSD:
		return Currency(s), nil
	default:
		return "", fmt.Errorf("unsupported currency: %q", s)
	}
}

// Amount は金額を表す。
// バックエンドは金額を .ngn/.usd の通貨別サブフィールドで返す場合（Dual）と
// 通貨非依存の単一値で返す場合があるため、取り込み時にこの型へ正規化する。
type Amount struct {
	NGN  decimal.Decimal `json:"ngn"`
	USD  decimal.Decimal `json:"usd"`
	Dual bool            `json:"dual"`
}

// SingleAmount は通貨非依存の単一値の金額を生成する。
func SingleAmount(v decimal.Decimal) Amount {
	return Amount{NGN: v, USD: v}
}

// DualAmount は通貨別の金額を生成する。
func DualAmount(ngn, usd decimal.Decimal) Amount {
	return Amount{NGN: ngn, USD: usd, Dual: true}
}

// In は指定通貨に対応する値を返す。単一値の場合は通貨に関係なく同じ値を返す。
func (a Amount) In(c Currency) decimal.Decimal {
	if c == CurrencyUSD {
		return a.USD
	}
	return a.NGN
}
