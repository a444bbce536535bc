// Package currency は表示通貨の選択と、それに基づく金額の書式化を提供する。
// 金額の表示はすべてこのパッケージの書式化関数を通す。通貨換算は行わない。
package currency

import (
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/investdesk/internal/model"
)

// symbols は通貨ごとの表示記号。
var symbols = map[model.Currency]string{
	model.CurrencyNGN: "₦",
	model.CurrencyUSD: "$",
}

// Store は表示通貨を保持する。永続化せず、プロセスの終了でリセットされる。
type Store struct {
	mu      sync.RWMutex
	current model.Currency
}

// NewStore は初期通貨を指定してStoreを生成する。未対応の値の場合はNGNを使う。
func NewStore(initial model.Currency) *Store {
	if _, ok := symbols[initial]; !ok {
		initial = model.CurrencyNGN
	}
	return &Store{current: initial}
}

// Current は現在の表示通貨を返す。
func (s *Store) Current() model.Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set は表示通貨を切り替える。未対応の通貨の場合はエラーを返す。
func (s *Store) Set(c model.Currency) error {
	if _, err := model.ParseCurrency(string(c)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = c
	return nil
}

// Toggle はNGNとUSDを切り替え、切り替え後の通貨を返す。
func (s *Store) Toggle() model.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == model.CurrencyNGN {
		s.current = model.CurrencyUSD
	} else {
		s.current = model.CurrencyNGN
	}
	return s.current
}

// Format は金額を現在の表示通貨で書式化する。
func (s *Store) Format(amount decimal.Decimal) string {
	return Format(s.Current(), amount)
}

// FormatAmount は現在の表示通貨に対応するフィールドを選んで書式化する。
func (s *Store) FormatAmount(amount model.Amount) string {
	c := s.Current()
	return Format(c, amount.In(c))
}

// Formatter は現在の表示通貨を閉じ込めた書式化関数を返す。
// 通貨を切り替えた後は新しく取得し直す必要がある。
func (s *Store) Formatter() func(decimal.Decimal) string {
	c := s.Current()
	return func(amount decimal.Decimal) string {
		return Format(c, amount)
	}
}

// Format は金額を通貨記号付きで書式化する。
// 3桁区切り、小数第2位で四捨五入し、小数部が0の場合は省略する（5000 → "₦5,000"、1234.5 → "$1,234.50"）。
// 負の値は記号の前に符号を付ける。
func Format(c model.Currency, amount decimal.Decimal) string {
	symbol, ok := symbols[c]
	if !ok {
		symbol = string(c) + " "
	}

	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	whole := rounded.Truncate(0)
	out := humanize.Comma(whole.IntPart())
	if frac := rounded.Sub(whole); !frac.IsZero() {
		fixed := rounded.StringFixed(2)
		out += fixed[strings.IndexByte(fixed, '.'):]
	}
	return sign + symbol + out
}
