package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAPIError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError(cause)

	if got := err.Error(); got != "[NETWORK_ERROR] "+MessageNetworkFailure {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("原因のエラーを辿れません")
	}

	withStatus := &APIError{Status: 400, Code: ErrCodeRequest, Message: "Insufficient balance"}
	if got := withStatus.Error(); got != "[REQUEST_FAILED] 400 Insufficient balance" {
		t.Errorf("Error() = %q", got)
	}
}

func TestValidationError_ErrorIsSortedByField(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"password": "too short",
		"email":    "invalid",
	}}
	want := "[VALIDATION_FAILED] email: invalid; password: too short"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAmount_In(t *testing.T) {
	dual := DualAmount(decimal.NewFromInt(1500), decimal.NewFromInt(1))
	if !dual.In(CurrencyNGN).Equal(decimal.NewFromInt(1500)) || !dual.In(CurrencyUSD).Equal(decimal.NewFromInt(1)) {
		t.Errorf("dual = %+v", dual)
	}

	single := SingleAmount(decimal.NewFromInt(42))
	if !single.In(CurrencyNGN).Equal(single.In(CurrencyUSD)) {
		t.Errorf("単一値は通貨に関係なく同じ値を返すべきです: %+v", single)
	}
}

func TestParseCurrency(t *testing.T) {
	if c, err := ParseCurrency("USD"); err != nil || c != CurrencyUSD {
		t.Errorf("ParseCurrency(USD) = %q, %v", c, err)
	}
	if _, err := ParseCurrency("EUR"); err == nil {
		t.Error("未対応の通貨はエラーになるべきです")
	}
}

func TestUserPatch_ApplyOnlySetFields(t *testing.T) {
	u := User{Name: "Ada", Phone: "0800", Balance: SingleAmount(decimal.NewFromInt(10))}
	balance := DualAmount(decimal.NewFromInt(3000), decimal.NewFromInt(2))

	UserPatch{Balance: &balance}.Apply(&u)

	if u.Name != "Ada" || u.Phone != "0800" {
		t.Errorf("未指定のフィールドが変更されました: %+v", u)
	}
	if !u.Balance.Dual || !u.Balance.NGN.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Balance = %+v", u.Balance)
	}
}
