package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/investdesk/internal/logger"
	"github.com/hitoshi/investdesk/internal/model"
)

// --- モック ---

type mockAPI struct {
	getFn  func(ctx context.Context, path string) ([]byte, error)
	postFn func(ctx context.Context, path string, body any) ([]byte, error)
	posts  []string
}

func (m *mockAPI) Get(ctx context.Context, path string) ([]byte, error) {
	return m.getFn(ctx, path)
}

func (m *mockAPI) Post(ctx context.Context, path string, body any) ([]byte, error) {
	m.posts = append(m.posts, path)
	if m.postFn != nil {
		return m.postFn(ctx, path, body)
	}
	return []byte(`{"message":"ok","transaction":{"_id":"tx-1","type":"deposit","amount":5000,"status":"pending"}}`), nil
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

var _ Invalidator = (*countingInvalidator)(nil)

func newTestService(api *mockAPI) (*Service, *countingInvalidator) {
	inv := &countingInvalidator{}
	return NewService(api, inv, logger.Discard()), inv
}

// --- テスト ---

func TestDeposit_InvalidatesDashboardOnSuccess(t *testing.T) {
	api := &mockAPI{}
	svc, inv := newTestService(api)

	tx, err := svc.Deposit(context.Background(), model.DepositRequest{
		Amount:   decimal.NewFromInt(5000),
		Currency: model.CurrencyNGN,
		Method:   "bank_transfer",
	})
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if tx.ID != "tx-1" || tx.Status != "pending" {
		t.Errorf("tx = %+v", tx)
	}
	if inv.n != 1 {
		t.Errorf("Invalidate呼び出し回数 = %d, want 1", inv.n)
	}
	if len(api.posts) != 1 || api.posts[0] != PathDeposit {
		t.Errorf("posts = %v", api.posts)
	}
}

func TestDeposit_RejectsNonPositiveAmountWithoutNetwork(t *testing.T) {
	api := &mockAPI{}
	svc, inv := newTestService(api)

	_, err := svc.Deposit(context.Background(), model.DepositRequest{
		Amount:   decimal.Zero,
		Currency: model.CurrencyNGN,
	})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if _, ok := ve.Fields["amount"]; !ok {
		t.Errorf("amountのエラーがありません: %v", ve.Fields)
	}
	if _, ok := ve.Fields["method"]; !ok {
		t.Errorf("methodのエラーがありません: %v", ve.Fields)
	}
	if len(api.posts) != 0 || inv.n != 0 {
		t.Errorf("検証エラー時に通信またはキャッシュ破棄が行われました")
	}
}

func TestWithdraw_FailureKeepsDashboard(t *testing.T) {
	apiErr := &model.APIError{Status: 400, Message: "Insufficient balance"}
	api := &mockAPI{postFn: func(ctx context.Context, path string, body any) ([]byte, error) {
		return nil, apiErr
	}}
	svc, inv := newTestService(api)

	_, err := svc.Withdraw(context.Background(), model.WithdrawRequest{
		Amount:        decimal.NewFromInt(100),
		Currency:      model.CurrencyUSD,
		BankName:      "Test Bank",
		AccountNumber: "0123456789",
		AccountName:   "Ada",
	})
	if !errors.Is(err, apiErr) {
		t.Fatalf("error = %v, want %v", err, apiErr)
	}
	if inv.n != 0 {
		t.Errorf("失敗時にダッシュボードが破棄されました")
	}
}

func TestWithdraw_ValidatesAccountNumber(t *testing.T) {
	svc, _ := newTestService(&mockAPI{})

	_, err := svc.Withdraw(context.Background(), model.WithdrawRequest{
		Amount:        decimal.NewFromInt(100),
		Currency:      model.CurrencyUSD,
		BankName:      "Test Bank",
		AccountNumber: "12ab",
		AccountName:   "Ada",
	})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if _, ok := ve.Fields["accountNumber"]; !ok {
		t.Errorf("Fields = %v", ve.Fields)
	}
}

func TestCryptoDeposit_ReturnsAddressWithoutInvalidating(t *testing.T) {
	api := &mockAPI{postFn: func(ctx context.Context, path string, body any) ([]byte, error) {
		return []byte(`{"data":{"deposit":{"_id":"d-9","address":"bc1qexampleaddress000","coin":"BTC","network":"bitcoin","amount":"0.01","status":"awaiting_proof"}}}`), nil
	}}
	svc, inv := newTestService(api)

	dep, err := svc.CryptoDeposit(context.Background(), model.CryptoDepositRequest{
		Amount:  decimal.RequireFromString("0.01"),
		Coin:    "BTC",
		Network: "bitcoin",
	})
	if err != nil {
		t.Fatalf("CryptoDeposit() error = %v", err)
	}
	if dep.ID != "d-9" || dep.WalletAddress != "bc1qexampleaddress000" {
		t.Errorf("dep = %+v", dep)
	}
	if inv.n != 0 {
		t.Errorf("Invalidate呼び出し回数 = %d, want 0", inv.n)
	}
}

func TestCryptoWithdraw_RejectsUnknownCoin(t *testing.T) {
	api := &mockAPI{}
	svc, _ := newTestService(api)

	_, err := svc.CryptoWithdraw(context.Background(), model.CryptoWithdrawRequest{
		Amount:        decimal.NewFromInt(1),
		Coin:          "DOGE",
		Network:       "doge",
		WalletAddress: "D7Y55gKXAbCdEfGhIjKlMn",
	})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if _, ok := ve.Fields["coin"]; !ok {
		t.Errorf("Fields = %v", ve.Fields)
	}
	if len(api.posts) != 0 {
		t.Errorf("検証エラー時に通信が行われました")
	}
}

func TestSubmitCryptoProof_PostsToDepositPath(t *testing.T) {
	api := &mockAPI{postFn: func(ctx context.Context, path string, body any) ([]byte, error) {
		return []byte(`{"message":"Proof submitted"}`), nil
	}}
	svc, inv := newTestService(api)

	err := svc.SubmitCryptoProof(context.Background(), "d-9", model.CryptoProof{TransactionHash: "0xabcdef123456"})
	if err != nil {
		t.Fatalf("SubmitCryptoProof() error = %v", err)
	}
	if len(api.posts) != 1 || api.posts[0] != "/user/crypto/deposit/d-9/proof" {
		t.Errorf("posts = %v", api.posts)
	}
	if inv.n != 1 {
		t.Errorf("Invalidate呼び出し回数 = %d, want 1", inv.n)
	}
}

func TestSubmitCryptoProof_RequiresDepositID(t *testing.T) {
	api := &mockAPI{}
	svc, _ := newTestService(api)

	err := svc.SubmitCryptoProof(context.Background(), "", model.CryptoProof{TransactionHash: "0xabcdef123456"})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(api.posts) != 0 {
		t.Errorf("検証エラー時に通信が行われました")
	}
}

func TestTransactionsPath(t *testing.T) {
	tests := []struct {
		name   string
		filter model.TransactionFilter
		want   string
	}{
		{"empty", model.TransactionFilter{}, "/user/transactions"},
		{"page and limit", model.TransactionFilter{Page: 2, Limit: 20}, "/user/transactions?limit=20&page=2"},
		{"type and search", model.TransactionFilter{Type: model.TransactionDeposit, Search: "bank transfer"}, "/user/transactions?search=bank+transfer&type=deposit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransactionsPath(tt.filter); got != tt.want {
				t.Errorf("TransactionsPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransactions_NormalizesPage(t *testing.T) {
	var gotPath string
	api := &mockAPI{getFn: func(ctx context.Context, path string) ([]byte, error) {
		gotPath = path
		return []byte(`{"data":{"transactions":[{"_id":"t1","type":"deposit","amount":{"ngn":1000,"usd":0.65},"status":"completed"}],"pagination":{"page":1,"totalPages":3,"total":25}}}`), nil
	}}
	svc, _ := newTestService(api)

	page, err := svc.Transactions(context.Background(), model.TransactionFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if gotPath != "/user/transactions?limit=10&page=1" {
		t.Errorf("path = %q", gotPath)
	}
	if len(page.Transactions) != 1 || page.Transactions[0].ID != "t1" || page.TotalPages != 3 || page.Total != 25 {
		t.Errorf("page = %+v", page)
	}
}

func TestTransactions_RejectsUnknownType(t *testing.T) {
	api := &mockAPI{getFn: func(ctx context.Context, path string) ([]byte, error) {
		t.Error("検証エラー時に通信が行われました")
		return nil, nil
	}}
	svc, _ := newTestService(api)

	_, err := svc.Transactions(context.Background(), model.TransactionFilter{Type: "bonus"})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}
