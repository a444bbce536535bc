package investment

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
	return m.postFn(ctx, path, body)
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

type recordingPatcher struct {
	patches []model.UserPatch
}

func (r *recordingPatcher) SetUser(patch model.UserPatch) bool {
	r.patches = append(r.patches, patch)
	return true
}

var (
	_ Invalidator    = (*countingInvalidator)(nil)
	_ SessionPatcher = (*recordingPatcher)(nil)
)

const productsBody = `{"data":[
	{"_id":"p-basic","name":"Basic","minInvestment":{"usd":100},"roi":12,"duration":30},
	{"id":"p-gold","name":"Gold","minAmount":"1000","maxAmount":50000,"roiPercent":"18.5","durationDays":90},
	{"id":"p-old","name":"Legacy","minAmount":10,"isActive":false}
]}`

func newTestService(api *mockAPI) (*Service, *countingInvalidator, *recordingPatcher) {
	inv := &countingInvalidator{}
	patcher := &recordingPatcher{}
	return NewService(api, inv, patcher, logger.Discard()), inv, patcher
}

func productsAPI() *mockAPI {
	return &mockAPI{
		getFn: func(ctx context.Context, path string) ([]byte, error) {
			return []byte(productsBody), nil
		},
		postFn: func(ctx context.Context, path string, body any) ([]byte, error) {
			return []byte(`{"message":"Investment created","investment":{"_id":"inv-1","productId":"p-gold","amount":1500,"status":"active"},"user":{"balance":{"ngn":75000,"usd":48.5}}}`), nil
		},
	}
}

// --- テスト ---

func TestProducts_NormalizesMinimumAmount(t *testing.T) {
	svc, _, _ := newTestService(productsAPI())

	products, err := svc.Products(context.Background())
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("len = %d, want 3", len(products))
	}
	if products[0].ID != "p-basic" || !products[0].MinAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("products[0] = %+v", products[0])
	}
	if !products[1].MinAmount.Equal(decimal.NewFromInt(1000)) || products[1].DurationDays != 90 {
		t.Errorf("products[1] = %+v", products[1])
	}
	if products[2].Active {
		t.Errorf("products[2]はinactiveのはずです")
	}
}

func TestInvest_BelowMinimumRejectedWithoutNetwork(t *testing.T) {
	api := productsAPI()
	svc, inv, _ := newTestService(api)
	if _, err := svc.Products(context.Background()); err != nil {
		t.Fatalf("Products() error = %v", err)
	}

	_, err := svc.Invest(context.Background(), model.InvestRequest{
		ProductID: "p-gold",
		Amount:    decimal.NewFromInt(999),
		Currency:  model.CurrencyUSD,
	})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if ve.Fields["amount"] != "Minimum investment for Gold is 1000" {
		t.Errorf("amount message = %q", ve.Fields["amount"])
	}
	if len(api.posts) != 0 || inv.n != 0 {
		t.Errorf("検証エラー時に通信またはキャッシュ破棄が行われました")
	}
}

func TestInvest_AboveMaximumAndInactiveRejected(t *testing.T) {
	svc, _, _ := newTestService(productsAPI())
	if _, err := svc.Products(context.Background()); err != nil {
		t.Fatalf("Products() error = %v", err)
	}

	tests := []struct {
		name  string
		req   model.InvestRequest
		field string
	}{
		{"above max", model.InvestRequest{ProductID: "p-gold", Amount: decimal.NewFromInt(60000), Currency: model.CurrencyUSD}, "amount"},
		{"inactive", model.InvestRequest{ProductID: "p-old", Amount: decimal.NewFromInt(50), Currency: model.CurrencyUSD}, "productId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Invest(context.Background(), tt.req)
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if _, ok := ve.Fields[tt.field]; !ok {
				t.Errorf("Fields = %v, want %s", ve.Fields, tt.field)
			}
		})
	}
}

func TestInvest_PatchesBalanceAndInvalidatesDashboard(t *testing.T) {
	api := productsAPI()
	svc, inv, patcher := newTestService(api)
	if _, err := svc.Products(context.Background()); err != nil {
		t.Fatalf("Products() error = %v", err)
	}

	got, err := svc.Invest(context.Background(), model.InvestRequest{
		ProductID: "p-gold",
		Amount:    decimal.NewFromInt(1500),
		Currency:  model.CurrencyUSD,
	})
	if err != nil {
		t.Fatalf("Invest() error = %v", err)
	}
	if got.ID != "inv-1" || got.ProductID != "p-gold" {
		t.Errorf("investment = %+v", got)
	}
	if len(api.posts) != 1 || api.posts[0] != PathInvest {
		t.Errorf("posts = %v", api.posts)
	}
	if inv.n != 1 {
		t.Errorf("Invalidate呼び出し回数 = %d, want 1", inv.n)
	}
	if len(patcher.patches) != 1 || patcher.patches[0].Balance == nil {
		t.Fatalf("patches = %+v", patcher.patches)
	}
	if b := patcher.patches[0].Balance; !b.Dual || !b.NGN.Equal(decimal.NewFromInt(75000)) {
		t.Errorf("balance = %+v", b)
	}
}

func TestInvest_UnknownProductSkipsLimitCheck(t *testing.T) {
	api := productsAPI()
	api.postFn = func(ctx context.Context, path string, body any) ([]byte, error) {
		return []byte(`{"message":"ok","data":{"_id":"inv-2"}}`), nil
	}
	svc, inv, patcher := newTestService(api)

	got, err := svc.Invest(context.Background(), model.InvestRequest{
		ProductID: "p-unknown",
		Amount:    decimal.NewFromInt(1),
		Currency:  model.CurrencyNGN,
	})
	if err != nil {
		t.Fatalf("Invest() error = %v", err)
	}
	if got.ID != "inv-2" {
		t.Errorf("ID = %q", got.ID)
	}
	if len(patcher.patches) != 0 {
		t.Errorf("残高のないレスポンスでパッチされました: %+v", patcher.patches)
	}
	if inv.n != 1 {
		t.Errorf("Invalidate呼び出し回数 = %d, want 1", inv.n)
	}
}

func TestInvest_APIErrorPropagates(t *testing.T) {
	apiErr := &model.APIError{Status: 400, Message: "Insufficient balance"}
	api := productsAPI()
	api.postFn = func(ctx context.Context, path string, body any) ([]byte, error) {
		return nil, apiErr
	}
	svc, inv, patcher := newTestService(api)

	_, err := svc.Invest(context.Background(), model.InvestRequest{
		ProductID: "p-gold",
		Amount:    decimal.NewFromInt(1500),
		Currency:  model.CurrencyUSD,
	})
	if !errors.Is(err, apiErr) {
		t.Fatalf("error = %v, want %v", err, apiErr)
	}
	if inv.n != 0 || len(patcher.patches) != 0 {
		t.Errorf("失敗時に状態が変更されました")
	}
}

func TestWithdrawInvestment(t *testing.T) {
	api := productsAPI()
	api.postFn = func(ctx context.Context, path string, body any) ([]byte, error) {
		return []byte(`{"message":"Investment withdrawn with penalty","data":{"penalty":150,"payout":1350,"balance":{"ngn":90000,"usd":58}}}`), nil
	}
	svc, inv, patcher := newTestService(api)

	got, err := svc.WithdrawInvestment(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("WithdrawInvestment() error = %v", err)
	}
	if len(api.posts) != 1 || api.posts[0] != "/investments/inv-1/withdraw" {
		t.Errorf("posts = %v", api.posts)
	}
	if !got.Penalty.Equal(decimal.NewFromInt(150)) || !got.Payout.Equal(decimal.NewFromInt(1350)) {
		t.Errorf("withdrawal = %+v", got)
	}
	if inv.n != 1 || len(patcher.patches) != 1 {
		t.Errorf("invalidate = %d, patches = %d", inv.n, len(patcher.patches))
	}
}

func TestWithdrawInvestment_RequiresID(t *testing.T) {
	api := productsAPI()
	svc, _, _ := newTestService(api)

	_, err := svc.WithdrawInvestment(context.Background(), "")
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(api.posts) != 0 {
		t.Errorf("検証エラー時に通信が行われました")
	}
}
