package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/investdesk/internal/model"
)

// WalletService は入出金サービスのインターフェース。
type WalletService interface {
	Deposit(ctx context.Context, req model.DepositRequest) (model.Transaction, error)
	Withdraw(ctx context.Context, req model.WithdrawRequest) (model.Transaction, error)
	CryptoDeposit(ctx context.Context, req model.CryptoDepositRequest) (model.CryptoDeposit, error)
	CryptoWithdraw(ctx context.Context, req model.CryptoWithdrawRequest) (model.Transaction, error)
	SubmitCryptoProof(ctx context.Context, depositID string, proof model.CryptoProof) error
	Transactions(ctx context.Context, filter model.TransactionFilter) (model.TransactionPage, error)
}

// InvestmentService は投資サービスのインターフェース。
type InvestmentService interface {
	Products(ctx context.Context) ([]model.Product, error)
	Investments(ctx context.Context) ([]model.Investment, error)
	Invest(ctx context.Context, req model.InvestRequest) (model.Investment, error)
	WithdrawInvestment(ctx context.Context, investmentID string) (model.InvestmentWithdrawal, error)
}

// MoneyHandler は入出金・取引履歴・投資のHTTPハンドラー。
type MoneyHandler struct {
	wallet      WalletService
	investments InvestmentService
	search      SearchStore
}

// NewMoneyHandler はMoneyHandlerを生成する。
// 取引履歴でsearchクエリが省略された場合は検索クエリストアの値を使う。
func NewMoneyHandler(wallet WalletService, investments InvestmentService, search SearchStore) *MoneyHandler {
	return &MoneyHandler{wallet: wallet, investments: investments, search: search}
}

// Deposit は法定通貨の入金を申請する。
// POST /api/wallet/deposit
func (h *MoneyHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req model.DepositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	result, err := h.wallet.Deposit(r.Context(), req)
	respond(w, r, http.StatusCreated, result, err)
}

// Withdraw は法定通貨の出金を申請する。
// POST /api/wallet/withdraw
func (h *MoneyHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req model.WithdrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	result, err := h.wallet.Withdraw(r.Context(), req)
	respond(w, r, http.StatusCreated, result, err)
}

// CryptoDeposit は暗号資産の入金を申請する。
// POST /api/wallet/crypto/deposit
func (h *MoneyHandler) CryptoDeposit(w http.ResponseWriter, r *http.Request) {
	var req model.CryptoDepositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	result, err := h.wallet.CryptoDeposit(r.Context(), req)
	respond(w, r, http.StatusCreated, result, err)
}

// CryptoWithdraw は暗号資産の出金を申請する。
// POST /api/wallet/crypto/withdraw
func (h *MoneyHandler) CryptoWithdraw(w http.ResponseWriter, r *http.Request) {
	var req model.CryptoWithdrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	result, err := h.wallet.CryptoWithdraw(r.Context(), req)
	respond(w, r, http.StatusCreated, result, err)
}

// SubmitCryptoProof は暗号資産入金の送金証明を提出する。
// POST /api/wallet/crypto/deposit/{id}/proof
func (h *MoneyHandler) SubmitCryptoProof(w http.ResponseWriter, r *http.Request) {
	var proof model.CryptoProof
	if err := decodeJSON(w, r, &proof); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.wallet.SubmitCryptoProof(r.Context(), chi.URLParam(r, "id"), proof); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Transactions は取引履歴を返す。
// GET /api/transactions?page=&limit=&type=&search=
func (h *MoneyHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TransactionFilter{
		Type:   model.TransactionType(q.Get("type")),
		Search: h.search.Query(),
	}
	if q.Has("search") {
		filter.Search = q.Get("search")
	}

	var err error
	if filter.Page, err = queryInt(q.Get("page"), "page"); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		handleServiceError(w, r, err)
		return
	}

	result, err := h.wallet.Transactions(r.Context(), filter)
	respond(w, r, http.StatusOK, result, err)
}

// Products は投資プラン一覧を返す。
// GET /api/products
func (h *MoneyHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.investments.Products(r.Context())
	if products == nil {
		products = []model.Product{}
	}
	respond(w, r, http.StatusOK, map[string][]model.Product{"products": products}, err)
}

// Investments は保有投資一覧を返す。
// GET /api/investments
func (h *MoneyHandler) Investments(w http.ResponseWriter, r *http.Request) {
	investments, err := h.investments.Investments(r.Context())
	if investments == nil {
		investments = []model.Investment{}
	}
	respond(w, r, http.StatusOK, map[string][]model.Investment{"investments": investments}, err)
}

// Invest は投資プランを購入する。
// POST /api/investments
func (h *MoneyHandler) Invest(w http.ResponseWriter, r *http.Request) {
	var req model.InvestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	result, err := h.investments.Invest(r.Context(), req)
	respond(w, r, http.StatusCreated, result, err)
}

// WithdrawInvestment は保有投資を期限前に解約する。
// POST /api/investments/{id}/withdraw
func (h *MoneyHandler) WithdrawInvestment(w http.ResponseWriter, r *http.Request) {
	result, err := h.investments.WithdrawInvestment(r.Context(), chi.URLParam(r, "id"))
	respond(w, r, http.StatusOK, result, err)
}

// respond はサービス呼び出しの結果をレスポンスに書き込む。
func respond(w http.ResponseWriter, r *http.Request, statusCode int, v any, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, statusCode, v)
}

func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewValidationError(field, field+" must be a whole number")
	}
	return n, nil
}
