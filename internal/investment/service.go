// Package investment は投資プランの閲覧・購入と保有投資の解約をラップする。
package investment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/validation"
	"github.com/hitoshi/investdesk/internal/wire"
)

// APIエンドポイント
const (
	PathProducts    = "/products"
	PathInvestments = "/investments"
	PathInvest      = "/user/invest"
)

// API は投資サービスが使うバックエンドAPIのインターフェース。
type API interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
}

// Invalidator は残高が変わった後に破棄すべきキャッシュ。
type Invalidator interface {
	Invalidate()
}

// SessionPatcher はログイン中ユーザーの残高を楽観的に更新する。
type SessionPatcher interface {
	SetUser(patch model.UserPatch) bool
}

// Service は投資操作を提供する。
// 直近に取得した投資プランを保持し、購入前の最低投資額チェックに使う。
type Service struct {
	api       API
	dashboard Invalidator
	session   SessionPatcher
	validator *validation.Validator
	logger    *slog.Logger

	mu       sync.Mutex
	products map[string]model.Product
}

// NewService はServiceを生成する。
func NewService(api API, dashboard Invalidator, session SessionPatcher, logger *slog.Logger) *Service {
	return &Service{
		api:       api,
		dashboard: dashboard,
		session:   session,
		validator: validation.New(),
		logger:    logger,
		products:  make(map[string]model.Product),
	}
}

// Products は投資プラン一覧を取得する。
func (s *Service) Products(ctx context.Context) ([]model.Product, error) {
	body, err := s.api.Get(ctx, PathProducts)
	if err != nil {
		return nil, err
	}

	products := wire.Products(body)
	s.mu.Lock()
	s.products = make(map[string]model.Product, len(products))
	for _, p := range products {
		s.products[p.ID] = p
	}
	s.mu.Unlock()
	return products, nil
}

// Investments は保有投資一覧を取得する。
func (s *Service) Investments(ctx context.Context) ([]model.Investment, error) {
	body, err := s.api.Get(ctx, PathInvestments)
	if err != nil {
		return nil, err
	}
	return wire.Investments(body), nil
}

// Invest は投資プランを購入する。
// プランが取得済みであれば最低投資額を事前に検証する。
// レスポンスに更新後の残高が含まれていればセッションへ反映する。
func (s *Service) Invest(ctx context.Context, req model.InvestRequest) (model.Investment, error) {
	if err := validation.Merge(
		validation.PositiveAmount("amount", req.Amount),
		s.validator.Struct(req),
		s.checkLimits(req),
	); err != nil {
		return model.Investment{}, err
	}

	body, err := s.api.Post(ctx, PathInvest, req)
	if err != nil {
		return model.Investment{}, err
	}

	inv := wire.Investment(wire.Record(body, "investment"))
	s.applyBalance(body)
	s.dashboard.Invalidate()
	s.logger.InfoContext(ctx, "investment created",
		slog.String("product_id", req.ProductID),
		slog.String("investment_id", inv.ID),
	)
	return inv, nil
}

// WithdrawInvestment は保有投資を期限前に解約する。ペナルティはバックエンドが計算する。
func (s *Service) WithdrawInvestment(ctx context.Context, investmentID string) (model.InvestmentWithdrawal, error) {
	if err := s.validator.Var("investmentId", investmentID, "required"); err != nil {
		return model.InvestmentWithdrawal{}, err
	}

	path := fmt.Sprintf("%s/%s/withdraw", PathInvestments, url.PathEscape(investmentID))
	body, err := s.api.Post(ctx, path, nil)
	if err != nil {
		return model.InvestmentWithdrawal{}, err
	}

	s.applyBalance(body)
	s.dashboard.Invalidate()
	return wire.InvestmentWithdrawal(body, investmentID), nil
}

func (s *Service) checkLimits(req model.InvestRequest) error {
	s.mu.Lock()
	product, ok := s.products[req.ProductID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if !product.Active {
		return model.NewValidationError("productId", "This plan is not available")
	}
	if product.MinAmount.IsPositive() && req.Amount.LessThan(product.MinAmount) {
		return model.NewValidationError("amount", fmt.Sprintf("Minimum investment for %s is %s", product.Name, product.MinAmount.String()))
	}
	if product.MaxAmount.IsPositive() && req.Amount.GreaterThan(product.MaxAmount) {
		return model.NewValidationError("amount", fmt.Sprintf("Maximum investment for %s is %s", product.Name, product.MaxAmount.String()))
	}
	return nil
}

func (s *Service) applyBalance(body []byte) {
	balance, ok := wire.Balance(body)
	if !ok {
		return
	}
	if !s.session.SetUser(model.UserPatch{Balance: &balance}) {
		s.logger.Debug("balance patch skipped: no active session")
	}
}
