// Package wallet は入出金（法定通貨・暗号資産）と取引履歴のAPIをラップする。
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/hitoshi/investdesk/internal/model"
	"github.com/hitoshi/investdesk/internal/validation"
	"github.com/hitoshi/investdesk/internal/wire"
)

// APIエンドポイント
const (
	PathDeposit        = "/user/deposit"
	PathWithdraw       = "/user/withdraw"
	PathCryptoDeposit  = "/user/crypto/deposit"
	PathCryptoWithdraw = "/user/crypto/withdraw"
	PathTransactions   = "/user/transactions"
)

// API はウォレットサービスが使うバックエンドAPIのインターフェース。
type API interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
}

// Invalidator は残高が変わった後に破棄すべきキャッシュ。
type Invalidator interface {
	Invalidate()
}

// Service は入出金操作を提供する。
type Service struct {
	api       API
	dashboard Invalidator
	validator *validation.Validator
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(api API, dashboard Invalidator, logger *slog.Logger) *Service {
	return &Service{
		api:       api,
		dashboard: dashboard,
		validator: validation.New(),
		logger:    logger,
	}
}

// Deposit は法定通貨の入金を申請する。
func (s *Service) Deposit(ctx context.Context, req model.DepositRequest) (model.Transaction, error) {
	if err := validation.Merge(
		validation.PositiveAmount("amount", req.Amount),
		s.validator.Struct(req),
	); err != nil {
		return model.Transaction{}, err
	}
	return s.move(ctx, PathDeposit, req)
}

// Withdraw は法定通貨の出金を申請する。
func (s *Service) Withdraw(ctx context.Context, req model.WithdrawRequest) (model.Transaction, error) {
	if err := validation.Merge(
		validation.PositiveAmount("amount", req.Amount),
		s.validator.Struct(req),
	); err != nil {
		return model.Transaction{}, err
	}
	return s.move(ctx, PathWithdraw, req)
}

// CryptoDeposit は暗号資産の入金を申請し、送金先アドレスを受け取る。
// 残高は送金証明の承認後に変わるため、ここではダッシュボードを破棄しない。
func (s *Service) CryptoDeposit(ctx context.Context, req model.CryptoDepositRequest) (model.CryptoDeposit, error) {
	if err := validation.Merge(
		validation.PositiveAmount("amount", req.Amount),
		s.validator.Struct(req),
	); err != nil {
		return model.CryptoDeposit{}, err
	}

	body, err := s.api.Post(ctx, PathCryptoDeposit, req)
	if err != nil {
		return model.CryptoDeposit{}, err
	}
	return wire.CryptoDeposit(wire.Record(body, "deposit")), nil
}

// CryptoWithdraw は暗号資産の出金を申請する。
func (s *Service) CryptoWithdraw(ctx context.Context, req model.CryptoWithdrawRequest) (model.Transaction, error) {
	if err := validation.Merge(
		validation.PositiveAmount("amount", req.Amount),
		s.validator.Struct(req),
	); err != nil {
		return model.Transaction{}, err
	}
	return s.move(ctx, PathCryptoWithdraw, req)
}

// SubmitCryptoProof は暗号資産入金の送金証明を提出する。
func (s *Service) SubmitCryptoProof(ctx context.Context, depositID string, proof model.CryptoProof) error {
	if err := validation.Merge(
		s.validator.Var("depositId", depositID, "required"),
		s.validator.Struct(proof),
	); err != nil {
		return err
	}

	path := fmt.Sprintf("%s/%s/proof", PathCryptoDeposit, url.PathEscape(depositID))
	if _, err := s.api.Post(ctx, path, proof); err != nil {
		return err
	}
	s.dashboard.Invalidate()
	return nil
}

// Transactions は取引履歴を取得する。ゼロ値の条件はクエリに含めない。
func (s *Service) Transactions(ctx context.Context, filter model.TransactionFilter) (model.TransactionPage, error) {
	if err := s.validator.Struct(filter); err != nil {
		return model.TransactionPage{}, err
	}

	body, err := s.api.Get(ctx, TransactionsPath(filter))
	if err != nil {
		return model.TransactionPage{}, err
	}
	return wire.TransactionPage(body), nil
}

// TransactionsPath は取引履歴一覧のパスとクエリを組み立てる。
func TransactionsPath(filter model.TransactionFilter) string {
	q := url.Values{}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if len(q) == 0 {
		return PathTransactions
	}
	return PathTransactions + "?" + q.Encode()
}

func (s *Service) move(ctx context.Context, path string, req any) (model.Transaction, error) {
	body, err := s.api.Post(ctx, path, req)
	if err != nil {
		return model.Transaction{}, err
	}
	s.dashboard.Invalidate()

	tx := wire.Transaction(wire.Record(body, "transaction"))
	s.logger.InfoContext(ctx, "money movement accepted",
		slog.String("path", path),
		slog.String("transaction_id", tx.ID),
		slog.String("status", tx.Status),
	)
	return tx, nil
}
