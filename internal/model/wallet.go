package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType は取引種別を表す。
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionInvestment TransactionType = "investment"
	TransactionEarning    TransactionType = "earning"
	TransactionReferral   TransactionType = "referral"
)

// Transaction は入出金や投資などの取引履歴1件を表す。
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      Amount          `json:"amount"`
	Status      string          `json:"status"`
	Method      string          `json:"method,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TransactionFilter は取引履歴一覧の絞り込み条件を表す。
type TransactionFilter struct {
	Page   int             `validate:"gte=0"`
	Limit  int             `validate:"gte=0,lte=100"`
	Type   TransactionType `validate:"omitempty,oneof=deposit withdrawal investment earning referral"`
	Search string
}

// TransactionPage は取引履歴一覧の1ページ分を表す。
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Page         int           `json:"page"`
	TotalPages   int           `json:"totalPages"`
	Total        int           `json:"total"`
}

// DepositRequest は法定通貨による入金リクエストを表す。
type DepositRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency" validate:"required,oneof=NGN USD"`
	Method   string          `json:"method" validate:"required"`
}

// WithdrawRequest は法定通貨による出金リクエストを表す。
type WithdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      Currency        `json:"currency" validate:"required,oneof=NGN USD"`
	BankName      string          `json:"bankName" validate:"required"`
	AccountNumber string          `json:"accountNumber" validate:"required,numeric,min=10,max=10"`
	AccountName   string          `json:"accountName" validate:"required"`
}

// CryptoDepositRequest は暗号資産による入金リクエストを表す。
type CryptoDepositRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Coin    string          `json:"coin" validate:"required,oneof=BTC ETH USDT"`
	Network string          `json:"network" validate:"required"`
}

// CryptoDeposit は暗号資産入金の受付結果を表す。
type CryptoDeposit struct {
	ID            string          `json:"id"`
	WalletAddress string          `json:"walletAddress"`
	Coin          string          `json:"coin"`
	Network       string          `json:"network"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
}

// CryptoWithdrawRequest は暗号資産による出金リクエストを表す。
type CryptoWithdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Coin          string          `json:"coin" validate:"required,oneof=BTC ETH USDT"`
	Network       string          `json:"network" validate:"required"`
	WalletAddress string          `json:"walletAddress" validate:"required,min=20"`
}

// CryptoProof は暗号資産入金の送金証明を表す。
type CryptoProof struct {
	TransactionHash string `json:"transactionHash" validate:"required,min=10"`
	ScreenshotURL   string `json:"screenshotUrl,omitempty" validate:"omitempty,url"`
}
