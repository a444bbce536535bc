package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product は購入可能な投資プランを表す。
// 最低投資額は minAmount / minInvestment.usd のどちらで返されても取り込み時にMinAmountへ正規化する。
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	MinAmount    decimal.Decimal `json:"minAmount"`
	MaxAmount    decimal.Decimal `json:"maxAmount,omitempty"`
	ROIPercent   decimal.Decimal `json:"roiPercent"`
	DurationDays int             `json:"durationDays"`
	Active       bool            `json:"active"`
}

// Investment はユーザーが保有する投資を表す。
type Investment struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Amount      Amount          `json:"amount"`
	Earned      Amount          `json:"earned"`
	Status      string          `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	MaturesAt   time.Time       `json:"maturesAt"`
	PenaltyRate decimal.Decimal `json:"penaltyRate,omitempty"`
}

// InvestRequest は投資プランの購入リクエストを表す。
type InvestRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  Currency        `json:"currency" validate:"required,oneof=NGN USD"`
}

// InvestmentWithdrawal は期限前解約（ペナルティ付き出金）の結果を表す。
type InvestmentWithdrawal struct {
	InvestmentID string          `json:"investmentId"`
	Penalty      decimal.Decimal `json:"penalty"`
	Payout       decimal.Decimal `json:"payout"`
	Message      string          `json:"message,omitempty"`
}
