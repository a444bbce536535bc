package model

import (
	"encoding/json"
	"time"
)

// DashboardSnapshot はダッシュボードAPIのレスポンスと取得時刻の組を表す。
// Payloadの中身は解釈せずそのまま保持する。
type DashboardSnapshot struct {
	Payload    json.RawMessage `json:"payload"`
	CapturedAt time.Time       `json:"capturedAt"`
}

// DashboardSummary はダッシュボードペイロードから抽出した表示用の要約。
type DashboardSummary struct {
	Balance            Amount `json:"balance"`
	TotalInvested      Amount `json:"totalInvested"`
	TotalEarnings      Amount `json:"totalEarnings"`
	ActiveInvestments  int    `json:"activeInvestments"`
	PendingWithdrawals int    `json:"pendingWithdrawals"`
}
