// Package model はドメインモデルを定義する。
package model

import "time"

// User は投資プラットフォームの利用者を表す。
// 残高系フィールドは通貨ごとの値を持つ場合と単一値の場合がある。
type User struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	ReferralCode     string `json:"referralCode,omitempty"`
	Balance          Amount `json:"balance"`
	TotalInvested    Amount `json:"totalInvested"`
	TotalEarnings    Amount `json:"totalEarnings"`
	ReferralEarnings Amount `json:"referralEarnings"`
}

// Session はログイン中のユーザーとベアラートークンの組を表す。
// 認証ストアのみが生成・破棄する。
type Session struct {
	User       User      `json:"user"`
	Token      string    `json:"-"`
	StartedAt  time.Time `json:"startedAt"`
	RestoredAt time.Time `json:"restoredAt,omitempty"`
}

// UserPatch は残高系フィールドの楽観的な部分更新を表す。
// nilのフィールドは変更しない。
type UserPatch struct {
	Name             *string
	Phone            *string
	Balance          *Amount
	TotalInvested    *Amount
	TotalEarnings    *Amount
	ReferralEarnings *Amount
}

// Apply はパッチをユーザーに適用する。
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Balance != nil {
		u.Balance = *p.Balance
	}
	if p.TotalInvested != nil {
		u.TotalInvested = *p.TotalInvested
	}
	if p.TotalEarnings != nil {
		u.TotalEarnings = *p.TotalEarnings
	}
	if p.ReferralEarnings != nil {
		u.ReferralEarnings = *p.ReferralEarnings
	}
}

// Credentials はログインリクエストを表す。
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterProfile は新規登録リクエストを表す。
// ReferralCodeは任意。
type RegisterProfile struct {
	Name         string `json:"name" validate:"required,min=2"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,min=7,max=20"`
	Password     string `json:"password" validate:"required,min=6"`
	ReferralCode string `json:"referralCode,omitempty" validate:"omitempty,alphanum"`
}
