package wire

import (
	"strings"

	"github.com/hitoshi/investdesk/internal/model"
	"github.com/tidwall/gjson"
)

// User はユーザーオブジェクトを正規化する。
func User(r gjson.Result) model.User {
	name := First(r, "name", "fullName").String()
	if name == "" {
		name = strings.TrimSpace(r.Get("firstName").String() + " " + r.Get("lastName").String())
	}
	return model.User{
		ID:               ID(r),
		Name:             name,
		Email:            r.Get("email").String(),
		Phone:            First(r, "phone", "phoneNumber").String(),
		ReferralCode:     r.Get("referralCode").String(),
		Balance:          Amount(First(r, "balance", "walletBalance")),
		TotalInvested:    Amount(First(r, "totalInvested", "totalInvestment")),
		TotalEarnings:    Amount(First(r, "totalEarnings", "earnings")),
		ReferralEarnings: Amount(r.Get("referralEarnings")),
	}
}

// AuthResponse はログイン・登録のレスポンス {token, user} を取り出す。
// トークンが含まれない場合はokにfalseを返す。
func AuthResponse(body []byte) (token string, user model.User, ok bool) {
	root := gjson.ParseBytes(body)
	token = First(root, "token", "data.token", "accessToken").String()
	if token == "" {
		return "", model.User{}, false
	}
	return token, User(First(root, "user", "data.user")), true
}

// Profile はプロフィール取得のレスポンスからユーザーを取り出す。
// {"user": {...}}、{"data": {...}}、ユーザーオブジェクトの直返しを受け付ける。
func Profile(body []byte) model.User {
	root := gjson.ParseBytes(body)
	if u := First(root, "user", "data.user"); u.IsObject() {
		return User(u)
	}
	return User(Unwrap(body))
}
