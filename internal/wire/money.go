package wire

import (
	"github.com/hitoshi/investdesk/internal/model"
	"github.com/tidwall/gjson"
)

// Product は投資プランを正規化する。
// 最低投資額は minAmount、minInvestment.usd、minInvestment の順で探す。
func Product(r gjson.Result) model.Product {
	active := true
	if a := First(r, "active", "isActive"); a.Exists() {
		active = a.Bool()
	}
	return model.Product{
		ID:           ID(r),
		Name:         First(r, "name", "title").String(),
		Description:  r.Get("description").String(),
		MinAmount:    Decimal(First(r, "minAmount", "minInvestment.usd", "minInvestment")),
		MaxAmount:    Decimal(First(r, "maxAmount", "maxInvestment.usd", "maxInvestment")),
		ROIPercent:   Decimal(First(r, "roi", "roiPercent", "interestRate")),
		DurationDays: int(First(r, "durationDays", "duration").Int()),
		Active:       active,
	}
}

// Products は投資プラン一覧を正規化する。
func Products(body []byte) []model.Product {
	items := List(body, "products")
	out := make([]model.Product, len(items))
	for i, item := range items {
		out[i] = Product(item)
	}
	return out
}

// Investment は保有投資を正規化する。
func Investment(r gjson.Result) model.Investment {
	productID := First(r, "productId", "product._id", "product.id").String()
	return model.Investment{
		ID:          ID(r),
		ProductID:   productID,
		ProductName: First(r, "productName", "product.name").String(),
		Amount:      Amount(r.Get("amount")),
		Earned:      Amount(First(r, "earned", "totalEarned", "earnings")),
		Status:      r.Get("status").String(),
		StartedAt:   Time(First(r, "startedAt", "startDate", "createdAt")),
		MaturesAt:   Time(First(r, "maturesAt", "endDate", "maturityDate")),
		PenaltyRate: Decimal(r.Get("penaltyRate")),
	}
}

// Investments は保有投資一覧を正規化する。
func Investments(body []byte) []model.Investment {
	items := List(body, "investments")
	out := make([]model.Investment, len(items))
	for i, item := range items {
		out[i] = Investment(item)
	}
	return out
}

// Transaction は取引履歴1件を正規化する。
func Transaction(r gjson.Result) model.Transaction {
	return model.Transaction{
		ID:          ID(r),
		Type:        model.TransactionType(r.Get("type").String()),
		Amount:      Amount(r.Get("amount")),
		Status:      r.Get("status").String(),
		Method:      First(r, "method", "paymentMethod").String(),
		Reference:   r.Get("reference").String(),
		Description: r.Get("description").String(),
		CreatedAt:   Time(First(r, "createdAt", "date", "time")),
	}
}

// TransactionPage は取引履歴一覧のページを正規化する。
// ページ情報は pagination.* またはトップレベルのどちらにあっても受け付ける。
func TransactionPage(body []byte) model.TransactionPage {
	root := Unwrap(body)
	items := List(body, "transactions")
	page := model.TransactionPage{
		Transactions: make([]model.Transaction, len(items)),
		Page:         int(First(root, "pagination.page", "page", "currentPage").Int()),
		TotalPages:   int(First(root, "pagination.totalPages", "totalPages", "pages").Int()),
		Total:        int(First(root, "pagination.total", "total", "count").Int()),
	}
	for i, item := range items {
		page.Transactions[i] = Transaction(item)
	}
	return page
}

// DashboardSummary はダッシュボードペイロードから表示用の要約を取り出す。
func DashboardSummary(payload []byte) model.DashboardSummary {
	root := Unwrap(payload)
	return model.DashboardSummary{
		Balance:            Amount(First(root, "balance", "user.balance", "wallet.balance")),
		TotalInvested:      Amount(First(root, "totalInvested", "stats.totalInvested")),
		TotalEarnings:      Amount(First(root, "totalEarnings", "stats.totalEarnings")),
		ActiveInvestments:  int(First(root, "activeInvestments", "stats.activeInvestments").Int()),
		PendingWithdrawals: int(First(root, "pendingWithdrawals", "stats.pendingWithdrawals").Int()),
	}
}

// Record はレスポンスから単一レコードを取り出す。
// {"<key>": {...}}、{"data": {"<key>": {...}}}、{"data": {...}}、オブジェクトの直返しを受け付ける。
func Record(body []byte, key string) gjson.Result {
	root := gjson.ParseBytes(body)
	if r := First(root, key, "data."+key); r.IsObject() {
		return r
	}
	return Unwrap(body)
}

// CryptoDeposit は暗号資産入金の受付結果を正規化する。
func CryptoDeposit(r gjson.Result) model.CryptoDeposit {
	return model.CryptoDeposit{
		ID:            ID(r),
		WalletAddress: First(r, "walletAddress", "address", "depositAddress").String(),
		Coin:          First(r, "coin", "currency", "asset").String(),
		Network:       r.Get("network").String(),
		Amount:        Decimal(r.Get("amount")),
		Status:        r.Get("status").String(),
	}
}

// InvestmentWithdrawal は期限前解約の結果を正規化する。
func InvestmentWithdrawal(body []byte, investmentID string) model.InvestmentWithdrawal {
	r := Unwrap(body)
	return model.InvestmentWithdrawal{
		InvestmentID: investmentID,
		Penalty:      Decimal(First(r, "penalty", "penaltyAmount")),
		Payout:       Decimal(First(r, "payout", "amount", "netAmount")),
		Message:      gjson.GetBytes(body, "message").String(),
	}
}

// Balance はレスポンスに更新後の残高が含まれていれば取り出す。
func Balance(body []byte) (model.Amount, bool) {
	root := gjson.ParseBytes(body)
	r := First(root, "balance", "newBalance", "user.balance", "data.balance", "data.user.balance")
	if !r.Exists() {
		return model.Amount{}, false
	}
	return Amount(r), true
}
