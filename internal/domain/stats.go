package domain

import "github.com/shopspring/decimal"

// CategoryTotal is the spend of one expense category.
type CategoryTotal struct {
	Name  string
	Total decimal.Decimal
	Count int64
}

// ExpenseStats summarizes expenses over a period. Rows with an unknown amount
// count towards Count but not Total.
type ExpenseStats struct {
	Total         decimal.Decimal
	TotalFee      decimal.Decimal
	Count         int64
	TopCategories []CategoryTotal
}
