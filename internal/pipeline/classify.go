package pipeline

import "github.com/dvloznov/kitchen-ledger/internal/domain"

// Classify picks the target table for a normalized transaction. Direction is
// already resolved by Normalize, so this is the single dispatch point.
func Classify(n domain.NormalizedTransaction) domain.Route {
	if n.Direction == domain.DirectionIncome {
		return domain.Route{Target: domain.DirectionIncome, Record: n}
	}
	n.Direction = domain.DirectionExpense
	return domain.Route{Target: domain.DirectionExpense, Record: n}
}
