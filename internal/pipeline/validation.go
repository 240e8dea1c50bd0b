package pipeline

import "github.com/dvloznov/kitchen-ledger/internal/domain"

// ResolveCategory returns the canonical spelling of suggested when it belongs to
// the direction's taxonomy, otherwise the direction's catch-all. A name from the
// other direction's taxonomy is not accepted.
func ResolveCategory(d domain.Direction, suggested string) string {
	if !d.Valid() {
		d = domain.DirectionExpense
	}
	if name, ok := domain.CanonicalCategory(d, suggested); ok {
		return name
	}
	return domain.CatchAll(d)
}

// IsReadable reports whether an extraction carries enough to be worth storing:
// a usable non-zero amount, or at least a recipient or sender name.
func IsReadable(r *ExtractedReceipt) bool {
	if r == nil {
		return false
	}
	if amount := parseAmount(r.Amount); amount.Valid && !amount.Decimal.IsZero() {
		return true
	}
	return looseText(r.Recipient) != "" || looseText(r.Sender) != ""
}
