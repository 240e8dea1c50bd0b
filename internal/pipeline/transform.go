package pipeline

import (
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// receiptDateLayouts are tried in order after ISO dates.
var receiptDateLayouts = []string{"02.01.2006", "02/01/2006", "2006/01/02"}

// Normalize turns an untrusted extraction into a typed transaction. It never
// fails: anything unusable becomes absent, and the category always belongs to
// the taxonomy of the resolved direction.
func Normalize(r *ExtractedReceipt) domain.NormalizedTransaction {
	if r == nil {
		r = &ExtractedReceipt{}
	}

	direction := resolveDirection(r.TransactionDirection)

	currency := strings.ToUpper(looseText(r.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	return domain.NormalizedTransaction{
		Direction: direction,

		Amount:   parseAmount(r.Amount),
		Currency: currency,

		Recipient:     looseText(r.Recipient),
		RecipientBank: looseText(r.RecipientBank),
		RecipientIBAN: compactIBAN(looseText(r.RecipientIBAN)),

		Sender:     looseText(r.Sender),
		SenderBank: looseText(r.SenderBank),
		SenderIBAN: compactIBAN(looseText(r.SenderIBAN)),

		Bank:       looseText(r.Bank),
		BranchCode: looseText(r.BranchCode),
		BranchName: looseText(r.BranchName),

		AccountType:   looseText(r.AccountType),
		AccountNumber: looseText(r.AccountNumber),

		TransactionType: looseText(r.TransactionType),
		TransactionRef:  looseText(r.TransactionID),
		Description:     looseText(r.Description),

		Commission: parseAmount(r.Commission),
		Tax:        parseAmount(r.Tax),
		TotalFee:   parseAmount(r.TotalFee),

		Date: parseReceiptDate(looseText(r.Date)),
		Time: looseText(r.Time),

		Category: ResolveCategory(direction, looseText(r.SuggestedCategory)),
	}
}

// resolveDirection accepts only the two literal tags; anything else is an expense.
func resolveDirection(l Loose) domain.Direction {
	switch strings.ToLower(looseText(l)) {
	case string(domain.DirectionIncome):
		return domain.DirectionIncome
	default:
		return domain.DirectionExpense
	}
}

// looseText returns the trimmed text of a loose value, "" when absent.
func looseText(l Loose) string {
	s, ok := l.Text()
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

func compactIBAN(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// parseAmount reads a monetary value. JSON numbers are taken as written, strings
// go through parseMoneyString. The sign is dropped since direction carries it.
func parseAmount(l Loose) decimal.NullDecimal {
	if l.IsNull() {
		return decimal.NullDecimal{}
	}

	s, ok := l.Text()
	if !ok {
		return decimal.NullDecimal{}
	}

	var (
		d   decimal.Decimal
		err error
	)
	if l.IsNumber() {
		d, err = decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.NullDecimal{}
		}
	} else {
		d, ok = parseMoneyString(s)
		if !ok {
			return decimal.NullDecimal{}
		}
	}
	return decimal.NewNullDecimal(d.Abs())
}

// parseMoneyString parses amounts written the Turkish way ("1.234,56 TL"), the
// English way ("1,234.56") or bare ("1500"). Currency symbols, codes and spaces
// are dropped first.
//
// The decimal marker is decided as follows: with both separators present the
// right-most one is decimal; a single comma is decimal; a single dot followed by
// exactly three digits is a thousands separator; a repeated separator is a
// thousands separator.
func parseMoneyString(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	negative := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		}
	}

	num := b.String()
	if num == "" {
		return decimal.Decimal{}, false
	}

	lastDot := strings.LastIndexByte(num, '.')
	lastComma := strings.LastIndexByte(num, ',')

	intPart, frac := num, ""
	switch {
	case lastDot >= 0 && lastComma >= 0:
		sep := max(lastDot, lastComma)
		intPart, frac = num[:sep], num[sep+1:]
	case lastComma >= 0:
		if strings.Count(num, ",") == 1 {
			intPart, frac = num[:lastComma], num[lastComma+1:]
		}
	case lastDot >= 0:
		if strings.Count(num, ".") == 1 && len(num)-lastDot-1 != 3 {
			intPart, frac = num[:lastDot], num[lastDot+1:]
		}
	}

	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if !allDigits(intPart) || !allDigits(frac) {
		return decimal.Decimal{}, false
	}
	if intPart == "" && frac == "" {
		return decimal.Decimal{}, false
	}
	if intPart == "" {
		intPart = "0"
	}

	canonical := intPart
	if frac != "" {
		canonical += "." + frac
	}
	if negative {
		canonical = "-" + canonical
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseReceiptDate accepts ISO dates and the common Turkish day-first forms.
func parseReceiptDate(s string) *civil.Date {
	if s == "" {
		return nil
	}
	if d, err := civil.ParseDate(s); err == nil {
		return &d
	}
	for _, layout := range receiptDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := civil.DateOf(t)
			return &d
		}
	}
	return nil
}
