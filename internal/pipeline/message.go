package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ConfirmationMessage summarizes a persisted transaction for the sender.
// Expenses lead with the recipient, incomes with the sender.
func ConfirmationMessage(tx domain.Transaction) string {
	r := tx.Base()

	var b strings.Builder
	if tx.Kind() == domain.DirectionIncome {
		b.WriteString("✅ Gelir kaydedildi!\n\n")
	} else {
		b.WriteString("✅ Gider kaydedildi!\n\n")
	}
	fmt.Fprintf(&b, "💰 Tutar: %s\n", FormatTRY(r.Amount))

	if tx.Kind() == domain.DirectionIncome {
		writeParty(&b, "👤 Gönderen", r.Sender, r.SenderBank, r.SenderIBAN)
		if r.Recipient != "" {
			writeParty(&b, "📥 Alıcı", r.Recipient, r.RecipientBank, r.RecipientIBAN)
		}
	} else {
		writeParty(&b, "👤 Alıcı", r.Recipient, r.RecipientBank, r.RecipientIBAN)
		if r.Sender != "" {
			writeParty(&b, "📤 Gönderen", r.Sender, r.SenderBank, r.SenderIBAN)
		}
	}

	b.WriteString("\n")
	if r.Bank != "" {
		fmt.Fprintf(&b, "🏦 Banka: %s\n", r.Bank)
	}
	if r.BranchName != "" {
		fmt.Fprintf(&b, "   └ Şube: %s\n", r.BranchName)
	}
	if r.BranchCode != "" {
		fmt.Fprintf(&b, "   └ Şube Kodu: %s\n", r.BranchCode)
	}
	if r.TransactionType != "" {
		fmt.Fprintf(&b, "📋 İşlem: %s\n", r.TransactionType)
	}
	if r.TransactionRef != "" {
		fmt.Fprintf(&b, "   └ Referans No: %s\n", r.TransactionRef)
	}
	fmt.Fprintf(&b, "🏷️ Kategori: %s\n", r.Category)
	if r.Date != nil {
		fmt.Fprintf(&b, "📅 Tarih: %02d.%02d.%d", r.Date.Day, int(r.Date.Month), r.Date.Year)
		if r.Time != "" {
			fmt.Fprintf(&b, " %s", r.Time)
		}
		b.WriteString("\n")
	}
	if r.TotalFee.Valid && !r.TotalFee.Decimal.IsZero() {
		fmt.Fprintf(&b, "💸 Masraf: %s\n", FormatTRY(r.TotalFee))
	}
	if r.Description != "" {
		fmt.Fprintf(&b, "📝 Açıklama: %s\n", r.Description)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeParty(b *strings.Builder, label, name, bank, iban string) {
	if name == "" {
		name = UnknownParty
	}
	fmt.Fprintf(b, "\n%s: %s\n", label, name)
	if bank != "" {
		fmt.Fprintf(b, "   └ Banka: %s\n", bank)
	}
	if iban != "" {
		fmt.Fprintf(b, "   └ IBAN: %s\n", iban)
	}
}

// FormatTRY renders an amount the way tr-TR currency formatting does:
// "₺1.500" for whole amounts, "₺1.234,56" otherwise. Null amounts are "Bilinmiyor".
func FormatTRY(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return UnknownParty
	}
	return "₺" + FormatTurkishNumber(amount.Decimal)
}

// FormatTurkishNumber groups thousands with dots and uses a decimal comma.
// Fractions are shown with two digits only when non-zero.
func FormatTurkishNumber(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(c)
	}

	out := sign + grouped.String()
	if frac != "00" {
		out += "," + frac
	}
	return out
}
