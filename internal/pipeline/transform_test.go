package pipeline

import (
	"slices"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

func TestParseMoneyString(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1.234,56", "1234.56", true},
		{"1,234.56", "1234.56", true},
		{"1500", "1500", true},
		{"1.500", "1500", true},
		{"1.500,00 TL", "1500", true},
		{"₺ 2.750,50", "2750.5", true},
		{"TRY 980", "980", true},
		{"12,5", "12.5", true},
		{"1500.5", "1500.5", true},
		{"1.234.567,89", "1234567.89", true},
		{"1,234,567", "1234567", true},
		{",75", "0.75", true},
		{"abc", "", false},
		{"", "", false},
		{"TRY", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseMoneyString(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("parseMoneyString(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("parseMoneyString(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		in        Loose
		want      string
		wantValid bool
	}{
		{"json number", LooseNumber(1500), "1500", true},
		{"json fraction", LooseNumber(1234.56), "1234.56", true},
		{"turkish string", LooseString("1.234,56"), "1234.56", true},
		{"negative number", LooseNumber(-250), "250", true},
		{"absent", Loose{}, "", false},
		{"empty string", LooseString(""), "", false},
		{"garbage", LooseString("yok"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAmount(tt.in)
			if got.Valid != tt.wantValid {
				t.Fatalf("parseAmount() valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.Valid && !got.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("parseAmount() = %s, want %s", got.Decimal, tt.want)
			}
		})
	}
}

func TestNormalize_Direction(t *testing.T) {
	tests := []struct {
		name string
		in   Loose
		want domain.Direction
	}{
		{"absent", Loose{}, domain.DirectionExpense},
		{"null", Loose{raw: []byte("null")}, domain.DirectionExpense},
		{"income", LooseString("income"), domain.DirectionIncome},
		{"income padded upper", LooseString("  INCOME "), domain.DirectionIncome},
		{"expense", LooseString("expense"), domain.DirectionExpense},
		{"turkish word", LooseString("gelir"), domain.DirectionExpense},
		{"number", LooseNumber(1), domain.DirectionExpense},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(&ExtractedReceipt{TransactionDirection: tt.in})
			if got.Direction != tt.want {
				t.Errorf("Direction = %q, want %q", got.Direction, tt.want)
			}
		})
	}
}

func TestNormalize_CategoryAlwaysInTaxonomy(t *testing.T) {
	suggestions := []Loose{
		{},
		LooseString(""),
		LooseString("Kasap"),
		LooseString("sebze-meyve"),
		LooseString("İade"),
		LooseString("IADE"),
		LooseString("Satış Geliri"),
		LooseString("Yatırım"),
		LooseNumber(7),
	}
	directions := []Loose{{}, LooseString("income"), LooseString("expense"), LooseString("???")}

	for _, dir := range directions {
		for _, cat := range suggestions {
			n := Normalize(&ExtractedReceipt{TransactionDirection: dir, SuggestedCategory: cat})
			if !slices.Contains(domain.CategorySet(n.Direction), n.Category) {
				t.Errorf("category %q not in %s taxonomy (direction %s, suggestion %s)", n.Category, n.Direction, dir.raw, cat.raw)
			}
		}
	}
}

func TestNormalize_CategoryResolution(t *testing.T) {
	tests := []struct {
		name      string
		direction string
		suggested string
		want      string
	}{
		{"expense exact", "expense", "Kasap", "Kasap"},
		{"expense folded", "expense", "  fırın ", "Fırın"},
		{"expense unknown", "expense", "Yatırım", "Diğer"},
		{"income name on expense", "expense", "Satış Geliri", "Diğer"},
		{"income exact", "income", "Kira Geliri", "Kira Geliri"},
		{"income dotted capital", "income", "İADE", "İade"},
		{"income dotless capital", "income", "IADE", "İade"},
		{"expense name on income", "income", "Market", "Diğer Gelir"},
		{"income unknown", "income", "Yatırım", "Diğer Gelir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(&ExtractedReceipt{
				TransactionDirection: LooseString(tt.direction),
				SuggestedCategory:    LooseString(tt.suggested),
			})
			if n.Category != tt.want {
				t.Errorf("Category = %q, want %q", n.Category, tt.want)
			}
		})
	}
}

func TestNormalize_Fields(t *testing.T) {
	r, err := decodeReceipt(`{
		"amount": "1.234,56",
		"currency": "try",
		"recipient": "  Ali Usta Kasap ",
		"recipientIban": "TR12 0006 4000 0011 2345 6789 01",
		"sender": "",
		"bank": "Ziraat Bankası",
		"transactionType": "Havale",
		"commission": 5.5,
		"tax": "0,28",
		"totalFee": null,
		"date": "15.03.2024",
		"time": "14:32",
		"suggestedCategory": "Kasap"
	}`)
	if err != nil {
		t.Fatalf("decodeReceipt() error = %v", err)
	}

	n := Normalize(r)

	if n.Direction != domain.DirectionExpense {
		t.Errorf("Direction = %q", n.Direction)
	}
	if !n.Amount.Valid || !n.Amount.Decimal.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("Amount = %v", n.Amount)
	}
	if n.Currency != "TRY" {
		t.Errorf("Currency = %q", n.Currency)
	}
	if n.Recipient != "Ali Usta Kasap" {
		t.Errorf("Recipient = %q", n.Recipient)
	}
	if n.RecipientIBAN != "TR120006400000112345678901" {
		t.Errorf("RecipientIBAN = %q", n.RecipientIBAN)
	}
	if n.Sender != "" {
		t.Errorf("Sender = %q, want empty", n.Sender)
	}
	if !n.Commission.Decimal.Equal(decimal.RequireFromString("5.5")) || !n.Tax.Decimal.Equal(decimal.RequireFromString("0.28")) {
		t.Errorf("Commission = %v, Tax = %v", n.Commission, n.Tax)
	}
	if n.TotalFee.Valid {
		t.Errorf("TotalFee = %v, want null", n.TotalFee)
	}
	want := civil.Date{Year: 2024, Month: 3, Day: 15}
	if n.Date == nil || *n.Date != want {
		t.Errorf("Date = %v, want %v", n.Date, want)
	}
	if n.Category != "Kasap" {
		t.Errorf("Category = %q", n.Category)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	n := Normalize(nil)
	if n.Currency != DefaultCurrency {
		t.Errorf("Currency = %q, want %q", n.Currency, DefaultCurrency)
	}
	if n.Amount.Valid {
		t.Errorf("Amount = %v, want null", n.Amount)
	}
	if n.Date != nil {
		t.Errorf("Date = %v, want nil", n.Date)
	}
	if n.Category != domain.ExpenseCatchAll {
		t.Errorf("Category = %q", n.Category)
	}
}

func TestParseReceiptDate(t *testing.T) {
	tests := map[string]*civil.Date{
		"2024-03-15": {Year: 2024, Month: 3, Day: 15},
		"15.03.2024": {Year: 2024, Month: 3, Day: 15},
		"15/03/2024": {Year: 2024, Month: 3, Day: 15},
		"2024/03/15": {Year: 2024, Month: 3, Day: 15},
		"dün":        nil,
		"":           nil,
	}
	for in, want := range tests {
		got := parseReceiptDate(in)
		if (got == nil) != (want == nil) || (got != nil && *got != *want) {
			t.Errorf("parseReceiptDate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsReadable(t *testing.T) {
	tests := []struct {
		name string
		r    *ExtractedReceipt
		want bool
	}{
		{"nil", nil, false},
		{"empty", &ExtractedReceipt{}, false},
		{"zero amount only", &ExtractedReceipt{Amount: LooseNumber(0)}, false},
		{"unparseable amount only", &ExtractedReceipt{Amount: LooseString("??")}, false},
		{"amount only", &ExtractedReceipt{Amount: LooseString("150,00")}, true},
		{"recipient only", &ExtractedReceipt{Recipient: LooseString("Ali Usta")}, true},
		{"sender only", &ExtractedReceipt{Sender: LooseString("Mehmet Yılmaz")}, true},
		{"blank recipient", &ExtractedReceipt{Recipient: LooseString("   ")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReadable(tt.r); got != tt.want {
				t.Errorf("IsReadable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	income := Classify(domain.NormalizedTransaction{Direction: domain.DirectionIncome, Category: "İade"})
	if income.Target != domain.DirectionIncome || income.Record.Category != "İade" {
		t.Errorf("income route = %+v", income)
	}

	expense := Classify(domain.NormalizedTransaction{Direction: domain.DirectionExpense})
	if expense.Target != domain.DirectionExpense {
		t.Errorf("expense route target = %q", expense.Target)
	}

	unset := Classify(domain.NormalizedTransaction{})
	if unset.Target != domain.DirectionExpense || unset.Record.Direction != domain.DirectionExpense {
		t.Errorf("unset direction route = %+v", unset)
	}
}
