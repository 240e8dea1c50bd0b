package domain

import (
	"strings"
	"unicode"
)

// Category is a row of the expense taxonomy table. Transactions reference
// categories by name only, so renames do not cascade.
type Category struct {
	ID    string
	Name  string
	Color string
}

const (
	// ExpenseCatchAll is used when the suggested expense category is unknown.
	ExpenseCatchAll = "Diğer"
	// IncomeCatchAll is used when the suggested income category is unknown.
	IncomeCatchAll = "Diğer Gelir"
)

// ExpenseCategories is the fixed expense taxonomy with display colors.
var ExpenseCategories = []Category{
	{Name: "İşçi", Color: "#EF4444"},
	{Name: "Kasap", Color: "#F97316"},
	{Name: "Toptancı", Color: "#F59E0B"},
	{Name: "Nakliye", Color: "#EAB308"},
	{Name: "Yemekhane Kurulum", Color: "#84CC16"},
	{Name: "Fırın", Color: "#22C55E"},
	{Name: "Market", Color: "#10B981"},
	{Name: "Sebze-Meyve", Color: "#14B8A6"},
	{Name: "Kira", Color: "#06B6D4"},
	{Name: "Fatura", Color: "#0EA5E9"},
	{Name: ExpenseCatchAll, Color: "#6B7280"},
}

// IncomeCategories is the fixed income taxonomy. It is never persisted.
var IncomeCategories = []Category{
	{Name: "Satış Geliri", Color: "#10B981"},
	{Name: "Hizmet Geliri", Color: "#059669"},
	{Name: "Kira Geliri", Color: "#047857"},
	{Name: "Faiz Geliri", Color: "#065F46"},
	{Name: "İade", Color: "#6366F1"},
	{Name: IncomeCatchAll, Color: "#6B7280"},
}

// CategorySet returns the category names valid for the direction. Any direction
// other than income gets the expense taxonomy.
func CategorySet(d Direction) []string {
	src := ExpenseCategories
	if d == DirectionIncome {
		src = IncomeCategories
	}
	names := make([]string, len(src))
	for i, c := range src {
		names[i] = c.Name
	}
	return names
}

// CatchAll returns the fallback category for the direction.
func CatchAll(d Direction) string {
	if d == DirectionIncome {
		return IncomeCatchAll
	}
	return ExpenseCatchAll
}

// CanonicalCategory returns the taxonomy spelling of name for the direction and
// whether it is a member at all. Matching uses FoldName.
func CanonicalCategory(d Direction, name string) (string, bool) {
	folded := FoldName(name)
	if folded == "" {
		return "", false
	}
	for _, c := range CategorySet(d) {
		if FoldName(c) == folded {
			return c, true
		}
	}
	return "", false
}

// FoldName folds case with Turkish rules and treats dotted and dotless i
// alike, so "İADE", "IADE" and "iade" all match.
func FoldName(s string) string {
	s = strings.ToLowerSpecial(unicode.TurkishCase, strings.TrimSpace(s))
	return strings.ReplaceAll(s, "ı", "i")
}
