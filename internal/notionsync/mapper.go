package notionsync

import (
	"time"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the mirror database.
const (
	PropParty         = "Party"
	PropTransactionID = "Transaction ID"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropCategory      = "Category"
	PropDirection     = "Direction"
	PropDate          = "Date"
	PropBank          = "Bank"
	PropDescription   = "Description"
	PropReceipt       = "Receipt"
)

var directionLabels = map[domain.Direction]string{
	domain.DirectionExpense: "Gider",
	domain.DirectionIncome:  "Gelir",
}

// TransactionToNotionProperties converts a persisted expense or income to page properties.
// Unknown amounts and dates are left out rather than written as zero.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	rec := tx.Base()

	props := notionapi.Properties{
		PropParty:         titleProperty(tx.Counterparty()),
		PropTransactionID: richTextProperty(rec.ID),
		PropDirection: notionapi.SelectProperty{
			Select: notionapi.Option{Name: directionLabels[tx.Kind()]},
		},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: rec.Category},
		},
	}

	if rec.Amount.Valid {
		f, _ := rec.Amount.Decimal.Float64()
		props[PropAmount] = notionapi.NumberProperty{Number: f}
	}

	if rec.Currency != "" {
		props[PropCurrency] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: rec.Currency},
		}
	}

	if rec.Date != nil {
		d := notionapi.Date(time.Date(rec.Date.Year, rec.Date.Month, rec.Date.Day, 0, 0, 0, 0, time.UTC))
		props[PropDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	if rec.Bank != "" {
		props[PropBank] = richTextProperty(rec.Bank)
	}

	if rec.Description != "" {
		props[PropDescription] = richTextProperty(rec.Description)
	}

	// Local paths mean nothing outside the host, only URLs are mirrored.
	if domain.IsRemote(rec.ReceiptPath) {
		props[PropReceipt] = notionapi.URLProperty{URL: rec.ReceiptPath}
	}

	return props
}

func titleProperty(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
		},
	}
}

func richTextProperty(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
		},
	}
}
