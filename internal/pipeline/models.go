package pipeline

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Loose is a value taken from the model's JSON without trusting its type. It can
// be absent, null, a string or a number; the normalizer decides what it means.
type Loose struct {
	raw json.RawMessage
}

// LooseString builds a Loose holding a JSON string.
func LooseString(s string) Loose {
	b, _ := json.Marshal(s)
	return Loose{raw: b}
}

// LooseNumber builds a Loose holding a JSON number.
func LooseNumber(f float64) Loose {
	return Loose{raw: json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64))}
}

// UnmarshalJSON keeps the raw bytes.
func (l *Loose) UnmarshalJSON(b []byte) error {
	l.raw = append(l.raw[:0], b...)
	return nil
}

// MarshalJSON writes the raw bytes back, or null when absent.
func (l Loose) MarshalJSON() ([]byte, error) {
	if len(l.raw) == 0 {
		return []byte("null"), nil
	}
	return l.raw, nil
}

// IsNull reports whether the value is absent or JSON null.
func (l Loose) IsNull() bool {
	s := bytes.TrimSpace(l.raw)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}

// IsNumber reports whether the value is a JSON number literal.
func (l Loose) IsNumber() bool {
	s := bytes.TrimSpace(l.raw)
	return len(s) > 0 && (s[0] == '-' || (s[0] >= '0' && s[0] <= '9'))
}

// Text returns strings unquoted and scalars as written. Objects, arrays and
// nulls are reported as not textual.
func (l Loose) Text() (string, bool) {
	if l.IsNull() {
		return "", false
	}
	s := bytes.TrimSpace(l.raw)
	switch s[0] {
	case '"':
		var out string
		if err := json.Unmarshal(s, &out); err != nil {
			return "", false
		}
		return out, true
	case '{', '[':
		return "", false
	default:
		return string(s), true
	}
}

// ExtractedReceipt mirrors the JSON object the vision model is asked to return.
// Nothing about it is trusted: any field may be missing or of the wrong type.
type ExtractedReceipt struct {
	TransactionDirection Loose `json:"transactionDirection"`

	Amount   Loose `json:"amount"`
	Currency Loose `json:"currency"`

	Recipient     Loose `json:"recipient"`
	RecipientBank Loose `json:"recipientBank"`
	RecipientIBAN Loose `json:"recipientIban"`

	Sender     Loose `json:"sender"`
	SenderBank Loose `json:"senderBank"`
	SenderIBAN Loose `json:"senderIban"`

	Bank       Loose `json:"bank"`
	BranchCode Loose `json:"branchCode"`
	BranchName Loose `json:"branchName"`

	AccountType   Loose `json:"accountType"`
	AccountNumber Loose `json:"accountNumber"`

	TransactionType Loose `json:"transactionType"`
	TransactionID   Loose `json:"transactionId"`
	Description     Loose `json:"description"`

	Commission Loose `json:"commission"`
	Tax        Loose `json:"tax"`
	TotalFee   Loose `json:"totalFee"`

	Date Loose `json:"date"`
	Time Loose `json:"time"`

	SuggestedCategory Loose `json:"suggestedCategory"`
}

// Extraction is one vision model answer: the decoded receipt plus the model's
// free text, kept verbatim for the audit trail.
type Extraction struct {
	Receipt   *ExtractedReceipt
	RawText   string
	ModelName string
}
