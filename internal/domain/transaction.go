package domain

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Direction says whether a transaction increases (income) or decreases (expense)
// the tracked balance.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionIncome || d == DirectionExpense
}

// UnknownParty is stored when a required party name or bank could not be read.
const UnknownParty = "Bilinmiyor"

// ErrNoSystemUser means neither the chat identity nor any administrator could be
// resolved to an owning user. It is a deployment error, not a per-message one.
var ErrNoSystemUser = errors.New("no system user: no user for chat identity and no administrator account")

// NormalizedTransaction is the validated, strongly typed form of a receipt
// extraction. Monetary fields are null when the model did not give a parseable value.
// Category is always a member of CategorySet(Direction).
type NormalizedTransaction struct {
	Direction Direction

	Amount   decimal.NullDecimal
	Currency string

	Recipient     string
	RecipientBank string
	RecipientIBAN string

	Sender     string
	SenderBank string
	SenderIBAN string

	Bank       string
	BranchCode string
	BranchName string

	AccountType   string
	AccountNumber string

	TransactionType string
	TransactionRef  string
	Description     string

	Commission decimal.NullDecimal
	Tax        decimal.NullDecimal
	TotalFee   decimal.NullDecimal

	Date *civil.Date // nil when the receipt date could not be read
	Time string

	Category string
}

// ReceiptRef points at the stored receipt artifact. Path is either a remote URL or
// a legacy local filesystem path; callers disambiguate with IsRemote.
type ReceiptRef struct {
	Path      string
	Type      string // file extension, used for MIME resolution at view time
	StorageID string
}

// Record holds the columns shared by expenses and incomes.
type Record struct {
	ID string
	NormalizedTransaction

	ReceiptPath   string
	ReceiptType   string
	IsManual      bool
	AIRawResponse string
	UserID        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is either an *Expense or an *Income.
type Transaction interface {
	Kind() Direction
	Base() *Record
	// Counterparty is the primary party for the direction: the recipient of an
	// expense, the sender of an income.
	Counterparty() string
}

// Expense is a recipient-centric record.
type Expense struct {
	Record
}

func (e *Expense) Kind() Direction      { return DirectionExpense }
func (e *Expense) Base() *Record        { return &e.Record }
func (e *Expense) Counterparty() string { return e.Recipient }

// Income is a sender-centric record.
type Income struct {
	Record
}

func (i *Income) Kind() Direction      { return DirectionIncome }
func (i *Income) Base() *Record        { return &i.Record }
func (i *Income) Counterparty() string { return i.Sender }

var (
	_ Transaction = (*Expense)(nil)
	_ Transaction = (*Income)(nil)
)

// NewRecord is everything the gateway needs to insert one expense or income row.
type NewRecord struct {
	Transaction   NormalizedTransaction
	Receipt       ReceiptRef
	OwnerID       string
	AIRawResponse string
	IsManual      bool
}

// Route is the classifier's decision: which table the normalized record goes to.
type Route struct {
	Target Direction
	Record NormalizedTransaction
}
