package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
)

const (
	expensesTable = "expenses"
	incomesTable  = "incomes"
)

// recordColumns are written for both tables, in this order.
var recordColumns = []string{
	"id",
	"amount", "currency",
	"recipient", "recipient_bank", "recipient_iban",
	"sender", "sender_bank", "sender_iban",
	"bank", "branch_code", "branch_name",
	"account_type", "account_number",
	"transaction_type", "transaction_ref", "description",
	"commission", "tax", "total_fee",
	"transaction_date", "transaction_time",
	"category",
	"receipt_path", "receipt_type",
	"is_manual", "ai_raw_response", "user_id",
	"created_at", "updated_at",
}

// Save writes the route's record to the table its target names.
func (r *Repository) Save(ctx context.Context, route domain.Route, receipt domain.ReceiptRef, ownerID, rawResponse string) (domain.Transaction, error) {
	in := domain.NewRecord{
		Transaction:   route.Record,
		Receipt:       receipt,
		OwnerID:       ownerID,
		AIRawResponse: rawResponse,
	}

	switch route.Target {
	case domain.DirectionIncome:
		return r.CreateIncome(ctx, in)
	default:
		return r.CreateExpense(ctx, in)
	}
}

// CreateExpense inserts one expense. An unread recipient or bank is stored as
// domain.UnknownParty.
func (r *Repository) CreateExpense(ctx context.Context, in domain.NewRecord) (*domain.Expense, error) {
	in.Transaction.Direction = domain.DirectionExpense
	if in.Transaction.Recipient == "" {
		in.Transaction.Recipient = domain.UnknownParty
	}

	rec, err := r.insertRecord(ctx, expensesTable, in)
	if err != nil {
		return nil, fmt.Errorf("CreateExpense: %w", err)
	}
	return &domain.Expense{Record: *rec}, nil
}

// CreateIncome inserts one income. An unread sender or bank is stored as
// domain.UnknownParty.
func (r *Repository) CreateIncome(ctx context.Context, in domain.NewRecord) (*domain.Income, error) {
	in.Transaction.Direction = domain.DirectionIncome
	if in.Transaction.Sender == "" {
		in.Transaction.Sender = domain.UnknownParty
	}

	rec, err := r.insertRecord(ctx, incomesTable, in)
	if err != nil {
		return nil, fmt.Errorf("CreateIncome: %w", err)
	}
	return &domain.Income{Record: *rec}, nil
}

func (r *Repository) insertRecord(ctx context.Context, table string, in domain.NewRecord) (*domain.Record, error) {
	t := in.Transaction
	if t.Bank == "" {
		t.Bank = domain.UnknownParty
	}
	if t.Currency == "" {
		t.Currency = "TRY"
	}

	now := r.now().UTC()
	rec := &domain.Record{
		ID:                    uuid.New().String(),
		NormalizedTransaction: t,
		ReceiptPath:           in.Receipt.Path,
		ReceiptType:           in.Receipt.Type,
		IsManual:              in.IsManual,
		AIRawResponse:         in.AIRawResponse,
		UserID:                in.OwnerID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	sql, args, err := sq.Insert(table).
		Columns(recordColumns...).
		Values(
			rec.ID,
			t.Amount, t.Currency,
			nullIfEmpty(t.Recipient), nullIfEmpty(t.RecipientBank), nullIfEmpty(t.RecipientIBAN),
			nullIfEmpty(t.Sender), nullIfEmpty(t.SenderBank), nullIfEmpty(t.SenderIBAN),
			t.Bank, nullIfEmpty(t.BranchCode), nullIfEmpty(t.BranchName),
			nullIfEmpty(t.AccountType), nullIfEmpty(t.AccountNumber),
			nullIfEmpty(t.TransactionType), nullIfEmpty(t.TransactionRef), nullIfEmpty(t.Description),
			t.Commission, t.Tax, t.TotalFee,
			dateValue(t), nullIfEmpty(t.Time),
			t.Category,
			nullIfEmpty(rec.ReceiptPath), nullIfEmpty(rec.ReceiptType),
			rec.IsManual, nullIfEmpty(rec.AIRawResponse), rec.UserID,
			rec.CreatedAt, rec.UpdatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert into %s: %w", table, err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	return rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dateValue(t domain.NormalizedTransaction) pgtype.Date {
	if t.Date == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t.Date.In(time.UTC), Valid: true}
}
