package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
)

// GetReceiptRef returns where the receipt of an expense or income is stored.
// Rows without a receipt are reported as ErrNotFound.
func (r *Repository) GetReceiptRef(ctx context.Context, kind domain.Direction, id string) (*domain.ReceiptRef, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("GetReceiptRef: %w", err)
	}
	// ids are UUIDs; anything else cannot match a row.
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("GetReceiptRef: %s %q: %w", kind, id, ErrNotFound)
	}

	sql, args, err := sq.Select("COALESCE(receipt_path, '')", "COALESCE(receipt_type, '')").
		From(table).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("GetReceiptRef: building query: %w", err)
	}

	var ref domain.ReceiptRef
	err = r.db.QueryRow(ctx, sql, args...).Scan(&ref.Path, &ref.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("GetReceiptRef: %s %s: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetReceiptRef: %w", err)
	}
	if ref.Path == "" {
		return nil, fmt.Errorf("GetReceiptRef: %s %s has no receipt: %w", kind, id, ErrNotFound)
	}
	return &ref, nil
}

// ListRecentExpenses returns the newest expenses with the fields a chat
// summary needs.
func (r *Repository) ListRecentExpenses(ctx context.Context, limit int) ([]*domain.Expense, error) {
	if limit <= 0 {
		limit = 5
	}

	sql, args, err := sq.Select(
		"id",
		"COALESCE(amount::text, '')",
		"currency",
		"recipient",
		"bank",
		"category",
		"COALESCE(to_char(transaction_date, 'YYYY-MM-DD'), '')",
		"created_at",
	).
		From(expensesTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ListRecentExpenses: building query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ListRecentExpenses: query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Expense
	for rows.Next() {
		var (
			e              domain.Expense
			amount, dateTx string
		)
		if err := rows.Scan(&e.ID, &amount, &e.Currency, &e.Recipient, &e.Bank, &e.Category, &dateTx, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListRecentExpenses: scan: %w", err)
		}
		e.Direction = domain.DirectionExpense
		e.Amount = parseNumeric(amount)
		if d, err := civil.ParseDate(dateTx); err == nil {
			e.Date = &d
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecentExpenses: rows: %w", err)
	}
	return out, nil
}

// MonthlyExpenseStats summarizes expenses created in the calendar month of now
// (in now's location), with the five largest categories.
func (r *Repository) MonthlyExpenseStats(ctx context.Context, now time.Time) (*domain.ExpenseStats, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0)
	inMonth := sq.And{sq.GtOrEq{"created_at": start}, sq.Lt{"created_at": end}}

	sql, args, err := sq.Select("COALESCE(SUM(amount), 0)::text", "COALESCE(SUM(total_fee), 0)::text", "COUNT(*)").
		From(expensesTable).
		Where(inMonth).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("MonthlyExpenseStats: building totals query: %w", err)
	}

	var (
		stats         domain.ExpenseStats
		total, feeSum string
	)
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total, &feeSum, &stats.Count); err != nil {
		return nil, fmt.Errorf("MonthlyExpenseStats: totals: %w", err)
	}
	stats.Total = parseNumeric(total).Decimal
	stats.TotalFee = parseNumeric(feeSum).Decimal

	sql, args, err = sq.Select("category", "COALESCE(SUM(amount), 0)::text", "COUNT(*)").
		From(expensesTable).
		Where(inMonth).
		GroupBy("category").
		OrderBy("COALESCE(SUM(amount), 0) DESC").
		Limit(5).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("MonthlyExpenseStats: building category query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("MonthlyExpenseStats: categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ct  domain.CategoryTotal
			sum string
		)
		if err := rows.Scan(&ct.Name, &sum, &ct.Count); err != nil {
			return nil, fmt.Errorf("MonthlyExpenseStats: scan: %w", err)
		}
		ct.Total = parseNumeric(sum).Decimal
		stats.TopCategories = append(stats.TopCategories, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MonthlyExpenseStats: rows: %w", err)
	}
	return &stats, nil
}

// ListTransactionsCreatedBetween returns the expenses or incomes created in
// [start, end), oldest first.
func (r *Repository) ListTransactionsCreatedBetween(ctx context.Context, kind domain.Direction, start, end time.Time) ([]domain.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsCreatedBetween: %w", err)
	}

	sql, args, err := sq.Select(
		"id",
		"COALESCE(amount::text, '')",
		"COALESCE(currency, '')",
		"COALESCE(recipient, '')",
		"COALESCE(sender, '')",
		"COALESCE(bank, '')",
		"COALESCE(category, '')",
		"COALESCE(description, '')",
		"COALESCE(to_char(transaction_date, 'YYYY-MM-DD'), '')",
		"COALESCE(receipt_path, '')",
		"created_at",
	).
		From(table).
		Where(sq.And{sq.GtOrEq{"created_at": start}, sq.Lt{"created_at": end}}).
		OrderBy("created_at ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsCreatedBetween: building query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsCreatedBetween: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			rec            domain.Record
			amount, dateTx string
		)
		if err := rows.Scan(&rec.ID, &amount, &rec.Currency, &rec.Recipient, &rec.Sender, &rec.Bank,
			&rec.Category, &rec.Description, &dateTx, &rec.ReceiptPath, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListTransactionsCreatedBetween: scan: %w", err)
		}
		rec.Direction = kind
		rec.Amount = parseNumeric(amount)
		if d, err := civil.ParseDate(dateTx); err == nil {
			rec.Date = &d
		}
		if kind == domain.DirectionIncome {
			out = append(out, &domain.Income{Record: rec})
		} else {
			out = append(out, &domain.Expense{Record: rec})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactionsCreatedBetween: rows: %w", err)
	}
	return out, nil
}

func tableFor(kind domain.Direction) (string, error) {
	switch kind {
	case domain.DirectionExpense:
		return expensesTable, nil
	case domain.DirectionIncome:
		return incomesTable, nil
	default:
		return "", fmt.Errorf("unknown transaction kind %q", kind)
	}
}

// parseNumeric reads a NUMERIC column selected as text; "" is null.
func parseNumeric(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
