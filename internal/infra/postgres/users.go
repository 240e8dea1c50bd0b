package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
)

var userColumns = []string{"id", "username", "COALESCE(name, '')", "role", "COALESCE(telegram_id, '')", "created_at"}

// ResolveOwner returns the user linked to a Telegram id, or the oldest admin
// when nobody is linked. With no admin at all it fails with
// domain.ErrNoSystemUser.
func (r *Repository) ResolveOwner(ctx context.Context, chatIdentity string) (*domain.User, error) {
	if chatIdentity != "" {
		user, err := r.findUser(ctx, sq.Select(userColumns...).
			From("users").
			Where(sq.Eq{"telegram_id": chatIdentity}).
			Limit(1))
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("ResolveOwner: by telegram id: %w", err)
		}
	}

	admin, err := r.findUser(ctx, sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"role": domain.RoleAdmin}).
		OrderBy("created_at ASC").
		Limit(1))
	if errors.Is(err, ErrNotFound) {
		return nil, domain.ErrNoSystemUser
	}
	if err != nil {
		return nil, fmt.Errorf("ResolveOwner: first admin: %w", err)
	}
	return admin, nil
}

func (r *Repository) findUser(ctx context.Context, query sq.SelectBuilder) (*domain.User, error) {
	sql, args, err := query.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	var u domain.User
	err = r.db.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.Username, &u.Name, &u.Role, &u.TelegramID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
