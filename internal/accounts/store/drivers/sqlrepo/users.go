// Package sqlrepo implements store.Users over any database/sql driver that
// sqlx knows the bind style of. The sqlite and postgres drivers differ only
// in how they open, migrate and report unique violations.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/jmoiron/sqlx"
)

type Users struct {
	db       *sqlx.DB
	conflict func(error) bool
}

// NewUsers returns a repo over db. conflict reports whether a driver error
// is a unique or primary key violation.
func NewUsers(db *sqlx.DB, conflict func(error) bool) *Users {
	return &Users{db: db, conflict: conflict}
}

func (u *Users) Get(ctx context.Context, id string) (store.Record, error) {
	var r row
	err := u.db.GetContext(ctx, &r, u.db.Rebind(`SELECT `+columns+` FROM users WHERE id = ?`), id)
	if err != nil {
		return store.Record{}, mapNotFound(err)
	}
	return r.record(), nil
}

func (u *Users) Insert(ctx context.Context, rec store.Record) error {
	r := fromRecord(rec)
	_, err := u.db.ExecContext(ctx, u.db.Rebind(`INSERT INTO users (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Username, r.SearchUsername, r.Email, r.SearchEmail, r.Firstname, r.Lastname,
		r.PasswordHash, r.ProfileInfo, r.FriendList, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return u.mapWriteErr(err)
	}
	return nil
}

func (u *Users) Update(ctx context.Context, id string, a store.Attributes) error {
	sets := []string{"updated_at = ?"}
	args := []any{a.UpdatedAt.UTC()}

	if a.Account != nil {
		sets = append(sets,
			"username = ?", "search_username = ?",
			"email = ?", "search_email = ?",
			"firstname = ?", "lastname = ?",
		)
		args = append(args,
			a.Account.Username, a.Account.SearchUsername,
			a.Account.Email, a.Account.SearchEmail,
			a.Account.Firstname, a.Account.Lastname,
		)
	}
	if a.ProfileInfo != nil {
		sets = append(sets, "profile_info = ?")
		args = append(args, JSON[store.ProfileInfo]{V: *a.ProfileInfo})
	}
	if a.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *a.PasswordHash)
	}
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := u.db.ExecContext(ctx, u.db.Rebind(query), args...)
	if err != nil {
		return u.mapWriteErr(err)
	}
	return requireAffected(res)
}

func (u *Users) Delete(ctx context.Context, id string) error {
	res, err := u.db.ExecContext(ctx, u.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (u *Users) Scan(ctx context.Context, f store.Filter) ([]store.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.SearchUsername != "" {
		where = append(where, "search_username = ?")
		args = append(args, f.SearchUsername)
	}
	if f.SearchEmail != "" {
		where = append(where, "search_email = ?")
		args = append(args, f.SearchEmail)
	}

	query := `SELECT ` + columns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	var rows []row
	if err := u.db.SelectContext(ctx, &rows, u.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	out := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (u *Users) Count(ctx context.Context) (int, error) {
	var n int
	if err := u.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, err
	}
	return n, nil
}

func (u *Users) mapWriteErr(err error) error {
	if u.conflict(err) {
		return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
	}
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
