// Package storage implements the record store on SQLite. Every record is
// scoped to its owning user; updates and deletes are keyed by id AND user_id
// so one user can never touch another user's rows.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pfm/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) the database at dbPath and applies the
// embedded migrations. Use ":memory:" for an ephemeral database.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// storeFault tags a driver error as a store-availability fault so callers can
// discriminate it from domain conditions like not-found.
func storeFault(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- accounts ---

func (r *Repository) InsertAccount(ctx context.Context, username, passwordHash string) (*core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (username, password_hash) VALUES (?, ?)",
		username, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert account: %w", core.ErrConflict)
		}
		return nil, storeFault("insert account", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, storeFault("insert account", err)
	}
	return r.FindAccountByID(ctx, id)
}

func (r *Repository) FindAccountByUsername(ctx context.Context, username string) (*core.Account, error) {
	return r.scanAccount(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?",
		username,
	), "find account by username")
}

func (r *Repository) FindAccountByID(ctx context.Context, id int64) (*core.Account, error) {
	return r.scanAccount(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM accounts WHERE id = ?",
		id,
	), "find account by id")
}

func (r *Repository) scanAccount(row *sql.Row, op string) (*core.Account, error) {
	var a core.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, storeFault(op, err)
	}
	return &a, nil
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO expenses (user_id, amount_cents, category, date) VALUES (?, ?, ?, ?)",
		e.UserID, e.Amount.Cents, e.Category.String(), e.Date,
	)
	if err != nil {
		return 0, storeFault("insert expense", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeFault("insert expense", err)
	}
	return id, nil
}

func (r *Repository) FindExpense(ctx context.Context, id, userID int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, amount_cents, category, date FROM expenses WHERE id = ? AND user_id = ?",
		id, userID,
	)
	var e core.Expense
	var category string
	if err := row.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &category, &e.Date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, storeFault("find expense", err)
	}
	e.Category = core.Category(category)
	return &e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET amount_cents = ?, category = ?, date = ? WHERE id = ? AND user_id = ?",
		e.Amount.Cents, e.Category.String(), e.Date, e.ID, e.UserID,
	)
	if err != nil {
		return storeFault("update expense", err)
	}
	return requireRow(res, "update expense")
}

func (r *Repository) DeleteExpense(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return storeFault("delete expense", err)
	}
	return requireRow(res, "delete expense")
}

func (r *Repository) ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, amount_cents, category, date FROM expenses WHERE user_id = ? ORDER BY date DESC",
		userID,
	)
	if err != nil {
		return nil, storeFault("list expenses", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var category string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &category, &e.Date); err != nil {
			return nil, storeFault("scan expense", err)
		}
		e.Category = core.Category(category)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("list expenses", err)
	}
	return expenses, nil
}

// --- incomes ---

func (r *Repository) CreateIncome(ctx context.Context, i core.Income) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO incomes (user_id, amount_cents, source, date) VALUES (?, ?, ?, ?)",
		i.UserID, i.Amount.Cents, i.Source, i.Date,
	)
	if err != nil {
		return 0, storeFault("insert income", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeFault("insert income", err)
	}
	return id, nil
}

func (r *Repository) FindIncome(ctx context.Context, id, userID int64) (*core.Income, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, amount_cents, source, date FROM incomes WHERE id = ? AND user_id = ?",
		id, userID,
	)
	var i core.Income
	if err := row.Scan(&i.ID, &i.UserID, &i.Amount.Cents, &i.Source, &i.Date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, storeFault("find income", err)
	}
	return &i, nil
}

func (r *Repository) UpdateIncome(ctx context.Context, i core.Income) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE incomes SET amount_cents = ?, source = ?, date = ? WHERE id = ? AND user_id = ?",
		i.Amount.Cents, i.Source, i.Date, i.ID, i.UserID,
	)
	if err != nil {
		return storeFault("update income", err)
	}
	return requireRow(res, "update income")
}

func (r *Repository) DeleteIncome(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM incomes WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return storeFault("delete income", err)
	}
	return requireRow(res, "delete income")
}

func (r *Repository) ListIncomesByUser(ctx context.Context, userID int64) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, amount_cents, source, date FROM incomes WHERE user_id = ? ORDER BY date DESC",
		userID,
	)
	if err != nil {
		return nil, storeFault("list incomes", err)
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		var i core.Income
		if err := rows.Scan(&i.ID, &i.UserID, &i.Amount.Cents, &i.Source, &i.Date); err != nil {
			return nil, storeFault("scan income", err)
		}
		incomes = append(incomes, i)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("list incomes", err)
	}
	return incomes, nil
}

// --- budgets ---

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO budgets (user_id, category, limit_cents, period_start) VALUES (?, ?, ?, ?)",
		b.UserID, b.Category.String(), b.Limit.Cents, b.Period.Start(),
	)
	if err != nil {
		return 0, storeFault("insert budget", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeFault("insert budget", err)
	}
	return id, nil
}

func (r *Repository) FindBudget(ctx context.Context, id, userID int64) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, category, limit_cents, period_start FROM budgets WHERE id = ? AND user_id = ?",
		id, userID,
	)
	b, err := scanBudget(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, storeFault("find budget", err)
	}
	return b, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE budgets SET category = ?, limit_cents = ?, period_start = ? WHERE id = ? AND user_id = ?",
		b.Category.String(), b.Limit.Cents, b.Period.Start(), b.ID, b.UserID,
	)
	if err != nil {
		return storeFault("update budget", err)
	}
	return requireRow(res, "update budget")
}

func (r *Repository) DeleteBudget(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM budgets WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return storeFault("delete budget", err)
	}
	return requireRow(res, "delete budget")
}

func (r *Repository) FindBudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, category, limit_cents, period_start FROM budgets WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, storeFault("list budgets", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows.Scan)
		if err != nil {
			return nil, storeFault("scan budget", err)
		}
		budgets = append(budgets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("list budgets", err)
	}
	return budgets, nil
}

func scanBudget(scan func(dest ...any) error) (*core.Budget, error) {
	var b core.Budget
	var category string
	var periodStart time.Time
	if err := scan(&b.ID, &b.UserID, &category, &b.Limit.Cents, &periodStart); err != nil {
		return nil, err
	}
	b.Category = core.Category(category)
	b.Period = core.PeriodOf(periodStart)
	return &b, nil
}

// --- aggregations ---

func monthBounds(period core.Period) (time.Time, time.Time) {
	start := period.Start()
	return start, start.AddDate(0, 1, 0)
}

func (r *Repository) SpentPerCategory(ctx context.Context, userID int64, period core.Period) (map[core.Category]core.Money, error) {
	start, end := monthBounds(period)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(amount_cents), 0)
		 FROM expenses
		 WHERE user_id = ? AND date >= ? AND date < ?
		 GROUP BY category`,
		userID, start, end,
	)
	if err != nil {
		return nil, storeFault("sum expenses per category", err)
	}
	defer rows.Close()

	totals := make(map[core.Category]core.Money)
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, storeFault("scan category total", err)
		}
		totals[core.Category(category)] = core.Money{Cents: cents}
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault("sum expenses per category", err)
	}
	return totals, nil
}

func (r *Repository) SpentForCategory(ctx context.Context, userID int64, category core.Category, period core.Period) (core.Money, error) {
	start, end := monthBounds(period)
	return r.sumCents(ctx, "sum expenses for category",
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM expenses
		 WHERE user_id = ? AND category = ? AND date >= ? AND date < ?`,
		userID, category.String(), start, end,
	)
}

func (r *Repository) SumExpensesForMonth(ctx context.Context, userID int64, period core.Period) (core.Money, error) {
	start, end := monthBounds(period)
	return r.sumCents(ctx, "sum expenses for month",
		"SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ? AND date >= ? AND date < ?",
		userID, start, end,
	)
}

func (r *Repository) SumIncomeForMonth(ctx context.Context, userID int64, period core.Period) (core.Money, error) {
	start, end := monthBounds(period)
	return r.sumCents(ctx, "sum income for month",
		"SELECT COALESCE(SUM(amount_cents), 0) FROM incomes WHERE user_id = ? AND date >= ? AND date < ?",
		userID, start, end,
	)
}

func (r *Repository) sumCents(ctx context.Context, op, query string, args ...any) (core.Money, error) {
	var cents int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return core.Money{}, storeFault(op, err)
	}
	return core.Money{Cents: cents}, nil
}

// --- sessions ---

func (r *Repository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt,
	)
	if err != nil {
		return storeFault("insert session", err)
	}
	return nil
}

// FindSessionAccount resolves a session token to its account, rejecting
// expired tokens.
func (r *Repository) FindSessionAccount(ctx context.Context, token string, now time.Time) (*core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT a.id, a.username, a.password_hash, a.created_at
		 FROM sessions s JOIN accounts a ON s.user_id = a.id
		 WHERE s.token = ? AND s.expires_at > ?`,
		token, now,
	)
	return r.scanAccount(row, "find session account")
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return storeFault("delete session", err)
	}
	return nil
}

// DeleteExpiredSessions sweeps sessions past their expiry and reports how
// many were removed.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, storeFault("sweep sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeFault("sweep sessions", err)
	}
	return n, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeFault(op, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
