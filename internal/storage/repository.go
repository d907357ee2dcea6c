// Package storage persists the ledger in SQLite: users, categories, accounts,
// transactions and budgets. Amounts are stored as decimal strings and all
// instants as RFC 3339 UTC text.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"duitbot/internal/core"
	"duitbot/internal/dates"
)

const timeLayout = time.RFC3339

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ResolveOrRegisterUser maps a Telegram user id to the internal user id,
// creating the user on first contact.
func (r *Repository) ResolveOrRegisterUser(ctx context.Context, telegramID int64, username string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE telegram_id = ?", telegramID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("find user: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (telegram_id, username) VALUES (?, ?)", telegramID, username)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "Registered new user", "telegram_id", telegramID, "user_id", id)
	return id, nil
}

// FindCategory looks a category up by name. The name column carries NOCASE
// collation, so lookup is case-insensitive.
func (r *Repository) FindCategory(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM categories WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find category: %w", err)
	}
	return id, true, nil
}

// EnsureCategory returns the id of the named category, creating it with the
// given allowed type on first use. Names are stored in normalized form.
func (r *Repository) EnsureCategory(ctx context.Context, name string, allowedType core.TransactionType) (int64, error) {
	name = core.NormalizeName(name)
	if id, ok, err := r.FindCategory(ctx, name); err != nil || ok {
		return id, err
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, allowed_type) VALUES (?, ?)", name, string(allowedType))
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category insert id: %w", err)
	}

	slog.InfoContext(ctx, "Created category", "name", name, "allowed_type", allowedType)
	return id, nil
}

// EnsureAccount returns the id of the named account, creating it on first
// use. Account lookup is case-insensitive; the name is stored as typed.
func (r *Repository) EnsureAccount(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM accounts WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("find account: %w", err)
	}

	res, err := r.db.ExecContext(ctx, "INSERT INTO accounts (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account insert id: %w", err)
	}

	slog.InfoContext(ctx, "Created account", "name", name)
	return id, nil
}

// InsertTransaction persists a draft for a user.
func (r *Repository) InsertTransaction(ctx context.Context, userID, categoryID, accountID int64, d core.Draft) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, category_id, account_id, type, amount, description, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, categoryID, accountID, string(d.Type), d.Amount.String(), d.Description,
		d.OccurredAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", id,
		"user_id", userID,
		"type", d.Type,
		"amount", d.Amount.String())
	return id, nil
}

// GetTransaction loads one transaction by id with its category and account
// names resolved.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.type, t.amount, COALESCE(c.name, ''), COALESCE(a.name, ''),
		       t.description, t.occurred_at
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		LEFT JOIN accounts a ON a.id = t.account_id
		WHERE t.id = ? AND t.deleted_at IS NULL`, id)

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, fmt.Errorf("transaction %d not found", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// SoftDeleteLast marks the user's most recent non-deleted transaction as
// deleted and returns it. The second return is false when nothing is left to
// undo.
func (r *Repository) SoftDeleteLast(ctx context.Context, userID int64) (core.Transaction, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.type, t.amount, COALESCE(c.name, ''), COALESCE(a.name, ''),
		       t.description, t.occurred_at
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		LEFT JOIN accounts a ON a.id = t.account_id
		WHERE t.user_id = ? AND t.deleted_at IS NULL
		ORDER BY t.id DESC LIMIT 1`, userID)

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("find last transaction: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"UPDATE transactions SET deleted_at = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), tx.ID)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("soft delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction soft-deleted", "transaction_id", tx.ID, "user_id", userID)
	return tx, true, nil
}

// AmountsInWindow implements budget.LedgerReader: type and amount of every
// non-deleted transaction of a user+category inside [start, end).
func (r *Repository) AmountsInWindow(ctx context.Context, userID, categoryID int64, start, end time.Time) ([]core.TransactionAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, amount FROM transactions
		WHERE user_id = ? AND category_id = ? AND deleted_at IS NULL
		  AND occurred_at >= ? AND occurred_at < ?`,
		userID, categoryID, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query window amounts: %w", err)
	}
	defer rows.Close()

	var amounts []core.TransactionAmount
	for rows.Next() {
		var txType, amountStr string
		if err := rows.Scan(&txType, &amountStr); err != nil {
			return nil, fmt.Errorf("scan window amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("bad stored amount %q: %w", amountStr, err)
		}
		amounts = append(amounts, core.TransactionAmount{Type: core.TransactionType(txType), Amount: amount})
	}
	return amounts, rows.Err()
}

// ListOutcomes returns the user's non-deleted outcome transactions inside
// [start, end), most recent first.
func (r *Repository) ListOutcomes(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.type, t.amount, COALESCE(c.name, ''), COALESCE(a.name, ''),
		       t.description, t.occurred_at
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		LEFT JOIN accounts a ON a.id = t.account_id
		WHERE t.user_id = ? AND t.type = 'outcome' AND t.deleted_at IS NULL
		  AND t.occurred_at >= ? AND t.occurred_at < ?
		ORDER BY t.occurred_at DESC, t.id DESC`,
		userID, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Summaries aggregates income/outcome totals per requested month, in order.
func (r *Repository) Summaries(ctx context.Context, userID int64, months []dates.YearMonth) ([]core.MonthlySummary, error) {
	summaries := make([]core.MonthlySummary, 0, len(months))
	for _, ym := range months {
		start, end := dates.MonthWindow(ym.Year, ym.Month)

		rows, err := r.db.QueryContext(ctx, `
			SELECT type, amount FROM transactions
			WHERE user_id = ? AND deleted_at IS NULL
			  AND occurred_at >= ? AND occurred_at < ?`,
			userID, start.Format(timeLayout), end.Format(timeLayout))
		if err != nil {
			return nil, fmt.Errorf("query summary %02d/%d: %w", ym.Month, ym.Year, err)
		}

		summary := core.MonthlySummary{
			Year:         ym.Year,
			Month:        ym.Month,
			TotalIncome:  decimal.Zero,
			TotalOutcome: decimal.Zero,
		}
		for rows.Next() {
			var txType, amountStr string
			if err := rows.Scan(&txType, &amountStr); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan summary row: %w", err)
			}
			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("bad stored amount %q: %w", amountStr, err)
			}
			switch core.TransactionType(txType) {
			case core.Income:
				summary.TotalIncome = summary.TotalIncome.Add(amount)
			case core.Outcome:
				summary.TotalOutcome = summary.TotalOutcome.Add(amount)
			}
			summary.TransactionCount++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("summary rows: %w", err)
		}
		rows.Close()

		summary.Balance = summary.TotalIncome.Sub(summary.TotalOutcome)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ActiveBudgets implements budget.BudgetReader: budgets of one user+category
// whose own [start_date, end_date) bounds cover the given instant.
func (r *Repository) ActiveBudgets(ctx context.Context, userID, categoryID int64, asOf time.Time) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.category_id, COALESCE(c.name, ''), b.amount, b.period,
		       b.currency, b.start_date, b.end_date
		FROM budgets b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ? AND b.category_id = ?
		  AND b.start_date <= ? AND (b.end_date IS NULL OR b.end_date > ?)
		ORDER BY b.id`,
		userID, categoryID, asOf.UTC().Format(timeLayout), asOf.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query active budgets: %w", err)
	}
	defer rows.Close()

	return scanBudgets(rows)
}

// ListBudgets returns all budgets of a user, for the budget listing command.
func (r *Repository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.category_id, COALESCE(c.name, ''), b.amount, b.period,
		       b.currency, b.start_date, b.end_date
		FROM budgets b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ?
		ORDER BY b.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	return scanBudgets(rows)
}

// CreateBudget inserts a budget row.
func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("validate budget: %w", err)
	}

	var endDate any
	if b.EndDate != nil {
		endDate = b.EndDate.UTC().Format(timeLayout)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category_id, amount, period, currency, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.CategoryID, b.Amount.String(), string(b.Period), b.Currency,
		b.StartDate.UTC().Format(timeLayout), endDate)
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget insert id: %w", err)
	}
	return id, nil
}

// PendingMirror returns ids of transactions not yet mirrored to the sheet,
// oldest first.
func (r *Repository) PendingMirror(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM transactions
		WHERE mirrored_at IS NULL AND deleted_at IS NULL
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending mirror: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkMirrored records that a transaction reached the mirror sheet.
func (r *Repository) MarkMirrored(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET mirrored_at = ? WHERE id = ?",
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                  core.Transaction
		txType              string
		amountStr, occurred string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &txType, &amountStr, &tx.Category, &tx.Account,
		&tx.Description, &occurred); err != nil {
		return core.Transaction{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("bad stored amount %q: %w", amountStr, err)
	}
	occurredAt, err := time.Parse(timeLayout, occurred)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("bad stored occurred_at %q: %w", occurred, err)
	}

	tx.Type = core.TransactionType(txType)
	tx.Amount = amount
	tx.OccurredAt = occurredAt.UTC()
	return tx, nil
}

func scanBudgets(rows *sql.Rows) ([]core.Budget, error) {
	var budgets []core.Budget
	for rows.Next() {
		var (
			b                    core.Budget
			period               string
			amountStr, startStr  string
			endStr               sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Category, &amountStr, &period,
			&b.Currency, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("bad stored budget amount %q: %w", amountStr, err)
		}
		start, err := time.Parse(timeLayout, startStr)
		if err != nil {
			return nil, fmt.Errorf("bad stored start_date %q: %w", startStr, err)
		}
		b.Amount = amount
		b.Period = core.BudgetPeriod(period)
		b.StartDate = start.UTC()
		if endStr.Valid {
			end, err := time.Parse(timeLayout, endStr.String)
			if err != nil {
				return nil, fmt.Errorf("bad stored end_date %q: %w", endStr.String, err)
			}
			endUTC := end.UTC()
			b.EndDate = &endUTC
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}
