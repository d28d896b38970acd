// Package storage persists daily ledger records and article families in
// SQLite. Records keep their amounts as entered text and their nested lists
// as JSON so the report engine decides how to read them.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"backoffice/internal/core"
	"backoffice/internal/log"

	_ "modernc.org/sqlite"
)

const recordColumns = `date, cash_revenue, total_expenses, net_revenue,
	card_terminal, card_terminal_2, bank_check, cash, meal_vouchers, offers,
	supplier_expenses, misc_expenses, admin_expenses, offer_items,
	advances, double_shifts, casual_labor, bonuses, salary_remainders`

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// UpsertRecord inserts or replaces the record of one day.
func (r *SQLiteRepository) UpsertRecord(ctx context.Context, rec core.RawRecord) error {
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}

	args := []any{
		date.String(), rec.CashRevenue, rec.TotalExpenses, rec.NetRevenue,
		rec.CardTerminal, rec.CardTerminal2, rec.BankCheck, rec.Cash, rec.MealVouchers, rec.Offers,
		jsonList(rec.SupplierExpenses), jsonList(rec.MiscExpenses), jsonList(rec.AdminExpenses), jsonList(rec.OfferItems),
	}
	for _, kind := range core.PaymentKinds {
		args = append(args, jsonList(rec.EmployeePayments[kind]))
	}

	query := `INSERT INTO daily_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			cash_revenue = excluded.cash_revenue,
			total_expenses = excluded.total_expenses,
			net_revenue = excluded.net_revenue,
			card_terminal = excluded.card_terminal,
			card_terminal_2 = excluded.card_terminal_2,
			bank_check = excluded.bank_check,
			cash = excluded.cash,
			meal_vouchers = excluded.meal_vouchers,
			offers = excluded.offers,
			supplier_expenses = excluded.supplier_expenses,
			misc_expenses = excluded.misc_expenses,
			admin_expenses = excluded.admin_expenses,
			offer_items = excluded.offer_items,
			advances = excluded.advances,
			double_shifts = excluded.double_shifts,
			casual_labor = excluded.casual_labor,
			bonuses = excluded.bonuses,
			salary_remainders = excluded.salary_remainders,
			updated_at = CURRENT_TIMESTAMP`

	err = r.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", date, err)
	}
	r.logger.DebugContext(ctx, "record saved", log.FieldOperation, log.OpUpsert, log.FieldRecordDate, date.String())
	return nil
}

// ListRecords returns the records dated within [start, end], oldest first.
func (r *SQLiteRepository) ListRecords(ctx context.Context, start, end core.Date) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM daily_records WHERE date BETWEEN ? AND ? ORDER BY date`,
		start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.RawRecord
	for rows.Next() {
		var rec core.RawRecord
		employees := make([]string, len(core.PaymentKinds))
		dest := []any{
			&rec.Date, &rec.CashRevenue, &rec.TotalExpenses, &rec.NetRevenue,
			&rec.CardTerminal, &rec.CardTerminal2, &rec.BankCheck, &rec.Cash, &rec.MealVouchers, &rec.Offers,
			&rec.SupplierExpenses, &rec.MiscExpenses, &rec.AdminExpenses, &rec.OfferItems,
		}
		for i := range employees {
			dest = append(dest, &employees[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.EmployeePayments = make(map[core.PaymentKind]string, len(core.PaymentKinds))
		for i, kind := range core.PaymentKinds {
			rec.EmployeePayments[kind] = employees[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	r.logger.DebugContext(ctx, "records listed", log.FieldOperation, log.OpList, log.FieldRecordCount, len(out))
	return out, nil
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, date core.Date) error {
	return r.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM daily_records WHERE date = ?`, date.String())
		if err != nil {
			return fmt.Errorf("delete record %s: %w", date, err)
		}
		return requireAffected(res, fmt.Sprintf("record %s", date))
	})
}

// DataVersion returns a counter bumped by every write. Callers use it to
// key memoized reports.
func (r *SQLiteRepository) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRowContext(ctx, `SELECT version FROM data_version WHERE id = 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

// SaveFamily creates the family when ID is zero and replaces it otherwise.
func (r *SQLiteRepository) SaveFamily(ctx context.Context, f core.RawFamily) (int64, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return 0, fmt.Errorf("save family: name: %w", core.ErrMissingID)
	}
	id := f.ID
	err := r.write(ctx, func(tx *sql.Tx) error {
		if id == 0 {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO article_families (name, rows_json, suppliers_json) VALUES (?, ?, ?)`,
				name, jsonList(f.Rows), jsonList(f.Suppliers))
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE article_families SET name = ?, rows_json = ?, suppliers_json = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			name, jsonList(f.Rows), jsonList(f.Suppliers), id)
		if err != nil {
			return err
		}
		return requireAffected(res, fmt.Sprintf("family %d", id))
	})
	if err != nil {
		return 0, fmt.Errorf("save family %q: %w", name, err)
	}
	r.logger.DebugContext(ctx, "family saved", log.NewFields().WithOperation(log.OpUpsert).WithFamily(id, name).ToSlice()...)
	return id, nil
}

func (r *SQLiteRepository) GetFamily(ctx context.Context, id int64) (core.RawFamily, error) {
	var f core.RawFamily
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, rows_json, suppliers_json FROM article_families WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.Rows, &f.Suppliers)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RawFamily{}, fmt.Errorf("family %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.RawFamily{}, fmt.Errorf("get family %d: %w", id, err)
	}
	return f, nil
}

// ListFamilies returns every family ordered by name.
func (r *SQLiteRepository) ListFamilies(ctx context.Context) ([]core.RawFamily, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, rows_json, suppliers_json FROM article_families ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var out []core.RawFamily
	for rows.Next() {
		var f core.RawFamily
		if err := rows.Scan(&f.ID, &f.Name, &f.Rows, &f.Suppliers); err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteFamily(ctx context.Context, id int64) error {
	return r.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM article_families WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete family %d: %w", id, err)
		}
		return requireAffected(res, fmt.Sprintf("family %d", id))
	})
}

// write runs fn and bumps the data version in the same transaction.
func (r *SQLiteRepository) write(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE data_version SET version = version + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("bump data version: %w", err)
	}
	return tx.Commit()
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

func jsonList(s string) string {
	if strings.TrimSpace(s) == "" {
		return "[]"
	}
	return s
}
