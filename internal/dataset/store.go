package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const busyTimeoutMS = 5000

// Store wraps a pooled sqlx.DB connection to the banking SQLite database.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store backed by the SQLite database at the provided
// path. The banking schema is applied on first use.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("dataset path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busyTimeoutMS)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying sqlx.DB for advanced callers.
func (s *Store) DB() *sqlx.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) migrate(ctx context.Context) error {
	stmts, err := DDL(DialectSQLite)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// insertStatement renders a named INSERT for the table, columns straight
// from the normative schema.
func insertStatement(table TableSchema) string {
	cols := make([]string, 0, len(table.Columns))
	binds := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		cols = append(cols, c.Name)
		binds = append(binds, ":"+c.Name)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Name, strings.Join(cols, ", "), strings.Join(binds, ", "))
}

// Load inserts a generated dataset inside a single transaction, tables in
// foreign-key order. Re-loading into a populated database fails on the
// primary keys; callers wanting a clean load should start from a new file.
func (s *Store) Load(ctx context.Context, data *Data) error {
	if data == nil {
		return errors.New("nil dataset")
	}

	tables := map[string]TableSchema{}
	for _, t := range Schema() {
		tables[t.Name] = t
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	for _, c := range data.Customers {
		if _, err := tx.NamedExecContext(ctx, insertStatement(tables["customers"]), c); err != nil {
			return fmt.Errorf("insert customer %s: %w", c.CustomerID, err)
		}
	}
	for _, t := range data.Transactions {
		if _, err := tx.NamedExecContext(ctx, insertStatement(tables["transactions"]), t); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.TransactionID, err)
		}
	}
	for _, c := range data.Complaints {
		if _, err := tx.NamedExecContext(ctx, insertStatement(tables["complaints"]), c); err != nil {
			return fmt.Errorf("insert complaint %s: %w", c.ComplaintID, err)
		}
	}
	for _, p := range data.ProductHoldings {
		if _, err := tx.NamedExecContext(ctx, insertStatement(tables["product_holdings"]), p); err != nil {
			return fmt.Errorf("insert product holding %s: %w", p.ProductName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

// VerifyResult summarizes a loaded database for a post-load sanity check.
type VerifyResult struct {
	TableCounts     map[string]int `json:"table_counts"`
	SampleCustomers []Customer     `json:"sample_customers"`
	TopCustomers    []CustomerRank `json:"top_customers"`
}

// CustomerRank is one row of the top-customers-by-transactions listing.
type CustomerRank struct {
	CustomerID   string  `db:"customer_id" json:"customer_id"`
	FirstName    string  `db:"first_name" json:"first_name"`
	LastName     string  `db:"last_name" json:"last_name"`
	Transactions int     `db:"transactions" json:"transactions"`
	TotalAmount  float64 `db:"total_amount" json:"total_amount"`
}

// Verify reports row counts per table, a few sample customers, and the ten
// customers with the most transactions.
func (s *Store) Verify(ctx context.Context) (*VerifyResult, error) {
	result := &VerifyResult{TableCounts: map[string]int{}}

	for _, table := range Schema() {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table.Name)
		if err := s.db.GetContext(ctx, &count, query); err != nil {
			return nil, fmt.Errorf("count %s: %w", table.Name, err)
		}
		result.TableCounts[table.Name] = count
	}

	if err := s.db.SelectContext(ctx, &result.SampleCustomers,
		"SELECT * FROM customers ORDER BY customer_id LIMIT 3"); err != nil {
		return nil, fmt.Errorf("sample customers: %w", err)
	}

	const topQuery = `
		SELECT c.customer_id, c.first_name, c.last_name,
		       COUNT(t.transaction_id) AS transactions,
		       COALESCE(SUM(t.amount), 0) AS total_amount
		FROM customers c
		JOIN transactions t ON t.customer_id = c.customer_id
		GROUP BY c.customer_id, c.first_name, c.last_name
		ORDER BY transactions DESC, c.customer_id
		LIMIT 10`
	if err := s.db.SelectContext(ctx, &result.TopCustomers, topQuery); err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	return result, nil
}
