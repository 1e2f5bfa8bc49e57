// Package dataset generates, stores, and queries the banking demo data:
// customers, transactions, complaints, and product holdings. The table
// schemas here are the single normative definition; the DDL, the Go row
// types, and the document verifier all derive from Schema().
package dataset

import (
	"fmt"
	"strings"
)

// DialectSQLite and DialectPostgres select the DDL flavor rendered by DDL.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// ColumnSchema describes a single column of a dataset table.
type ColumnSchema struct {
	Name       string
	Type       string
	PrimaryKey bool
	Nullable   bool
	Unique     bool
	Default    string
	References string // "table(column)" for foreign keys
}

// TableSchema describes one dataset table with its indexes.
type TableSchema struct {
	Name    string
	Columns []ColumnSchema
	Indexes []IndexSchema
}

// IndexSchema describes a secondary index.
type IndexSchema struct {
	Name    string
	Columns []string
}

// Column returns the named column, or false when the table has no such column.
func (t TableSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// Schema returns the four banking tables in foreign-key order: customers
// first, then the tables that reference them.
func Schema() []TableSchema {
	return []TableSchema{
		{
			Name: "customers",
			Columns: []ColumnSchema{
				{Name: "customer_id", Type: "VARCHAR(10)", PrimaryKey: true},
				{Name: "first_name", Type: "VARCHAR(50)"},
				{Name: "last_name", Type: "VARCHAR(50)"},
				{Name: "email", Type: "VARCHAR(100)", Unique: true},
				{Name: "phone", Type: "VARCHAR(20)", Nullable: true},
				{Name: "date_of_birth", Type: "DATE", Nullable: true},
				{Name: "age", Type: "INTEGER"},
				{Name: "gender", Type: "VARCHAR(10)", Nullable: true},
				{Name: "address", Type: "VARCHAR(200)", Nullable: true},
				{Name: "city", Type: "VARCHAR(50)"},
				{Name: "postcode", Type: "VARCHAR(10)", Nullable: true},
				{Name: "account_type", Type: "VARCHAR(50)"},
				{Name: "account_number", Type: "VARCHAR(20)", Unique: true},
				{Name: "sort_code", Type: "VARCHAR(10)"},
				{Name: "account_open_date", Type: "DATE"},
				{Name: "balance", Type: "DECIMAL(15,2)"},
				{Name: "income_bracket", Type: "VARCHAR(20)"},
				{Name: "credit_score", Type: "INTEGER"},
				{Name: "num_products", Type: "INTEGER"},
				{Name: "customer_segment", Type: "VARCHAR(20)"},
				{Name: "is_active", Type: "BOOLEAN", Default: "TRUE"},
				{Name: "has_mobile_app", Type: "BOOLEAN", Default: "FALSE"},
				{Name: "has_online_banking", Type: "BOOLEAN", Default: "FALSE"},
				{Name: "marketing_consent", Type: "BOOLEAN", Default: "FALSE"},
				{Name: "created_at", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP"},
				{Name: "updated_at", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP"},
			},
			Indexes: []IndexSchema{
				{Name: "idx_customers_city", Columns: []string{"city"}},
				{Name: "idx_customers_segment", Columns: []string{"customer_segment"}},
				{Name: "idx_customers_age", Columns: []string{"age"}},
			},
		},
		{
			Name: "transactions",
			Columns: []ColumnSchema{
				{Name: "transaction_id", Type: "VARCHAR(15)", PrimaryKey: true},
				{Name: "customer_id", Type: "VARCHAR(10)", References: "customers(customer_id)"},
				{Name: "transaction_date", Type: "DATE"},
				{Name: "transaction_time", Type: "TIME"},
				{Name: "transaction_type", Type: "VARCHAR(10)"},
				{Name: "category", Type: "VARCHAR(50)"},
				{Name: "amount", Type: "DECIMAL(15,2)"},
				{Name: "currency", Type: "VARCHAR(3)", Default: "'GBP'"},
				{Name: "merchant_name", Type: "VARCHAR(100)", Nullable: true},
				{Name: "merchant_category_code", Type: "INTEGER", Nullable: true},
				{Name: "channel", Type: "VARCHAR(20)", Nullable: true},
				{Name: "location", Type: "VARCHAR(50)", Nullable: true},
				{Name: "is_international", Type: "BOOLEAN", Default: "FALSE"},
				{Name: "is_recurring", Type: "BOOLEAN", Default: "FALSE"},
				{Name: "status", Type: "VARCHAR(20)", Default: "'Completed'"},
				{Name: "created_at", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP"},
			},
			Indexes: []IndexSchema{
				{Name: "idx_transactions_customer", Columns: []string{"customer_id"}},
				{Name: "idx_transactions_date", Columns: []string{"transaction_date"}},
				{Name: "idx_transactions_category", Columns: []string{"category"}},
			},
		},
		{
			Name: "complaints",
			Columns: []ColumnSchema{
				{Name: "complaint_id", Type: "VARCHAR(15)", PrimaryKey: true},
				{Name: "customer_id", Type: "VARCHAR(10)", References: "customers(customer_id)"},
				{Name: "customer_age", Type: "INTEGER", Nullable: true},
				{Name: "customer_gender", Type: "VARCHAR(10)", Nullable: true},
				{Name: "customer_segment", Type: "VARCHAR(20)", Nullable: true},
				{Name: "customer_city", Type: "VARCHAR(50)", Nullable: true},
				{Name: "complaint_date", Type: "DATE"},
				{Name: "complaint_time", Type: "TIME"},
				{Name: "category", Type: "VARCHAR(50)"},
				{Name: "severity", Type: "VARCHAR(20)", Nullable: true},
				{Name: "description", Type: "TEXT", Nullable: true},
				{Name: "channel", Type: "VARCHAR(20)", Nullable: true},
				{Name: "status", Type: "VARCHAR(20)", Default: "'Open'"},
				{Name: "resolution_date", Type: "DATE", Nullable: true},
				{Name: "resolution_days", Type: "INTEGER", Nullable: true},
				{Name: "compensation_amount", Type: "DECIMAL(10,2)", Default: "0"},
				{Name: "satisfaction_score", Type: "INTEGER", Nullable: true},
				{Name: "escalated", Type: "BOOLEAN", Default: "FALSE"},
				{Name: "product_involved", Type: "VARCHAR(100)", Nullable: true},
				{Name: "branch_code", Type: "VARCHAR(10)", Nullable: true},
				{Name: "created_at", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP"},
				{Name: "updated_at", Type: "TIMESTAMP", Default: "CURRENT_TIMESTAMP"},
			},
			Indexes: []IndexSchema{
				{Name: "idx_complaints_customer", Columns: []string{"customer_id"}},
				{Name: "idx_complaints_date", Columns: []string{"complaint_date"}},
				{Name: "idx_complaints_category", Columns: []string{"category"}},
				{Name: "idx_complaints_status", Columns: []string{"status"}},
			},
		},
		{
			Name: "product_holdings",
			Columns: []ColumnSchema{
				{Name: "product_name", Type: "VARCHAR(100)", PrimaryKey: true},
				{Name: "total_customers", Type: "INTEGER"},
				{Name: "avg_balance", Type: "DECIMAL(15,2)"},
				{Name: "avg_customer_age", Type: "DECIMAL(5,1)"},
				{Name: "revenue_contribution", Type: "DECIMAL(15,2)"},
				{Name: "customer_satisfaction", Type: "DECIMAL(3,2)"},
				{Name: "churn_rate", Type: "DECIMAL(5,4)"},
				{Name: "growth_rate", Type: "DECIMAL(5,4)"},
				{Name: "avg_tenure_months", Type: "INTEGER"},
				{Name: "digital_adoption_rate", Type: "DECIMAL(4,2)"},
			},
		},
	}
}

// DDL renders CREATE TABLE and CREATE INDEX statements for the given dialect.
// Statements come out in foreign-key order so they can be executed as-is.
func DDL(dialect string) ([]string, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}

	var stmts []string
	for _, table := range Schema() {
		stmts = append(stmts, createTable(table, dialect))
		for _, idx := range table.Indexes {
			stmts = append(stmts, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				idx.Name, table.Name, strings.Join(idx.Columns, ", ")))
		}
	}
	return stmts, nil
}

func createTable(table TableSchema, dialect string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table.Name)

	for i, c := range table.Columns {
		fmt.Fprintf(&b, "    %s %s", c.Name, columnType(c.Type, dialect))
		if c.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		} else if !c.Nullable && c.Default == "" && c.References == "" {
			b.WriteString(" NOT NULL")
		}
		if c.Unique {
			b.WriteString(" UNIQUE")
		}
		if c.Default != "" {
			fmt.Fprintf(&b, " DEFAULT %s", c.Default)
		}
		if c.References != "" {
			fmt.Fprintf(&b, " REFERENCES %s", c.References)
		}
		if i < len(table.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// columnType maps the canonical declaration to the dialect. SQLite accepts
// the portable names via type affinity; only a few need rewriting.
func columnType(declared, dialect string) string {
	if dialect == DialectSQLite {
		upper := strings.ToUpper(declared)
		switch {
		case upper == "TIME":
			return "TEXT"
		case upper == "DATE":
			return "TEXT"
		case upper == "TIMESTAMP":
			return "TEXT"
		case strings.HasPrefix(upper, "DECIMAL"):
			return "REAL"
		case upper == "BOOLEAN":
			return "INTEGER"
		}
	}
	return declared
}
