package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const copyBatchSize = 1000

// LoadPostgres bulk-loads a generated dataset into Postgres using COPY,
// tables in foreign-key order. The schema must already exist; use
// DDL(DialectPostgres) to create it.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool, data *Data) error {
	if err := copyRows(ctx, pool, "customers", customerColumns(), customerRows(data.Customers)); err != nil {
		return err
	}
	if err := copyRows(ctx, pool, "transactions", transactionColumns(), transactionRows(data.Transactions)); err != nil {
		return err
	}
	if err := copyRows(ctx, pool, "complaints", complaintColumns(), complaintRows(data.Complaints)); err != nil {
		return err
	}
	return copyRows(ctx, pool, "product_holdings", holdingColumns(), holdingRows(data.ProductHoldings))
}

func copyRows(ctx context.Context, pool *pgxpool.Pool, table string, columns []string, rows [][]interface{}) error {
	for start := 0; start < len(rows); start += copyBatchSize {
		end := start + copyBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		_, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows[start:end]))
		if err != nil {
			return fmt.Errorf("copy into %s (rows %d..%d): %w", table, start, end-1, err)
		}
	}
	return nil
}

// The COPY column lists omit created_at/updated_at so the server defaults
// apply; the Go-side timestamps are for the SQLite path.

func customerColumns() []string {
	return []string{
		"customer_id", "first_name", "last_name", "email", "phone",
		"date_of_birth", "age", "gender", "address", "city", "postcode",
		"account_type", "account_number", "sort_code", "account_open_date",
		"balance", "income_bracket", "credit_score", "num_products",
		"customer_segment", "is_active", "has_mobile_app",
		"has_online_banking", "marketing_consent",
	}
}

func customerRows(customers []Customer) [][]interface{} {
	rows := make([][]interface{}, len(customers))
	for i, c := range customers {
		rows[i] = []interface{}{
			c.CustomerID, c.FirstName, c.LastName, c.Email, c.Phone,
			c.DateOfBirth, c.Age, c.Gender, c.Address, c.City, c.Postcode,
			c.AccountType, c.AccountNumber, c.SortCode, c.AccountOpenDate,
			c.Balance, c.IncomeBracket, c.CreditScore, c.NumProducts,
			c.CustomerSegment, c.IsActive, c.HasMobileApp,
			c.HasOnlineBanking, c.MarketingConsent,
		}
	}
	return rows
}

func transactionColumns() []string {
	return []string{
		"transaction_id", "customer_id", "transaction_date", "transaction_time",
		"transaction_type", "category", "amount", "currency", "merchant_name",
		"merchant_category_code", "channel", "location", "is_international",
		"is_recurring", "status",
	}
}

func transactionRows(txns []Transaction) [][]interface{} {
	rows := make([][]interface{}, len(txns))
	for i, t := range txns {
		rows[i] = []interface{}{
			t.TransactionID, t.CustomerID, t.TransactionDate, t.TransactionTime,
			t.TransactionType, t.Category, t.Amount, t.Currency, t.MerchantName,
			t.MerchantCategoryCode, t.Channel, t.Location, t.IsInternational,
			t.IsRecurring, t.Status,
		}
	}
	return rows
}

func complaintColumns() []string {
	return []string{
		"complaint_id", "customer_id", "customer_age", "customer_gender",
		"customer_segment", "customer_city", "complaint_date", "complaint_time",
		"category", "severity", "description", "channel", "status",
		"resolution_date", "resolution_days", "compensation_amount",
		"satisfaction_score", "escalated", "product_involved", "branch_code",
	}
}

func complaintRows(complaints []Complaint) [][]interface{} {
	rows := make([][]interface{}, len(complaints))
	for i, c := range complaints {
		rows[i] = []interface{}{
			c.ComplaintID, c.CustomerID, c.CustomerAge, c.CustomerGender,
			c.CustomerSegment, c.CustomerCity, c.ComplaintDate, c.ComplaintTime,
			c.Category, c.Severity, c.Description, c.Channel, c.Status,
			c.ResolutionDate, c.ResolutionDays, c.CompensationAmount,
			c.SatisfactionScore, c.Escalated, c.ProductInvolved, c.BranchCode,
		}
	}
	return rows
}

func holdingColumns() []string {
	return []string{
		"product_name", "total_customers", "avg_balance", "avg_customer_age",
		"revenue_contribution", "customer_satisfaction", "churn_rate",
		"growth_rate", "avg_tenure_months", "digital_adoption_rate",
	}
}

func holdingRows(holdings []ProductHolding) [][]interface{} {
	rows := make([][]interface{}, len(holdings))
	for i, h := range holdings {
		rows[i] = []interface{}{
			h.ProductName, h.TotalCustomers, h.AvgBalance, h.AvgCustomerAge,
			h.RevenueContribution, h.CustomerSatisfaction, h.ChurnRate,
			h.GrowthRate, h.AvgTenureMonths, h.DigitalAdoptionRate,
		}
	}
	return rows
}
