package dataset

// Customer is one row of the customers table. Field tags follow the
// normative column names so sqlx named binding works without mapping.
type Customer struct {
	CustomerID       string  `db:"customer_id" json:"customer_id"`
	FirstName        string  `db:"first_name" json:"first_name"`
	LastName         string  `db:"last_name" json:"last_name"`
	Email            string  `db:"email" json:"email"`
	Phone            string  `db:"phone" json:"phone"`
	DateOfBirth      string  `db:"date_of_birth" json:"date_of_birth"`
	Age              int     `db:"age" json:"age"`
	Gender           string  `db:"gender" json:"gender"`
	Address          string  `db:"address" json:"address"`
	City             string  `db:"city" json:"city"`
	Postcode         string  `db:"postcode" json:"postcode"`
	AccountType      string  `db:"account_type" json:"account_type"`
	AccountNumber    string  `db:"account_number" json:"account_number"`
	SortCode         string  `db:"sort_code" json:"sort_code"`
	AccountOpenDate  string  `db:"account_open_date" json:"account_open_date"`
	Balance          float64 `db:"balance" json:"balance"`
	IncomeBracket    string  `db:"income_bracket" json:"income_bracket"`
	CreditScore      int     `db:"credit_score" json:"credit_score"`
	NumProducts      int     `db:"num_products" json:"num_products"`
	CustomerSegment  string  `db:"customer_segment" json:"customer_segment"`
	IsActive         bool    `db:"is_active" json:"is_active"`
	HasMobileApp     bool    `db:"has_mobile_app" json:"has_mobile_app"`
	HasOnlineBanking bool    `db:"has_online_banking" json:"has_online_banking"`
	MarketingConsent bool    `db:"marketing_consent" json:"marketing_consent"`
	CreatedAt        string  `db:"created_at" json:"created_at"`
	UpdatedAt        string  `db:"updated_at" json:"updated_at"`
}

// Transaction is one row of the transactions table.
type Transaction struct {
	TransactionID        string  `db:"transaction_id" json:"transaction_id"`
	CustomerID           string  `db:"customer_id" json:"customer_id"`
	TransactionDate      string  `db:"transaction_date" json:"transaction_date"`
	TransactionTime      string  `db:"transaction_time" json:"transaction_time"`
	TransactionType      string  `db:"transaction_type" json:"transaction_type"`
	Category             string  `db:"category" json:"category"`
	Amount               float64 `db:"amount" json:"amount"`
	Currency             string  `db:"currency" json:"currency"`
	MerchantName         string  `db:"merchant_name" json:"merchant_name"`
	MerchantCategoryCode int     `db:"merchant_category_code" json:"merchant_category_code"`
	Channel              string  `db:"channel" json:"channel"`
	Location             string  `db:"location" json:"location"`
	IsInternational      bool    `db:"is_international" json:"is_international"`
	IsRecurring          bool    `db:"is_recurring" json:"is_recurring"`
	Status               string  `db:"status" json:"status"`
	CreatedAt            string  `db:"created_at" json:"created_at"`
}

// Complaint is one row of the complaints table. Resolution fields are
// pointers: they are NULL until the complaint reaches Resolved or Closed.
type Complaint struct {
	ComplaintID        string  `db:"complaint_id" json:"complaint_id"`
	CustomerID         string  `db:"customer_id" json:"customer_id"`
	CustomerAge        int     `db:"customer_age" json:"customer_age"`
	CustomerGender     string  `db:"customer_gender" json:"customer_gender"`
	CustomerSegment    string  `db:"customer_segment" json:"customer_segment"`
	CustomerCity       string  `db:"customer_city" json:"customer_city"`
	ComplaintDate      string  `db:"complaint_date" json:"complaint_date"`
	ComplaintTime      string  `db:"complaint_time" json:"complaint_time"`
	Category           string  `db:"category" json:"category"`
	Severity           string  `db:"severity" json:"severity"`
	Description        string  `db:"description" json:"description"`
	Channel            string  `db:"channel" json:"channel"`
	Status             string  `db:"status" json:"status"`
	ResolutionDate     *string `db:"resolution_date" json:"resolution_date,omitempty"`
	ResolutionDays     *int    `db:"resolution_days" json:"resolution_days,omitempty"`
	CompensationAmount float64 `db:"compensation_amount" json:"compensation_amount"`
	SatisfactionScore  *int    `db:"satisfaction_score" json:"satisfaction_score,omitempty"`
	Escalated          bool    `db:"escalated" json:"escalated"`
	ProductInvolved    string  `db:"product_involved" json:"product_involved"`
	BranchCode         *string `db:"branch_code" json:"branch_code,omitempty"`
	CreatedAt          string  `db:"created_at" json:"created_at"`
	UpdatedAt          string  `db:"updated_at" json:"updated_at"`
}

// ProductHolding is one row of the product_holdings table.
type ProductHolding struct {
	ProductName          string  `db:"product_name" json:"product_name"`
	TotalCustomers       int     `db:"total_customers" json:"total_customers"`
	AvgBalance           float64 `db:"avg_balance" json:"avg_balance"`
	AvgCustomerAge       float64 `db:"avg_customer_age" json:"avg_customer_age"`
	RevenueContribution  float64 `db:"revenue_contribution" json:"revenue_contribution"`
	CustomerSatisfaction float64 `db:"customer_satisfaction" json:"customer_satisfaction"`
	ChurnRate            float64 `db:"churn_rate" json:"churn_rate"`
	GrowthRate           float64 `db:"growth_rate" json:"growth_rate"`
	AvgTenureMonths      int     `db:"avg_tenure_months" json:"avg_tenure_months"`
	DigitalAdoptionRate  float64 `db:"digital_adoption_rate" json:"digital_adoption_rate"`
}

// Data bundles one generated dataset, tables in foreign-key order.
type Data struct {
	Customers       []Customer       `json:"customers"`
	Transactions    []Transaction    `json:"transactions"`
	Complaints      []Complaint      `json:"complaints"`
	ProductHoldings []ProductHolding `json:"product_holdings"`
}
