package dataset

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Counts sets how many rows Generate produces per table. Product holdings
// always cover the full product list.
type Counts struct {
	Customers    int
	Transactions int
	Complaints   int
}

// DefaultCounts matches the workshop dataset sizing.
func DefaultCounts() Counts {
	return Counts{Customers: 500, Transactions: 5000, Complaints: 1000}
}

// ── Value pools ──

var ukCities = []string{
	"London", "Manchester", "Birmingham", "Leeds", "Glasgow", "Liverpool",
	"Newcastle", "Sheffield", "Bristol", "Edinburgh", "Cardiff", "Belfast",
	"Nottingham", "Southampton", "Leicester", "Coventry", "Bradford", "Stoke-on-Trent",
}

var accountTypes = []string{
	"Current Account", "Savings Account", "ISA", "Business Account", "Student Account",
}

var products = []string{
	"1|2|3 Current Account", "Everyday Current Account", "Select Current Account",
	"eSaver", "Everyday Saver", "Help to Buy ISA", "Cash ISA", "Stocks & Shares ISA",
	"Personal Loan", "Mortgage", "Credit Card", "Business Current Account",
}

var transactionCategories = []string{
	"Groceries", "Utilities", "Entertainment", "Transport", "Dining",
	"Shopping", "Healthcare", "Education", "Travel", "Subscriptions",
	"Salary", "Transfer In", "Transfer Out", "ATM Withdrawal", "Direct Debit",
}

var complaintCategories = []string{
	"Account Access Issues", "Transaction Disputes", "Fee Complaints",
	"Customer Service", "Mobile App Issues", "Card Problems",
	"Loan/Mortgage Issues", "Fraud/Security", "Branch Service",
	"Online Banking", "Payment Delays", "Interest Rate Disputes",
}

var complaintChannels = []string{
	"Phone", "Email", "Branch", "Mobile App", "Online Chat", "Social Media",
}

var maleFirstNames = []string{
	"James", "Oliver", "Harry", "George", "William", "Jack", "Thomas", "Charlie",
	"Henry", "Daniel", "Michael", "Alexander", "Edward", "Samuel", "Joseph",
	"David", "Matthew", "Lewis", "Callum", "Aaron", "Liam", "Connor", "Owen",
}

var femaleFirstNames = []string{
	"Olivia", "Amelia", "Isla", "Emily", "Sophia", "Grace", "Lily", "Freya",
	"Charlotte", "Alice", "Jessica", "Emma", "Hannah", "Lucy", "Megan",
	"Chloe", "Katie", "Eleanor", "Rebecca", "Sarah", "Laura", "Rachel", "Bethany",
}

var lastNames = []string{
	"Smith", "Jones", "Taylor", "Brown", "Williams", "Wilson", "Johnson",
	"Davies", "Robinson", "Wright", "Thompson", "Evans", "Walker", "White",
	"Roberts", "Green", "Hall", "Wood", "Jackson", "Clarke", "Hughes",
	"Edwards", "Turner", "Hill", "Moore", "Clark", "Harrison", "Scott",
	"Morris", "Cooper", "Ward", "King", "Watson", "Baker", "Harris",
}

var streetNames = []string{
	"High Street", "Station Road", "Church Lane", "Victoria Road", "Mill Lane",
	"The Green", "Park Avenue", "Queens Road", "King Street", "Manor Drive",
	"Albert Road", "London Road", "Main Street", "Windsor Close", "York Way",
}

var emailDomains = []string{
	"gmail.com", "yahoo.co.uk", "hotmail.co.uk", "outlook.com", "btinternet.com",
	"icloud.com", "live.co.uk", "sky.com",
}

var transactionChannels = []string{"Online", "In-Store", "ATM", "Mobile App", "Direct Debit"}

var merchantsByCategory = map[string][]string{
	"Groceries":     {"Tesco", "Sainsbury's", "ASDA", "Morrisons", "Waitrose", "Aldi", "Lidl"},
	"Utilities":     {"British Gas", "EDF Energy", "Thames Water", "BT", "Sky", "Virgin Media"},
	"Transport":     {"TfL", "National Rail", "Uber", "Shell", "BP", "Esso"},
	"Dining":        {"Nando's", "Pizza Express", "Wagamama", "Costa", "Starbucks", "Pret"},
	"Entertainment": {"Netflix", "Spotify", "Amazon Prime", "Disney+", "Vue Cinema", "Odeon"},
}

var genericMerchants = []string{
	"Arcadia Trading Ltd", "Pennine Services", "Bluebird Retail", "Harbour & Sons",
	"Camden Supplies Co", "Westgate Holdings", "Fairview Group", "Lakeland Direct",
}

var complaintDescriptions = map[string][]string{
	"Account Access Issues": {
		"Unable to log into online banking for 3 days",
		"Password reset not working",
		"Account locked without explanation",
		"Two-factor authentication issues",
	},
	"Transaction Disputes": {
		"Unauthorized transaction on my account",
		"Double charged for a purchase",
		"Refund not received after 30 days",
		"Incorrect amount debited",
	},
	"Fee Complaints": {
		"Unexpected overdraft fee charged",
		"Monthly fee increased without notice",
		"Foreign transaction fee too high",
		"ATM withdrawal fee dispute",
	},
	"Customer Service": {
		"Long wait times on phone support",
		"Unhelpful staff at branch",
		"Promised callback never received",
		"Incorrect information provided",
	},
	"Mobile App Issues": {
		"App crashes when checking balance",
		"Cannot make payments through app",
		"Fingerprint login not working",
		"App shows incorrect balance",
	},
	"Card Problems": {
		"Card declined despite sufficient funds",
		"New card not received after 2 weeks",
		"Contactless payment not working",
		"Card blocked while travelling",
	},
	"Loan/Mortgage Issues": {
		"Incorrect interest rate applied",
		"Payment not reflected on account",
		"Early repayment fee dispute",
		"Mortgage application delayed",
	},
	"Fraud/Security": {
		"Suspicious activity not flagged",
		"Fraud alert triggered incorrectly",
		"Security breach concern",
		"Phishing email received",
	},
	"Branch Service": {
		"Branch closed without notice",
		"Long queues at branch",
		"Appointment not honored",
		"Documents lost by branch",
	},
	"Online Banking": {
		"Website down during payment",
		"Cannot download statements",
		"Transfer limit too restrictive",
		"Session timeout too short",
	},
	"Payment Delays": {
		"Salary not credited on time",
		"Standing order failed",
		"International transfer delayed",
		"Direct debit not processed",
	},
	"Interest Rate Disputes": {
		"Savings rate lower than advertised",
		"Variable rate increased unexpectedly",
		"Promotional rate not applied",
		"Interest calculation incorrect",
	},
}

// ── Random helpers ──

func pick(r *rand.Rand, pool []string) string {
	return pool[r.Intn(len(pool))]
}

// weightedIndex returns an index into weights, picked proportional to them.
func weightedIndex(r *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := r.Intn(total)
	for i, w := range weights {
		if n < w {
			return i
		}
		n -= w
	}
	return len(weights) - 1
}

func chance(r *rand.Rand, percent int) bool {
	return r.Intn(100) < percent
}

func normalClamped(r *rand.Rand, mean, stddev float64, lo, hi int) int {
	v := int(r.NormFloat64()*stddev + mean)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return round2(lo + r.Float64()*(hi-lo))
}

func ukPostcode(r *rand.Rand) string {
	const letters = "ABCDEFGHJKLMNPRSTUVWXY"
	return fmt.Sprintf("%c%c%d %d%c%c",
		letters[r.Intn(len(letters))], letters[r.Intn(len(letters))],
		1+r.Intn(20), 1+r.Intn(9),
		letters[r.Intn(len(letters))], letters[r.Intn(len(letters))])
}

// Generate produces a deterministic dataset for the given seed. The same
// seed and counts always yield byte-identical data.
func Generate(seed int64, counts Counts) *Data {
	r := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	customers := generateCustomers(r, now, counts.Customers)
	return &Data{
		Customers:       customers,
		Transactions:    generateTransactions(r, now, counts.Transactions, customers),
		Complaints:      generateComplaints(r, now, counts.Complaints, customers),
		ProductHoldings: generateProductHoldings(r),
	}
}

func generateCustomers(r *rand.Rand, now time.Time, n int) []Customer {
	customers := make([]Customer, 0, n)
	created := now.Format("2006-01-02 15:04:05")

	for i := 0; i < n; i++ {
		age := normalClamped(r, 45, 15, 18, 85)
		gender := []string{"Male", "Female", "Other"}[r.Intn(3)]

		var first string
		switch gender {
		case "Male":
			first = pick(r, maleFirstNames)
		case "Female":
			first = pick(r, femaleFirstNames)
		default:
			if chance(r, 50) {
				first = pick(r, maleFirstNames)
			} else {
				first = pick(r, femaleFirstNames)
			}
		}
		last := pick(r, lastNames)

		// Income skews with career stage.
		var bracket string
		switch {
		case age < 25:
			bracket = pick(r, []string{"0-20k", "20k-35k", "35k-50k"})
		case age < 35:
			bracket = pick(r, []string{"20k-35k", "35k-50k", "50k-75k", "75k-100k"})
		case age < 55:
			bracket = pick(r, []string{"35k-50k", "50k-75k", "75k-100k", "100k+"})
		default:
			bracket = pick(r, []string{"20k-35k", "35k-50k", "50k-75k"})
		}

		balance := uniform(r, 100, 50000)
		segment := "Standard"
		if balance > 25000 || bracket == "75k-100k" || bracket == "100k+" {
			segment = "Premium"
		} else if balance > 10000 {
			segment = "Standard Plus"
		}

		openDate := now.AddDate(0, 0, -r.Intn(365*10)).Format("2006-01-02")

		customers = append(customers, Customer{
			CustomerID:  fmt.Sprintf("SAN%d", 100000+i),
			FirstName:   first,
			LastName:    last,
			Email:       fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), i, pick(r, emailDomains)),
			Phone:       fmt.Sprintf("+44 7%03d %06d", r.Intn(1000), r.Intn(1000000)),
			DateOfBirth: now.AddDate(-age, 0, 0).Format("2006-01-02"),
			Age:         age,
			Gender:      gender,
			Address:     fmt.Sprintf("%d %s", 1+r.Intn(200), pick(r, streetNames)),
			City:        pick(r, ukCities),
			Postcode:    ukPostcode(r),
			AccountType: pick(r, accountTypes),
			AccountNumber: fmt.Sprintf("%08d",
				10000000+r.Intn(90000000)),
			SortCode: fmt.Sprintf("%02d-%02d-%02d",
				10+r.Intn(90), 10+r.Intn(90), 10+r.Intn(90)),
			AccountOpenDate:  openDate,
			Balance:          balance,
			IncomeBracket:    bracket,
			CreditScore:      normalClamped(r, 680, 80, 300, 850),
			NumProducts:      1 + weightedIndex(r, []int{30, 35, 20, 10, 5}),
			CustomerSegment:  segment,
			IsActive:         chance(r, 95),
			HasMobileApp:     chance(r, 70),
			HasOnlineBanking: chance(r, 85),
			MarketingConsent: chance(r, 60),
			CreatedAt:        created,
			UpdatedAt:        created,
		})
	}
	return customers
}

func generateTransactions(r *rand.Rand, now time.Time, n int, customers []Customer) []Transaction {
	txns := make([]Transaction, 0, n)
	created := now.Format("2006-01-02 15:04:05")

	for i := 0; i < n; i++ {
		customer := customers[r.Intn(len(customers))]
		when := now.Add(-time.Duration(r.Intn(365*24*60)) * time.Minute)
		category := pick(r, transactionCategories)

		var txnType string
		var amount float64
		switch category {
		case "Salary", "Transfer In":
			txnType = "Credit"
			amount = uniform(r, 500, 5000)
		case "Transfer Out", "ATM Withdrawal":
			txnType = "Debit"
			amount = uniform(r, 20, 500)
		default:
			txnType = "Debit"
			amount = uniform(r, 5, 200)
		}

		merchant := pick(r, genericMerchants)
		if pool, ok := merchantsByCategory[category]; ok {
			merchant = pick(r, pool)
		}

		txns = append(txns, Transaction{
			TransactionID:        fmt.Sprintf("TXN%d", 1000000+i),
			CustomerID:           customer.CustomerID,
			TransactionDate:      when.Format("2006-01-02"),
			TransactionTime:      when.Format("15:04:05"),
			TransactionType:      txnType,
			Category:             category,
			Amount:               amount,
			Currency:             "GBP",
			MerchantName:         merchant,
			MerchantCategoryCode: 1000 + r.Intn(9000),
			Channel:              pick(r, transactionChannels),
			Location:             pick(r, ukCities),
			IsInternational:      chance(r, 5),
			IsRecurring:          chance(r, 20),
			Status:               []string{"Completed", "Pending", "Failed"}[weightedIndex(r, []int{95, 3, 2})],
			CreatedAt:            created,
		})
	}
	return txns
}

func generateComplaints(r *rand.Rand, now time.Time, n int, customers []Customer) []Complaint {
	complaints := make([]Complaint, 0, n)

	// 10% of customers file 3 to 8 complaints each; the rest of the volume
	// is spread randomly.
	repeatCount := len(customers) / 10
	perm := r.Perm(len(customers))
	for _, idx := range perm[:repeatCount] {
		for j := r.Intn(6) + 3; j > 0 && len(complaints) < n; j-- {
			complaints = append(complaints, newComplaint(r, now, len(complaints), customers[idx]))
		}
	}
	for len(complaints) < n {
		customer := customers[r.Intn(len(customers))]
		complaints = append(complaints, newComplaint(r, now, len(complaints), customer))
	}

	// Outliers: 5% get suspicious resolution times, 3% high compensation.
	for _, idx := range r.Perm(len(complaints))[:len(complaints)*5/100] {
		days := 0
		if chance(r, 50) {
			days = 90 + r.Intn(91)
		}
		complaints[idx].ResolutionDays = &days
	}
	for _, idx := range r.Perm(len(complaints))[:len(complaints)*3/100] {
		complaints[idx].CompensationAmount = uniform(r, 500, 2000)
	}
	return complaints
}

func newComplaint(r *rand.Rand, now time.Time, id int, customer Customer) Complaint {
	filed := now.Add(-time.Duration(r.Intn(540*24*60)) * time.Minute)

	days := int(r.ExpFloat64() * 14)
	if days < 1 {
		days = 1
	}
	if days > 60 {
		days = 60
	}
	resolved := filed.AddDate(0, 0, days)

	c := Complaint{
		ComplaintID:     fmt.Sprintf("CMP%d", 100000+id),
		CustomerID:      customer.CustomerID,
		CustomerAge:     customer.Age,
		CustomerGender:  customer.Gender,
		CustomerSegment: customer.CustomerSegment,
		CustomerCity:    customer.City,
		ComplaintDate:   filed.Format("2006-01-02"),
		ComplaintTime:   filed.Format("15:04:05"),
		Category:        pick(r, complaintCategories),
		Severity:        []string{"Low", "Medium", "High", "Critical"}[weightedIndex(r, []int{40, 35, 20, 5})],
		Channel:         pick(r, complaintChannels),
		ProductInvolved: pick(r, products),
		CreatedAt:       now.Format("2006-01-02 15:04:05"),
		UpdatedAt:       now.Format("2006-01-02 15:04:05"),
	}
	c.Description = pick(r, complaintDescriptions[c.Category])

	if resolved.After(now) {
		c.Status = pick(r, []string{"Open", "In Progress", "Escalated"})
	} else {
		c.Status = pick(r, []string{"Resolved", "Closed"})
		date := resolved.Format("2006-01-02")
		c.ResolutionDate = &date
		c.ResolutionDays = &days
		score := 1 + r.Intn(5)
		c.SatisfactionScore = &score
		if chance(r, 30) {
			c.CompensationAmount = uniform(r, 10, 200)
		}
	}

	c.Escalated = (c.Severity == "High" || c.Severity == "Critical") && chance(r, 50)
	if chance(r, 50) {
		branch := fmt.Sprintf("BR%d", 100+r.Intn(900))
		c.BranchCode = &branch
	}
	return c
}

func generateProductHoldings(r *rand.Rand) []ProductHolding {
	holdings := make([]ProductHolding, 0, len(products))
	for _, name := range products {
		holdings = append(holdings, ProductHolding{
			ProductName:          name,
			TotalCustomers:       5000 + r.Intn(95000),
			AvgBalance:           uniform(r, 1000, 50000),
			AvgCustomerAge:       float64(int((25+r.Float64()*30)*10)) / 10,
			RevenueContribution:  uniform(r, 100000, 5000000),
			CustomerSatisfaction: round2(3.0 + r.Float64()*1.8),
			ChurnRate:            float64(int((0.02+r.Float64()*0.13)*10000)) / 10000,
			GrowthRate:           float64(int((-0.05+r.Float64()*0.25)*10000)) / 10000,
			AvgTenureMonths:      12 + r.Intn(108),
			DigitalAdoptionRate:  round2(0.3 + r.Float64()*0.65),
		})
	}
	return holdings
}
