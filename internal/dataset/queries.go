package dataset

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// The four workshop analyses. Each has a store method and a .sql rendering
// via QueryFiles so the same statements ship as standalone files.

const (
	segmentDemographicsSQL = `-- Customer demographics by segment
SELECT customer_segment,
       COUNT(*) AS customer_count,
       AVG(age) AS avg_age,
       AVG(balance) AS avg_balance,
       AVG(credit_score) AS avg_credit_score
FROM customers
GROUP BY customer_segment
ORDER BY customer_count DESC`

	monthlyDebitVolumeSQL = `-- Monthly transaction volume for debits
SELECT strftime('%Y-%m', transaction_date) AS month,
       COUNT(*) AS transaction_count,
       SUM(amount) AS total_amount,
       AVG(amount) AS avg_amount
FROM transactions
WHERE transaction_type = 'Debit'
GROUP BY month
ORDER BY month`

	resolutionByCategorySQL = `-- Complaint resolution analysis by category
SELECT category,
       COUNT(*) AS complaint_count,
       AVG(resolution_days) AS avg_resolution_days,
       AVG(compensation_amount) AS avg_compensation,
       SUM(CASE WHEN status IN ('Resolved', 'Closed') THEN 1 ELSE 0 END) AS resolved_count
FROM complaints
GROUP BY category
ORDER BY complaint_count DESC`

	repeatComplainersSQL = `-- Customers with more than two complaints
SELECT customer_id,
       COUNT(*) AS complaint_count,
       SUM(compensation_amount) AS total_compensation
FROM complaints
GROUP BY customer_id
HAVING COUNT(*) > 2
ORDER BY complaint_count DESC`
)

// QueryFiles maps workshop query filenames to their SQL text.
func QueryFiles() map[string]string {
	return map[string]string{
		"query_segment_demographics.sql":   segmentDemographicsSQL + "\n",
		"query_monthly_debit_volume.sql":   monthlyDebitVolumeSQL + "\n",
		"query_resolution_by_category.sql": resolutionByCategorySQL + "\n",
		"query_repeat_complainers.sql":     repeatComplainersSQL + "\n",
	}
}

// SegmentStats is one row of the demographics-by-segment analysis.
type SegmentStats struct {
	Segment        string  `db:"customer_segment" json:"customer_segment"`
	CustomerCount  int     `db:"customer_count" json:"customer_count"`
	AvgAge         float64 `db:"avg_age" json:"avg_age"`
	AvgBalance     float64 `db:"avg_balance" json:"avg_balance"`
	AvgCreditScore float64 `db:"avg_credit_score" json:"avg_credit_score"`
}

// SegmentDemographics runs the demographics-by-segment analysis.
func (s *Store) SegmentDemographics(ctx context.Context) ([]SegmentStats, error) {
	var rows []SegmentStats
	if err := s.db.SelectContext(ctx, &rows, segmentDemographicsSQL); err != nil {
		return nil, fmt.Errorf("segment demographics: %w", err)
	}
	return rows, nil
}

// MonthlyVolume is one month of the debit volume analysis.
type MonthlyVolume struct {
	Month            string  `db:"month" json:"month"`
	TransactionCount int     `db:"transaction_count" json:"transaction_count"`
	TotalAmount      float64 `db:"total_amount" json:"total_amount"`
	AvgAmount        float64 `db:"avg_amount" json:"avg_amount"`
}

// MonthlyDebitVolume runs the monthly debit volume analysis.
func (s *Store) MonthlyDebitVolume(ctx context.Context) ([]MonthlyVolume, error) {
	var rows []MonthlyVolume
	if err := s.db.SelectContext(ctx, &rows, monthlyDebitVolumeSQL); err != nil {
		return nil, fmt.Errorf("monthly debit volume: %w", err)
	}
	return rows, nil
}

// CategoryResolution is one row of the resolution-by-category analysis.
type CategoryResolution struct {
	Category          string   `db:"category" json:"category"`
	ComplaintCount    int      `db:"complaint_count" json:"complaint_count"`
	AvgResolutionDays *float64 `db:"avg_resolution_days" json:"avg_resolution_days"`
	AvgCompensation   float64  `db:"avg_compensation" json:"avg_compensation"`
	ResolvedCount     int      `db:"resolved_count" json:"resolved_count"`
}

// ResolutionByCategory runs the complaint resolution analysis.
func (s *Store) ResolutionByCategory(ctx context.Context) ([]CategoryResolution, error) {
	var rows []CategoryResolution
	if err := s.db.SelectContext(ctx, &rows, resolutionByCategorySQL); err != nil {
		return nil, fmt.Errorf("resolution by category: %w", err)
	}
	return rows, nil
}

// RepeatComplainer is one row of the repeat-complainers analysis.
type RepeatComplainer struct {
	CustomerID        string  `db:"customer_id" json:"customer_id"`
	ComplaintCount    int     `db:"complaint_count" json:"complaint_count"`
	TotalCompensation float64 `db:"total_compensation" json:"total_compensation"`
}

// RepeatComplainers returns customers with more than two complaints.
func (s *Store) RepeatComplainers(ctx context.Context) ([]RepeatComplainer, error) {
	var rows []RepeatComplainer
	if err := s.db.SelectContext(ctx, &rows, repeatComplainersSQL); err != nil {
		return nil, fmt.Errorf("repeat complainers: %w", err)
	}
	return rows, nil
}

// ── Complaint dashboard statistics ──

// ComplaintFilter narrows the dashboard queries. Zero values match
// everything; From and To are inclusive YYYY-MM-DD bounds.
type ComplaintFilter struct {
	Category string
	Severity string
	Status   string
	Segment  string
	From     string
	To       string
}

// where renders the filter as a WHERE clause over the complaints table.
func (f ComplaintFilter) where() (string, []any) {
	var conditions []string
	var args []any
	if f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, f.Category)
	}
	if f.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, f.Severity)
	}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}
	if f.Segment != "" {
		conditions = append(conditions,
			"customer_id IN (SELECT customer_id FROM customers WHERE customer_segment = ?)")
		args = append(args, f.Segment)
	}
	if f.From != "" {
		conditions = append(conditions, "complaint_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		conditions = append(conditions, "complaint_date <= ?")
		args = append(args, f.To)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ComplaintStats mirrors the dashboard key-metric strip.
type ComplaintStats struct {
	Total             int     `json:"total"`
	AvgResolution     float64 `json:"avg_resolution"`
	MedianResolution  float64 `json:"median_resolution"`
	TotalCompensation float64 `json:"total_compensation"`
	AvgCompensation   float64 `json:"avg_compensation"`
	RepeatComplainers int     `json:"repeat_complainers"`
}

// ComplaintDashboardStats computes the headline complaint metrics. Missing
// resolution days count as zero, matching the dashboard's fillna behavior.
func (s *Store) ComplaintDashboardStats(ctx context.Context, f ComplaintFilter) (*ComplaintStats, error) {
	stats := &ComplaintStats{}
	where, args := f.where()

	aggQuery := `
		SELECT COUNT(*) AS total,
		       COALESCE(AVG(COALESCE(resolution_days, 0)), 0) AS avg_resolution,
		       COALESCE(SUM(compensation_amount), 0) AS total_compensation,
		       COALESCE(AVG(compensation_amount), 0) AS avg_compensation
		FROM complaints` + where
	row := struct {
		Total             int     `db:"total"`
		AvgResolution     float64 `db:"avg_resolution"`
		TotalCompensation float64 `db:"total_compensation"`
		AvgCompensation   float64 `db:"avg_compensation"`
	}{}
	if err := s.db.GetContext(ctx, &row, aggQuery, args...); err != nil {
		return nil, fmt.Errorf("complaint aggregates: %w", err)
	}
	stats.Total = row.Total
	stats.AvgResolution = row.AvgResolution
	stats.TotalCompensation = row.TotalCompensation
	stats.AvgCompensation = row.AvgCompensation

	if err := s.db.GetContext(ctx, &stats.RepeatComplainers, `
		SELECT COUNT(*) FROM (
			SELECT customer_id FROM complaints`+where+`
			GROUP BY customer_id HAVING COUNT(*) >= 3
		)`, args...); err != nil {
		return nil, fmt.Errorf("repeat complainer count: %w", err)
	}

	var days []float64
	if err := s.db.SelectContext(ctx, &days,
		"SELECT COALESCE(resolution_days, 0) FROM complaints"+where+" ORDER BY 1", args...); err != nil {
		return nil, fmt.Errorf("resolution days: %w", err)
	}
	stats.MedianResolution = median(days)
	return stats, nil
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if !sort.Float64sAreSorted(sorted) {
		sort.Float64s(sorted)
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// TimeseriesPoint is one bucket of the complaints-over-time series.
type TimeseriesPoint struct {
	Period          string  `db:"period" json:"period"`
	Count           int     `db:"count" json:"count"`
	AvgCompensation float64 `db:"avg_compensation" json:"avg_compensation"`
}

// ComplaintTimeseries buckets complaints by day, ISO week, or month.
func (s *Store) ComplaintTimeseries(ctx context.Context, granularity string, f ComplaintFilter) ([]TimeseriesPoint, error) {
	var bucket string
	switch granularity {
	case "daily":
		bucket = "strftime('%Y-%m-%d', complaint_date)"
	case "weekly":
		bucket = "strftime('%Y-W%W', complaint_date)"
	case "monthly":
		bucket = "strftime('%Y-%m', complaint_date)"
	default:
		return nil, fmt.Errorf("unknown granularity %q", granularity)
	}

	where, args := f.where()
	query := fmt.Sprintf(`
		SELECT %s AS period,
		       COUNT(*) AS count,
		       COALESCE(AVG(compensation_amount), 0) AS avg_compensation
		FROM complaints%s
		GROUP BY period
		ORDER BY period`, bucket, where)

	var rows []TimeseriesPoint
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("complaint timeseries: %w", err)
	}
	return rows, nil
}

// CategoryBreakdown is one row of the by-category dashboard panel.
type CategoryBreakdown struct {
	Category        string   `db:"category" json:"category"`
	Count           int      `db:"count" json:"count"`
	AvgCompensation float64  `db:"avg_compensation" json:"avg_compensation"`
	AvgResolution   *float64 `db:"avg_resolution" json:"avg_resolution"`
}

// ComplaintCategories returns complaint counts and averages per category,
// busiest category first.
func (s *Store) ComplaintCategories(ctx context.Context, f ComplaintFilter) ([]CategoryBreakdown, error) {
	where, args := f.where()
	var rows []CategoryBreakdown
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT category,
		       COUNT(*) AS count,
		       COALESCE(AVG(compensation_amount), 0) AS avg_compensation,
		       AVG(resolution_days) AS avg_resolution
		FROM complaints`+where+`
		GROUP BY category
		ORDER BY count DESC`, args...); err != nil {
		return nil, fmt.Errorf("complaint categories: %w", err)
	}
	return rows, nil
}

// OutlierComplaint is a trimmed complaint row for the outlier panels.
type OutlierComplaint struct {
	ComplaintID        string  `db:"complaint_id" json:"complaint_id"`
	CustomerID         string  `db:"customer_id" json:"customer_id"`
	Category           string  `db:"category" json:"category"`
	Severity           string  `db:"severity" json:"severity"`
	ResolutionDays     *int    `db:"resolution_days" json:"resolution_days"`
	CompensationAmount float64 `db:"compensation_amount" json:"compensation_amount"`
}

// ComplaintOutliers groups the three dashboard outlier panels.
type ComplaintOutliers struct {
	LongResolution   []OutlierComplaint `json:"long_resolution"`
	HighCompensation []OutlierComplaint `json:"high_compensation"`
	ZeroDay          []OutlierComplaint `json:"zero_day"`
}

const outlierColumns = `complaint_id, customer_id, category, severity,
	resolution_days, compensation_amount`

// ComplaintOutlierReport returns the top ten complaints per outlier class:
// resolution over 60 days, compensation over 300, and zero-day resolution.
func (s *Store) ComplaintOutlierReport(ctx context.Context, f ComplaintFilter) (*ComplaintOutliers, error) {
	out := &ComplaintOutliers{}
	where, args := f.where()
	and := func(condition string) string {
		if where == "" {
			return " WHERE " + condition
		}
		return where + " AND " + condition
	}

	if err := s.db.SelectContext(ctx, &out.LongResolution, fmt.Sprintf(`
		SELECT %s FROM complaints%s
		ORDER BY resolution_days DESC LIMIT 10`,
		outlierColumns, and("resolution_days > 60")), args...); err != nil {
		return nil, fmt.Errorf("long resolution outliers: %w", err)
	}
	if err := s.db.SelectContext(ctx, &out.HighCompensation, fmt.Sprintf(`
		SELECT %s FROM complaints%s
		ORDER BY compensation_amount DESC LIMIT 10`,
		outlierColumns, and("compensation_amount > 300")), args...); err != nil {
		return nil, fmt.Errorf("high compensation outliers: %w", err)
	}
	if err := s.db.SelectContext(ctx, &out.ZeroDay, fmt.Sprintf(`
		SELECT %s FROM complaints%s
		ORDER BY complaint_id LIMIT 10`,
		outlierColumns, and("resolution_days = 0")), args...); err != nil {
		return nil, fmt.Errorf("zero day outliers: %w", err)
	}
	return out, nil
}
