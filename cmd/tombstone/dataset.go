// Dataset commands manage the banking demo dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/joao-cognition/devin-workshop/internal/dataset"
)

var (
	datasetSeed         int64
	datasetCustomers    int
	datasetTransactions int
	datasetComplaints   int
	datasetQueriesOut   string
	datasetDriver       string
	datasetDSN          string
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Generate, load, verify, and query the banking demo dataset",
}

var datasetGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the demo dataset and workshop query files",
	Long: `Generate builds the synthetic banking dataset (customers, transactions,
complaints, product holdings), loads it into the SQLite dataset file in
the data directory, and writes the workshop .sql query files to
--queries-out. Generation is deterministic for a given seed.`,
	Args: cobra.NoArgs,
	RunE: runDatasetGenerate,
}

var datasetLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the generated dataset into SQLite or Postgres",
	Args:  cobra.NoArgs,
	RunE:  runDatasetLoad,
}

var datasetVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check row counts and samples of the loaded dataset",
	Args:  cobra.NoArgs,
	RunE:  runDatasetVerify,
}

var datasetQueryCmd = &cobra.Command{
	Use:   "query <name>",
	Short: "Run one of the workshop analysis queries",
	Long: `Query runs a named workshop analysis against the loaded dataset and
prints the rows as JSON.

Valid names: segment-demographics, monthly-debit-volume,
resolution-by-category, repeat-complainers`,
	Args: cobra.ExactArgs(1),
	RunE: runDatasetQuery,
}

func init() {
	for _, c := range []*cobra.Command{datasetGenerateCmd, datasetLoadCmd} {
		c.Flags().Int64Var(&datasetSeed, "seed", 42, "random seed")
		c.Flags().IntVar(&datasetCustomers, "customers", dataset.DefaultCounts().Customers, "customer rows")
		c.Flags().IntVar(&datasetTransactions, "transactions", dataset.DefaultCounts().Transactions, "transaction rows")
		c.Flags().IntVar(&datasetComplaints, "complaints", dataset.DefaultCounts().Complaints, "complaint rows")
	}
	datasetGenerateCmd.Flags().StringVar(&datasetQueriesOut, "queries-out", "queries", "directory for the workshop .sql files")
	datasetLoadCmd.Flags().StringVar(&datasetDriver, "driver", "sqlite", "target driver: sqlite or postgres")
	datasetLoadCmd.Flags().StringVar(&datasetDSN, "dsn", "", "Postgres connection string for --driver postgres")

	datasetCmd.AddCommand(datasetGenerateCmd)
	datasetCmd.AddCommand(datasetLoadCmd)
	datasetCmd.AddCommand(datasetVerifyCmd)
	datasetCmd.AddCommand(datasetQueryCmd)
}

func datasetCounts() (dataset.Counts, error) {
	c := dataset.Counts{
		Customers:    datasetCustomers,
		Transactions: datasetTransactions,
		Complaints:   datasetComplaints,
	}
	if c.Customers <= 0 || c.Transactions <= 0 || c.Complaints <= 0 {
		return c, usageErrorf("row counts must be positive")
	}
	return c, nil
}

func runDatasetGenerate(cmd *cobra.Command, args []string) error {
	counts, err := datasetCounts()
	if err != nil {
		return err
	}

	data := dataset.Generate(datasetSeed, counts)
	if err := loadSQLite(cmd.Context(), data); err != nil {
		return err
	}

	if err := os.MkdirAll(datasetQueriesOut, 0o755); err != nil {
		return fmt.Errorf("create queries dir: %w", err)
	}
	files := dataset.QueryFiles()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(datasetQueriesOut, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	fmt.Printf("Generated %d customers, %d transactions, %d complaints, %d holdings.\n",
		len(data.Customers), len(data.Transactions), len(data.Complaints), len(data.ProductHoldings))
	fmt.Printf("Wrote %d query files to %s.\n", len(files), datasetQueriesOut)
	return nil
}

func runDatasetLoad(cmd *cobra.Command, args []string) error {
	counts, err := datasetCounts()
	if err != nil {
		return err
	}
	data := dataset.Generate(datasetSeed, counts)
	ctx := cmd.Context()

	switch datasetDriver {
	case "sqlite":
		if err := loadSQLite(ctx, data); err != nil {
			return err
		}
	case "postgres":
		if datasetDSN == "" {
			return usageErrorf("--driver postgres requires --dsn")
		}
		pool, err := pgxpool.New(ctx, datasetDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := dataset.LoadPostgres(ctx, pool, data); err != nil {
			return fmt.Errorf("load postgres: %w", err)
		}
	default:
		return usageErrorf("unknown driver %q (valid: sqlite, postgres)", datasetDriver)
	}

	fmt.Printf("Loaded %d customers, %d transactions, %d complaints, %d holdings into %s.\n",
		len(data.Customers), len(data.Transactions), len(data.Complaints), len(data.ProductHoldings), datasetDriver)
	return nil
}

// loadSQLite writes the dataset into the SQLite file in the data directory.
func loadSQLite(ctx context.Context, data *dataset.Data) error {
	path, err := datasetPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	store, err := dataset.Open(path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer store.Close()

	if err := store.Load(ctx, data); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	return nil
}

func runDatasetVerify(cmd *cobra.Command, args []string) error {
	store, err := openDataset()
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := store.Verify(cmd.Context())
	if err != nil {
		return fmt.Errorf("verify dataset: %w", err)
	}

	if flagJSON {
		return printJSON(result)
	}

	tables := make([]string, 0, len(result.TableCounts))
	for name := range result.TableCounts {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	fmt.Println("Row counts:")
	for _, name := range tables {
		fmt.Printf("  %-18s %d\n", name, result.TableCounts[name])
	}
	fmt.Println("\nTop customers by transactions:")
	for _, c := range result.TopCustomers {
		fmt.Printf("  %s  %s %s  %d transactions, %.2f total\n",
			c.CustomerID, c.FirstName, c.LastName, c.Transactions, c.TotalAmount)
	}
	return nil
}

func runDatasetQuery(cmd *cobra.Command, args []string) error {
	store, err := openDataset()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	var rows any
	switch args[0] {
	case "segment-demographics":
		rows, err = store.SegmentDemographics(ctx)
	case "monthly-debit-volume":
		rows, err = store.MonthlyDebitVolume(ctx)
	case "resolution-by-category":
		rows, err = store.ResolutionByCategory(ctx)
	case "repeat-complainers":
		rows, err = store.RepeatComplainers(ctx)
	default:
		return usageErrorf("unknown query %q (valid: segment-demographics, monthly-debit-volume, resolution-by-category, repeat-complainers)", args[0])
	}
	if err != nil {
		return fmt.Errorf("query %s: %w", args[0], err)
	}
	return printJSON(rows)
}

// openDataset opens the SQLite dataset file, failing when it was never
// generated.
func openDataset() (*dataset.Store, error) {
	path, err := datasetPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("dataset not found at %s: run `tombstone dataset generate` first", path)
	}
	store, err := dataset.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return store, nil
}
