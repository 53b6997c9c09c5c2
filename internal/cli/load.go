package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"cartpilot/internal/catalog"
	"cartpilot/internal/ingest"
)

var (
	loadLimit      int
	loadBatchSize  int
	loadDuplicates bool
)

var loadCmd = &cobra.Command{
	Use:   "load <file.csv>",
	Short: "Load products from a CSV file into the collection",
	Long: `Load products from the Amazon products CSV dump.

Rows without a usable name are skipped, prices are converted to USD,
and product ids follow row order so repeated loads are stable.

Examples:
  cartpilot load products.csv
  cartpilot load products.csv --limit 1000 --batch-size 200`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().IntVarP(&loadLimit, "limit", "n", 0, "max products to load (0 = all)")
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", catalog.DefaultBatchSize, "upsert batch size")
	loadCmd.Flags().BoolVar(&loadDuplicates, "allow-duplicates", false, "skip the duplicate-id screening")
}

func runLoad(cmd *cobra.Command, args []string) error {
	svc, err := getCatalog()
	if err != nil {
		return err
	}

	products, err := ingest.LoadFile(args[0], loadLimit)
	if err != nil {
		return fmt.Errorf("load csv: %w", err)
	}
	fmt.Printf("Loaded %d products from %s, ingesting...\n", len(products), args[0])

	report := svc.AddProducts(context.Background(), cfg.Collection, products, loadBatchSize, !loadDuplicates)

	fmt.Printf("Ingested %d products, %d failed.\n", len(report.Successful), len(report.Failed))
	if len(report.Failed) > 0 && verbose {
		ids := make([]int, 0, len(report.Failed))
		for id := range report.Failed {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Printf("  %d: %s\n", id, report.Failed[id])
		}
	}
	return nil
}
