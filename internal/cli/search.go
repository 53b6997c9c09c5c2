package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cartpilot/internal/models"
)

var (
	searchMainCategory string
	searchSubCategory  string
	searchPriceMin     float64
	searchPriceMax     float64
	searchLimit        int
	searchOffset       int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Hybrid semantic + keyword product search",
	Long: `Search the catalog with hybrid retrieval: a semantic branch and a
keyword branch run in parallel and their rankings are fused.

Examples:
  cartpilot search "wireless headphones"
  cartpilot search "running shoes" --main-category "sports & fitness"
  cartpilot search "laptop" --price-max 800 --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchMainCategory, "main-category", "", "filter by main category")
	searchCmd.Flags().StringVar(&searchSubCategory, "sub-category", "", "filter by sub category (requires --main-category)")
	searchCmd.Flags().Float64Var(&searchPriceMin, "price-min", 0, "minimum price in USD")
	searchCmd.Flags().Float64Var(&searchPriceMax, "price-max", 0, "maximum price in USD")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "pagination offset")
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := getCatalog()
	if err != nil {
		return err
	}

	q := models.SearchQuery{
		Query:  args[0],
		Limit:  searchLimit,
		Offset: searchOffset,
	}
	if cmd.Flags().Changed("main-category") {
		q.MainCategory = &searchMainCategory
	}
	if cmd.Flags().Changed("sub-category") {
		q.SubCategory = &searchSubCategory
	}
	if cmd.Flags().Changed("price-min") {
		q.PriceMin = &searchPriceMin
	}
	if cmd.Flags().Changed("price-max") {
		q.PriceMax = &searchPriceMax
	}

	products, err := svc.Search(context.Background(), cfg.Collection, q)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(products) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results:\n\n", len(products))
	for i, p := range products {
		printProduct(i+1, p)
	}
	return nil
}

func printProduct(rank int, p models.Product) {
	fmt.Printf("%d. %s (id %d)\n", rank, p.Name, p.ID)
	if p.MainCategory != nil {
		if p.SubCategory != nil {
			fmt.Printf("   %s > %s\n", *p.MainCategory, *p.SubCategory)
		} else {
			fmt.Printf("   %s\n", *p.MainCategory)
		}
	}
	if p.DiscountPrice != nil {
		fmt.Printf("   $%.2f", *p.DiscountPrice)
		if p.ActualPrice != nil && *p.ActualPrice > *p.DiscountPrice {
			fmt.Printf(" (was $%.2f)", *p.ActualPrice)
		}
		fmt.Println()
	}
	if p.Ratings != nil {
		fmt.Printf("   %.1f/5", *p.Ratings)
		if p.NoOfRatings != nil {
			fmt.Printf(" (%d ratings)", *p.NoOfRatings)
		}
		fmt.Println()
	}
	if verbose && p.Link != nil {
		fmt.Printf("   %s\n", *p.Link)
	}
	fmt.Println()
}
