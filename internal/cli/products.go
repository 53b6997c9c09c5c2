package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	listMainCategory string
	listSubCategory  string
	listLimit        int
	listOffset       int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List products in storage order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getCatalog()
		if err != nil {
			return err
		}
		var mainCategory, subCategory *string
		if cmd.Flags().Changed("main-category") {
			mainCategory = &listMainCategory
		}
		if cmd.Flags().Changed("sub-category") {
			subCategory = &listSubCategory
		}
		products, err := svc.List(context.Background(), cfg.Collection, listLimit, listOffset, mainCategory, subCategory)
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		if len(products) == 0 {
			fmt.Println("No products.")
			return nil
		}
		for i, p := range products {
			printProduct(listOffset+i+1, p)
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one product by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("product id must be an integer")
		}
		svc, err := getCatalog()
		if err != nil {
			return err
		}
		p, err := svc.Get(context.Background(), cfg.Collection, id)
		if err != nil {
			return fmt.Errorf("get product %d: %w", id, err)
		}
		printProduct(1, p)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one product by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("product id must be an integer")
		}
		svc, err := getCatalog()
		if err != nil {
			return err
		}
		if err := svc.Delete(context.Background(), cfg.Collection, id); err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		fmt.Printf("Product %d deleted.\n", id)
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List all categories and their sub-categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getCatalog()
		if err != nil {
			return err
		}
		categories, err := svc.ListCategories(context.Background(), cfg.Collection)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		if len(categories) == 0 {
			fmt.Println("No categories.")
			return nil
		}
		mains := make([]string, 0, len(categories))
		for main := range categories {
			mains = append(mains, main)
		}
		sort.Strings(mains)
		for _, main := range mains {
			fmt.Println(main)
			for _, sub := range categories[main] {
				fmt.Printf("  %s\n", sub)
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listMainCategory, "main-category", "", "filter by main category")
	listCmd.Flags().StringVar(&listSubCategory, "sub-category", "", "filter by sub category (requires --main-category)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "max results")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "pagination offset")
}
