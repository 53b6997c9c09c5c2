package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var createCollectionCmd = &cobra.Command{
	Use:   "create-collection",
	Short: "Create the product collection in the vector database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getCatalog()
		if err != nil {
			return err
		}
		if svc.CreateCollection(context.Background(), cfg.Collection) {
			fmt.Printf("Collection %q created.\n", cfg.Collection)
		} else {
			fmt.Printf("Collection %q not created (it may already exist).\n", cfg.Collection)
		}
		return nil
	},
}

var deleteCollectionCmd = &cobra.Command{
	Use:   "delete-collection",
	Short: "Delete the product collection and all its products",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getCatalog()
		if err != nil {
			return err
		}
		if err := svc.DeleteCollection(context.Background(), cfg.Collection); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
		fmt.Printf("Collection %q deleted.\n", cfg.Collection)
		return nil
	},
}
