// Package cli provides the command-line interface for cartpilot.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cartpilot/internal/catalog"
	"cartpilot/internal/config"
	"cartpilot/internal/embedding"
	"cartpilot/internal/llm"
	"cartpilot/internal/vectorstore/qdrant"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	cfgFile string

	// Global config and vector store client
	cfg   config.Config
	store *qdrant.Store

	// Lazy-initialized components
	catalogSvc *catalog.Service
	model      *llm.Model

	closeLogger func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cartpilot",
	Short: "Hybrid product search with a shopping assistant",
	Long: `Cartpilot is a product catalog with hybrid semantic + keyword search
over a vector database, plus a conversational shopping assistant that
collects your preferences and recommends products.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// .env is optional
		_ = godotenv.Load()

		cfg = config.Load()
		if cfgFile != "" {
			if err := config.LoadFile(cfgFile, &cfg); err != nil {
				return fmt.Errorf("load config file: %w", err)
			}
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		var logger *slog.Logger
		logger, closeLogger = config.NewLogger(&cfg)
		slog.SetDefault(logger)

		store = qdrant.New(qdrant.Config{URL: cfg.QdrantURL, APIKey: cfg.QdrantAPIKey})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogger != nil {
			if err := closeLogger(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// getCatalog builds the retrieval service, creating the dense embedder
// on first use.
func getCatalog() (*catalog.Service, error) {
	if catalogSvc == nil {
		dense, err := embedding.NewDense(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
		catalogSvc = catalog.New(store, dense, embedding.NewBM25())
	}
	return catalogSvc, nil
}

// getModel builds the chat completion model on first use.
func getModel() (*llm.Model, error) {
	if model == nil {
		var err error
		model, err = llm.NewModel(cfg)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}
	return model, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	rootCmd.AddCommand(createCollectionCmd)
	rootCmd.AddCommand(deleteCollectionCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(chatCmd)
}
