package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cfgPkg "github.com/xhad/sourcebook/pkg/config"
)

var (
	configPath string
	ollamaURL  string
	dbURL      string
	backend    string
	storePath  string
)

var rootCmd = &cobra.Command{
	Use:   "sourcebook",
	Short: "Per-workspace document and repository question answering",
	Long: `sourcebook ingests PDFs, text and GitHub repositories into a
workspace-partitioned vector store and answers questions about them with
inline citations back to the source page or line range.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&ollamaURL, "ollama-url", "", "Ollama server URL")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Vector store backend: chromem, pgvector or qdrant")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "", "Directory for the persistent chromem store")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if ollamaURL != "" {
		cfg.LLM.BaseURL = ollamaURL
		cfg.Embedding.BaseURL = ollamaURL
	}
	if dbURL != "" {
		cfg.Store.URL = dbURL
	}
	if backend != "" {
		cfg.Store.Backend = backend
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("  %s", e.Error())
		}
		return nil, fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}
	return cfg, nil
}
