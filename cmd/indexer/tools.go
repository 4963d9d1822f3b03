package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goran-ethernal/ChainReplay/internal/config"
	"github.com/goran-ethernal/ChainReplay/internal/parser"
)

var schemaOutput string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file and event signatures",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}

		p, err := parser.New(cfg.Chain.ChainID, cfg.Parser)
		if err != nil {
			return fmt.Errorf("invalid parser configuration: %w", err)
		}

		fmt.Printf("Configuration %s is valid\n", configPath)
		fmt.Printf("  storage:  %s\n", cfg.Indexer.Storage)
		fmt.Printf("  events:   %v\n", p.EventNames())
		fmt.Printf("  live:     %t\n", cfg.Live != nil && cfg.Live.Enabled)
		fmt.Printf("  api:      %t\n", cfg.API != nil && cfg.API.Enabled)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.GenerateSchema()
		if err != nil {
			return fmt.Errorf("failed to generate schema: %w", err)
		}

		if schemaOutput == "" {
			_, err = fmt.Fprintln(os.Stdout, string(schema))
			return err
		}
		return os.WriteFile(schemaOutput, append(schema, '\n'), 0o600)
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "write the schema to this file instead of stdout")
}
