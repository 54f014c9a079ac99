// Package main implements conn_template, an operator tool that prints the
// starter configuration for an ERP system type or statically checks a
// connection config file against it. It never contacts the ERP.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
	"github.com/GrantWise/factory-board-sub001/internal/services"
)

var (
	checkFile    string
	settingsFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "conn_template <system_type>",
		Short: "Print or check ERP connection configuration",
		Long: `Prints the starter connection_config and import_settings for a system type.
With --check, statically tests a connection_config JSON file instead and exits
non-zero when the document has errors.`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVar(&checkFile, "check", "", "connection_config JSON file to test")
	rootCmd.Flags().StringVar(&settingsFile, "settings", "", "import_settings JSON file to test alongside --check")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	systemType := constants.SystemType(args[0])

	// static checks and templates need no storage or cache
	svc := services.NewConnectionService(nil, nil, nil)

	if checkFile == "" {
		tmpl, err := svc.TemplateFor(systemType)
		if err != nil {
			return err
		}
		return printJSON(cmd, tmpl)
	}

	configRaw, err := os.ReadFile(checkFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", checkFile, err)
	}
	var settingsRaw []byte
	if settingsFile != "" {
		if settingsRaw, err = os.ReadFile(settingsFile); err != nil {
			return fmt.Errorf("failed to read %s: %w", settingsFile, err)
		}
	}

	result := svc.TestDocuments(systemType, configRaw, settingsRaw)
	if err := printJSON(cmd, result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
