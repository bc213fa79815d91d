// Command squerycli is a demonstration wrapper around squery.Translate:
// point it at a YAML Schema Registry fixture and a URL carrying a
// squery parameter, and it prints the resulting SQL Server SELECT plus
// its inlined parameter count and warnings. It is not part of the
// translation core — see squery.go for that — and exists the way the
// teacher pack's internal/cli package exists: an outer layer cobra
// drives, built on top of a library that has no CLI dependency itself.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/identitymgmt/squery"
	"github.com/identitymgmt/squery/registry"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "squerycli:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var registryPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "squerycli <url>",
		Short: "Translate a SQuery URL parameter into SQL Server SELECT text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, registryPath, args[0], asJSON)
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "", "path to a YAML Schema Registry fixture (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the result as JSON instead of plain text")
	cmd.MarkFlagRequired("registry")

	return cmd
}

func runTranslate(cmd *cobra.Command, registryPath, rawURL string, asJSON bool) error {
	reg, err := registry.LoadYAML(registryPath)
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	result, err := squery.Translate(rawURL, reg)
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Fprintln(out, result.SQL)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "-- %d parameter(s)\n", len(result.Parameters))
	for _, w := range result.Warnings {
		fmt.Fprintln(out, "-- warning:", w)
	}
	return nil
}
