package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/errors"
	"github.com/rohankatakam/neointerface/internal/graph"
)

var exportFile string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the whole database as APOC JSON (needs APOC)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			export, err := c.ExportDBaseJSON(ctx)
			if err != nil {
				return err
			}
			if exportFile == "" {
				fmt.Println(export.Data)
				return nil
			}
			if err := os.WriteFile(exportFile, []byte(export.Data), 0o644); err != nil {
				return errors.FileSystemError(err, "failed to write "+exportFile)
			}
			color.Green("✓ Exported %d node(s), %d relationship(s) and %d propert(ies) to %s",
				export.Nodes, export.Relationships, export.Properties, exportFile)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON dump made by export, alongside the existing data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.FileSystemError(err, "failed to read "+args[0])
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			msg, err := c.ImportJSONData(ctx, string(data))
			if err != nil {
				return err
			}
			color.Green("✓ %s", msg)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "write to this file instead of stdout")
	rootCmd.AddCommand(exportCmd, importCmd)
}
