package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/graph"
)

var versionServer bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the neoi, driver and (with --server) server versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("neoi %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		fmt.Printf("neo4j driver %s\n", graph.DriverVersion())
		if !versionServer {
			return nil
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			if err := c.HealthCheck(ctx); err != nil {
				return err
			}
			fmt.Printf("neo4j server %s at %s\n", c.ServerVersion(), c.Host())
			return nil
		})
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionServer, "server", false, "also connect and report the server version")
	rootCmd.AddCommand(versionCmd)
}
