package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/graph"
)

var (
	indexTypes      []string
	constraintName  string
	dropConstraints bool

	cleanKeepLabels      []string
	cleanKeepIndexes     bool
	cleanKeepConstraints bool
	cleanYes             bool
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "List indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			indexes, err := c.GetIndexes(ctx, indexTypes...)
			if err != nil {
				return err
			}
			return printValue(indexes)
		})
	},
}

var constraintsCmd = &cobra.Command{
	Use:   "constraints",
	Short: "List constraints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			constraints, err := c.GetConstraints(ctx)
			if err != nil {
				return err
			}
			return printValue(constraints)
		})
	},
}

var createIndexCmd = &cobra.Command{
	Use:   "create-index <label> <property>",
	Short: "Create the index label.property unless one exists",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			created, err := c.CreateIndex(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			report(created, "index %s.%s created", "index on %s.%s already exists", args[0], args[1])
			return nil
		})
	},
}

var createConstraintCmd = &cobra.Command{
	Use:   "create-constraint <label> <property>",
	Short: "Create a uniqueness constraint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			created, err := c.CreateConstraint(ctx, args[0], args[1], graph.ConstraintOptions{Name: constraintName})
			if err != nil {
				return err
			}
			report(created, "constraint on %s.%s created", "constraint on %s.%s not created", args[0], args[1])
			return nil
		})
	},
}

var dropIndexCmd = &cobra.Command{
	Use:   "drop-index [name]",
	Short: "Drop an index, or all of them with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("name an index or pass --all")
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			if all {
				return c.DropAllIndexes(ctx, dropConstraints)
			}
			report(c.DropIndex(ctx, args[0]), "index %s dropped", "index %s not dropped", args[0])
			return nil
		})
	},
}

var dropConstraintCmd = &cobra.Command{
	Use:   "drop-constraint [name]",
	Short: "Drop a constraint, or all of them with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("name a constraint or pass --all")
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			if all {
				return c.DropAllConstraints(ctx)
			}
			report(c.DropConstraint(ctx, args[0]), "constraint %s dropped", "constraint %s not dropped", args[0])
			return nil
		})
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete every node, index and constraint",
	Long: `Empty the database. Indexes and constraints are dropped too unless
--keep-indexes or --keep-constraints is given. With --rdf the n10s
configuration node survives.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cleanYes {
			return fmt.Errorf("refusing to wipe %s without --yes", cfg.Neo4j.Host)
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			return c.CleanSlate(ctx, graph.CleanOptions{
				KeepLabels:      cleanKeepLabels,
				KeepIndexes:     cleanKeepIndexes,
				KeepConstraints: cleanKeepConstraints,
				BatchSize:       cfg.Load.DeleteBatch,
			})
		})
	},
}

func report(ok bool, success, failure string, args ...any) {
	if ok {
		color.Green("✓ "+success, args...)
		return
	}
	color.Yellow("• "+failure, args...)
}

func init() {
	indexesCmd.Flags().StringSliceVar(&indexTypes, "type", nil, "only these index types, e.g. RANGE,TEXT")
	createConstraintCmd.Flags().StringVar(&constraintName, "name", "", "constraint name (default label.property.UNIQUE)")

	dropIndexCmd.Flags().Bool("all", false, "drop every index")
	dropIndexCmd.Flags().BoolVar(&dropConstraints, "constraints", false, "with --all, drop constraints first")
	dropConstraintCmd.Flags().Bool("all", false, "drop every constraint")

	cleanCmd.Flags().StringSliceVar(&cleanKeepLabels, "keep", nil, "labels whose nodes are kept")
	cleanCmd.Flags().BoolVar(&cleanKeepIndexes, "keep-indexes", false, "leave indexes and constraints alone")
	cleanCmd.Flags().BoolVar(&cleanKeepConstraints, "keep-constraints", false, "drop indexes but keep constraints")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "confirm")

	rootCmd.AddCommand(indexesCmd, constraintsCmd, createIndexCmd, createConstraintCmd,
		dropIndexCmd, dropConstraintCmd, cleanCmd)
}
