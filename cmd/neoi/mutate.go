package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/graph"
)

var (
	setValues []string

	createLabels []string
	createProps  []string

	deleteLabels []string
	deleteKeep   []string

	linkProps    []string
	linkOnProp   string
	linkOnValue  string
	linkVia      string
	linkLeftRel  string
	linkRightRel string

	extractTargets  []string
	extractProps    []string
	extractMapping  []string
	extractRel      string
	extractDir      string
	extractCreate   bool
	extractFromExpr string
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set properties on every matching node",
	Example: `  neoi set -l patient --prop patient_id=123 --value age=40
  neoi set -l car --where 'n.year < $y' -p y=2000 --value vintage=true`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := matchSpec()
		if err != nil {
			return err
		}
		set, err := parseParams(setValues)
		if err != nil {
			return err
		}
		if len(set) == 0 {
			return fmt.Errorf("nothing to set; pass --value key=value")
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			return c.SetFields(ctx, spec, set)
		})
	},
}

var createNodeCmd = &cobra.Command{
	Use:   "create-node",
	Short: "Create one node and print its id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := parseParams(createProps)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			id, err := c.CreateNode(ctx, createLabels, props)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Detach-delete nodes by label",
	Long: `Delete the nodes carrying any of the --label labels, or every node
when no label is given. Nodes with a --keep label are never deleted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(deleteLabels) == 0 && !cleanYes {
			return fmt.Errorf("refusing to delete every node without --yes")
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			return c.DeleteNodesByLabel(ctx, graph.DeleteOptions{
				DeleteLabels: deleteLabels,
				KeepLabels:   deleteKeep,
				BatchSize:    cfg.Load.DeleteBatch,
			})
		})
	},
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Create relationships between nodes",
	Long: `link ids <id1> <id2> <REL>         link two nodes by internal id
link on <label1> <label2> <REL>    link where --on (prop1[:prop2]) values match
link entities <left> <right> [REL] link by a Cypher pair query or through --via`,
}

var linkIDsCmd = &cobra.Command{
	Use:   "ids <id1> <id2> <rel>",
	Short: "Link two nodes by internal id",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id1, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("node id must be an integer: %w", err)
		}
		id2, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("node id must be an integer: %w", err)
		}
		props, err := parseParams(linkProps)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			return c.LinkNodesByIDs(ctx, id1, id2, args[2], props)
		})
	},
}

var linkOnCmd = &cobra.Command{
	Use:   "on <label1> <label2> <rel>",
	Short: "Link nodes whose properties hold equal values",
	Example: `  neoi link on car person OWNED_BY --on owner_id:person_id
  neoi link on car color HAS_COLOR --on color --value '"red"'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if linkOnProp == "" {
			return fmt.Errorf("--on is required")
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			if cmd.Flags().Changed("value") {
				value, err := parseParams([]string{"v=" + linkOnValue})
				if err != nil {
					return err
				}
				return c.LinkNodesOnMatchingPropertyValue(ctx, args[0], args[1], linkOnProp, value["v"], args[2])
			}
			prop1, prop2 := splitPair(linkOnProp)
			return c.LinkNodesOnMatchingProperty(ctx, args[0], args[1], prop1, prop2, args[2])
		})
	},
}

var linkEntitiesCmd = &cobra.Command{
	Use:   "entities <left> <right> [rel]",
	Short: "Link left/right node pairs in batches",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := graph.LinkSpec{
			Left:     args[0],
			Right:    args[1],
			ViaNode:  linkVia,
			LeftRel:  linkLeftRel,
			RightRel: linkRightRel,
		}
		if len(args) == 3 {
			spec.Relationship = args[2]
		}
		params, err := parseParams(queryParams)
		if err != nil {
			return err
		}
		spec.Cypher, spec.Params = extractFromExpr, params
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			summary, err := c.LinkEntities(ctx, spec)
			if err != nil {
				return err
			}
			return printSummary(summary)
		})
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <label>",
	Short: "Extract entity nodes from properties of existing nodes",
	Example: `  neoi extract car --target Color --prop color --rel HAS_COLOR
  neoi extract car --target Model --map model:name --dir '>'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && extractFromExpr == "" {
			return fmt.Errorf("name a label or pass --cypher")
		}
		params, err := parseParams(queryParams)
		if err != nil {
			return err
		}
		spec := graph.ExtractSpec{
			Cypher:       extractFromExpr,
			Params:       params,
			TargetLabels: extractTargets,
			Properties:   extractProps,
			Relationship: extractRel,
			Direction:    extractDir,
		}
		if len(args) == 1 {
			spec.Label = args[0]
		}
		if extractCreate {
			spec.Mode = "create"
		}
		if len(extractMapping) > 0 {
			spec.PropertyMapping = make(map[string]string, len(extractMapping))
			for _, m := range extractMapping {
				from, to := splitPair(m)
				spec.PropertyMapping[from] = to
			}
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			summary, err := c.ExtractEntities(ctx, spec)
			if err != nil {
				return err
			}
			return printSummary(summary)
		})
	},
}

// splitPair reads "a:b" as (a, b) and "a" as (a, a).
func splitPair(s string) (string, string) {
	if a, b, ok := strings.Cut(s, ":"); ok {
		return a, b
	}
	return s, s
}

func printSummary(s *graph.BatchSummary) error {
	if s.FailedBatches > 0 {
		color.Yellow("• %d of %d batches failed", s.FailedBatches, s.Batches)
	}
	return printValue(s)
}

func init() {
	addMatchFlags(setCmd)
	setCmd.Flags().StringArrayVar(&setValues, "value", nil, "property to set, key=value (repeatable)")

	createNodeCmd.Flags().StringSliceVarP(&createLabels, "label", "l", nil, "node label (repeatable)")
	createNodeCmd.Flags().StringArrayVar(&createProps, "prop", nil, "property key=value (repeatable)")

	deleteCmd.Flags().StringSliceVarP(&deleteLabels, "label", "l", nil, "labels to delete")
	deleteCmd.Flags().StringSliceVar(&deleteKeep, "keep", nil, "labels to keep")
	deleteCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "confirm deleting every node")

	linkIDsCmd.Flags().StringArrayVar(&linkProps, "prop", nil, "relationship property key=value (repeatable)")
	linkOnCmd.Flags().StringVar(&linkOnProp, "on", "", "property, or prop1:prop2 when the names differ")
	linkOnCmd.Flags().StringVar(&linkOnValue, "value", "", "only link where the property equals this value")
	linkEntitiesCmd.Flags().StringVar(&linkVia, "via", "", "label of the intermediate node")
	linkEntitiesCmd.Flags().StringVar(&linkLeftRel, "left-rel", "", "relationship from the intermediate node to left")
	linkEntitiesCmd.Flags().StringVar(&linkRightRel, "right-rel", "", "relationship from the intermediate node to right")
	linkEntitiesCmd.Flags().StringVar(&extractFromExpr, "cypher", "", "query returning node pairs as left and right")
	addParamFlag(linkEntitiesCmd, &queryParams)
	linkCmd.AddCommand(linkIDsCmd, linkOnCmd, linkEntitiesCmd)

	f := extractCmd.Flags()
	f.StringSliceVar(&extractTargets, "target", nil, "labels of the extracted nodes")
	f.StringSliceVar(&extractProps, "prop", nil, "properties copied unchanged")
	f.StringArrayVar(&extractMapping, "map", nil, "source:target property mapping (repeatable)")
	f.StringVar(&extractRel, "rel", "", "relationship type between source and target")
	f.StringVar(&extractDir, "dir", "<", "'<' target points at source, '>' the reverse")
	f.BoolVar(&extractCreate, "create", false, "always create targets instead of merging")
	f.StringVar(&extractFromExpr, "cypher", "", "query returning id(node) for each source node, instead of a label")
	addParamFlag(extractCmd, &queryParams)

	rootCmd.AddCommand(setCmd, createNodeCmd, deleteCmd, linkCmd, extractCmd)
}
