package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/graph"
)

var (
	queryParams   []string
	queryExpanded bool
	queryKeepDate bool
	queryGraph    bool

	nodeLabels   []string
	nodeProps    []string
	nodeWhere    []string
	nodeClause   string
	nodeWithID   bool
	nodeWithLbls bool
	nodeField    string

	paramsLimit int
)

var queryCmd = &cobra.Command{
	Use:   "query <cypher>",
	Short: "Run a Cypher statement and print the records",
	Example: `  neoi query 'MATCH (p:patient) WHERE p.age > $age RETURN p' -p age=40
  neoi query 'MATCH (n) RETURN n LIMIT 5' --expanded -o table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(queryParams)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			switch {
			case queryGraph:
				rg, err := c.QueryGraph(ctx, args[0], params)
				if err != nil {
					return err
				}
				return printValue(graphSummary(rg))
			case queryExpanded:
				out, err := c.QueryExpandedFlat(ctx, args[0], params)
				if err != nil {
					return err
				}
				return printValue(out)
			default:
				var opts []graph.QueryOption
				if queryKeepDate {
					opts = append(opts, graph.WithoutDateConversion())
				}
				out, err := c.Query(ctx, args[0], params, opts...)
				if err != nil {
					return err
				}
				return printValue(out)
			}
		})
	},
}

type graphJSON struct {
	Nodes []*graph.GraphNode `json:"nodes"`
	Edges []edgeJSON         `json:"edges"`
}

type edgeJSON struct {
	ID         int64          `json:"id"`
	From       int64          `json:"from"`
	To         int64          `json:"to"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

func graphSummary(rg *graph.ResultGraph) graphJSON {
	out := graphJSON{Nodes: []*graph.GraphNode{}, Edges: []edgeJSON{}}
	for _, id := range rg.NodeIDs() {
		out.Nodes = append(out.Nodes, rg.Node(id))
	}
	for _, e := range rg.Edges() {
		out.Edges = append(out.Edges, edgeJSON{ID: e.EdgeID, From: e.F.NodeID, To: e.T.NodeID, Type: e.Type, Properties: e.Properties})
	}
	return out
}

// matchSpec builds the node filter shared by nodes and set commands.
func matchSpec() (graph.MatchSpec, error) {
	props, err := parseParams(nodeProps)
	if err != nil {
		return graph.MatchSpec{}, err
	}
	params, err := parseParams(nodeWhere)
	if err != nil {
		return graph.MatchSpec{}, err
	}
	return graph.MatchSpec{Labels: nodeLabels, Properties: props, Clause: nodeClause, Params: params}, nil
}

func addMatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&nodeLabels, "label", "l", nil, "node label (repeatable)")
	f.StringArrayVar(&nodeProps, "prop", nil, "exact property match key=value (repeatable)")
	f.StringVar(&nodeClause, "where", "", "extra condition on n, e.g. 'n.age > $age'")
	f.StringArrayVarP(&nodeWhere, "param", "p", nil, "parameter used by --where, key=value")
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List nodes matching labels, properties and a condition",
	Example: `  neoi nodes -l patient --prop gender='"F"' --where 'n.age > $age' -p age=40
  neoi nodes -l car --field color`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := matchSpec()
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			if nodeField != "" {
				values, err := c.GetSingleField(ctx, nodeField, spec)
				if err != nil {
					return err
				}
				return printValue(values)
			}
			nodes, err := c.GetNodes(ctx, spec, graph.NodeOptions{ReturnNodeID: nodeWithID, ReturnLabels: nodeWithLbls})
			if err != nil {
				return err
			}
			return printValue(nodes)
		})
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List node labels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			labels, err := c.GetLabels(ctx)
			if err != nil {
				return err
			}
			return printValue(labels)
		})
	},
}

var relTypesCmd = &cobra.Command{
	Use:   "rel-types",
	Short: "List relationship types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			types, err := c.GetRelationshipTypes(ctx)
			if err != nil {
				return err
			}
			return printValue(types)
		})
	},
}

var propsCmd = &cobra.Command{
	Use:   "props <label>",
	Short: "List the property names used by nodes with a label",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			props, err := c.GetLabelProperties(ctx, args[0])
			if err != nil {
				return err
			}
			return printValue(props)
		})
	},
}

var familyCmd = &cobra.Command{
	Use:   "family <node-id>",
	Short: "Show the parents and children of a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("node id must be an integer: %w", err)
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			family, err := c.GetParentsAndChildren(ctx, id)
			if err != nil {
				return err
			}
			return printValue(family)
		})
	},
}

var paramsCmd = &cobra.Command{
	Use:     "params",
	Short:   "Print :param commands for the Neo4j browser",
	Example: `  neoi params -p age=22 -p gender='"F"'`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(queryParams)
		if err != nil {
			return err
		}
		fmt.Print(graph.QueryParamsFromDict(params, paramsLimit))
		return nil
	},
}

func init() {
	addParamFlag(queryCmd, &queryParams)
	queryCmd.Flags().BoolVar(&queryExpanded, "expanded", false, "include neo4j_id, labels and relationship endpoints")
	queryCmd.Flags().BoolVar(&queryKeepDate, "raw-dates", false, "keep driver temporal values")
	queryCmd.Flags().BoolVar(&queryGraph, "graph", false, "assemble nodes and relationships into a graph")

	addMatchFlags(nodesCmd)
	nodesCmd.Flags().BoolVar(&nodeWithID, "with-id", false, "add neo4j_id")
	nodesCmd.Flags().BoolVar(&nodeWithLbls, "with-labels", false, "add neo4j_labels")
	nodesCmd.Flags().StringVar(&nodeField, "field", "", "print only this property")

	addParamFlag(paramsCmd, &queryParams)
	paramsCmd.Flags().IntVar(&paramsLimit, "limit", 500, "truncate each line to this many characters")

	rootCmd.AddCommand(queryCmd, nodesCmd, labelsCmd, relTypesCmd, propsCmd, familyCmd, paramsCmd)
}
