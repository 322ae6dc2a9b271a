package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/errors"
	"github.com/rohankatakam/neointerface/internal/graph"
)

var (
	rdfFormat  string
	rdfInline  bool
	rdfParams  []string
	uriOptions graph.URIOptions
)

var rdfCmd = &cobra.Command{
	Use:   "rdf",
	Short: "Exchange subgraphs as RDF through neosemantics (n10s)",
	Long: `The rdf commands need the neosemantics plugin and its HTTP endpoint,
by default http://<bolt host>:7474/rdf/ (override with rdf.host or
NEO4J_RDF_HOST).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		cfg.RDF.Enabled = true
		return nil
	},
}

var rdfPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Initialise n10s and check the RDF endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			color.Green("✓ RDF endpoint %s is up", c.RDFHost())
			return nil
		})
	},
}

var rdfURICmd = &cobra.Command{
	Use:   "uri <config.json>",
	Short: "Label nodes :Resource and give them URIs",
	Long: `The config maps labels to the properties that make up their URI, e.g.

  {"Car": "plate", "Person": ["first", "last"],
   "Wheel": {"properties": "position",
             "neighbours": [{"label": "Car", "relationship": "HAS_WHEEL"}]}}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.FileSystemError(err, "failed to read "+args[0])
		}
		var configs map[string]graph.URIConfig
		if err := json.Unmarshal(data, &configs); err != nil {
			return errors.ValidationErrorf("invalid uri config %s: %v", args[0], err)
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			return c.RDFGenerateURI(ctx, configs, uriOptions)
		})
	},
}

var rdfSubgraphCmd = &cobra.Command{
	Use:     "subgraph <cypher>",
	Short:   "Serialise the result of a Cypher query as RDF",
	Example: `  neoi rdf subgraph 'MATCH p=(:Car)-[*0..1]->() RETURN p' --format N-Triples`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(rdfParams)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			out, err := c.RDFGetSubgraph(ctx, args[0], params, rdfFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		})
	},
}

var rdfImportCmd = &cobra.Command{
	Use:   "import <url|file>",
	Short: "Import RDF from a URL, or from a file with --inline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		inline := rdfInline || !strings.Contains(source, "://")
		var data string
		if inline {
			raw, err := os.ReadFile(source)
			if err != nil {
				return errors.FileSystemError(err, "failed to read "+source)
			}
			data = string(raw)
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			var (
				summary *graph.RDFImportSummary
				err     error
			)
			if inline {
				summary, err = c.RDFImportSubgraphInline(ctx, data, rdfFormat)
			} else {
				summary, err = c.RDFImportFetch(ctx, source, rdfFormat)
			}
			if err != nil {
				return err
			}
			return printValue(summary)
		})
	},
}

var rdfOntoCmd = &cobra.Command{
	Use:   "onto",
	Short: "Print the ontology inferred from the graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			onto, err := c.RDFGetGraphOnto(ctx)
			if err != nil {
				return err
			}
			fmt.Print(onto)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{rdfSubgraphCmd, rdfImportCmd} {
		c.Flags().StringVar(&rdfFormat, "format", graph.DefaultRDFFormat, "RDF serialisation, e.g. Turtle, N-Triples, JSON-LD")
	}
	rdfSubgraphCmd.Flags().StringArrayVarP(&rdfParams, "param", "p", nil, "query parameter key=value (repeatable)")
	rdfImportCmd.Flags().BoolVar(&rdfInline, "inline", false, "read the argument as a local file")

	f := rdfURICmd.Flags()
	f.StringVar(&uriOptions.Prefix, "prefix", "", "URI prefix (default neo4j://graph.schema#)")
	f.StringSliceVar(&uriOptions.AddPrefixes, "add-prefix", nil, "segments placed before the label")
	f.StringVar(&uriOptions.Sep, "sep", "", "segment separator (default /)")
	f.StringVar(&uriOptions.URIProp, "uri-prop", "", "property holding the URI (default uri)")
	f.BoolVar(&uriOptions.ExcludeLabel, "exclude-label", false, "leave the label out of the URI")

	rdfCmd.AddCommand(rdfPingCmd, rdfURICmd, rdfSubgraphCmd, rdfImportCmd, rdfOntoCmd)
	rootCmd.AddCommand(rdfCmd)
}
