package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/errors"
	"github.com/rohankatakam/neointerface/internal/graph"
	"github.com/rohankatakam/neointerface/internal/tableio"
)

var (
	loadLabel     string
	loadMerge     bool
	loadPK        string
	loadOverwrite bool
	loadRename    []string
	loadKeepNaN   bool
	loadChunk     int
	loadStrings   bool
	loadDelimiter string

	sqlDriver string
	sqlDSN    string
	sqlQuery  string

	jsonLabel     string
	jsonRelPrefix string
	jsonMaxDepth  int

	arrowsMergeOn      []string
	arrowsAlwaysCreate []string
	arrowsTimestamp    bool
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load CSV, SQL, JSON or arrows.app data as nodes",
}

var loadCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Load every row of a CSV or TSV file as a node",
	Example: `  neoi load csv patients.csv --label patient --merge --pk patient_id
  neoi load csv cars.tsv --label car --rename Colour=color`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := tableio.CSVOptions{Strings: loadStrings}
		if loadDelimiter != "" {
			opts.Delimiter = []rune(loadDelimiter)[0]
		}
		df, err := tableio.ReadCSVFile(args[0], opts)
		if err != nil {
			return err
		}
		return loadFrame(cmd, df, args[0])
	},
}

var loadSQLCmd = &cobra.Command{
	Use:   "sql",
	Short: "Load the rows of a SQL query as nodes",
	Example: `  neoi load sql --driver postgres --dsn "$PG_DSN" --query 'SELECT * FROM patients' --label patient
  neoi load sql --driver sqlite --dsn ./clinic.db --query 'SELECT * FROM visits' --label visit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sqlDSN == "" || sqlQuery == "" {
			return fmt.Errorf("--dsn and --query are required")
		}
		df, err := tableio.ReadSQL(cmd.Context(), sqlDriver, sqlDSN, sqlQuery)
		if err != nil {
			return err
		}
		return loadFrame(cmd, df, sqlQuery)
	},
}

func loadFrame(cmd *cobra.Command, df dataframe.DataFrame, caption string) error {
	if loadLabel == "" {
		return fmt.Errorf("--label is required")
	}
	rename := make(map[string]string, len(loadRename))
	for _, r := range loadRename {
		from, to := splitPair(strings.Replace(r, "=", ":", 1))
		rename[from] = to
	}
	if loadChunk == 0 {
		loadChunk = cfg.Load.MaxChunkSize
	}
	if cfg.Verbose {
		printFrame(df, caption)
	}
	return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
		ids, err := c.LoadDF(ctx, df, loadLabel, graph.LoadOptions{
			Merge:          loadMerge,
			PrimaryKey:     loadPK,
			MergeOverwrite: loadOverwrite,
			Rename:         rename,
			KeepNaN:        loadKeepNaN,
			MaxChunkSize:   loadChunk,
		})
		if err != nil {
			return err
		}
		logger.Infof("Loaded %d %s node(s)", len(ids), loadLabel)
		return printValue(ids)
	})
}

var loadJSONCmd = &cobra.Command{
	Use:   "json <file>",
	Short: "Load a nested JSON document as a tree of nodes (needs APOC)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readJSONObject(args[0])
		if err != nil {
			return err
		}
		if jsonMaxDepth == 0 {
			jsonMaxDepth = cfg.Load.MaxDepth
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			return c.LoadDict(ctx, doc, graph.DictOptions{
				Label:     jsonLabel,
				RelPrefix: jsonRelPrefix,
				MaxDepth:  jsonMaxDepth,
			})
		})
	},
}

var loadArrowsCmd = &cobra.Command{
	Use:     "arrows <file>",
	Short:   "Load a graph exported from arrows.app (needs APOC)",
	Example: `  neoi load arrows model.json --merge-on Person=name --merge-on Person=dob --always-create Event`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readJSONObject(args[0])
		if err != nil {
			return err
		}
		mergeOn := make(map[string][]string)
		for _, m := range arrowsMergeOn {
			label, prop := splitPair(strings.Replace(m, "=", ":", 1))
			mergeOn[label] = append(mergeOn[label], prop)
		}
		return withClient(cmd, func(ctx context.Context, c *graph.Client) error {
			maps, err := c.LoadArrowsDict(ctx, doc, graph.ArrowsOptions{
				MergeOn:      mergeOn,
				AlwaysCreate: arrowsAlwaysCreate,
				Timestamp:    arrowsTimestamp,
			})
			if err != nil {
				return err
			}
			return printValue(maps)
		})
	},
}

func readJSONObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemError(err, "failed to read "+path)
	}
	v, err := graph.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, errors.ValidationErrorf("%s must hold a JSON object, got %T", path, v)
	}
	return doc, nil
}

func init() {
	for _, c := range []*cobra.Command{loadCSVCmd, loadSQLCmd} {
		f := c.Flags()
		f.StringVarP(&loadLabel, "label", "l", "", "label of the created nodes")
		f.BoolVar(&loadMerge, "merge", false, "merge on --pk instead of creating")
		f.StringVar(&loadPK, "pk", "", "primary key property for --merge")
		f.BoolVar(&loadOverwrite, "overwrite", false, "replace the properties of merged nodes")
		f.StringArrayVar(&loadRename, "rename", nil, "column=property (repeatable)")
		f.BoolVar(&loadKeepNaN, "keep-nan", false, "store NaN numbers instead of leaving them out")
		f.IntVar(&loadChunk, "chunk", 0, "rows per statement (default from config)")
	}
	loadCSVCmd.Flags().BoolVar(&loadStrings, "strings", false, "read every column as text")
	loadCSVCmd.Flags().StringVar(&loadDelimiter, "delimiter", "", "field separator (default ',' or tab for .tsv)")

	loadSQLCmd.Flags().StringVar(&sqlDriver, "driver", "postgres", "pgx, postgres or sqlite")
	loadSQLCmd.Flags().StringVar(&sqlDSN, "dsn", "", "data source name")
	loadSQLCmd.Flags().StringVar(&sqlQuery, "query", "", "SELECT statement")

	loadJSONCmd.Flags().StringVarP(&jsonLabel, "label", "l", "Root", "label of the root node")
	loadJSONCmd.Flags().StringVar(&jsonRelPrefix, "rel-prefix", "", "prefix of the relationship types")
	loadJSONCmd.Flags().IntVar(&jsonMaxDepth, "max-depth", 0, "deepest level loaded (default from config)")

	loadArrowsCmd.Flags().StringArrayVar(&arrowsMergeOn, "merge-on", nil, "Label=property identifying nodes (repeatable)")
	loadArrowsCmd.Flags().StringSliceVar(&arrowsAlwaysCreate, "always-create", nil, "labels that are never merged")
	loadArrowsCmd.Flags().BoolVar(&arrowsTimestamp, "timestamp", false, "add _timestamp to every node")

	loadCmd.AddCommand(loadCSVCmd, loadSQLCmd, loadJSONCmd, loadArrowsCmd)
	rootCmd.AddCommand(loadCmd)
}
