package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/neointerface/internal/config"
	"github.com/rohankatakam/neointerface/internal/graph"
	"github.com/rohankatakam/neointerface/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile   string
	verbose   bool
	debug     bool
	apoc      bool
	rdf       bool
	outFormat string

	logger *logging.Logger
	cfg    *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "neoi",
	Short: "neoi - a command line over Neo4j",
	Long: `neoi runs Cypher, inspects and edits the schema, loads CSV, SQL and
JSON data as nodes and exchanges subgraphs as RDF through neosemantics.

Connection settings come from ~/.neointerface/config.yaml, .env files and
the NEO4J_HOST, NEO4J_USER and NEO4J_PASSWORD variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logrus.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		flags := cmd.Flags()
		if flags.Changed("verbose") {
			cfg.Verbose = verbose
		}
		if flags.Changed("debug") {
			cfg.Debug = debug
		}
		if flags.Changed("apoc") {
			cfg.Neo4j.APOC = apoc
		}
		if flags.Changed("rdf") {
			cfg.RDF.Enabled = rdf
		}

		logCfg := logging.DefaultConfig(cfg.Verbose, cfg.Debug)
		if cfg.Logging.Level != "" && !cfg.Debug {
			logCfg.Level = cfg.Logging.Level
		}
		logCfg.OutputFile = cfg.Logging.File
		logCfg.JSONFormat = cfg.Logging.JSON
		logger, err = logging.New(logCfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ~/.neointerface/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", true, "log client activity")
	pf.BoolVar(&debug, "debug", false, "log every generated statement")
	pf.BoolVar(&apoc, "apoc", false, "the server has the APOC plugin")
	pf.BoolVar(&rdf, "rdf", false, "the server has neosemantics (n10s); set up the RDF endpoint")
	pf.StringVarP(&outFormat, "output", "o", "json", "output format: json, yaml or table")

	rootCmd.SetVersionTemplate(`neoi {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
}

// connect resolves the password and opens a client for the current config.
// Callers close it.
func connect(ctx context.Context) (*graph.Client, error) {
	if err := cfg.Validate().AsError(); err != nil {
		return nil, err
	}
	if err := config.NewCredentialManager(logger).ResolvePassword(cfg); err != nil {
		return nil, err
	}

	return graph.New(ctx, graph.Options{
		Host:        cfg.Neo4j.Host,
		User:        cfg.Neo4j.User,
		Password:    cfg.Neo4j.Password,
		NoAuth:      cfg.Neo4j.NoAuth,
		Database:    cfg.Neo4j.Database,
		APOC:        cfg.Neo4j.APOC,
		RDF:         cfg.RDF.Enabled,
		RDFHost:     cfg.RDF.Host,
		Verbose:     cfg.Verbose,
		Debug:       cfg.Debug,
		Autoconnect: true,
	}, logger)
}

// withClient runs fn with a connected client and closes it afterwards.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *graph.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close(ctx)
	return fn(ctx, c)
}
