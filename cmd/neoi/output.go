package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/neointerface/internal/graph"
	"github.com/rohankatakam/neointerface/internal/tableio"
)

// printValue writes v to stdout in the --output format. Lists of records
// can also be shown as a table.
func printValue(v any) error {
	return writeValue(os.Stdout, outFormat, v)
}

func writeValue(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		records, ok := v.([]map[string]any)
		if !ok {
			return writeValue(w, "json", v)
		}
		df := dataframe.LoadMaps(flattenAll(records))
		if df.Err != nil {
			return df.Err
		}
		_, err := fmt.Fprintln(w, df.String())
		return err
	default:
		return fmt.Errorf("unknown output format %q (use json, yaml or table)", format)
	}
}

func flattenAll(records []map[string]any) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, r := range records {
		out[i] = graph.Flatten(r, ".")
	}
	return out
}

func printFrame(df dataframe.DataFrame, caption string) {
	fmt.Print(tableio.Describe(df, caption))
}

// parseParams reads --param key=value pairs; values are decoded as JSON
// when possible, so 3 is a number and '"3"' a string.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q must look like key=value", p)
		}
		if v, err := graph.DecodeJSON([]byte(raw)); err == nil {
			params[key] = v
		} else {
			params[key] = raw
		}
	}
	return params, nil
}

func addParamFlag(cmd *cobra.Command, dst *[]string) {
	cmd.Flags().StringArrayVarP(dst, "param", "p", nil, "query parameter key=value (repeatable)")
}
