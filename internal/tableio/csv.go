// Package tableio reads tabular sources (CSV files, SQL queries) into
// gota DataFrames for loading into the graph.
package tableio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// cells treated as missing
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>", "NULL", "null"}

// CSVOptions for ReadCSV.
type CSVOptions struct {
	Delimiter rune // default ','
	// Strings keeps every column as text instead of inferring types.
	Strings bool
}

// ReadCSV parses CSV with a header row.
func ReadCSV(r io.Reader, opts CSVOptions) (dataframe.DataFrame, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	loadOpts := []dataframe.LoadOption{
		dataframe.WithDelimiter(opts.Delimiter),
		dataframe.HasHeader(true),
		dataframe.NaNValues(nanValues),
	}
	if opts.Strings {
		loadOpts = append(loadOpts, dataframe.DetectTypes(false), dataframe.DefaultType(series.String))
	}

	df := dataframe.ReadCSV(r, loadOpts...)
	if df.Err != nil {
		return df, errors.Wrap(df.Err, errors.ErrorTypeImport, errors.SeverityHigh, "failed to parse CSV")
	}
	return df, nil
}

// ReadCSVFile opens path and calls ReadCSV. Files ending in .tsv default
// to tab separated.
func ReadCSVFile(path string, opts CSVOptions) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.FileSystemError(err, fmt.Sprintf("open %s", path))
	}
	defer f.Close()

	if opts.Delimiter == 0 && strings.HasSuffix(strings.ToLower(path), ".tsv") {
		opts.Delimiter = '\t'
	}
	return ReadCSV(f, opts)
}

func emptyFrame(columns []string) dataframe.DataFrame {
	if len(columns) == 0 {
		columns = []string{"name"}
	}
	cols := make([]series.Series, len(columns))
	for i, c := range columns {
		cols[i] = series.New([]string{}, series.String, c)
	}
	return dataframe.New(cols...)
}

// Describe renders the first five rows of df, then each column with its
// count of non-missing values.
func Describe(df dataframe.DataFrame, caption string) string {
	var sb strings.Builder
	if caption != "" {
		caption = fmt.Sprintf("of `%s`", caption)
	}
	n := df.Nrow()
	if n > 0 {
		fmt.Fprintf(&sb, "First 5 records %s:\n", caption)
		head := n
		if head > 5 {
			head = 5
		}
		idx := make([]int, head)
		for i := range idx {
			idx[i] = i
		}
		sb.WriteString(df.Subset(idx).String())
		sb.WriteString("\nColumns, with number of records in each (excluding NaN):\n")
		for _, name := range df.Names() {
			col := df.Col(name)
			count := 0
			for i := 0; i < col.Len(); i++ {
				if !col.Elem(i).IsNA() {
					count++
				}
			}
			fmt.Fprintf(&sb, "  %-20s %d\n", name, count)
		}
	}
	fmt.Fprintf(&sb, "List of Columns: %v\n", df.Names())
	return sb.String()
}
