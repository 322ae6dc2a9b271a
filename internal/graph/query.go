package graph

import (
	"context"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// QueryOption tunes Query and QueryTable.
type QueryOption func(*queryOptions)

type queryOptions struct {
	convertDates bool
}

// WithoutDateConversion keeps driver temporal types instead of time.Time.
func WithoutDateConversion() QueryOption {
	return func(o *queryOptions) { o.convertDates = false }
}

func buildQueryOptions(opts []QueryOption) queryOptions {
	o := queryOptions{convertDates: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Query runs a Cypher statement in a fresh session and returns one map per
// record. A statement that returns nothing gives an empty slice.
//
//	RETURN n1, n2              -> {"n1": {...props}, "n2": {...props}}
//	RETURN n.gender AS g       -> {"g": "M"}
//	MERGE (c)-[r:PAID_BY]->(p) RETURN r -> {"r": [{}, "PAID_BY", {}]}
func (c *Client) Query(ctx context.Context, q string, params map[string]any, opts ...QueryOption) ([]map[string]any, error) {
	o := buildQueryOptions(opts)
	res, err := c.run(ctx, opQuery, q, params)
	if err != nil {
		return nil, err
	}
	return resultData(res, o.convertDates), nil
}

func resultData(res *Result, convertDates bool) []map[string]any {
	data := make([]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		data = append(data, recordData(rec, convertDates))
	}
	return data
}

// QueryRecords runs a statement and returns the raw collected records.
func (c *Client) QueryRecords(ctx context.Context, q string, params map[string]any) (*Result, error) {
	return c.run(ctx, opQuery, q, params)
}

// QueryTable runs a statement and returns the flattened records as a
// DataFrame; nested keys become "a.b" and list items "a.0".
func (c *Client) QueryTable(ctx context.Context, q string, params map[string]any, opts ...QueryOption) (dataframe.DataFrame, error) {
	data, err := c.Query(ctx, q, params, opts...)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return recordsToDataFrame(data)
}

func recordsToDataFrame(data []map[string]any) (dataframe.DataFrame, error) {
	if len(data) == 0 {
		return emptyDataFrame(), nil
	}
	flat := make([]map[string]any, len(data))
	for i, row := range data {
		flat[i] = Flatten(row, ".")
	}
	df := dataframe.LoadMaps(flat)
	if df.Err != nil {
		return df, errors.Wrap(df.Err, errors.ErrorTypeInternal, errors.SeverityMedium, "failed to build data frame")
	}
	return df, nil
}

func emptyDataFrame() dataframe.DataFrame {
	return dataframe.New(series.New([]string{}, series.String, "name"))
}

// QueryExpanded is like Query but keeps the database identity of graph
// values. Nodes get neo4j_id and neo4j_labels, relationships neo4j_id,
// neo4j_start_node, neo4j_end_node and neo4j_type, paths neo4j_nodes.
// Each record gives its own list of items.
func (c *Client) QueryExpanded(ctx context.Context, q string, params map[string]any) ([][]map[string]any, error) {
	res, err := c.run(ctx, opQuery, q, params)
	if err != nil {
		return nil, err
	}
	out := make([][]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, expandRecord(rec))
	}
	return out, nil
}

// QueryExpandedFlat is QueryExpanded with all records' items in a single
// list.
func (c *Client) QueryExpandedFlat(ctx context.Context, q string, params map[string]any) ([]map[string]any, error) {
	nested, err := c.QueryExpanded(ctx, q, params)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, items := range nested {
		out = append(out, items...)
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

func expandRecord(rec *neo4j.Record) []map[string]any {
	items := make([]map[string]any, len(rec.Values))
	for i, v := range rec.Values {
		items[i] = expandItem(rec.Keys[i], v)
	}
	return items
}

// QueryGraph runs a statement that returns nodes, relationships or paths
// and assembles them into a ResultGraph. Any other value is an error.
func (c *Client) QueryGraph(ctx context.Context, q string, params map[string]any) (*ResultGraph, error) {
	res, err := c.run(ctx, opQuery, q, params)
	if err != nil {
		return nil, err
	}
	return buildResultGraph(res)
}

func buildResultGraph(res *Result) (*ResultGraph, error) {
	rg := NewResultGraph()
	for _, rec := range res.Records {
		for _, v := range rec.Values {
			switch t := v.(type) {
			case neo4j.Node:
				rg.addNode(t)
			case neo4j.Relationship:
				rg.addEdge(t)
			case neo4j.Path:
				for _, n := range t.Nodes {
					rg.addNode(n)
				}
				for _, r := range t.Relationships {
					rg.addEdge(r)
				}
			default:
				return nil, errors.ValidationError("Unrecognized object").
					WithContext("type", fmt.Sprintf("%T", v))
			}
		}
	}
	return rg, nil
}
