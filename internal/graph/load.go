package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// DefaultMaxChunkSize bounds the rows sent in one UNWIND.
const DefaultMaxChunkSize = 10000

// LoadOptions for LoadRecords and LoadDF.
type LoadOptions struct {
	// Merge with a PrimaryKey MERGEs on that key instead of CREATE.
	Merge      bool
	PrimaryKey string
	// MergeOverwrite replaces all properties of a merged node instead of
	// adding to them.
	MergeOverwrite bool
	// Rename maps incoming field names to property names.
	Rename map[string]string
	// KeepNaN stores NaN numbers instead of leaving the property unset.
	KeepNaN      bool
	MaxChunkSize int
}

// LoadRecords stores each record as a node with the given label and
// returns the node ids in record order.
func (c *Client) LoadRecords(ctx context.Context, records []map[string]any, label string, opts LoadOptions) ([]int64, error) {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	rows := prepareRows(records, opts)
	if len(rows) == 0 {
		return []int64{}, nil
	}

	pk := opts.PrimaryKey
	merge := opts.Merge && pk != ""
	if merge && !opts.MergeOverwrite {
		for _, r := range rows {
			if v, ok := r[pk]; !ok || v == nil || isNaN(v) {
				return nil, errors.ValidationErrorf(
					"Cannot merge node on NULL value in %s. Use MergeOverwrite or eliminate missing values", pk)
			}
		}
	}

	pkPattern := ""
	if pk != "" {
		if err := c.ensureLoadIndex(ctx, label, pk); err != nil {
			return nil, err
		}
		pkPattern = fmt.Sprintf(" {%s: record['%s']}", quoteIdent(pk), escapeSingleQuotes(pk))
	}

	op, setOp := "CREATE", "+="
	if merge {
		op = "MERGE"
	}
	if opts.MergeOverwrite {
		setOp = "="
	}
	q := fmt.Sprintf(`
		WITH $data AS data
		UNWIND data AS record
		%s (x%s%s)
		SET x %s record
		RETURN id(x) AS node_id`, op, PrepareLabels(label), pkPattern, setOp)

	chunks := chunkRows(rows, opts.MaxChunkSize)
	// chunks go one at a time so a failure leaves a committed prefix
	out := make([]int64, 0, len(rows))
	for _, chunk := range chunks {
		res, err := c.run(ctx, opBulkLoad, q, map[string]any{"data": chunk})
		if err != nil {
			return nil, err
		}
		for _, rec := range res.Records {
			v, _ := rec.Get("node_id")
			id, err := toInt64(v)
			if err != nil {
				return nil, errors.InternalErrorf("node_id: %v", err)
			}
			out = append(out, id)
		}
	}
	c.logger.WithField("label", label).Debugf("loaded %d nodes in %d chunks", len(out), len(chunks))
	return out, nil
}

// ensureLoadIndex creates the label.key index when missing and waits for
// it to come online.
func (c *Client) ensureLoadIndex(ctx context.Context, label, key string) error {
	indexes, err := c.GetIndexes(ctx)
	if err != nil {
		return err
	}
	name := label + "." + key
	for _, idx := range indexes {
		if idx.Name == name {
			return nil
		}
	}
	created, err := c.CreateIndex(ctx, label, key)
	if err != nil || !created {
		return err
	}
	return c.exec(ctx, opSchema, "CALL db.awaitIndexes(300)", nil)
}

// prepareRows applies renames and drops NaN numbers and nil values so
// they never overwrite stored properties.
func prepareRows(records []map[string]any, opts LoadOptions) []map[string]any {
	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(rec))
		for k, v := range rec {
			if to, ok := opts.Rename[k]; ok {
				k = to
			}
			if v == nil || (!opts.KeepNaN && isNaN(v)) {
				continue
			}
			row[k] = v
		}
		rows = append(rows, row)
	}
	return rows
}

func isNaN(v any) bool {
	switch f := v.(type) {
	case float64:
		return math.IsNaN(f)
	case float32:
		return math.IsNaN(float64(f))
	}
	return false
}

func chunkRows(rows []map[string]any, size int) [][]map[string]any {
	var chunks [][]map[string]any
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

// LoadDF loads every row of df as a node; see LoadRecords. Missing
// numeric cells become NaN, missing text cells are left out.
func (c *Client) LoadDF(ctx context.Context, df dataframe.DataFrame, label string, opts LoadOptions) ([]int64, error) {
	records, err := DataFrameRecords(df)
	if err != nil {
		return nil, err
	}
	return c.LoadRecords(ctx, records, label, opts)
}

// DataFrameRecords converts a DataFrame into one map per row, keeping
// integer, float and boolean columns typed.
func DataFrameRecords(df dataframe.DataFrame) ([]map[string]any, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, errors.ErrorTypeValidation, errors.SeverityHigh, "invalid data frame")
	}
	nrow := df.Nrow()
	records := make([]map[string]any, nrow)
	for i := range records {
		records[i] = make(map[string]any, df.Ncol())
	}

	for _, name := range df.Names() {
		col := df.Col(name)
		for i := 0; i < nrow; i++ {
			e := col.Elem(i)
			numeric := col.Type() == series.Int || col.Type() == series.Float
			if e.IsNA() {
				if numeric {
					records[i][name] = math.NaN()
				}
				continue
			}
			switch col.Type() {
			case series.Int:
				v, err := e.Int()
				if err != nil {
					return nil, errors.ValidationErrorf("column %s row %d: %v", name, i, err)
				}
				records[i][name] = int64(v)
			case series.Float:
				records[i][name] = e.Float()
			case series.Bool:
				v, err := e.Bool()
				if err != nil {
					return nil, errors.ValidationErrorf("column %s row %d: %v", name, i, err)
				}
				records[i][name] = v
			default:
				records[i][name] = e.String()
			}
		}
	}
	return records, nil
}

// DictOptions for LoadDict.
type DictOptions struct {
	Label     string // root node label, default "Root"
	RelPrefix string
	MaxDepth  int // default 10
}

// LoadDict stores a nested document as a tree of nodes: the root gets
// Label, child maps become related nodes (relationship RelPrefix+key),
// lists of maps become several related nodes and other lists or scalars
// become properties. Requires APOC.
func (c *Client) LoadDict(ctx context.Context, doc map[string]any, opts DictOptions) error {
	if opts.Label == "" {
		opts.Label = "Root"
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 10
	}
	value, err := json.Marshal(doc)
	if err != nil {
		return errors.ValidationErrorf("document cannot be encoded as JSON: %v", err)
	}

	if err := c.exec(ctx, opBulkLoad, `
		CALL apoc.merge.node(['JSON', $label], {value: $value})
		YIELD node
		RETURN node`,
		map[string]any{"label": opts.Label, "value": string(value)}); err != nil {
		return err
	}

	for depth := 0; depth < opts.MaxDepth; depth++ {
		pending, err := c.run(ctx, opRead, "MATCH (j:JSON) RETURN j LIMIT 1", nil)
		if err != nil {
			return err
		}
		if len(pending.Records) == 0 {
			return nil
		}
		if err := c.exec(ctx, opBulkLoad, unpackJSONLevel, map[string]any{"rel_prefix": opts.RelPrefix}); err != nil {
			return err
		}
	}
	return nil
}

// unpackJSONLevel turns each :JSON node's value into properties and child
// :JSON nodes, then marks the node as done.
const unpackJSONLevel = `
	MATCH (j:JSON)
	WITH j, apoc.convert.fromJsonMap(j.value) AS map
	WITH j, map, keys(map) AS ks UNWIND ks AS k
	CALL apoc.do.case([
		apoc.meta.type(map[k]) = 'MAP',
		'
		CALL apoc.merge.node(["JSON", $k], {value: apoc.convert.toJson($map[$k])}) YIELD node
		CALL apoc.merge.relationship(j, $rel_prefix + k, {}, {}, node, {}) YIELD rel
		RETURN node, rel
		',
		apoc.meta.type(map[k]) = 'LIST',
		'
		WITH j, map, k, [i IN map[k] WHERE apoc.meta.type(i) <> "MAP"] AS not_map_lst
		CALL apoc.do.when(
			size(not_map_lst) <> 0,
			"CALL apoc.create.setProperty([j], $k, $not_map_lst) YIELD node RETURN node",
			"RETURN j",
			{j: j, k: k, not_map_lst: not_map_lst}
		) YIELD value
		WITH *, [i IN map[k] WHERE NOT i IN not_map_lst] AS map_lst
		UNWIND map_lst AS item_map
		CALL apoc.merge.node(["JSON", $k], {value: apoc.convert.toJson(item_map)}) YIELD node
		CALL apoc.merge.relationship(j, $rel_prefix + k, {}, {}, node, {}) YIELD rel
		RETURN node, rel
		'
		],
		'
		CALL apoc.create.setProperty([j], $k, $map[$k]) YIELD node
		RETURN node
		',
		{k: k, map: map, j: j, rel_prefix: $rel_prefix}
	) YIELD value
	WITH DISTINCT j
	REMOVE j:JSON
	REMOVE j.value`

// ArrowsOptions for LoadArrowsDict.
type ArrowsOptions struct {
	// MergeOn maps a label to the properties that identify its nodes;
	// the remaining properties are set on create and on match.
	MergeOn map[string][]string
	// AlwaysCreate lists labels whose nodes are created, never merged.
	AlwaysCreate []string
	// Timestamp adds _timestamp = timestamp() to every node.
	Timestamp bool
}

// LoadArrowsDict loads a graph drawn in arrows.app (its exported JSON,
// decoded). It returns the node_map and rel_map built by the statement,
// keyed by the arrows ids, or nil when nothing was loaded.
func (c *Client) LoadArrowsDict(ctx context.Context, doc map[string]any, opts ArrowsOptions) (map[string]any, error) {
	mergeOn := make(map[string]any, len(opts.MergeOn))
	for label, props := range opts.MergeOn {
		mergeOn[label] = stringsOrEmpty(props)
	}

	timestamp := ""
	if opts.Timestamp {
		timestamp = arrowsTimestamp
	}
	q := arrowsNodes + timestamp + arrowsMerge

	rows, err := c.Query(ctx, q, map[string]any{
		"map":           doc,
		"merge_on":      mergeOn,
		"always_create": stringsOrEmpty(opts.AlwaysCreate),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

const arrowsNodes = `
	UNWIND $map['nodes'] AS nd
	WITH *, apoc.coll.intersection(nd['labels'], keys($merge_on)) AS hc_labels
	WITH *, apoc.coll.toSet(apoc.coll.flatten(apoc.map.values($merge_on, hc_labels))) AS hc_props
	WITH *, [prop IN hc_props WHERE prop IN keys(nd['properties'])] AS hc_props
	WITH
		*,
		CASE WHEN size(nd['labels']) = 0 THEN ['No Label'] ELSE nd['labels'] END AS labels,
		CASE WHEN size(hc_props) > 0 THEN
			{
				identProps:
					CASE WHEN size(apoc.coll.intersection(keys(nd['properties']), hc_props)) = 0 AND nd['caption'] <> '' THEN
						{value: nd['caption']}
					ELSE
						apoc.map.submap(nd['properties'], hc_props)
					END,
				onMatchProps: apoc.map.submap(nd['properties'], [key IN keys(nd['properties']) WHERE NOT key IN hc_props])
			}
		ELSE
			{
				identProps:
					CASE WHEN size(keys(nd['properties'])) = 0 AND nd['caption'] <> '' THEN
						{value: nd['caption']}
					ELSE
						nd['properties']
					END,
				onMatchProps: {}
			}
		END AS props
	WITH
		nd,
		labels,
		props['identProps'] AS identProps,
		props['onMatchProps'] AS onMatchProps,
		props['onMatchProps'] AS onCreateProps
	WITH *, CASE WHEN identProps = {} THEN {_dummy_prop_: 1} ELSE identProps END AS identProps
`

const arrowsTimestamp = `
	WITH
		*,
		apoc.map.mergeList([onCreateProps, {_timestamp: timestamp()}]) AS onCreateProps,
		apoc.map.mergeList([onMatchProps, {_timestamp: timestamp()}]) AS onMatchProps
`

const arrowsMerge = `
	CALL apoc.do.when(
		size(apoc.coll.intersection(labels, $always_create)) > 0,
		"CALL apoc.create.node($labels, apoc.map.mergeList([$identProps, $onMatchProps, $onCreateProps])) YIELD node RETURN node",
		"CALL apoc.merge.node($labels, $identProps, $onMatchProps, $onCreateProps) YIELD node RETURN node",
		{labels: labels, identProps: identProps, onMatchProps: onMatchProps, onCreateProps: onCreateProps}
	) YIELD value AS value2
	WITH *, value2['node'] AS node
	CALL apoc.do.when(
		identProps = {_dummy_prop_: 1},
		'REMOVE node._dummy_prop_ RETURN node',
		'RETURN node',
		{node: node}
	) YIELD value
	WITH *
	WITH apoc.map.fromPairs(collect([nd['id'], node])) AS node_map
	UNWIND $map['relationships'] AS rel
	CALL apoc.merge.relationship(
		node_map[rel['fromId']],
		CASE WHEN rel['type'] = '' OR rel['type'] IS NULL THEN 'RELATED' ELSE rel['type'] END,
		rel['properties'],
		{},
		node_map[rel['toId']], {}
	)
	YIELD rel AS relationship
	WITH node_map, apoc.map.fromPairs(collect([rel['id'], relationship])) AS rel_map
	RETURN node_map, rel_map
`
