package graph

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// DefaultDeleteBatchSize is the number of nodes deleted per transaction
// when a whole database is wiped.
const DefaultDeleteBatchSize = 50000

// BatchSummary is what apoc.periodic.iterate reports.
type BatchSummary struct {
	Total         int64 `mapstructure:"total" json:"total"`
	Batches       int64 `mapstructure:"batches" json:"batches"`
	FailedBatches int64 `mapstructure:"failedBatches" json:"failedBatches"`
}

func firstSummary(res *Result) (*BatchSummary, error) {
	var summary BatchSummary
	if len(res.Records) == 0 {
		return &summary, nil
	}
	if err := decodeRow(res.Records[0].AsMap(), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// CreateNode creates a node and returns its internal id.
func (c *Client) CreateNode(ctx context.Context, labels []string, props map[string]any) (int64, error) {
	attrs, params := DictToCypher(props)
	q := fmt.Sprintf("CREATE (n %s %s) RETURN n", PrepareLabels(labels...), attrs)

	nodes, err := c.QueryExpandedFlat(ctx, q, params)
	if err != nil {
		return 0, err
	}
	if len(nodes) == 0 {
		return 0, errors.InternalErrorf("CREATE returned no node")
	}
	return toInt64(nodes[0]["neo4j_id"])
}

// DeleteOptions selects what DeleteNodesByLabel removes.
type DeleteOptions struct {
	// DeleteLabels limits deletion to these labels; empty means every label.
	DeleteLabels []string
	// KeepLabels are never deleted, even when also listed in DeleteLabels.
	KeepLabels []string
	// BatchSize applies when everything is deleted. Zero means
	// DefaultDeleteBatchSize; a negative value deletes in one statement.
	BatchSize int
}

// DeleteNodesByLabel detach-deletes nodes. With no labels named at all
// the whole graph is emptied. Indexes are not touched.
func (c *Client) DeleteNodesByLabel(ctx context.Context, opts DeleteOptions) error {
	if len(opts.DeleteLabels) == 0 && len(opts.KeepLabels) == 0 {
		return c.deleteAll(ctx, opts.BatchSize)
	}

	deleteLabels := opts.DeleteLabels
	if len(deleteLabels) == 0 {
		var err error
		if deleteLabels, err = c.GetLabels(ctx); err != nil {
			return err
		}
	}
	keep := make(map[string]bool, len(opts.KeepLabels))
	for _, l := range opts.KeepLabels {
		keep[l] = true
	}

	for _, label := range deleteLabels {
		if keep[label] {
			continue
		}
		c.logger.Infof(" --- Deleting nodes with label: `%s` ---", label)
		if err := c.exec(ctx, opDelete, fmt.Sprintf("MATCH (x%s) DETACH DELETE x", PrepareLabels(label)), nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) deleteAll(ctx context.Context, batchSize int) error {
	c.logger.Info(" --- Deleting all nodes in the database ---")
	if batchSize == 0 {
		batchSize = DefaultDeleteBatchSize
	}

	switch {
	case batchSize < 0:
		return c.exec(ctx, opDelete, "MATCH (n) DETACH DELETE n", nil)
	case c.opts.APOC:
		res, err := c.run(ctx, opDelete, `
			CALL apoc.periodic.iterate(
				'MATCH (n) RETURN n',
				'DETACH DELETE n',
				{batchSize: $batch_size, parallel: false})
			YIELD total, batches, failedBatches
			RETURN total, batches, failedBatches`,
			map[string]any{"batch_size": batchSize})
		if err != nil {
			return err
		}
		summary, err := firstSummary(res)
		if err != nil {
			return err
		}
		c.logger.WithField("total", summary.Total).Debug("periodic delete finished")
		if summary.FailedBatches > 0 {
			return errors.New(errors.ErrorTypeDatabase, errors.SeverityHigh,
				fmt.Sprintf("%d of %d delete batches failed", summary.FailedBatches, summary.Batches))
		}
		return nil
	default:
		return c.exec(ctx, opDelete, fmt.Sprintf(
			"MATCH (n) CALL { WITH n DETACH DELETE n } IN TRANSACTIONS OF %d ROWS", batchSize), nil)
	}
}

// CleanOptions for CleanSlate.
type CleanOptions struct {
	KeepLabels      []string
	KeepIndexes     bool
	KeepConstraints bool // only consulted when indexes are dropped
	BatchSize       int
}

// CleanSlate empties the database, by default dropping indexes and
// constraints too. With RDF support the n10s configuration node survives.
func (c *Client) CleanSlate(ctx context.Context, opts CleanOptions) error {
	if !opts.KeepIndexes {
		if err := c.DropAllIndexes(ctx, !opts.KeepConstraints); err != nil {
			return err
		}
	}

	keep := append([]string(nil), opts.KeepLabels...)
	if c.opts.RDF {
		keep = append(keep, "_GraphConfig")
	}
	return c.DeleteNodesByLabel(ctx, DeleteOptions{KeepLabels: keep, BatchSize: opts.BatchSize})
}

// SetFields sets properties on every node matched by spec:
//
//	SetFields(ctx, MatchSpec{Labels: []string{"car"},
//		Properties: map[string]any{"vehicle id": 123}},
//		map[string]any{"color": "white", "price": 7000})
func (c *Client) SetFields(ctx context.Context, spec MatchSpec, set map[string]any) error {
	if len(set) == 0 {
		return errors.ValidationError("SetFields needs at least one property to set")
	}
	match, params, err := MatchNodes(spec)
	if err != nil {
		return err
	}

	b := NewCypherBuilder("set")
	clause := b.SetClause("n", SortedProps(set))
	params, err = mergeParams(params, b.Params())
	if err != nil {
		return err
	}
	return c.exec(ctx, opWrite, match+" "+clause, params)
}

var cypherParamPattern = regexp.MustCompile(`\$(\w+)\b`)

// missingParams lists the $names used in cypher that params lacks.
func missingParams(cypher string, params map[string]any) []string {
	seen := map[string]bool{}
	var missing []string
	for _, m := range cypherParamPattern.FindAllStringSubmatch(cypher, -1) {
		name := m[1]
		if _, ok := params[name]; ok || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return missing
}

// ExtractSpec describes an entity extraction: for every source node,
// the mapped properties are copied into a new (or merged) node with the
// target labels, linked back to the source.
type ExtractSpec struct {
	// Mode is "merge" (default) or "create".
	Mode string
	// Label selects the source nodes...
	Label string
	// ...unless Cypher is given, which must RETURN id(node).
	Cypher string
	Params map[string]any

	TargetLabels []string
	// PropertyMapping maps source property -> target property. Properties
	// lists names copied unchanged; both may be used together.
	PropertyMapping map[string]string
	Properties      []string

	Relationship string
	// Direction is "<" (target points at source, default) or ">".
	Direction string
}

func (s *ExtractSpec) normalize() error {
	if s.Mode == "" {
		s.Mode = "merge"
	}
	if s.Direction == "" {
		s.Direction = "<"
	}
	if s.Mode != "merge" && s.Mode != "create" {
		return errors.ValidationErrorf("mode must be 'merge' or 'create', got %q", s.Mode)
	}
	if s.Direction != "<" && s.Direction != ">" {
		return errors.ValidationErrorf("direction must be '<' or '>', got %q", s.Direction)
	}
	if s.Relationship == "" {
		return errors.ValidationError("a relationship type is required")
	}
	if s.Label == "" && s.Cypher == "" {
		return errors.ValidationError("either a source label or a cypher query is required")
	}

	mapping := make(map[string]string, len(s.PropertyMapping)+len(s.Properties))
	for k, v := range s.PropertyMapping {
		mapping[k] = v
	}
	for _, p := range s.Properties {
		mapping[p] = p
	}
	s.PropertyMapping = mapping
	return nil
}

// ExtractEntities runs the extraction with apoc.periodic.iterate. When the
// custom Cypher references parameters missing from Params it is ignored
// and the source label is used instead.
func (c *Client) ExtractEntities(ctx context.Context, spec ExtractSpec) (*BatchSummary, error) {
	if err := spec.normalize(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(spec.PropertyMapping))
	for k := range spec.PropertyMapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, lbl := range spec.TargetLabels {
			if _, err := c.CreateIndex(ctx, lbl, key); err != nil {
				return nil, err
			}
		}
		if spec.Label != "" {
			if _, err := c.CreateIndex(ctx, spec.Label, key); err != nil {
				return nil, err
			}
		}
	}

	matchPart := fmt.Sprintf("MATCH (data%s) RETURN data", PrepareLabels(spec.Label))
	inner := map[string]any{
		"target_label": stringsOrEmpty(spec.TargetLabels),
		"mapping":      stringMap(spec.PropertyMapping),
	}
	if spec.Cypher != "" {
		params := spec.Params
		if params == nil {
			params = map[string]any{}
		}
		if missing := missingParams(spec.Cypher, params); len(missing) == 0 {
			matchPart = `
				CALL apoc.cypher.run($cypher, $cypher_dict) YIELD value
				MATCH (data) WHERE id(data) = value['id(node)']
				RETURN data`
			inner["cypher"] = spec.Cypher
			inner["cypher_dict"] = params
		} else {
			c.logger.Debugf("ERROR: not all parameters have been supplied in cypher_dict, missing: %v", missing)
		}
	}

	relLeft, relRight := "<", ""
	if spec.Direction == ">" {
		relLeft, relRight = "", ">"
	}
	where := "WHERE size(common_keys) > 0"
	if spec.Mode == "create" {
		where = ""
	}
	q := fmt.Sprintf(`
		CALL apoc.periodic.iterate(
			$q_match_part,
			'
				WITH data, apoc.coll.intersection(keys($mapping), keys(data)) AS common_keys
				%s
				WITH data, apoc.map.fromLists([key IN common_keys | $mapping[key]], [key IN common_keys | data[key]]) AS submap
				CALL apoc.%s.node($target_label, submap) YIELD node
				MERGE (data)%s-[:%s]-%s(node)
			',
			{batchSize: 10000, parallel: false, params: $inner_params})
		YIELD total, batches, failedBatches
		RETURN total, batches, failedBatches`,
		where, spec.Mode, relLeft, escapeSingleQuotes(quoteIdent(spec.Relationship)), relRight)

	res, err := c.run(ctx, opBulkLoad, q, map[string]any{
		"q_match_part": matchPart,
		"inner_params": inner,
	})
	if err != nil {
		return nil, err
	}
	return firstSummary(res)
}

// escapeSingleQuotes makes text safe inside a single-quoted Cypher string.
func escapeSingleQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
