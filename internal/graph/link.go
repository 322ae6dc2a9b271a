package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// LinkSpec describes how LinkEntities pairs nodes of two classes.
//
// Without Cypher, pairs are found through a shared ViaNode: LeftRel and
// RightRel name the relationships from that node to each side, with an
// optional direction mark, e.g. "<FROM_DATA" or "FROM_DATA>". With
// Cypher, the query must return columns `left` and `right`.
type LinkSpec struct {
	Left  string
	Right string
	// Relationship defaults to HAS_<RIGHT>.
	Relationship string

	ViaNode  string
	LeftRel  string
	RightRel string

	Cypher string
	Params map[string]any
}

type relPattern struct {
	left, relType, right string
}

func parseRelPattern(rel string) (relPattern, error) {
	var p relPattern
	if strings.HasPrefix(rel, "<") {
		p.left = "<"
		rel = rel[1:]
	}
	if strings.HasSuffix(rel, ">") {
		p.right = ">"
		rel = rel[:len(rel)-1]
	}
	if p.left != "" && p.right != "" {
		return p, errors.ValidationErrorf("relationship %q cannot point both ways", "<"+rel+">")
	}
	p.relType = rel
	return p, nil
}

// LinkEntities merges a relationship between every pair of matching nodes,
// in batches with apoc.periodic.iterate.
func (c *Client) LinkEntities(ctx context.Context, spec LinkSpec) (*BatchSummary, error) {
	rel := spec.Relationship
	if rel == "" {
		rel = "HAS_" + strings.ToUpper(spec.Right)
	}

	var outer string
	if spec.Cypher != "" {
		c.logger.Infof("Using cypher condition to link nodes. Labels: %s, %s; Cypher: %s", spec.Left, spec.Right, spec.Cypher)
		outer = `
			CALL apoc.cypher.run($cypher, $cypher_dict) YIELD value
			RETURN value.` + "`left`" + ` AS left, value.` + "`right`" + ` AS right`
	} else {
		if spec.ViaNode == "" || spec.LeftRel == "" || spec.RightRel == "" {
			return nil, errors.ValidationError("linking without cypher needs ViaNode, LeftRel and RightRel")
		}
		left, err := parseRelPattern(spec.LeftRel)
		if err != nil {
			return nil, err
		}
		right, err := parseRelPattern(spec.RightRel)
		if err != nil {
			return nil, err
		}
		outer = fmt.Sprintf(`
			MATCH (left)%s-[:%s*0..1]-%s(sdr%s),
			(sdr)%s-[:%s*0..1]-%s(right)
			WHERE left%s AND right%s
			RETURN left, right`,
			left.left, quoteIdent(left.relType), left.right, PrepareLabels(spec.ViaNode),
			right.left, quoteIdent(right.relType), right.right,
			PrepareLabels(spec.Left), PrepareLabels(spec.Right))
	}

	params := spec.Params
	if params == nil {
		params = map[string]any{}
	}
	q := fmt.Sprintf(`
		CALL apoc.periodic.iterate(
			$outer,
			'MERGE (left)-[:%s]->(right)',
			{batchSize: 10000, parallel: false, params: {cypher: $cypher, cypher_dict: $cypher_dict}})
		YIELD total, batches, failedBatches
		RETURN total, batches, failedBatches`,
		escapeSingleQuotes(quoteIdent(rel)))

	res, err := c.run(ctx, opBulkLoad, q, map[string]any{
		"outer":       outer,
		"cypher":      spec.Cypher,
		"cypher_dict": params,
	})
	if err != nil {
		return nil, err
	}
	return firstSummary(res)
}

// LinkNodesOnMatchingProperty merges rel from every label1 node to every
// label2 node where x.prop1 = y.prop2 (prop2 defaults to prop1).
func (c *Client) LinkNodesOnMatchingProperty(ctx context.Context, label1, label2, prop1, prop2, rel string) error {
	if prop2 == "" {
		prop2 = prop1
	}
	q := fmt.Sprintf("MATCH (x%s), (y%s) WHERE x.%s = y.%s MERGE (x)-[:%s]->(y)",
		PrepareLabels(label1), PrepareLabels(label2), quoteIdent(prop1), quoteIdent(prop2), quoteIdent(rel))
	return c.exec(ctx, opWrite, q, nil)
}

// LinkNodesOnMatchingPropertyValue merges rel between label1 and label2
// nodes whose prop both equal value.
func (c *Client) LinkNodesOnMatchingPropertyValue(ctx context.Context, label1, label2, prop string, value any, rel string) error {
	q := fmt.Sprintf("MATCH (x%s), (y%s) WHERE x.%s = $value AND y.%s = $value MERGE (x)-[:%s]->(y)",
		PrepareLabels(label1), PrepareLabels(label2), quoteIdent(prop), quoteIdent(prop), quoteIdent(rel))
	return c.exec(ctx, opWrite, q, map[string]any{"value": value})
}

// LinkNodesByIDs merges rel, with optional properties, from the node with
// id1 to the node with id2.
func (c *Client) LinkNodesByIDs(ctx context.Context, id1, id2 int64, rel string, props map[string]any) error {
	relProps, params := DictToCypher(props)
	q := fmt.Sprintf(`
		MATCH (x), (y)
		WHERE id(x) = $node_id1 AND id(y) = $node_id2
		MERGE (x)-[:%s %s]->(y)`, quoteIdent(rel), relProps)
	params["node_id1"] = id1
	params["node_id2"] = id2
	return c.exec(ctx, opWrite, q, params)
}
