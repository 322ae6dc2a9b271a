package graph

import (
	"context"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/mitchellh/mapstructure"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// NodeOptions adds database identity to GetNodes results.
type NodeOptions struct {
	ReturnNodeID bool // adds "neo4j_id"
	ReturnLabels bool // adds "neo4j_labels"
}

// GetNodes returns the properties of every node matched by spec.
//
//	GetNodes(ctx, MatchSpec{Labels: []string{"client"}, Clause: "n.age > $age",
//		Params: map[string]any{"age": 40}}, NodeOptions{})
func (c *Client) GetNodes(ctx context.Context, spec MatchSpec, opts NodeOptions) ([]map[string]any, error) {
	q, params, err := MatchNodes(spec)
	if err != nil {
		return nil, err
	}
	q += " RETURN n"

	nodes, err := c.QueryExpandedFlat(ctx, q, params)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if !opts.ReturnNodeID {
			delete(n, "neo4j_id")
		}
		if !opts.ReturnLabels {
			delete(n, "neo4j_labels")
		}
	}
	return nodes, nil
}

// GetDF is GetNodes as a DataFrame.
func (c *Client) GetDF(ctx context.Context, spec MatchSpec, opts NodeOptions) (dataframe.DataFrame, error) {
	nodes, err := c.GetNodes(ctx, spec, opts)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return recordsToDataFrame(nodes)
}

// GetSingleField returns the value of one property for every matched node,
// nil where the node lacks it.
func (c *Client) GetSingleField(ctx context.Context, field string, spec MatchSpec) ([]any, error) {
	nodes, err := c.GetNodes(ctx, spec, NodeOptions{})
	if err != nil {
		return nil, err
	}
	values := make([]any, len(nodes))
	for i, n := range nodes {
		values[i] = n[field]
	}
	return values, nil
}

// Neighbour is a node one relationship away.
type Neighbour struct {
	ID     int64    `mapstructure:"id" json:"id"`
	Labels []string `mapstructure:"labels" json:"labels"`
	Rel    string   `mapstructure:"rel" json:"rel"`
}

// Family holds the nodes pointing at a node and the nodes it points at.
type Family struct {
	Parents  []Neighbour `json:"parent_list"`
	Children []Neighbour `json:"child_list"`
}

// GetParentsAndChildren fetches the neighbours over inbound relationships
// (parents) and outbound ones (children) of the node with the given id.
func (c *Client) GetParentsAndChildren(ctx context.Context, nodeID int64) (*Family, error) {
	const (
		parentsQuery = "MATCH (parent)-[inbound]->(n) WHERE id(n) = $node_id " +
			"RETURN id(parent) AS id, labels(parent) AS labels, type(inbound) AS rel"
		childrenQuery = "MATCH (n)-[outbound]->(child) WHERE id(n) = $node_id " +
			"RETURN id(child) AS id, labels(child) AS labels, type(outbound) AS rel"
	)
	params := map[string]any{"node_id": nodeID}

	parents, err := c.neighbours(ctx, parentsQuery, params)
	if err != nil {
		return nil, err
	}
	children, err := c.neighbours(ctx, childrenQuery, params)
	if err != nil {
		return nil, err
	}
	family := Family{Parents: parents, Children: children}

	c.logger.WithField("node_id", nodeID).Debugf("parent_list: %v child_list: %v", family.Parents, family.Children)
	return &family, nil
}

func (c *Client) neighbours(ctx context.Context, q string, params map[string]any) ([]Neighbour, error) {
	rows, err := c.run(ctx, opRead, q, params)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbour, 0, len(rows.Records))
	for _, rec := range rows.Records {
		var n Neighbour
		if err := decodeRow(rec.AsMap(), &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// GetLabels lists the labels present in the database, in no particular order.
func (c *Client) GetLabels(ctx context.Context) ([]string, error) {
	return c.stringColumn(ctx, "CALL db.labels() YIELD label RETURN label", nil, "label")
}

// GetRelationshipTypes lists the relationship types present in the database.
func (c *Client) GetRelationshipTypes(ctx context.Context) ([]string, error) {
	return c.stringColumn(ctx,
		"CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType", nil, "relationshipType")
}

// GetLabelProperties lists, in sorted order, the property names used by
// nodes carrying the label.
func (c *Client) GetLabelProperties(ctx context.Context, label string) ([]string, error) {
	q := `
		CALL db.schema.nodeTypeProperties()
		YIELD nodeLabels, propertyName
		WHERE $label IN nodeLabels AND propertyName IS NOT NULL
		RETURN DISTINCT propertyName
		ORDER BY propertyName`
	return c.stringColumn(ctx, q, map[string]any{"label": label}, "propertyName")
}

func (c *Client) stringColumn(ctx context.Context, q string, params map[string]any, column string) ([]string, error) {
	res, err := c.run(ctx, opRead, q, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		v, ok := rec.Get(column)
		if !ok {
			return nil, errors.InternalErrorf("column %q missing from result", column)
		}
		s, ok := v.(string)
		if !ok {
			return nil, errors.InternalErrorf("column %q: unexpected type %T", column, v)
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeRow decodes a record map into a tagged struct; list columns come
// back from the driver as []any and are converted element-wise.
func decodeRow(row map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return errors.InternalErrorf("decoder setup: %v", err)
	}
	if err := dec.Decode(row); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityMedium,
			fmt.Sprintf("failed to decode row into %T", out))
	}
	return nil
}
