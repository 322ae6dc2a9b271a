package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// Index describes one database index.
type Index struct {
	Name          string   `mapstructure:"name" json:"name"`
	LabelsOrTypes []string `mapstructure:"labelsOrTypes" json:"labelsOrTypes"`
	Properties    []string `mapstructure:"properties" json:"properties"`
	Type          string   `mapstructure:"type" json:"type"`
	Uniqueness    string   `mapstructure:"uniqueness" json:"uniqueness"`
}

// Constraint describes one database constraint. 4.x servers fill
// Description and Details; 5.x servers fill Type, LabelsOrTypes and
// Properties.
type Constraint struct {
	Name          string   `mapstructure:"name" json:"name"`
	Type          string   `mapstructure:"type" json:"type,omitempty"`
	LabelsOrTypes []string `mapstructure:"labelsOrTypes" json:"labelsOrTypes,omitempty"`
	Properties    []string `mapstructure:"properties" json:"properties,omitempty"`
	Description   string   `mapstructure:"description" json:"description,omitempty"`
	Details       string   `mapstructure:"details" json:"details,omitempty"`
}

// ConstraintOptions for CreateConstraint. Type defaults to UNIQUE, the only
// supported kind; Name defaults to "label.key.TYPE".
type ConstraintOptions struct {
	Type string
	Name string
}

const rdfURIConstraint = "n10s_unique_uri"

// GetIndexes lists the indexes, optionally only those of the given types
// (e.g. "RANGE", "BTREE"). Token lookup indexes are left out on 5.x.
func (c *Client) GetIndexes(ctx context.Context, types ...string) ([]Index, error) {
	var q string
	if c.legacySchema() {
		where := ""
		if len(types) > 0 {
			where = "WITH * WHERE type IN $types"
		}
		q = fmt.Sprintf(`
			CALL db.indexes()
			YIELD name, labelsOrTypes, properties, type, uniqueness
			%s
			RETURN *`, where)
	} else {
		where := "WHERE type <> 'LOOKUP'"
		if len(types) > 0 {
			where += " AND type IN $types"
		}
		q = fmt.Sprintf(`
			SHOW INDEXES
			YIELD name, labelsOrTypes, properties, type, owningConstraint
			%s
			RETURN name, labelsOrTypes, properties, type,
			       CASE WHEN owningConstraint IS NULL THEN 'NONUNIQUE' ELSE 'UNIQUE' END AS uniqueness`, where)
	}
	if types == nil {
		types = []string{}
	}

	res, err := c.run(ctx, opSchema, q, map[string]any{"types": types})
	if err != nil {
		return nil, err
	}
	indexes := make([]Index, 0, len(res.Records))
	for _, rec := range res.Records {
		var idx Index
		if err := decodeRow(rec.AsMap(), &idx); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// GetConstraints lists the constraints.
func (c *Client) GetConstraints(ctx context.Context) ([]Constraint, error) {
	q := "SHOW CONSTRAINTS YIELD name, type, labelsOrTypes, properties RETURN name, type, labelsOrTypes, properties"
	if c.legacySchema() {
		q = "CALL db.constraints() YIELD name, description, details RETURN *"
	}

	res, err := c.run(ctx, opSchema, q, nil)
	if err != nil {
		return nil, err
	}
	constraints := make([]Constraint, 0, len(res.Records))
	for _, rec := range res.Records {
		var con Constraint
		if err := decodeRow(rec.AsMap(), &con); err != nil {
			return nil, err
		}
		constraints = append(constraints, con)
	}
	return constraints, nil
}

// CreateIndex creates the index "label.key" unless an index on exactly
// that label and property already exists. It reports whether an index
// was created.
//
// Composite indexes are compared by their joined names, so an index on
// (:a:b {p, q}) blocks CreateIndex("a_b", "p_q").
func (c *Client) CreateIndex(ctx context.Context, label, key string) (bool, error) {
	existing, err := c.GetIndexes(ctx)
	if err != nil {
		return false, err
	}
	for _, idx := range existing {
		if strings.Join(idx.LabelsOrTypes, "_") == label && strings.Join(idx.Properties, "_") == key {
			return false, nil
		}
	}

	q := fmt.Sprintf("CREATE INDEX %s FOR (s%s) ON (s.%s)",
		quoteIdent(label+"."+key), PrepareLabels(label), quoteIdent(key))
	if err := c.exec(ctx, opSchema, q, nil); err != nil {
		return false, err
	}
	return true, nil
}

// CreateConstraint adds a uniqueness constraint on label.key. It returns
// false when a constraint of the same name exists or the server refuses
// it, for instance because an index already covers the property.
func (c *Client) CreateConstraint(ctx context.Context, label, key string, opts ConstraintOptions) (bool, error) {
	if opts.Type == "" {
		opts.Type = "UNIQUE"
	}
	if opts.Type != "UNIQUE" {
		return false, errors.ValidationErrorf("unsupported constraint type %q: only UNIQUE is available", opts.Type)
	}
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s.%s.%s", label, key, opts.Type)
	}

	existing, err := c.GetConstraints(ctx)
	if err != nil {
		return false, err
	}
	for _, con := range existing {
		if con.Name == name {
			return false, nil
		}
	}

	q := fmt.Sprintf("CREATE CONSTRAINT %s FOR (s%s) REQUIRE s.%s IS UNIQUE",
		quoteIdent(name), PrepareLabels(label), quoteIdent(key))
	if c.legacySchema() {
		q = fmt.Sprintf("CREATE CONSTRAINT %s ON (s%s) ASSERT s.%s IS UNIQUE",
			quoteIdent(name), PrepareLabels(label), quoteIdent(key))
	}
	if err := c.exec(ctx, opSchema, q, nil); err != nil {
		c.logger.WithError(err).WithField("constraint", name).Warn("constraint not created")
		return false, nil
	}
	return true, nil
}

// DropIndex drops the named index, reporting false if that failed (for
// example because there is no such index).
func (c *Client) DropIndex(ctx context.Context, name string) bool {
	if err := c.exec(ctx, opSchema, "DROP INDEX "+quoteIdent(name), nil); err != nil {
		c.logger.WithError(err).WithField("index", name).Debug("index not dropped")
		return false
	}
	return true
}

// DropConstraint drops the named constraint, reporting false on failure.
func (c *Client) DropConstraint(ctx context.Context, name string) bool {
	if err := c.exec(ctx, opSchema, "DROP CONSTRAINT "+quoteIdent(name), nil); err != nil {
		c.logger.WithError(err).WithField("constraint", name).Debug("constraint not dropped")
		return false
	}
	return true
}

// DropAllIndexes drops every index and, when includingConstraints is set,
// every constraint before that.
func (c *Client) DropAllIndexes(ctx context.Context, includingConstraints bool) error {
	if includingConstraints {
		if c.opts.APOC {
			if err := c.exec(ctx, opSchema, "CALL apoc.schema.assert({},{})", nil); err != nil {
				return err
			}
		} else if err := c.DropAllConstraints(ctx); err != nil {
			return err
		}
	}

	indexes, err := c.GetIndexes(ctx)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		c.DropIndex(ctx, idx.Name)
	}
	return nil
}

// DropAllConstraints drops every constraint except the RDF uri constraint
// when RDF support is on.
func (c *Client) DropAllConstraints(ctx context.Context) error {
	constraints, err := c.GetConstraints(ctx)
	if err != nil {
		return err
	}
	for _, con := range constraints {
		if c.opts.RDF && con.Name == rdfURIConstraint {
			continue
		}
		c.DropConstraint(ctx, con.Name)
	}
	return nil
}
