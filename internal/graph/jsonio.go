package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// Export is the result of ExportDBaseJSON. Data is a JSON list with one
// object per node or relationship.
type Export struct {
	Nodes         int64  `mapstructure:"nodes" json:"nodes"`
	Relationships int64  `mapstructure:"relationships" json:"relationships"`
	Properties    int64  `mapstructure:"properties" json:"properties"`
	Data          string `mapstructure:"data" json:"data"`
}

// ExportDBaseJSON dumps the whole database with apoc.export.json.all.
// Items look like
//
//	{"type":"node","id":"3","labels":["User"],"properties":{"name":"Adam"}}
//	{"id":"1","type":"relationship","label":"KNOWS","properties":{},"start":{"id":"3"},"end":{"id":"4"}}
func (c *Client) ExportDBaseJSON(ctx context.Context) (*Export, error) {
	res, err := c.run(ctx, opRead, `
		CALL apoc.export.json.all(null, {useTypes: true, stream: true})
		YIELD nodes, relationships, properties, data
		RETURN nodes, relationships, properties, data`, nil)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, errors.InternalErrorf("apoc.export.json.all returned no rows")
	}

	row := res.Records[0].AsMap()
	if row["data"] == nil {
		row["data"] = ""
	}
	var export Export
	if err := decodeRow(row, &export); err != nil {
		return nil, err
	}
	// the stream is newline separated objects, not a JSON list
	export.Data = "[" + strings.ReplaceAll(export.Data, "\n", ",\n ") + "\n]"
	return &export, nil
}

// ImportJSONData recreates the nodes and relationships of an export. Node
// ids in the dump are mapped to the ids of the newly created nodes; only
// the first label of each node is used. Nothing is written unless every
// item is well formed.
func (c *Client) ImportJSONData(ctx context.Context, data string) (string, error) {
	parsed, err := DecodeJSON([]byte(data))
	if err != nil {
		return "", errors.ImportErrorf("Incorrectly-formatted JSON string. %v", err)
	}
	items, ok := parsed.([]any)
	if !ok {
		return "", errors.ImportError("The JSON string does not represent the expected list")
	}

	if err := validateImportItems(items); err != nil {
		return "", err
	}

	idShift := make(map[int64]int64)
	nodes := 0
	for _, raw := range items {
		item := raw.(map[string]any)
		if item["type"] != "node" {
			continue
		}
		oldID, err := toInt64(item["id"])
		if err != nil {
			return "", errors.ImportErrorf("node id %v: %v", item["id"], err)
		}
		var labels []string
		if ls, ok := item["labels"].([]any); ok && len(ls) > 0 {
			labels = []string{fmt.Sprint(ls[0])}
		}
		props, _ := item["properties"].(map[string]any)

		c.logger.Debugf("Creating node with label %v and properties %v", labels, props)
		newID, err := c.CreateNode(ctx, labels, props)
		if err != nil {
			return "", err
		}
		idShift[oldID] = newID
		nodes++
	}

	rels := 0
	for _, raw := range items {
		item := raw.(map[string]any)
		if item["type"] != "relationship" {
			continue
		}
		start, err := shiftedID(item["start"], idShift)
		if err != nil {
			return "", err
		}
		end, err := shiftedID(item["end"], idShift)
		if err != nil {
			return "", err
		}
		props, _ := item["properties"].(map[string]any)
		if err := c.LinkNodesByIDs(ctx, start, end, fmt.Sprint(item["label"]), props); err != nil {
			return "", err
		}
		rels++
	}

	return fmt.Sprintf("Successful import of %d node(s) and %d relationship(s)", nodes, rels), nil
}

func validateImportItems(items []any) error {
	fail := func(i int, item any, problem string) error {
		return errors.ImportErrorf("Item in list index %d %s.  Nothing imported.  Item: %v", i, problem, item)
	}
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok || (item["type"] != "node" && item["type"] != "relationship") {
			return fail(i, raw, "must have a 'type' of either 'node' or 'relationship'")
		}
		if item["type"] == "node" {
			if _, ok := item["id"]; !ok {
				return fail(i, item, "is marked as 'node' but it lacks an 'id'")
			}
			continue
		}
		if _, ok := item["label"]; !ok {
			return fail(i, item, "is marked as 'relationship' but lacks a 'label'")
		}
		start, ok := item["start"]
		if !ok {
			return fail(i, item, "is marked as 'relationship' but lacks a 'start' value")
		}
		end, ok := item["end"]
		if !ok {
			return fail(i, item, "is marked as 'relationship' but lacks a 'end' value")
		}
		if m, ok := start.(map[string]any); !ok || m["id"] == nil {
			return fail(i, item, "is marked as 'relationship' but its 'start' value lacks an 'id'")
		}
		if m, ok := end.(map[string]any); !ok || m["id"] == nil {
			return fail(i, item, "is marked as 'relationship' but its 'end' value lacks an 'id'")
		}
	}
	return nil
}

func shiftedID(endpoint any, idShift map[int64]int64) (int64, error) {
	raw := endpoint.(map[string]any)["id"]
	old, err := toInt64(raw)
	if err != nil {
		return 0, errors.ImportErrorf("relationship endpoint id %v: %v", raw, err)
	}
	id, ok := idShift[old]
	if !ok {
		return 0, errors.ImportErrorf("relationship refers to node %d, which is not part of the import", old)
	}
	return id, nil
}

// DecodeJSON parses JSON keeping whole numbers as int64, so they are
// stored as integers rather than floats.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after the JSON value")
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}
