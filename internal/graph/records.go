package graph

import (
	"fmt"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ConvertTemporal replaces driver temporal values (Date, LocalDateTime)
// with time.Time, recursing into lists and maps. Other values are
// returned unchanged.
func ConvertTemporal(v any) any {
	switch t := v.(type) {
	case neo4j.Date:
		return t.Time()
	case neo4j.LocalDateTime:
		return t.Time()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ConvertTemporal(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = ConvertTemporal(e)
		}
		return out
	default:
		return v
	}
}

// Flatten collapses nested maps and lists into a single level:
//
//	{"a": {"b": 1}, "c": [10, 20]} -> {"a.b": 1, "c.0": 10, "c.1": 20}
//
// sep defaults to ".".
func Flatten(m map[string]any, sep string) map[string]any {
	if sep == "" {
		sep = "."
	}
	out := make(map[string]any, len(m))
	flattenInto(out, "", m, sep)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any, sep string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		flattenValue(out, key, v, sep)
	}
}

func flattenValue(out map[string]any, key string, v any, sep string) {
	switch t := v.(type) {
	case map[string]any:
		flattenInto(out, key, t, sep)
	case []any:
		for i, e := range t {
			flattenValue(out, key+sep+strconv.Itoa(i), e, sep)
		}
	case []string:
		for i, e := range t {
			out[key+sep+strconv.Itoa(i)] = e
		}
	default:
		out[key] = v
	}
}

// dataValue renders one record value the way Query returns it: nodes
// become their properties, relationships [{}, type, {}] and paths the
// alternating list of node properties and relationship types.
func dataValue(v any, convertDates bool) any {
	switch t := v.(type) {
	case neo4j.Node:
		return copyProps(t.Props, convertDates)
	case neo4j.Relationship:
		return []any{map[string]any{}, t.Type, map[string]any{}}
	case neo4j.Path:
		out := make([]any, 0, len(t.Nodes)+len(t.Relationships))
		for i, n := range t.Nodes {
			out = append(out, copyProps(n.Props, convertDates))
			if i < len(t.Relationships) {
				out = append(out, t.Relationships[i].Type)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = dataValue(e, convertDates)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = dataValue(e, convertDates)
		}
		return out
	}
	if convertDates {
		return ConvertTemporal(v)
	}
	return v
}

func copyProps(props map[string]any, convertDates bool) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if convertDates {
			v = ConvertTemporal(v)
		}
		out[k] = v
	}
	return out
}

// recordData turns one record into a column -> value map.
func recordData(rec *neo4j.Record, convertDates bool) map[string]any {
	row := make(map[string]any, len(rec.Keys))
	for i, key := range rec.Keys {
		row[key] = dataValue(rec.Values[i], convertDates)
	}
	return row
}

// expandNode gives the node's properties plus neo4j_id and neo4j_labels.
func expandNode(n neo4j.Node) map[string]any {
	out := copyProps(n.Props, false)
	out["neo4j_id"] = n.Id
	labels := make([]string, len(n.Labels))
	copy(labels, n.Labels)
	out["neo4j_labels"] = labels
	return out
}

// expandItem is the QueryExpanded rendering of a single value.
func expandItem(key string, v any) map[string]any {
	switch t := v.(type) {
	case neo4j.Node:
		return expandNode(t)
	case neo4j.Relationship:
		out := copyProps(t.Props, false)
		out["neo4j_id"] = t.Id
		out["neo4j_start_node"] = t.StartId
		out["neo4j_end_node"] = t.EndId
		out["neo4j_type"] = t.Type
		return out
	case neo4j.Path:
		nodes := make([]map[string]any, len(t.Nodes))
		for i, n := range t.Nodes {
			nodes[i] = expandNode(n)
		}
		return map[string]any{"neo4j_nodes": nodes}
	default:
		return map[string]any{key: v}
	}
}

// toInt64 accepts the integer shapes that show up in records and JSON.
func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T for an integer", v)
	}
}
