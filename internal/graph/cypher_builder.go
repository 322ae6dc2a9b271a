package graph

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// Property is one key/value pair of an OrderedProps list.
type Property struct {
	Key   string
	Value any
}

// OrderedProps is a property map whose placeholder numbering follows the
// slice order instead of the sorted key order used for plain maps.
type OrderedProps []Property

// SortedProps converts a map into OrderedProps sorted by key.
func SortedProps(m map[string]any) OrderedProps {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make(OrderedProps, 0, len(keys))
	for _, k := range keys {
		props = append(props, Property{Key: k, Value: m[k]})
	}
	return props
}

// CypherBuilder hands out sequential placeholders ($par_1, $par_2 ...) and
// keeps the matching parameter map. Values never end up in the query text.
type CypherBuilder struct {
	prefix  string
	params  map[string]any
	counter int
}

// NewCypherBuilder creates a builder whose placeholders are named prefix_N.
func NewCypherBuilder(prefix string) *CypherBuilder {
	return &CypherBuilder{
		prefix: prefix,
		params: make(map[string]any),
	}
}

// AddParam adds a parameter and returns its placeholder
func (b *CypherBuilder) AddParam(value any) string {
	b.counter++
	name := fmt.Sprintf("%s_%d", b.prefix, b.counter)
	b.params[name] = value
	return "$" + name
}

// Params returns all parameters for the query
func (b *CypherBuilder) Params() map[string]any {
	return b.params
}

// PropertyMap renders {`k1`: $par_1, `k2`: $par_2}, or "" for no properties.
func (b *CypherBuilder) PropertyMap(props OrderedProps) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, fmt.Sprintf("%s: %s", quoteIdent(p.Key), b.AddParam(p.Value)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SetClause renders "SET n.`k1` = $set_1, n.`k2` = $set_2" for the given variable.
func (b *CypherBuilder) SetClause(variable string, props OrderedProps) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, fmt.Sprintf("%s.%s = %s", variable, quoteIdent(p.Key), b.AddParam(p.Value)))
	}
	return "SET " + strings.Join(parts, ", ")
}

// quoteIdent wraps a label, type or property name in backticks.
// Embedded backticks are doubled.
func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// PrepareLabels renders labels for a node pattern:
//
//	PrepareLabels()                        == ""
//	PrepareLabels("client")                == ":`client`"
//	PrepareLabels("car", "car manufacturer") == ":`car`:`car manufacturer`"
//
// Empty names are skipped.
func PrepareLabels(labels ...string) string {
	var sb strings.Builder
	for _, l := range labels {
		if l == "" {
			continue
		}
		sb.WriteString(":")
		sb.WriteString(quoteIdent(l))
	}
	return sb.String()
}

// DictToCypher turns a property map into a Cypher map literal plus its
// bindings, e.g. {"since": 2003, "code": "xyz"} gives
// ("{`code`: $par_1, `since`: $par_2}", {"par_1": "xyz", "par_2": 2003}).
// Keys are numbered in sorted order. Empty or nil maps give ("", {}).
func DictToCypher(props map[string]any) (string, map[string]any) {
	return OrderedDictToCypher(SortedProps(props))
}

// OrderedDictToCypher is DictToCypher with caller-controlled numbering.
func OrderedDictToCypher(props OrderedProps) (string, map[string]any) {
	b := NewCypherBuilder("par")
	return b.PropertyMap(props), b.Params()
}

// MatchSpec selects nodes by labels, exact property values and an optional
// WHERE clause over the variable n. Params binds the clause's own $names.
type MatchSpec struct {
	Labels     []string
	Properties map[string]any
	Clause     string
	Params     map[string]any
}

// MatchNodes builds "MATCH (n <labels> <props>)" plus " WHERE <clause>" and
// the merged parameter map. Names of the form par_N are reserved for the
// property placeholders; finding one in spec.Params is a validation error.
func MatchNodes(spec MatchSpec) (string, map[string]any, error) {
	labels := PrepareLabels(spec.Labels...)
	props, propParams := DictToCypher(spec.Properties)

	params, err := mergeParams(spec.Params, propParams)
	if err != nil {
		return "", nil, err
	}

	q := fmt.Sprintf("MATCH (n %s %s)", labels, props)
	if clause := strings.TrimSpace(spec.Clause); clause != "" {
		q += " WHERE " + clause
	}
	return q, params, nil
}

// mergeParams returns a new map holding user and internal bindings.
func mergeParams(user, internal map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(user)+len(internal))
	for k, v := range user {
		merged[k] = v
	}

	var conflicts []string
	for k, v := range internal {
		if _, ok := merged[k]; ok {
			conflicts = append(conflicts, k)
			continue
		}
		merged[k] = v
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, errors.ValidationErrorf(
			"`cypher_dict` should not contain any keys of the form `par_n` where n is an integer. "+
				"Those names are reserved for internal use. Conflicting names: {%s}",
			strings.Join(conflicts, ", "))
	}
	return merged, nil
}

// QueryParamsFromDict renders parameters as ":param" commands for pasting
// into the Neo4j browser, one per line, each cut to charLimit characters
// (500 when charLimit <= 0):
//
//	:param age=> 22;
//	:param gender=> 'F';
func QueryParamsFromDict(params map[string]any, charLimit int) string {
	if charLimit <= 0 {
		charLimit = 500
	}

	var sb strings.Builder
	for _, p := range SortedProps(params) {
		line := ":param " + p.Key + "=> " + browserLiteral(p.Value) + ";"
		sb.WriteString(truncateRunes(line, charLimit))
		sb.WriteString("\n")
	}
	return sb.String()
}

func browserLiteral(v any) string {
	switch t := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case map[string]any:
		pairs := make([]string, 0, len(t))
		for _, p := range SortedProps(t) {
			pairs = append(pairs, fmt.Sprintf("['%s', %s]", p.Key, boolText(p.Value)))
		}
		return "apoc.map.fromPairs([" + strings.Join(pairs, ",") + "])"
	default:
		return "'" + boolText(t) + "'"
	}
}

// boolText prints booleans as True and False, anything else with fmt.
func boolText(v any) string {
	if b, ok := v.(bool); ok {
		if b {
			return "True"
		}
		return "False"
	}
	return fmt.Sprint(v)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
