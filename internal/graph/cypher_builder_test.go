package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/neointerface/internal/errors"
)

func TestPrepareLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"none", nil, ""},
		{"single", []string{"client"}, ":`client`"},
		{"with space", []string{"car", "car manufacturer"}, ":`car`:`car manufacturer`"},
		{"empty skipped", []string{"", "A"}, ":`A`"},
		{"backtick doubled", []string{"we`ird"}, ":`we``ird`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrepareLabels(tt.labels...))
		})
	}
}

func TestDictToCypher(t *testing.T) {
	q, params := DictToCypher(map[string]any{"since": 2003, "code": "xyz"})
	assert.Equal(t, "{`code`: $par_1, `since`: $par_2}", q)
	assert.Equal(t, map[string]any{"par_1": "xyz", "par_2": 2003}, params)

	q, params = DictToCypher(map[string]any{"cost": 65.99, "item description": "the \"best\" thing"})
	assert.Equal(t, "{`cost`: $par_1, `item description`: $par_2}", q)
	assert.Equal(t, "the \"best\" thing", params["par_2"])

	q, params = DictToCypher(nil)
	assert.Equal(t, "", q)
	assert.Empty(t, params)
}

func TestOrderedDictToCypher(t *testing.T) {
	q, params := OrderedDictToCypher(OrderedProps{{"z", 1}, {"a", 2}})
	assert.Equal(t, "{`z`: $par_1, `a`: $par_2}", q)
	assert.Equal(t, map[string]any{"par_1": 1, "par_2": 2}, params)
}

func TestCypherBuilder_SetClause(t *testing.T) {
	b := NewCypherBuilder("set")
	clause := b.SetClause("n", SortedProps(map[string]any{"price": 7000, "color": "white"}))
	assert.Equal(t, "SET n.`color` = $set_1, n.`price` = $set_2", clause)
	assert.Equal(t, map[string]any{"set_1": "white", "set_2": 7000}, b.Params())
	assert.Equal(t, "", b.SetClause("n", nil))
}

func TestMatchNodes(t *testing.T) {
	q, params, err := MatchNodes(MatchSpec{
		Labels:     []string{"person"},
		Properties: map[string]any{"gender": "F", "age": 22},
		Clause:     "n.income > $min_income",
		Params:     map[string]any{"min_income": 50000},
	})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n :`person` {`age`: $par_1, `gender`: $par_2}) WHERE n.income > $min_income", q)
	assert.Equal(t, map[string]any{"par_1": 22, "par_2": "F", "min_income": 50000}, params)
}

func TestMatchNodes_NoFilters(t *testing.T) {
	q, params, err := MatchNodes(MatchSpec{})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n  )", q)
	assert.Empty(t, params)
}

func TestMatchNodes_ReservedParamName(t *testing.T) {
	_, _, err := MatchNodes(MatchSpec{
		Properties: map[string]any{"a": 1},
		Params:     map[string]any{"par_1": "clash"},
	})
	require.Error(t, err)
	assert.True(t, errors.HasType(err, errors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "par_1")
}

func TestQueryParamsFromDict(t *testing.T) {
	out := QueryParamsFromDict(map[string]any{
		"age":    22,
		"gender": "F",
		"opts":   map[string]any{"k": 1},
	}, 0)
	assert.Equal(t,
		":param age=> 22;\n"+
			":param gender=> 'F';\n"+
			":param opts=> apoc.map.fromPairs([['k', 1]]);\n",
		out)

	assert.Equal(t,
		":param active=> 'True';\n"+
			":param flags=> apoc.map.fromPairs([['off', False],['on', True]]);\n",
		QueryParamsFromDict(map[string]any{
			"active": true,
			"flags":  map[string]any{"on": true, "off": false},
		}, 0))

	assert.Equal(t, ":param name=> 'ab\n", QueryParamsFromDict(map[string]any{"name": "abcdef"}, 17))
}
