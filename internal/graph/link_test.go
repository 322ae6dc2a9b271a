package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelPattern(t *testing.T) {
	p, err := parseRelPattern("<FROM_DATA")
	require.NoError(t, err)
	assert.Equal(t, relPattern{left: "<", relType: "FROM_DATA"}, p)

	p, err = parseRelPattern("FROM_DATA>")
	require.NoError(t, err)
	assert.Equal(t, relPattern{relType: "FROM_DATA", right: ">"}, p)

	_, err = parseRelPattern("<BOTH>")
	assert.Error(t, err)
}

func TestLinkEntities_ViaNode(t *testing.T) {
	c, f := testClient(Options{APOC: true})
	f.on("apoc.periodic.iterate", row(summaryKeys, int64(4), int64(1), int64(0)))

	summary, err := c.LinkEntities(context.Background(), LinkSpec{
		Left:     "Client",
		Right:    "Account",
		ViaNode:  "Transaction",
		LeftRel:  "<FROM_DATA",
		RightRel: "FROM_DATA>",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Total)

	call, _ := f.find("apoc.periodic.iterate")
	assert.Contains(t, call.cypher, "'MERGE (left)-[:`HAS_ACCOUNT`]->(right)'")
	outer := call.params["outer"].(string)
	assert.Contains(t, outer, "MATCH (left)<-[:`FROM_DATA`*0..1]-(sdr:`Transaction`)")
	assert.Contains(t, outer, "(sdr)-[:`FROM_DATA`*0..1]->(right)")
	assert.Contains(t, outer, "WHERE left:`Client` AND right:`Account`")
	assert.Equal(t, "", call.params["cypher"])
	assert.Equal(t, map[string]any{}, call.params["cypher_dict"])
}

func TestLinkEntities_Cypher(t *testing.T) {
	c, f := testClient(Options{APOC: true})

	_, err := c.LinkEntities(context.Background(), LinkSpec{
		Left:         "Client",
		Right:        "Account",
		Relationship: "OWNS",
		Cypher:       "MATCH (l:Client), (r:Account) WHERE l.id = r.owner AND l.region = $region RETURN l AS left, r AS right",
		Params:       map[string]any{"region": "EU"},
	})
	require.NoError(t, err)

	call, _ := f.find("apoc.periodic.iterate")
	assert.Contains(t, call.cypher, "`OWNS`")
	assert.Contains(t, call.params["outer"], "apoc.cypher.run($cypher, $cypher_dict)")
	assert.Equal(t, map[string]any{"region": "EU"}, call.params["cypher_dict"])
}

func TestLinkEntities_NeedsPattern(t *testing.T) {
	c, _ := testClient(Options{APOC: true})
	_, err := c.LinkEntities(context.Background(), LinkSpec{Left: "A", Right: "B"})
	assert.Error(t, err)
}

func TestLinkNodesOnMatchingProperty(t *testing.T) {
	c, f := testClient(Options{})

	require.NoError(t, c.LinkNodesOnMatchingProperty(context.Background(), "patient", "doctor", "city", "", "LIVES_NEAR"))
	assert.Equal(t,
		"MATCH (x:`patient`), (y:`doctor`) WHERE x.`city` = y.`city` MERGE (x)-[:`LIVES_NEAR`]->(y)",
		f.statements()[0])
}

func TestLinkNodesOnMatchingPropertyValue(t *testing.T) {
	c, f := testClient(Options{})

	require.NoError(t, c.LinkNodesOnMatchingPropertyValue(context.Background(), "patient", "doctor", "city", "Berkeley", "IN_CITY"))
	call := f.calls[0]
	assert.Equal(t,
		"MATCH (x:`patient`), (y:`doctor`) WHERE x.`city` = $value AND y.`city` = $value MERGE (x)-[:`IN_CITY`]->(y)",
		call.cypher)
	assert.Equal(t, map[string]any{"value": "Berkeley"}, call.params)
}

func TestLinkNodesByIDs(t *testing.T) {
	c, f := testClient(Options{})

	require.NoError(t, c.LinkNodesByIDs(context.Background(), 1, 2, "KNOWS", map[string]any{"since": 2003}))
	call := f.calls[0]
	assert.Contains(t, call.cypher, "WHERE id(x) = $node_id1 AND id(y) = $node_id2")
	assert.Contains(t, call.cypher, "MERGE (x)-[:`KNOWS` {`since`: $par_1}]->(y)")
	assert.Equal(t, map[string]any{"node_id1": int64(1), "node_id2": int64(2), "par_1": 2003}, call.params)
}
