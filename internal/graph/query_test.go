package graph

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/neointerface/internal/errors"
)

var (
	patientF = neo4j.Node{Id: 10, Labels: []string{"patient"}, Props: map[string]any{"patient_id": int64(123), "gender": "F"}}
	patientM = neo4j.Node{Id: 11, Labels: []string{"patient"}, Props: map[string]any{"patient_id": int64(444), "gender": "M"}}
	paidBy   = neo4j.Relationship{Id: 20, StartId: 10, EndId: 11, Type: "PAID_BY", Props: map[string]any{}}
)

func TestQuery(t *testing.T) {
	c, f := testClient(Options{})
	f.on("RETURN n1, n2", row([]string{"n1", "n2"}, patientF, patientM))

	data, err := c.Query(context.Background(), "MATCH (n1), (n2) RETURN n1, n2", nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{
		"n1": map[string]any{"patient_id": int64(123), "gender": "F"},
		"n2": map[string]any{"patient_id": int64(444), "gender": "M"},
	}}, data)

	call, ok := f.find("RETURN n1, n2")
	require.True(t, ok)
	assert.Equal(t, opQuery, call.operation)
}

func TestQuery_EmptyResult(t *testing.T) {
	c, _ := testClient(Options{})

	data, err := c.Query(context.Background(), "MATCH (n:nothing) RETURN n", nil)
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func TestQuery_DateConversion(t *testing.T) {
	day := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	c, f := testClient(Options{})
	f.on("", row([]string{"d"}, neo4j.Date(day)))
	f.on("", row([]string{"d"}, neo4j.Date(day)))

	data, err := c.Query(context.Background(), "RETURN date('2020-01-02') AS d", nil)
	require.NoError(t, err)
	assert.IsType(t, time.Time{}, data[0]["d"])

	data, err = c.Query(context.Background(), "RETURN date('2020-01-02') AS d", nil, WithoutDateConversion())
	require.NoError(t, err)
	assert.IsType(t, neo4j.Date{}, data[0]["d"])
}

func TestQuery_DriverErrorWrapped(t *testing.T) {
	c, f := testClient(Options{})
	f.fail("", &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "bad"})

	_, err := c.Query(context.Background(), "RETRUN 1", nil)
	require.Error(t, err)
	assert.True(t, errors.HasType(err, errors.ErrorTypeDatabase))

	var neoErr *neo4j.Neo4jError
	assert.True(t, stderrors.As(err, &neoErr))
}

func TestQuery_NotConnected(t *testing.T) {
	c := newClient(Options{Host: "bolt://localhost:7687"}, nil)

	_, err := c.Query(context.Background(), "RETURN 1", nil)
	require.Error(t, err)
	assert.True(t, errors.HasType(err, errors.ErrorTypeConnection))
}

func TestQueryTable(t *testing.T) {
	c, f := testClient(Options{})
	f.on("", rows([]string{"name", "info"},
		[]any{"Alice", map[string]any{"age": int64(30)}},
		[]any{"Bob", map[string]any{"age": int64(40)}},
	))

	df, err := c.QueryTable(context.Background(), "MATCH (p) RETURN p.name AS name, {age: p.age} AS info", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.ElementsMatch(t, []string{"name", "info.age"}, df.Names())
}

func TestQueryTable_Empty(t *testing.T) {
	c, _ := testClient(Options{})

	df, err := c.QueryTable(context.Background(), "MATCH (n:nothing) RETURN n", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, []string{"name"}, df.Names())
}

func TestQueryExpanded(t *testing.T) {
	c, f := testClient(Options{})
	f.on("", row([]string{"n", "r", "count"}, patientF, paidBy, int64(2)))

	nested, err := c.QueryExpanded(context.Background(), "MATCH (n)-[r]->() RETURN n, r, 2 AS count", nil)
	require.NoError(t, err)
	require.Len(t, nested, 1)
	require.Len(t, nested[0], 3)

	assert.Equal(t, int64(10), nested[0][0]["neo4j_id"])
	assert.Equal(t, []string{"patient"}, nested[0][0]["neo4j_labels"])
	assert.Equal(t, "PAID_BY", nested[0][1]["neo4j_type"])
	assert.Equal(t, int64(11), nested[0][1]["neo4j_end_node"])
	assert.Equal(t, map[string]any{"count": int64(2)}, nested[0][2])
}

func TestQueryExpandedFlat(t *testing.T) {
	c, f := testClient(Options{})
	f.on("", rows([]string{"n"}, []any{patientF}, []any{patientM}))

	flat, err := c.QueryExpandedFlat(context.Background(), "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	require.Len(t, flat, 2)
	assert.Equal(t, int64(444), flat[1]["patient_id"])

	flat, err = c.QueryExpandedFlat(context.Background(), "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{}, flat)
}

func TestQueryGraph(t *testing.T) {
	c, f := testClient(Options{})
	// the relationship arrives before its endpoints
	f.on("", rows([]string{"r", "a", "b"},
		[]any{paidBy, patientF, patientM},
		[]any{paidBy, patientF, patientM},
	))

	rg, err := c.QueryGraph(context.Background(), "MATCH (a)-[r]->(b) RETURN r, a, b", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rg.NodeCount())
	assert.Equal(t, 1, rg.EdgeCount())
	assert.Equal(t, []int64{10, 11}, rg.NodeIDs())
	assert.Equal(t, "F", rg.Node(10).Properties["gender"])
	assert.Equal(t, []string{"patient"}, rg.Node(11).Labels)
	assert.Equal(t, []int64{11}, rg.Successors(10))
}

func TestQueryGraph_UnrecognizedObject(t *testing.T) {
	c, f := testClient(Options{})
	f.on("", row([]string{"x"}, int64(1)))

	_, err := c.QueryGraph(context.Background(), "RETURN 1 AS x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unrecognized object")
	assert.True(t, errors.HasType(err, errors.ErrorTypeValidation))
}
