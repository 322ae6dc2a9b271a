package graph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/neointerface/internal/errors"
)

type rdfServer struct {
	*httptest.Server
	lastBody map[string]any
	lastUser string
}

func newRDFServer(t *testing.T, ping string) *rdfServer {
	t.Helper()
	s := &rdfServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/rdf/ping", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, ping)
	})
	mux.HandleFunc("/rdf/neo4j/cypher", func(w http.ResponseWriter, r *http.Request) {
		s.lastUser, _, _ = r.BasicAuth()
		s.lastBody = map[string]any{}
		json.NewDecoder(r.Body).Decode(&s.lastBody)
		io.WriteString(w, "<neo4j://graph.schema#car/1> a <neo4j://graph.schema#car> .")
	})
	mux.HandleFunc("/rdf/neo4j/onto", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "@prefix owl: <http://www.w3.org/2002/07/owl#> .")
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func TestDeriveRDFHost(t *testing.T) {
	tests := []struct {
		bolt string
		want string
	}{
		{"bolt://localhost:7687", "http://localhost:7474/rdf/"},
		{"neo4j://db.example.com", "http://db.example.com:7474/rdf/"},
		{"neo4j+s://abc.databases.neo4j.io", "https://abc.databases.neo4j.io:7474/rdf/"},
		{"bolt+ssc://10.0.0.2:7687", "https://10.0.0.2:7474/rdf/"},
	}
	for _, tt := range tests {
		t.Run(tt.bolt, func(t *testing.T) {
			got, err := deriveRDFHost(tt.bolt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := deriveRDFHost("")
	assert.True(t, errors.HasType(err, errors.ErrorTypeConfig))
}

func TestRDFSetupConnection(t *testing.T) {
	srv := newRDFServer(t, `{"message":"here!"}`)
	c, f := testClient(Options{RDF: true, RDFHost: srv.URL + "/rdf/"})

	require.NoError(t, c.RDFSetupConnection(context.Background()))
	assert.Equal(t, srv.URL+"/rdf/", c.RDFHost())
	assert.Equal(t, 1, f.count("n10s.graphconfig.init"))
	assert.Equal(t, 1, f.count("CREATE CONSTRAINT `n10s_unique_uri` FOR (s:`Resource`) REQUIRE s.`uri` IS UNIQUE"))
}

func TestRDFSetupConnection_BadPing(t *testing.T) {
	srv := newRDFServer(t, `{"message":"nope"}`)
	c, _ := testClient(Options{RDF: true, RDFHost: srv.URL + "/rdf/"})

	err := c.RDFSetupConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHECK IF RDF ENDPOINT IS SET UP CORRECTLY!")
}

func TestRDFGetSubgraph(t *testing.T) {
	srv := newRDFServer(t, "")
	c, f := testClient(Options{RDF: true, RDFHost: srv.URL + "/rdf/", User: "neo4j", Password: "pw"})
	f.on("db.labels", rows([]string{"label"}, []any{"car%20model"}, []any{"car"}))

	out, err := c.RDFGetSubgraph(context.Background(), "MATCH path = (c:car) RETURN path", map[string]any{"x": 1}, "")
	require.NoError(t, err)
	assert.Contains(t, out, "neo4j://graph.schema#car/1")

	assert.Equal(t, "neo4j", srv.lastUser)
	assert.Equal(t, "MATCH path = (c:car) RETURN path", srv.lastBody["cypher"])
	assert.Equal(t, DefaultRDFFormat, srv.lastBody["format"])
	assert.Equal(t, map[string]any{"x": float64(1)}, srv.lastBody["cypherParams"])

	rename, ok := f.find("apoc.refactor.rename.label")
	require.True(t, ok)
	assert.Equal(t, []string{"car%20model"}, rename.params["labels"])
	assert.Equal(t, 1, f.count("apoc.text.replace(n.uri, '%23', '#')"))
}

func TestRDFGetGraphOnto(t *testing.T) {
	srv := newRDFServer(t, "")
	c, _ := testClient(Options{RDF: true, RDFHost: srv.URL + "/rdf/"})

	onto, err := c.RDFGetGraphOnto(context.Background())
	require.NoError(t, err)
	assert.Contains(t, onto, "owl")

	c.opts.RDF = false
	_, err = c.RDFGetGraphOnto(context.Background())
	assert.Error(t, err)
}

func TestRDFRequest_ErrorStatus(t *testing.T) {
	srv := newRDFServer(t, "")
	c, _ := testClient(Options{RDF: true, RDFHost: srv.URL + "/rdf/"})

	_, err := c.rdfRequest(context.Background(), http.MethodGet, srv.URL+"/missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 404")
	assert.True(t, errors.HasType(err, errors.ErrorTypeExternal))
}

func TestRDFImportFetch(t *testing.T) {
	c, f := testClient(Options{RDF: true})
	f.on("n10s.rdf.import.fetch", row(
		[]string{"terminationStatus", "triplesLoaded", "triplesParsed", "namespaces", "extraInfo", "callParams"},
		"OK", int64(12), int64(12), nil, "", map[string]any{}))

	summary, err := c.RDFImportFetch(context.Background(), "https://example.com/data.ttl", "")
	require.NoError(t, err)
	assert.Equal(t, "OK", summary.TerminationStatus)
	assert.Equal(t, int64(12), summary.TriplesLoaded)

	call, _ := f.find("n10s.rdf.import.fetch")
	assert.Equal(t, map[string]any{"url": "https://example.com/data.ttl", "format": DefaultRDFFormat}, call.params)
}

func TestRDFImportSubgraphInline(t *testing.T) {
	c, f := testClient(Options{RDF: true, Autoconnect: true})
	f.on("n10s.rdf.import.inline", row([]string{"triplesParsed", "triplesLoaded", "extraInfo"}, int64(5), int64(5), ""))

	summary, err := c.RDFImportSubgraphInline(context.Background(), "<a> <b> <c> .", "N-Triples")
	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.TriplesParsed)
	assert.Equal(t, 1, f.count("apoc.refactor.rename.label"))

	c.opts.RDF = false
	_, err = c.RDFImportSubgraphInline(context.Background(), "", "")
	assert.Error(t, err)
}

func TestURIConfig_UnmarshalJSON(t *testing.T) {
	var configs map[string]URIConfig
	err := json.Unmarshal([]byte(`{
		"Car": "id",
		"Model": ["make", "name"],
		"Part": {"properties": "serial", "neighbours": [["Car", "HAS_PART", "id"]], "where": "WHERE x.ok"},
		"Wheel": {"properties": ["size"], "neighbours": [{"label": "Car", "relationship": "HAS", "property": "id"}]}
	}`), &configs)
	require.NoError(t, err)

	assert.Equal(t, URIConfig{Properties: []string{"id"}}, configs["Car"])
	assert.Equal(t, URIConfig{Properties: []string{"make", "name"}}, configs["Model"])
	assert.Equal(t, URIConfig{
		Properties: []string{"serial"},
		Neighbours: []URINeighbour{{Label: "Car", Relationship: "HAS_PART", Property: "id"}},
		Where:      "WHERE x.ok",
	}, configs["Part"])
	assert.Equal(t, "HAS", configs["Wheel"].Neighbours[0].Relationship)

	var bad URINeighbour
	assert.Error(t, json.Unmarshal([]byte(`["Car", "HAS"]`), &bad))
}

func TestRDFGenerateURI(t *testing.T) {
	c, f := testClient(Options{RDF: true})

	err := c.RDFGenerateURI(context.Background(), map[string]URIConfig{
		"Part": {Properties: []string{"serial"}, Neighbours: []URINeighbour{{Label: "Car", Relationship: "HAS_PART", Property: "id"}}},
		"Car":  {Properties: []string{"id"}, Where: "WHERE x.make = 'suzuki'"},
	}, URIOptions{AddPrefixes: []string{"fleet"}})
	require.NoError(t, err)

	stmts := f.statements()
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], "MATCH (x:`Car`)")
	assert.Contains(t, stmts[0], "WHERE x.make = 'suzuki'")
	assert.Contains(t, stmts[0], "SET x.`uri` = apoc.text.urlencode(")
	assert.Contains(t, stmts[2], "apoc.path.expand")

	car := f.calls[0].params
	assert.Equal(t, "neo4j://graph.schema#", car["prefix"])
	assert.Equal(t, []string{"fleet"}, car["add_prefixes"])
	assert.Equal(t, []string{"Car"}, car["opt_label"])
	assert.Equal(t, "/", car["sep"])
}

func TestRDFGenerateURI_IncompleteNeighbour(t *testing.T) {
	c, _ := testClient(Options{RDF: true})
	err := c.RDFGenerateURI(context.Background(), map[string]URIConfig{
		"Part": {Neighbours: []URINeighbour{{Label: "Car"}}},
	}, URIOptions{})
	assert.True(t, errors.HasType(err, errors.ErrorTypeValidation))
}
