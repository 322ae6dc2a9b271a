package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/rohankatakam/neointerface/internal/errors"
)

// DefaultRDFFormat is the serialization used by the RDF helpers.
const DefaultRDFFormat = "Turtle-star"

// RDFSetupConnection initialises the neosemantics graph config, ensures the
// uniqueness constraint on Resource.uri and checks that the RDF HTTP
// endpoint answers.
func (c *Client) RDFSetupConnection(ctx context.Context) error {
	if err := c.exec(ctx, opRDF, "CALL n10s.graphconfig.init({handleVocabUris: 'IGNORE'})", nil); err != nil {
		c.logger.Debug("Config already created, make sure the config is correct")
	}
	if _, err := c.CreateConstraint(ctx, "Resource", "uri", ConstraintOptions{Type: "UNIQUE", Name: rdfURIConstraint}); err != nil {
		return err
	}

	if c.rdfHost == "" {
		c.rdfHost = os.Getenv("NEO4J_RDF_HOST")
	}
	if c.rdfHost == "" {
		host, err := deriveRDFHost(c.opts.Host)
		if err != nil {
			return err
		}
		c.rdfHost = host
	}

	connectErr := func(err error) error {
		return errors.ExternalError(err, fmt.Sprintf(
			"CHECK IF RDF ENDPOINT IS SET UP CORRECTLY! While instantiating the NeoInterface object, failed to connect to %s",
			c.rdfHost))
	}
	body, err := c.rdfRequest(ctx, http.MethodGet, c.rdfHost+"ping", nil)
	if err != nil {
		return connectErr(err)
	}
	var pong map[string]any
	if err := json.Unmarshal([]byte(body), &pong); err != nil {
		return connectErr(err)
	}
	for _, v := range pong {
		if v == "here!" {
			c.logger.Infof("Connection to %s established", c.rdfHost)
			return nil
		}
	}
	return connectErr(fmt.Errorf("unexpected ping answer %q", body))
}

// RDFHost returns the RDF endpoint in use, e.g. http://localhost:7474/rdf/.
func (c *Client) RDFHost() string {
	return c.rdfHost
}

// deriveRDFHost maps bolt://host:7687 to http://host:7474/rdf/.
func deriveRDFHost(boltHost string) (string, error) {
	u, err := url.Parse(boltHost)
	if err != nil || u.Host == "" {
		return "", errors.ConfigErrorf("cannot derive the RDF endpoint from host %q", boltHost)
	}
	scheme := "http"
	if strings.HasSuffix(u.Scheme, "+s") || strings.HasSuffix(u.Scheme, "+ssc") {
		scheme = "https"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(u.Hostname(), "7474"),
		Path:   "/rdf/",
	}).String(), nil
}

func (c *Client) rdfEndpoint() (string, error) {
	if c.rdfHost != "" {
		return c.rdfHost, nil
	}
	if h := os.Getenv("NEO4J_RDF_HOST"); h != "" {
		return h, nil
	}
	return deriveRDFHost(c.opts.Host)
}

func (c *Client) rdfRequest(ctx context.Context, method, endpoint string, payload any) (string, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return "", errors.InternalErrorf("encode rdf request: %v", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return "", errors.ExternalError(err, "failed to build RDF request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.opts.NoAuth {
		req.SetBasicAuth(c.opts.User, c.opts.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.ExternalError(err, "RDF endpoint request failed")
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.ExternalError(err, "failed to read RDF response")
	}
	if resp.StatusCode >= 400 {
		return "", errors.New(errors.ErrorTypeExternal, errors.SeverityMedium,
			fmt.Sprintf("RDF endpoint %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(text))))
	}
	return string(text), nil
}

// URINeighbour names a related node whose property is part of a URI.
type URINeighbour struct {
	Label        string `json:"label"`
	Relationship string `json:"relationship"`
	Property     string `json:"property"`
}

// UnmarshalJSON also accepts the short form [label, relationship, property].
func (n *URINeighbour) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		if len(list) != 3 {
			return fmt.Errorf("each neighbour should be of length 3: [<label>, <relationship>, <property>] got: %v", list)
		}
		*n = URINeighbour{Label: list[0], Relationship: list[1], Property: list[2]}
		return nil
	}
	type plain URINeighbour
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("each neighbour should be an object or a list: %w", err)
	}
	*n = URINeighbour(p)
	return nil
}

// URIConfig says which properties make up the URI of a label's nodes.
type URIConfig struct {
	Properties []string       `json:"properties"`
	Neighbours []URINeighbour `json:"neighbours"`
	// Where is a full clause such as "WHERE x.model = 'suzuki'".
	Where string `json:"where"`
}

// UnmarshalJSON accepts "prop", ["p1", "p2"] or the object form, whose
// properties may again be a string or a list.
func (u *URIConfig) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*u = URIConfig{Properties: []string{single}}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*u = URIConfig{Properties: list}
		return nil
	}

	var obj struct {
		Properties json.RawMessage `json:"properties"`
		Neighbours []URINeighbour  `json:"neighbours"`
		Where      string          `json:"where"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("uri config must be a string, a list or an object: %w", err)
	}
	*u = URIConfig{Neighbours: obj.Neighbours, Where: obj.Where}
	if len(obj.Properties) > 0 {
		if err := json.Unmarshal(obj.Properties, &single); err == nil {
			u.Properties = []string{single}
		} else if err := json.Unmarshal(obj.Properties, &u.Properties); err != nil {
			return fmt.Errorf("properties must be a string or a list: %w", err)
		}
	}
	return nil
}

// URIOptions shape the generated URIs:
// Prefix + join(AddPrefixes + [label] + neighbour values + properties, Sep).
type URIOptions struct {
	Prefix       string // default neo4j://graph.schema#
	AddPrefixes  []string
	Sep          string // default "/"
	URIProp      string // default "uri"
	ExcludeLabel bool
}

// RDFGenerateURI labels the configured nodes :Resource and sets their URI
// property, so subgraphs can be exported and re-imported by URI.
func (c *Client) RDFGenerateURI(ctx context.Context, configs map[string]URIConfig, opts URIOptions) error {
	if opts.Prefix == "" {
		opts.Prefix = "neo4j://graph.schema#"
	}
	if opts.Sep == "" {
		opts.Sep = "/"
	}
	if opts.URIProp == "" {
		opts.URIProp = "uri"
	}

	labels := make([]string, 0, len(configs))
	for label := range configs {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		cfg := configs[label]
		q, params, err := generateURIQuery(label, cfg, opts)
		if err != nil {
			return err
		}
		if err := c.exec(ctx, opRDF, q, params); err != nil {
			return err
		}
		if err := c.rdfURICleanup(ctx); err != nil {
			return err
		}
	}
	return nil
}

const neighboursURIPart = `
	WITH *
	UNWIND apoc.coll.zip(range(0, size($neighbours)-1), $neighbours) AS pair
	WITH *, pair[0] AS ind, pair[1] AS neighbour
	CALL apoc.path.expand(x, neighbour['relationship'], neighbour['label'], 1, 1)
	YIELD path
	WITH x, ind, nodes(path) AS ind_neighbours
	UNWIND ind_neighbours AS nbr
	WITH DISTINCT x, ind, nbr
	WHERE x <> nbr
	WITH *
	ORDER BY x, ind, id(nbr)
	WITH x, ind, collect(nbr) AS coll
	WITH x, ind, apoc.map.mergeList(coll) AS nbr
	WITH x, collect({index: ind, map: nbr}) AS nbrs`

func generateURIQuery(label string, cfg URIConfig, opts URIOptions) (string, map[string]any, error) {
	optLabel := []string{label}
	if opts.ExcludeLabel {
		optLabel = []string{}
	}
	params := map[string]any{
		"prefix":       opts.Prefix,
		"add_prefixes": stringsOrEmpty(opts.AddPrefixes),
		"sep":          opts.Sep,
		"opt_label":    optLabel,
		"properties":   stringsOrEmpty(cfg.Properties),
	}

	neighbourPart, neighbourValues := "", ""
	if len(cfg.Neighbours) > 0 {
		list := make([]any, len(cfg.Neighbours))
		for i, n := range cfg.Neighbours {
			if n.Label == "" || n.Relationship == "" || n.Property == "" {
				return "", nil, errors.ValidationErrorf(
					"neighbour %d of %s needs label, relationship and property: %+v", i, label, n)
			}
			list[i] = map[string]any{"label": n.Label, "relationship": n.Relationship, "property": n.Property}
		}
		params["neighbours"] = list
		neighbourPart = neighboursURIPart
		neighbourValues = "[nbr IN nbrs | nbr['map'][$neighbours[nbr['index']]['property']]] + "
	}

	q := fmt.Sprintf(`
		MATCH (x%s)
		%s
		%s
		SET x:Resource
		SET x.%s = apoc.text.urlencode(
			$prefix + apoc.text.join($add_prefixes + $opt_label + %s[prop IN $properties | x[prop]], $sep)
		)`, PrepareLabels(label), cfg.Where, neighbourPart, quoteIdent(opts.URIProp), neighbourValues)
	return q, params, nil
}

// RDFGetSubgraph serializes the subgraph returned by cypher through the
// n10s HTTP endpoint.
func (c *Client) RDFGetSubgraph(ctx context.Context, cypher string, params map[string]any, format string) (string, error) {
	if format == "" {
		format = DefaultRDFFormat
	}
	if params == nil {
		params = map[string]any{}
	}
	if err := c.rdfSubgraphCleanup(ctx); err != nil {
		return "", err
	}
	host, err := c.rdfEndpoint()
	if err != nil {
		return "", err
	}
	return c.rdfRequest(ctx, http.MethodPost, host+"neo4j/cypher", map[string]any{
		"cypher":       cypher,
		"format":       format,
		"cypherParams": params,
	})
}

// RDFImportSummary is the outcome of an n10s import.
type RDFImportSummary struct {
	TerminationStatus string         `mapstructure:"terminationStatus" json:"terminationStatus,omitempty"`
	TriplesLoaded     int64          `mapstructure:"triplesLoaded" json:"triplesLoaded"`
	TriplesParsed     int64          `mapstructure:"triplesParsed" json:"triplesParsed"`
	Namespaces        map[string]any `mapstructure:"namespaces" json:"namespaces,omitempty"`
	ExtraInfo         string         `mapstructure:"extraInfo" json:"extraInfo"`
	CallParams        map[string]any `mapstructure:"callParams" json:"callParams,omitempty"`
}

func importSummary(res *Result) (*RDFImportSummary, error) {
	var s RDFImportSummary
	if len(res.Records) == 0 {
		return &s, nil
	}
	if err := decodeRow(res.Records[0].AsMap(), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RDFImportFetch imports the RDF document at url.
func (c *Client) RDFImportFetch(ctx context.Context, url, format string) (*RDFImportSummary, error) {
	if format == "" {
		format = DefaultRDFFormat
	}
	res, err := c.run(ctx, opRDF, `
		CALL n10s.rdf.import.fetch($url, $format)
		YIELD terminationStatus, triplesLoaded, triplesParsed, namespaces, extraInfo, callParams
		RETURN *`,
		map[string]any{"url": url, "format": format})
	if err != nil {
		return nil, err
	}
	return importSummary(res)
}

// RDFImportSubgraphInline merges the nodes and relationships described by
// rdf, matching nodes by uri.
func (c *Client) RDFImportSubgraphInline(ctx context.Context, rdf, format string) (*RDFImportSummary, error) {
	if !c.opts.RDF {
		return nil, errors.ValidationError("rdf option is not enabled at init of the client")
	}
	if !c.opts.Autoconnect {
		if err := c.RDFSetupConnection(ctx); err != nil {
			return nil, err
		}
	}
	if format == "" {
		format = DefaultRDFFormat
	}

	res, err := c.run(ctx, opRDF, `
		CALL n10s.rdf.import.inline($rdf, $format)
		YIELD triplesParsed, triplesLoaded, extraInfo
		RETURN *`,
		map[string]any{"rdf": rdf, "format": format})
	if err != nil {
		return nil, err
	}
	if err := c.rdfSubgraphCleanup(ctx); err != nil {
		return nil, err
	}
	return importSummary(res)
}

// RDFGetGraphOnto returns the ontology n10s derives from the stored graph.
func (c *Client) RDFGetGraphOnto(ctx context.Context) (string, error) {
	if !c.opts.RDF {
		return "", errors.ValidationError("rdf option is not enabled at init of the client")
	}
	host, err := c.rdfEndpoint()
	if err != nil {
		return "", err
	}
	return c.rdfRequest(ctx, http.MethodGet, host+"neo4j/onto", nil)
}

// rdfSubgraphCleanup reverts the %20 that serialization puts into label
// and property names with spaces, then tidies URIs.
func (c *Client) rdfSubgraphCleanup(ctx context.Context) error {
	labels, err := c.GetLabels(ctx)
	if err != nil {
		return err
	}
	encoded := []string{}
	for _, l := range labels {
		if strings.Contains(l, "%20") {
			encoded = append(encoded, l)
		}
	}
	if err := c.exec(ctx, opRDF, `
		UNWIND $labels AS label
		CALL apoc.refactor.rename.label(label, apoc.text.regreplace(label, '%20', ' '))
		YIELD batches, failedBatches, total, failedOperations
		RETURN batches, failedBatches, total, failedOperations`,
		map[string]any{"labels": encoded}); err != nil {
		return err
	}

	if err := c.exec(ctx, opRDF, `
		CALL db.schema.nodeTypeProperties() YIELD nodeLabels, propertyName
		WHERE propertyName CONTAINS "%20"
		CALL apoc.cypher.doIt(
			'MATCH (node:`+"`"+`' + apoc.text.join(nodeLabels, '`+"`:`"+`') + '`+"`"+`) ' +
			'WHERE "' + propertyName + '" IN keys(node) ' +
			'SET node.`+"`"+`' + apoc.text.replace(propertyName, '%20', ' ') + '`+"`"+` = node.`+"`"+`' + propertyName + '`+"`"+` ' +
			'REMOVE node.`+"`"+`' + propertyName + '`+"`"+`',
			{}
		) YIELD value
		RETURN value['node']`, nil); err != nil {
		return err
	}

	return c.rdfURICleanup(ctx)
}

// rdfURICleanup decodes #, / and : in uri properties for readability.
func (c *Client) rdfURICleanup(ctx context.Context) error {
	return c.exec(ctx, opRDF, `
		MATCH (n)
		WHERE n.uri IS NOT NULL
		SET n.uri = apoc.text.replace(n.uri, '%23', '#')
		SET n.uri = apoc.text.replace(n.uri, '%2F', '/')
		SET n.uri = apoc.text.replace(n.uri, '%3A', ':')`, nil)
}
