package graph

import (
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
)

// GraphNode is a database node inside a ResultGraph.
type GraphNode struct {
	NodeID     int64          `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`

	// bare nodes are only known as a relationship endpoint so far
	bare bool
}

// ID implements graph.Node.
func (n *GraphNode) ID() int64 { return n.NodeID }

// GraphEdge is a relationship inside a ResultGraph. Parallel edges between
// the same pair of nodes are kept apart by their relationship id.
type GraphEdge struct {
	F, T       *GraphNode
	EdgeID     int64
	Type       string
	Properties map[string]any
}

func (e *GraphEdge) From() graph.Node { return e.F }
func (e *GraphEdge) To() graph.Node   { return e.T }
func (e *GraphEdge) ID() int64        { return e.EdgeID }

// ReversedLine implements graph.Line.
func (e *GraphEdge) ReversedLine() graph.Line {
	return &GraphEdge{F: e.T, T: e.F, EdgeID: e.EdgeID, Type: e.Type, Properties: e.Properties}
}

// ResultGraph is a directed multigraph built from query results.
type ResultGraph struct {
	g     *multi.DirectedGraph
	nodes map[int64]*GraphNode
	edges map[int64]*GraphEdge
}

// NewResultGraph returns an empty graph.
func NewResultGraph() *ResultGraph {
	return &ResultGraph{
		g:     multi.NewDirectedGraph(),
		nodes: make(map[int64]*GraphNode),
		edges: make(map[int64]*GraphEdge),
	}
}

// Graph exposes the underlying gonum graph for use with gonum algorithms.
func (rg *ResultGraph) Graph() *multi.DirectedGraph { return rg.g }

// Node returns the node with the given database id, or nil.
func (rg *ResultGraph) Node(id int64) *GraphNode { return rg.nodes[id] }

// Edge returns the relationship with the given database id, or nil.
func (rg *ResultGraph) Edge(id int64) *GraphEdge { return rg.edges[id] }

// NodeIDs returns all node ids in ascending order.
func (rg *ResultGraph) NodeIDs() []int64 {
	ids := make([]int64, 0, len(rg.nodes))
	for id := range rg.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Edges returns all relationships ordered by id.
func (rg *ResultGraph) Edges() []*GraphEdge {
	edges := make([]*GraphEdge, 0, len(rg.edges))
	for _, e := range rg.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].EdgeID < edges[j].EdgeID })
	return edges
}

// NodeCount and EdgeCount report the graph size.
func (rg *ResultGraph) NodeCount() int { return len(rg.nodes) }
func (rg *ResultGraph) EdgeCount() int { return len(rg.edges) }

// Successors returns the ids of nodes reachable over one outgoing edge.
func (rg *ResultGraph) Successors(id int64) []int64 {
	var ids []int64
	for _, n := range graph.NodesOf(rg.g.From(id)) {
		ids = append(ids, n.ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// addNode adds a full node, filling in a bare entry left by an earlier
// relationship.
func (rg *ResultGraph) addNode(node neo4j.Node) *GraphNode {
	n := rg.endpoint(node.Id)
	if n.bare {
		n.Labels = append([]string(nil), node.Labels...)
		n.Properties = copyProps(node.Props, false)
		n.bare = false
	}
	return n
}

func (rg *ResultGraph) endpoint(id int64) *GraphNode {
	if n, ok := rg.nodes[id]; ok {
		return n
	}
	n := &GraphNode{NodeID: id, Properties: map[string]any{}, bare: true}
	rg.nodes[id] = n
	rg.g.AddNode(n)
	return n
}

func (rg *ResultGraph) addEdge(r neo4j.Relationship) {
	if _, ok := rg.edges[r.Id]; ok {
		return
	}
	e := &GraphEdge{
		F:          rg.endpoint(r.StartId),
		T:          rg.endpoint(r.EndId),
		EdgeID:     r.Id,
		Type:       r.Type,
		Properties: copyProps(r.Props, false),
	}
	rg.edges[r.Id] = e
	rg.g.SetLine(e)
}
