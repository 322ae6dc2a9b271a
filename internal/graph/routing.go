package graph

import "github.com/neo4j/neo4j-go-driver/v5/neo4j"

// accessModeFor picks the session access mode of an operation. On a
// cluster, read sessions may be served by followers and read replicas;
// everything else, including caller Cypher of unknown kind, goes to the
// leader. A single server ignores the mode.
func accessModeFor(operation string) neo4j.AccessMode {
	if GetConfigForOperation(operation).Metadata["type"] == "read" {
		return neo4j.AccessModeRead
	}
	return neo4j.AccessModeWrite
}
