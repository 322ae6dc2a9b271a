package graph

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
)

func TestAccessModeFor(t *testing.T) {
	tests := []struct {
		operation string
		want      neo4j.AccessMode
	}{
		{opRead, neo4j.AccessModeRead},
		{opHealthCheck, neo4j.AccessModeRead},
		{opQuery, neo4j.AccessModeWrite},
		{opWrite, neo4j.AccessModeWrite},
		{opSchema, neo4j.AccessModeWrite},
		{opBulkLoad, neo4j.AccessModeWrite},
		{"unknown", neo4j.AccessModeWrite},
	}
	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			assert.Equal(t, tt.want, accessModeFor(tt.operation))
		})
	}
}
