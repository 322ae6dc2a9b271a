package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Operation names used for timeouts, transaction metadata and span names.
const (
	opQuery       = "query"
	opRead        = "read"
	opWrite       = "write"
	opSchema      = "schema"
	opBulkLoad    = "bulk_load"
	opDelete      = "delete"
	opRDF         = "rdf"
	opHealthCheck = "health_check"
)

// TransactionConfig defines timeout and metadata for transactions.
// The metadata shows up in the server's query.log and in
// SHOW TRANSACTIONS, which makes slow helper calls easy to spot.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// DefaultTransactionConfigs returns the config per operation kind
func DefaultTransactionConfigs() map[string]TransactionConfig {
	return map[string]TransactionConfig{
		// free-form Cypher from the caller; no server timeout
		opQuery: {
			Metadata: map[string]any{"operation": opQuery, "type": "unknown"},
		},
		opRead: {
			Timeout:  60 * time.Second,
			Metadata: map[string]any{"operation": opRead, "type": "read"},
		},
		opWrite: {
			Timeout:  2 * time.Minute,
			Metadata: map[string]any{"operation": opWrite, "type": "write"},
		},
		// index and constraint DDL can wait on population
		opSchema: {
			Timeout:  5 * time.Minute,
			Metadata: map[string]any{"operation": opSchema, "type": "schema"},
		},
		opBulkLoad: {
			Timeout:  10 * time.Minute,
			Metadata: map[string]any{"operation": opBulkLoad, "type": "write"},
		},
		// whole-database deletes run in batches and may take long
		opDelete: {
			Timeout:  30 * time.Minute,
			Metadata: map[string]any{"operation": opDelete, "type": "write"},
		},
		opRDF: {
			Timeout:  10 * time.Minute,
			Metadata: map[string]any{"operation": opRDF, "type": "write"},
		},
		opHealthCheck: {
			Timeout:  5 * time.Second,
			Metadata: map[string]any{"operation": opHealthCheck, "type": "read"},
		},
	}
}

// AsNeo4jConfig converts to transaction configurers for session.Run
func (tc TransactionConfig) AsNeo4jConfig() []func(*neo4j.TransactionConfig) {
	configs := []func(*neo4j.TransactionConfig){}
	if tc.Timeout > 0 {
		configs = append(configs, neo4j.WithTxTimeout(tc.Timeout))
	}
	if len(tc.Metadata) > 0 {
		configs = append(configs, neo4j.WithTxMetadata(tc.Metadata))
	}
	return configs
}

// GetConfigForOperation returns the config for an operation, or a 60s
// default for unknown names.
func GetConfigForOperation(operation string) TransactionConfig {
	if config, ok := DefaultTransactionConfigs()[operation]; ok {
		return config
	}
	return TransactionConfig{
		Timeout: 60 * time.Second,
		Metadata: map[string]any{
			"operation": operation,
			"type":      "unknown",
		},
	}
}

// WithCustomMetadata returns a copy with one more metadata entry
func (tc TransactionConfig) WithCustomMetadata(key string, value any) TransactionConfig {
	newConfig := TransactionConfig{
		Timeout:  tc.Timeout,
		Metadata: make(map[string]any, len(tc.Metadata)+1),
	}
	for k, v := range tc.Metadata {
		newConfig.Metadata[k] = v
	}
	newConfig.Metadata[key] = value
	return newConfig
}

// WithTimeout returns a copy with a different timeout
func (tc TransactionConfig) WithTimeout(timeout time.Duration) TransactionConfig {
	return TransactionConfig{
		Timeout:  timeout,
		Metadata: tc.Metadata,
	}
}
