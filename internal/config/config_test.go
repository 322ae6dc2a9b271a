package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearNeo4jEnv(t *testing.T) {
	for _, name := range []string{
		"NEO4J_HOST", "NEO4J_USER", "NEO4J_PASSWORD", "NEO4J_DATABASE", "NEO4J_RDF_HOST",
		"NEOI_APOC", "NEOI_RDF", "NEOI_NO_AUTH", "NEOI_VERBOSE", "NEOI_DEBUG",
		"NEOI_MAX_CHUNK_SIZE", "NEOI_LOG_FILE",
	} {
		t.Setenv(name, "")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	result := cfg.Validate()

	assert.False(t, result.HasErrors(), result.Error())
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.Host)
	assert.Empty(t, cfg.Neo4j.Database, "server default database")
	assert.Equal(t, 10000, cfg.Load.MaxChunkSize)
	assert.Equal(t, 50000, cfg.Load.DeleteBatch)
}

func TestLoad_FromFileWithEnvOverrides(t *testing.T) {
	clearNeo4jEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
neo4j:
  host: neo4j://graph.internal:7687
  user: reader
  apoc: true
rdf:
  enabled: true
load:
  max_chunk_size: 500
`), 0644))

	t.Setenv("NEO4J_USER", "writer")
	t.Setenv("NEOI_DEBUG", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "neo4j://graph.internal:7687", cfg.Neo4j.Host)
	assert.Equal(t, "writer", cfg.Neo4j.User)
	assert.True(t, cfg.Neo4j.APOC)
	assert.True(t, cfg.RDF.Enabled)
	assert.Equal(t, 500, cfg.Load.MaxChunkSize)
	assert.Equal(t, 10, cfg.Load.MaxDepth)
	assert.True(t, cfg.Debug)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Host = "http://localhost:7474"
	cfg.Neo4j.User = ""
	cfg.Load.MaxChunkSize = 0
	cfg.Logging.Level = "loud"

	result := cfg.Validate()
	require.True(t, result.HasErrors())
	assert.Len(t, result.Errors, 4)
	assert.Contains(t, result.Error(), "neo4j.host must be a bolt:// or neo4j:// URI")
	assert.Contains(t, result.Error(), "neo4j.user is required")
	assert.Contains(t, result.Error(), "load.max_chunk_size must be at least 1")
	assert.Error(t, result.AsError())
}

func TestValidate_NoAuthSkipsUser(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.User = ""
	cfg.Neo4j.NoAuth = true

	result := cfg.Validate()
	assert.False(t, result.HasErrors(), result.Error())
	assert.NoError(t, result.AsError())
}

func TestValidate_Warnings(t *testing.T) {
	cfg := Default()
	cfg.RDF.Enabled = true
	cfg.Debug = true
	cfg.Verbose = false

	result := cfg.Validate()
	assert.False(t, result.HasErrors())
	assert.Len(t, result.Warnings, 3)
}

func TestSave_RoundTrip(t *testing.T) {
	clearNeo4jEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Neo4j.Host = "bolt://db:7687"
	cfg.Neo4j.Password = "secret"
	cfg.Neo4j.APOC = true

	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt://db:7687", loaded.Neo4j.Host)
	assert.True(t, loaded.Neo4j.APOC)
	assert.Empty(t, loaded.Neo4j.Password)
}

func TestCamelToSnake(t *testing.T) {
	assert.Equal(t, "max_chunk_size", camelToSnake("MaxChunkSize"))
	assert.Equal(t, "neo4j", camelToSnake("Neo4j"))
	assert.Equal(t, "rdf", camelToSnake("RDF"))
	assert.Equal(t, "no_auth", camelToSnake("NoAuth"))
	assert.Equal(t, "neo4j.host", formatFieldPath("Config.Neo4j.Host"))
}
