package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeDatabase, SeverityHigh, "ignored"))
	assert.Nil(t, FromDriver(nil, "ignored"))
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := DatabaseError(cause, "query failed")

	assert.Equal(t, "query failed: socket closed", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, ErrorTypeDatabase, GetType(err))
	assert.Equal(t, SeverityHigh, GetSeverity(err))
}

func TestError_IsMatchesByType(t *testing.T) {
	err := fmt.Errorf("outer: %w", ValidationErrorf("bad label %q", "x"))

	assert.True(t, stderrors.Is(err, ValidationError("")))
	assert.False(t, stderrors.Is(err, ConfigError("")))
	assert.True(t, HasType(err, ErrorTypeValidation))
	assert.False(t, HasType(err, ErrorTypeImport))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ConfigError("missing host")))
	assert.False(t, IsFatal(ValidationError("bad")))
	assert.False(t, IsFatal(fmt.Errorf("plain")))
	assert.False(t, IsFatal(nil))
}

func TestFromDriver_ServerError(t *testing.T) {
	neoErr := &neo4j.Neo4jError{Code: "Neo.ClientError.Schema.EquivalentSchemaRuleAlreadyExists", Msg: "exists"}
	err := FromDriver(neoErr, "create index")

	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeDatabase, err.Type)
	assert.Equal(t, "Neo.ClientError.Schema.EquivalentSchemaRuleAlreadyExists", err.Context["code"])
}

func TestFromDriver_PlainError(t *testing.T) {
	err := FromDriver(fmt.Errorf("context deadline exceeded"), "query")

	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeDatabase, err.Type)
	assert.NotContains(t, err.Context, "code")
}

func TestDetailedString(t *testing.T) {
	err := ImportError("bad item").WithContext("index", 3).WithContext("field", "id")
	s := err.DetailedString()

	assert.Contains(t, s, "[HIGH] [IMPORT] bad item")
	assert.Contains(t, s, "  field: id\n  index: 3\n")
}
