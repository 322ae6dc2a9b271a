package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"age=40", `name="Ann"`, "tags=[1,2]", "raw=hello world", "empty="})
	require.NoError(t, err)

	assert.Equal(t, int64(40), params["age"])
	assert.Equal(t, "Ann", params["name"])
	assert.Equal(t, []any{int64(1), int64(2)}, params["tags"])
	assert.Equal(t, "hello world", params["raw"])
	assert.Equal(t, "", params["empty"])
}

func TestParseParams_Malformed(t *testing.T) {
	_, err := parseParams([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseParams([]string{"=3"})
	assert.Error(t, err)
}

func TestSplitPair(t *testing.T) {
	a, b := splitPair("owner_id:person_id")
	assert.Equal(t, "owner_id", a)
	assert.Equal(t, "person_id", b)

	a, b = splitPair("color")
	assert.Equal(t, "color", a)
	assert.Equal(t, "color", b)
}

func TestWriteValue(t *testing.T) {
	records := []map[string]any{
		{"name": "Ann", "address": map[string]any{"city": "Oslo"}},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeValue(&buf, "json", records))
		assert.JSONEq(t, `[{"name":"Ann","address":{"city":"Oslo"}}]`, buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeValue(&buf, "yaml", map[string]any{"labels": []string{"car"}}))
		assert.Equal(t, "labels:\n  - car\n", buf.String())
	})

	t.Run("table flattens nested maps", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeValue(&buf, "table", records))
		assert.Contains(t, buf.String(), "address.city")
		assert.Contains(t, buf.String(), "Oslo")
	})

	t.Run("table falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeValue(&buf, "table", []string{"car"}))
		assert.JSONEq(t, `["car"]`, buf.String())
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, writeValue(&bytes.Buffer{}, "xml", records))
	})
}
