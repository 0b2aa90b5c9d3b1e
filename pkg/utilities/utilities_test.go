package utilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerator_Unique(t *testing.T) {
	g := NewIDGenerator(1)
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		id := g.Next()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIDGenerator_FallsBackToKSUID(t *testing.T) {
	g := NewIDGenerator(99999)
	id := g.Next()
	assert.Len(t, id, 27)

	var nilGen *IDGenerator
	assert.NotEmpty(t, nilGen.Next())
}

func TestNodeFromEnv(t *testing.T) {
	t.Setenv("SNOWFLAKE_NODE", "")
	assert.Equal(t, int64(1), NodeFromEnv())
	t.Setenv("SNOWFLAKE_NODE", "7")
	assert.Equal(t, int64(7), NodeFromEnv())
	t.Setenv("SNOWFLAKE_NODE", "abc")
	assert.Equal(t, int64(1), NodeFromEnv())
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]string{
		"debug":   "debug",
		"warning": "warn",
		"error":   "error",
		"bogus":   "info",
	}
	for in, want := range cases {
		assert.Equal(t, want, levelFromString(in).String(), in)
	}
}

func TestInit_WithFile(t *testing.T) {
	dir := t.TempDir()
	lg, err := Init(Config{Level: "debug", File: dir + "/svc.log", MaxAgeDays: 1})
	require.NoError(t, err)
	lg.Info("hello")
	_ = lg.Sync()
}
