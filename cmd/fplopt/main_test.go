package main

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fplsim/fpl-optimizer/internal/config"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewCacheCmd_Subcommands(t *testing.T) {
	cfg := &config.Config{RedisURL: "redis://localhost:6379/0"}
	cmd := newCacheCmd(cfg, testLogger())

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["flush"], "cache flush must be registered")
	assert.True(t, names["invalidate"], "cache invalidate must be registered")

	invalidate, _, err := cmd.Find([]string{"invalidate"})
	require.NoError(t, err)
	assert.NotNil(t, invalidate.Flags().Lookup("snapshot-version"))
}

func TestOpenCache_BadURL(t *testing.T) {
	cfg := &config.Config{RedisURL: "not-a-redis-url"}
	_, _, err := openCache(cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis URL")
}

func TestOpenCache_ParsesURL(t *testing.T) {
	cfg := &config.Config{RedisURL: "redis://localhost:6379/3"}
	service, client, err := openCache(cfg, testLogger())
	require.NoError(t, err)
	defer client.Close()
	assert.NotNil(t, service)
}
