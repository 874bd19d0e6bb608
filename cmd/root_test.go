package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRootRegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "run", "migrate", "config"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

func TestNestDefaults(t *testing.T) {
	got := nestDefaults(map[string]any{
		"store.driver":      "sqlite",
		"server.port":       8080,
		"log.level":         "info",
		"store.sqlite_path": "x.db",
	})

	store, ok := got["store"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sqlite", store["driver"])
	assert.Equal(t, "x.db", store["sqlite_path"])

	server, ok := got["server"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 8080, server["port"])
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	assert.NoError(t, st.Migrate(context.Background()))
}

func TestInitStore_UnknownDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "oracle"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestInitStore_PostgresRequiresURL(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "postgres"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
}
