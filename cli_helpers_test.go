package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prune-dev/prune/internal/catalog"
)

// testCLIContext opens an in-memory catalog and wraps it in a CLIContext
// suitable for exercising command RunE functions directly, bypassing
// PersistentPreRunE's config/catalog resolution.
func testCLIContext(t *testing.T) (*CLIContext, context.Context) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := catalog.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	cc := &CLIContext{Store: store, Logger: logger}
	ctx := context.WithValue(context.Background(), cliContextKey{}, cc)

	return cc, ctx
}
