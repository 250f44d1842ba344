package mcpclient

import (
	"context"
	"testing"
	"time"

	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestRegistryConnectStdioReusesSameNamedConnection(t *testing.T) {
	registry := NewRegistry(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := registry.ConnectStdio(ctx, "cat-server", "cat", nil)
	testutil.RequireNoError(t, err, "connect stdio")
	second, err := registry.ConnectStdio(ctx, "cat-server", "cat", nil)
	testutil.RequireNoError(t, err, "connect stdio again under same name")

	testutil.RequireTrue(t, first == second, "second connect under the same name returns the same client")
	testutil.RequireEqual(t, registry.ListServers(), []string{"cat-server"}, "one logical server registered")

	testutil.RequireNoError(t, registry.Release("cat-server"), "release first reference")
	got, ok := registry.Get("cat-server")
	testutil.RequireTrue(t, ok, "client still connected after one release (refcount 1)")
	testutil.RequireTrue(t, got == first, "same client returned")

	testutil.RequireNoError(t, registry.Release("cat-server"), "release second reference")
	_, ok = registry.Get("cat-server")
	testutil.RequireTrue(t, !ok, "client disconnected once refcount reaches zero")
}

func TestRegistryReleaseUnknownNameIsNoOp(t *testing.T) {
	registry := NewRegistry(nil)
	testutil.RequireNoError(t, registry.Release("never-connected"), "releasing an unknown name is a no-op")
}

func TestRegistryCloseAllClearsEverything(t *testing.T) {
	registry := NewRegistry(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := registry.ConnectStdio(ctx, "cat-server", "cat", nil)
	testutil.RequireNoError(t, err, "connect stdio")

	registry.CloseAll()
	testutil.RequireEqual(t, registry.ListServers(), []string{}, "no servers remain registered")
}
