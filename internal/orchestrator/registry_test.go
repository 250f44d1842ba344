package orchestrator

import (
	"testing"

	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestStreamRegistryRegisterUnregisterLifecycle(t *testing.T) {
	registry := NewStreamRegistry()
	flag := registry.Register("s1")
	testutil.RequireTrue(t, registry.IsRegistered("s1"), "registered stream is present")
	testutil.RequireTrue(t, !flag.Load(), "fresh flag starts uncancelled")

	registry.Unregister("s1")
	testutil.RequireTrue(t, !registry.IsRegistered("s1"), "unregistered stream is absent")
}

func TestStreamRegistryCancelSetsFlag(t *testing.T) {
	registry := NewStreamRegistry()
	flag := registry.Register("s1")
	registry.Cancel("s1")
	testutil.RequireTrue(t, flag.Load(), "cancel sets the registered flag")
}

func TestStreamRegistryCancelUnknownIDIsNoOp(t *testing.T) {
	registry := NewStreamRegistry()
	registry.Cancel("never-registered")
}

func TestStreamRegistryCancelAllSetsEveryFlag(t *testing.T) {
	registry := NewStreamRegistry()
	flagA := registry.Register("a")
	flagB := registry.Register("b")
	registry.CancelAll()
	testutil.RequireTrue(t, flagA.Load(), "flag a cancelled")
	testutil.RequireTrue(t, flagB.Load(), "flag b cancelled")
}
