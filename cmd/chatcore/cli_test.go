package main

import (
	"testing"

	"github.com/nullpointer-labs/chatcore/internal/model"
	"github.com/nullpointer-labs/chatcore/internal/testutil"
)

func TestProviderAddListDeleteRoundTrip(t *testing.T) {
	configDir := t.TempDir()

	addCmd := providerCommand(&configDir)
	addCmd.SetArgs([]string{"add", "--id", "openai-1", "--name", "OpenAI", "--type", string(model.ProviderOpenAICompat), "--api-key", "sk-test"})
	testutil.RequireNoError(t, addCmd.Execute(), "provider add")

	app := openAppContextAt(t, configDir)
	providers, err := app.settings.ListProviders()
	testutil.RequireNoError(t, err, "list providers")

	found := false
	for _, p := range providers {
		if p.ID == "openai-1" {
			found = true
			testutil.RequireEqual(t, p.Name, "OpenAI", "provider name")
			testutil.RequireEqual(t, p.Type, model.ProviderOpenAICompat, "provider type")
		}
	}
	testutil.RequireTrue(t, found, "added provider should be listed")

	deleteCmd := providerCommand(&configDir)
	deleteCmd.SetArgs([]string{"delete", "openai-1"})
	testutil.RequireNoError(t, deleteCmd.Execute(), "provider delete")

	providers, err = app.settings.ListProviders()
	testutil.RequireNoError(t, err, "list providers after delete")
	for _, p := range providers {
		if p.ID == "openai-1" {
			t.Fatal("deleted provider should no longer be listed")
		}
	}
}

func TestProviderDeleteLocalDefaultRejected(t *testing.T) {
	configDir := t.TempDir()
	cmd := providerCommand(&configDir)
	cmd.SetArgs([]string{"delete", model.LocalDefaultProviderID})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected deleting the local-default provider to fail")
	}
}

func TestSettingsSetOnlyAppliesChangedFlags(t *testing.T) {
	configDir := t.TempDir()

	cmd := settingsCommand(&configDir)
	cmd.SetArgs([]string{"set", "--theme", "dark"})
	testutil.RequireNoError(t, cmd.Execute(), "settings set")

	app := openAppContextAt(t, configDir)
	settings, err := app.settings.Get()
	testutil.RequireNoError(t, err, "get settings")
	testutil.RequireEqual(t, settings.Theme, "dark", "theme")
	testutil.RequireEqual(t, settings.ServerURL, "", "server url should be untouched")
}

func TestHistoryListChatsRunsAgainstStoreWithChats(t *testing.T) {
	configDir := t.TempDir()
	app := openAppContextAt(t, configDir)

	chatModel := "llama3"
	_, err := app.history.CreateChat(&chatModel, nil, nil)
	testutil.RequireNoError(t, err, "create chat")

	cmd := historyCommand(&configDir)
	cmd.SetArgs([]string{"list-chats"})
	testutil.RequireNoError(t, cmd.Execute(), "history list-chats")
}

func TestCancelCommandExplainsProcessScopedCancellation(t *testing.T) {
	cmd := cancelCommand()
	cmd.SetArgs([]string{"stream-123"})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected cancelCommand to always return an explanatory error")
	}
	testutil.RequireStringContains(t, err.Error(), "stream-123", "error should name the stream id")
}

// openAppContextAt opens a second appContext against a configDir a command
// already populated, to assert on the persisted state.
func openAppContextAt(t *testing.T, configDir string) *appContext {
	t.Helper()
	app, err := newAppContext(configDir)
	testutil.RequireNoError(t, err, "newAppContext")
	t.Cleanup(app.close)
	return app
}
