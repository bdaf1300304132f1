package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notefetch/internal/testserver"
	"notefetch/pkg/auth"
	"notefetch/pkg/config"
	errs "notefetch/pkg/errors"
	"notefetch/pkg/logger"
	"notefetch/pkg/notestore"
)

func testConfig(t *testing.T, srv *testserver.Server) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Service.Host = srv.URL
	cfg.Service.ConsumerKey = srv.ConsumerKey
	cfg.Output.Directory = filepath.Join(t.TempDir(), "note_images")
	cfg.Download.Timeout = 5 * time.Second
	cfg.Retry.MaxAttempts = 1
	return cfg
}

func TestExecuteFetchWritesImages(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	srv.AddNotebook(notestore.Notebook{GUID: "nb1", Name: "Travel"},
		notestore.Note{GUID: "n1", Resources: []notestore.Resource{
			{GUID: "r1", Mime: "image/gif", Attributes: notestore.ResourceAttributes{FileName: "wave.gif"}},
			{GUID: "r2", Mime: "text/plain", Attributes: notestore.ResourceAttributes{FileName: "notes.txt"}},
		}},
	)
	srv.SetResourceData("r1", []byte("GIF89a"))

	cfg := testConfig(t, srv)
	var stdout, stderr bytes.Buffer
	report, err := executeFetch(context.Background(), cfg, credentials{Username: "user", Password: "secret"}, &stdout, &stderr, false, logger.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Written)
	out := stdout.String()
	assert.Contains(t, out, "Successfully authenticated as user")
	assert.Contains(t, out, "Notebook: Travel")
	assert.Contains(t, out, " * Found an image! Filename: wave.gif")
	assert.Contains(t, out, "   Image 'wave.gif' successfully written.")
	assert.NotContains(t, out, "notes.txt")
	assert.Empty(t, stderr.String())

	content, err := os.ReadFile(filepath.Join(cfg.Output.Directory, "r1_wave.gif"))
	require.NoError(t, err)
	assert.Equal(t, "GIF89a", string(content))
}

func TestExecuteFetchWrongPassword(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	cfg := testConfig(t, srv)
	var stdout, stderr bytes.Buffer
	report, err := executeFetch(context.Background(), cfg, credentials{Username: "user", Password: "wrong"}, &stdout, &stderr, false, logger.NewNopLogger())

	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, errs.KindRemoteAuth, errs.KindOf(err))
	assert.Contains(t, stderr.String(), "The password that you entered is incorrect")
	assert.NotContains(t, stdout.String(), "Successfully authenticated")
	assert.Equal(t, 0, srv.TotalDataFetches())
}

func TestExecuteFetchIncompatibleVersion(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetCompatible(false)

	cfg := testConfig(t, srv)
	var stdout, stderr bytes.Buffer
	_, err := executeFetch(context.Background(), cfg, credentials{Username: "user", Password: "secret"}, &stdout, &stderr, false, logger.NewNopLogger())

	assert.ErrorIs(t, err, errIncompatibleVersion)
	assert.Contains(t, stderr.String(), "Incompatible client protocol version")
}

func TestExecuteFetchNotebookListingFailure(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.FailNotebooks(500)

	cfg := testConfig(t, srv)
	var stdout, stderr bytes.Buffer
	report, err := executeFetch(context.Background(), cfg, credentials{Username: "user", Password: "secret"}, &stdout, &stderr, true, logger.NewNopLogger())

	require.Error(t, err)
	assert.Nil(t, report)
	assert.NotContains(t, stdout.String(), "[SUMMARY]")
}

func noPrompt(string) (string, error) {
	return "", errors.New("no terminal")
}

func mockManager(accounts ...*auth.Account) func() (*auth.Manager, error) {
	manager, store := auth.NewMockManager()
	for _, a := range accounts {
		_ = store.Store(a)
	}
	return func() (*auth.Manager, error) { return manager, nil }
}

func TestResolveCredentials(t *testing.T) {
	stored := &auth.Account{Username: "alice", Password: "stored-pass", LastModified: time.Now()}

	t.Run("positional arguments", func(t *testing.T) {
		creds, err := resolveCredentials([]string{"bob", "pw"}, "", config.DefaultConfig(), mockManager(stored), noPrompt)
		require.NoError(t, err)
		assert.Equal(t, credentials{Username: "bob", Password: "pw"}, creds)
	})

	t.Run("username only uses stored password", func(t *testing.T) {
		creds, err := resolveCredentials([]string{"alice"}, "", config.DefaultConfig(), mockManager(stored), noPrompt)
		require.NoError(t, err)
		assert.Equal(t, "stored-pass", creds.Password)
	})

	t.Run("username only prompts", func(t *testing.T) {
		prompted := ""
		prompt := func(label string) (string, error) {
			prompted = label
			return "typed", nil
		}
		creds, err := resolveCredentials([]string{"carol"}, "", config.DefaultConfig(), mockManager(), prompt)
		require.NoError(t, err)
		assert.Equal(t, "typed", creds.Password)
		assert.Equal(t, "Password for carol: ", prompted)
	})

	t.Run("prompt failure", func(t *testing.T) {
		_, err := resolveCredentials([]string{"carol"}, "", config.DefaultConfig(), mockManager(), noPrompt)
		assert.Error(t, err)
	})

	t.Run("stored account flag", func(t *testing.T) {
		creds, err := resolveCredentials(nil, "alice", config.DefaultConfig(), mockManager(stored), noPrompt)
		require.NoError(t, err)
		assert.Equal(t, credentials{Username: "alice", Password: "stored-pass"}, creds)
	})

	t.Run("unknown stored account", func(t *testing.T) {
		_, err := resolveCredentials(nil, "nobody", config.DefaultConfig(), mockManager(stored), noPrompt)
		assert.ErrorIs(t, err, auth.ErrCredentialsNotFound)
	})

	t.Run("config account", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Account.Username = "dave"
		cfg.Account.Password = "cfg-pass"
		creds, err := resolveCredentials(nil, "", cfg, mockManager(stored), noPrompt)
		require.NoError(t, err)
		assert.Equal(t, credentials{Username: "dave", Password: "cfg-pass"}, creds)
	})

	t.Run("default stored account", func(t *testing.T) {
		creds, err := resolveCredentials(nil, "", config.DefaultConfig(), mockManager(stored), noPrompt)
		require.NoError(t, err)
		assert.Equal(t, "alice", creds.Username)
	})

	t.Run("nothing available", func(t *testing.T) {
		_, err := resolveCredentials(nil, "", config.DefaultConfig(), mockManager(), noPrompt)
		assert.Error(t, err)
	})

	t.Run("manager unavailable with full arguments", func(t *testing.T) {
		broken := func() (*auth.Manager, error) { return nil, errors.New("no home") }
		creds, err := resolveCredentials([]string{"erin", "pw"}, "", config.DefaultConfig(), broken, noPrompt)
		require.NoError(t, err)
		assert.Equal(t, "erin", creds.Username)
	})
}

func TestIsKnownCommand(t *testing.T) {
	assert.True(t, isKnownCommand("fetch"))
	assert.True(t, isKnownCommand("auth"))
	assert.True(t, isKnownCommand("config"))
	assert.False(t, isKnownCommand("alice"))
}
