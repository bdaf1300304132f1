package downloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "notefetch/pkg/errors"
	"notefetch/pkg/logger"
	"notefetch/pkg/notestore"
	"notefetch/pkg/storage"
)

var session = notestore.Session{Token: "tok", NoteStoreURL: "http://example.invalid"}

func TestPersistWritesImage(t *testing.T) {
	dir := t.TempDir()
	client := &MockClient{}
	p := NewPersister(client, storage.NewManager(dir), logger.NewNopLogger())

	outcome := p.Persist(context.Background(), session, Job{Resource: image("g1"), NotebookName: "Travel"})

	require.NoError(t, outcome.Err)
	assert.Equal(t, StatusWritten, outcome.Status)
	assert.Equal(t, filepath.Join(dir, "g1_g1.png"), outcome.Path)
	assert.Equal(t, "Travel", outcome.NotebookName)
	assert.Equal(t, "g1.png", outcome.DisplayName())

	content, err := os.ReadFile(outcome.Path)
	require.NoError(t, err)
	assert.Equal(t, "data for g1", string(content))
	assert.Equal(t, len(content), outcome.Size)
}

func TestPersistSkipsNonImagesWithoutFetching(t *testing.T) {
	client := &MockClient{}
	store := NewMockStore()
	p := NewPersister(client, store, logger.NewNopLogger())

	for _, mime := range []string{"application/pdf", "image/bmp", ""} {
		r := notestore.Resource{GUID: "x", Mime: mime}
		outcome := p.Persist(context.Background(), session, Job{Resource: r})
		assert.Equal(t, StatusSkipped, outcome.Status, mime)
		assert.NoError(t, outcome.Err)
	}

	assert.Equal(t, 0, client.GetDownloadCount())
	assert.Equal(t, 0, store.GetSavedCount())
}

func TestPersistFetchFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	client := &MockClient{failGUIDs: map[string]error{
		"g1": errs.New(errs.KindRemoteNotFound, 404, "resource not found"),
	}}
	p := NewPersister(client, storage.NewManager(dir), logger.NewNopLogger())

	outcome := p.Persist(context.Background(), session, Job{Resource: image("g1")})

	assert.Equal(t, StatusFailed, outcome.Status)
	require.Error(t, outcome.Err)
	assert.Equal(t, errs.KindRemoteNotFound, errs.KindOf(outcome.Err))

	_, err := os.Stat(filepath.Join(dir, "g1_g1.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestPersistUnclassifiedErrorsGetAKind(t *testing.T) {
	client := &MockClient{failGUIDs: map[string]error{"g1": errors.New("boom")}}
	store := NewMockStore()
	store.failGUIDs = map[string]error{"g2": errors.New("disk full")}
	p := NewPersister(client, store, logger.NewNopLogger())

	fetchFail := p.Persist(context.Background(), session, Job{Resource: image("g1")})
	assert.Equal(t, errs.KindRemoteProtocol, errs.KindOf(fetchFail.Err))

	writeFail := p.Persist(context.Background(), session, Job{Resource: image("g2")})
	assert.Equal(t, errs.KindLocalWrite, errs.KindOf(writeFail.Err))
	assert.Contains(t, writeFail.Err.Error(), "disk full")
}

func TestPersistWriteFailureDoesNotStopLaterJobs(t *testing.T) {
	dir := t.TempDir()
	manager := storage.NewManager(dir)
	p := NewPersister(&MockClient{}, manager, logger.NewNopLogger())

	blocked := image("g1")
	require.NoError(t, os.MkdirAll(filepath.Join(manager.PathFor(blocked), "inner"), 0755))

	first := p.Persist(context.Background(), session, Job{Resource: blocked})
	second := p.Persist(context.Background(), session, Job{Resource: image("g2")})

	assert.Equal(t, StatusFailed, first.Status)
	assert.Equal(t, errs.KindLocalWrite, errs.KindOf(first.Err))
	assert.Equal(t, StatusWritten, second.Status)
}

func TestPersistLogsFailures(t *testing.T) {
	log := logger.NewTestLogger()
	client := &MockClient{failGUIDs: map[string]error{
		"g1": errs.New(errs.KindRemoteService, 503, "unavailable"),
	}}
	p := NewPersister(client, NewMockStore(), log)

	p.Persist(context.Background(), session, Job{Resource: image("g1")})

	errorsLogged := log.GetMessagesByLevel("ERROR")
	require.Len(t, errorsLogged, 1)
	assert.Equal(t, "g1", errorsLogged[0].Fields["resource_guid"])
	assert.Equal(t, "remote_service", errorsLogged[0].Fields["kind"])
}

func TestOutcomeDisplayName(t *testing.T) {
	assert.Equal(t, "cat.png", Outcome{Resource: image("cat")}.DisplayName())
	assert.Equal(t, "g1.jpg", Outcome{Resource: notestore.Resource{GUID: "g1"}, Path: "out/g1.jpg"}.DisplayName())
	assert.Equal(t, "g1", Outcome{Resource: notestore.Resource{GUID: "g1"}}.DisplayName())
}
