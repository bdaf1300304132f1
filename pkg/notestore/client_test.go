package notestore_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"notefetch/internal/testserver"
	errs "notefetch/pkg/errors"
	"notefetch/pkg/logger"
	"notefetch/pkg/notestore"
	"notefetch/pkg/retry"
)

func newClient(srv *testserver.Server, retryCfg *retry.Config) *notestore.Client {
	return notestore.NewClient(notestore.Options{
		Host:           srv.URL,
		ConsumerKey:    srv.ConsumerKey,
		ConsumerSecret: "shh",
		ClientName:     "notefetch-test",
		Timeout:        5 * time.Second,
		Retry:          retryCfg,
	}, logger.NewNopLogger())
}

func TestCheckVersion(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	client := newClient(srv, nil)

	ok, err := client.CheckVersion(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	srv.SetCompatible(false)
	ok, err = client.CheckVersion(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	session, err := newClient(srv, nil).Authenticate(context.Background(), "user", "secret")
	require.NoError(t, err)

	assert.Equal(t, srv.Token, session.Token)
	assert.Equal(t, srv.NoteStoreURL(), session.NoteStoreURL)
	assert.Equal(t, "user", session.Username)
	assert.Equal(t, int64(1), session.UserID)
	assert.False(t, session.Expires.IsZero())
}

func TestAuthenticateFailureCarriesParameter(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	tests := []struct {
		name      string
		username  string
		password  string
		parameter string
	}{
		{"unknown user", "nobody", "secret", "username"},
		{"wrong password", "user", "wrong", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClient(srv, nil).Authenticate(context.Background(), tt.username, tt.password)
			require.Error(t, err)

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errs.KindRemoteAuth, e.Kind)
			assert.Equal(t, "INVALID_AUTH", e.ErrorCode)
			assert.Equal(t, tt.parameter, e.Parameter)
		})
	}
}

func TestListNotebooksAndFindNotes(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	srv.AddNotebook(notestore.Notebook{GUID: "nb1", Name: "First", Default: true},
		notestore.Note{GUID: "n1", Title: "one"},
		notestore.Note{GUID: "n2", Title: "two"},
		notestore.Note{GUID: "n3", Title: "three"},
	)
	srv.AddNotebook(notestore.Notebook{GUID: "nb2", Name: "Second"})

	client := newClient(srv, nil)
	ctx := context.Background()

	notebooks, err := client.ListNotebooks(ctx, srv.Session())
	require.NoError(t, err)
	require.Len(t, notebooks, 2)
	assert.Equal(t, "First", notebooks[0].Name)
	assert.True(t, notebooks[0].Default)
	assert.Equal(t, "Second", notebooks[1].Name)

	page, err := client.FindNotes(ctx, srv.Session(), notestore.NoteFilter{NotebookGUID: "nb1"}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, page.StartIndex)
	assert.Equal(t, 3, page.TotalNotes)
	require.Len(t, page.Notes, 2)
	assert.Equal(t, "n2", page.Notes[0].GUID)
	assert.Equal(t, "nb1", page.Notes[0].NotebookGUID)
}

func TestExpiredTokenIsAuthError(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	session := srv.Session()
	session.Token = "stale"

	_, err := newClient(srv, nil).ListNotebooks(context.Background(), session)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindRemoteAuth))
}

func TestGetResourceData(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetResourceData("r1", []byte{0x89, 'P', 'N', 'G'})

	client := newClient(srv, nil)

	data, err := client.GetResourceData(context.Background(), srv.Session(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, err = client.GetResourceData(context.Background(), srv.Session(), "missing")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindRemoteNotFound))
}

func TestServiceErrorsAreRetried(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()
	srv.SetResourceData("r1", []byte("gif"))
	srv.FailResource("r1", http.StatusServiceUnavailable, 2)

	client := newClient(srv, &retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
	})

	data, err := client.GetResourceData(context.Background(), srv.Session(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("gif"), data)
	assert.Equal(t, 3, srv.DataFetches("r1"))
}

func TestNotFoundIsNotRetried(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	client := newClient(srv, &retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
	})

	_, err := client.GetResourceData(context.Background(), srv.Session(), "missing")
	require.Error(t, err)
	assert.Equal(t, 1, srv.DataFetches("missing"))
}

func TestUserAgentSentOnEveryCall(t *testing.T) {
	srv := testserver.New()
	defer srv.Close()

	client := newClient(srv, nil)
	_, err := client.CheckVersion(context.Background())
	require.NoError(t, err)
	_, err = client.ListNotebooks(context.Background(), srv.Session())
	require.NoError(t, err)

	for _, ua := range srv.UserAgents() {
		assert.Equal(t, "notefetch-test (EDAM/1.25)", ua)
	}
}
