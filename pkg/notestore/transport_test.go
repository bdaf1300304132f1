package notestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "notefetch/pkg/errors"
	"notefetch/pkg/logger"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newMockClient(handler func(req *http.Request) (*http.Response, error)) *Client {
	return NewClient(Options{
		Host:       "https://notes.example.com",
		ClientName: "notefetch-test",
		HTTPClient: &http.Client{
			Transport: &mockRoundTripper{handler: handler},
			Timeout:   5 * time.Second,
		},
	}, logger.NewNopLogger())
}

func newResponse(req *http.Request, statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}
}

var testSession = Session{Token: "tok", NoteStoreURL: "https://notes.example.com/ns"}

func TestTransportFailureIsProtocolError(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	})

	_, err := client.ListNotebooks(context.Background(), testSession)
	require.Error(t, err)
	assert.Equal(t, errs.KindRemoteProtocol, errs.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestMalformedJSONIsProtocolError(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		return newResponse(req, http.StatusOK, `{"notes": [`), nil
	})

	_, err := client.FindNotes(context.Background(), testSession, NoteFilter{NotebookGUID: "nb"}, 0, 10)
	require.Error(t, err)
	assert.Equal(t, errs.KindRemoteProtocol, errs.KindOf(err))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   errs.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, "", errs.KindRemoteAuth},
		{"forbidden", http.StatusForbidden, "", errs.KindRemoteAuth},
		{"auth error code on 400", http.StatusBadRequest, `{"error_code":"AUTH_EXPIRED"}`, errs.KindRemoteAuth},
		{"not found", http.StatusNotFound, "", errs.KindRemoteNotFound},
		{"too many requests", http.StatusTooManyRequests, "", errs.KindRemoteService},
		{"server error", http.StatusInternalServerError, "", errs.KindRemoteService},
		{"bad request", http.StatusBadRequest, `{"error_code":"BAD_DATA_FORMAT"}`, errs.KindRemoteProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient(func(req *http.Request) (*http.Response, error) {
				return newResponse(req, tt.status, tt.body), nil
			})

			_, err := client.GetResourceData(context.Background(), testSession, "r1")
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.KindOf(err))

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.status, e.Code)
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	var seen *http.Request
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		seen = req
		return newResponse(req, http.StatusOK, `[]`), nil
	})

	notebooks, err := client.ListNotebooks(context.Background(), testSession)
	require.NoError(t, err)
	assert.Empty(t, notebooks)

	require.NotNil(t, seen)
	assert.Equal(t, "Bearer tok", seen.Header.Get("Authorization"))
	assert.Equal(t, "notefetch-test (EDAM/1.25)", seen.Header.Get("User-Agent"))
}

func TestAuthenticateRejectsIncompleteResponse(t *testing.T) {
	client := newMockClient(func(req *http.Request) (*http.Response, error) {
		return newResponse(req, http.StatusOK, `{"authentication_token": ""}`), nil
	})

	_, err := client.Authenticate(context.Background(), "user", "secret")
	require.Error(t, err)
	assert.Equal(t, errs.KindRemoteProtocol, errs.KindOf(err))
}
