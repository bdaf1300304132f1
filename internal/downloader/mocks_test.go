package downloader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	errs "notefetch/pkg/errors"
	"notefetch/pkg/notestore"
)

// MockClient is a mock note store that serves fixed bytes
type MockClient struct {
	downloadDelay   time.Duration
	failGUIDs       map[string]error
	downloadCounter int32
}

func (m *MockClient) GetResourceData(ctx context.Context, s notestore.Session, guid string) ([]byte, error) {
	atomic.AddInt32(&m.downloadCounter, 1)
	if m.downloadDelay > 0 {
		select {
		case <-time.After(m.downloadDelay):
		case <-ctx.Done():
			return nil, errs.Wrap(errs.KindRemoteProtocol, ctx.Err(), "network error")
		}
	}
	if err, ok := m.failGUIDs[guid]; ok {
		return nil, err
	}
	return []byte("data for " + guid), nil
}

func (m *MockClient) GetDownloadCount() int {
	return int(atomic.LoadInt32(&m.downloadCounter))
}

// MockStore records saves in memory
type MockStore struct {
	mu        sync.Mutex
	saved     map[string][]byte
	failGUIDs map[string]error
}

func NewMockStore() *MockStore {
	return &MockStore{saved: make(map[string][]byte)}
}

func (m *MockStore) PathFor(r notestore.Resource) string {
	return "mem/" + r.GUID
}

func (m *MockStore) Save(r notestore.Resource, data []byte) (string, error) {
	if err, ok := m.failGUIDs[r.GUID]; ok {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[r.GUID] = data
	return m.PathFor(r), nil
}

func (m *MockStore) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func image(guid string) notestore.Resource {
	return notestore.Resource{
		GUID:       guid,
		Mime:       "image/png",
		Attributes: notestore.ResourceAttributes{FileName: guid + ".png"},
	}
}
