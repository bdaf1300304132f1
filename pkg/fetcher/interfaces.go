package fetcher

import (
	"context"

	"notefetch/internal/downloader"
	"notefetch/pkg/notestore"
)

// NoteStore defines the note service operations the fetcher needs
type NoteStore interface {
	ListNotebooks(ctx context.Context, s notestore.Session) ([]notestore.Notebook, error)
	FindNotes(ctx context.Context, s notestore.Session, filter notestore.NoteFilter, offset, maxNotes int) (*notestore.NoteList, error)
	GetResourceData(ctx context.Context, s notestore.Session, guid string) ([]byte, error)
}

// Reporter receives progress events. ResourceDone is called from the
// result collector goroutine, concurrently with the other methods.
type Reporter interface {
	NotebookStarted(nb notestore.Notebook)
	NotebookFailed(nb notestore.Notebook, err error)
	ResourceAccepted(nb notestore.Notebook, r notestore.Resource)
	ResourceDone(o downloader.Outcome)
}

type nopReporter struct{}

func (nopReporter) NotebookStarted(notestore.Notebook)                      {}
func (nopReporter) NotebookFailed(notestore.Notebook, error)                {}
func (nopReporter) ResourceAccepted(notestore.Notebook, notestore.Resource) {}
func (nopReporter) ResourceDone(downloader.Outcome)                         {}
