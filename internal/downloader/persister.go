package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	errs "notefetch/pkg/errors"
	"notefetch/pkg/logger"
	"notefetch/pkg/media"
	"notefetch/pkg/notestore"
)

// Status is the final state of one resource
type Status string

const (
	StatusWritten Status = "written"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// ResourceFetcher downloads resource bytes from the note store
type ResourceFetcher interface {
	GetResourceData(ctx context.Context, s notestore.Session, guid string) ([]byte, error)
}

// ResourceStore persists resource bytes locally
type ResourceStore interface {
	PathFor(r notestore.Resource) string
	Save(r notestore.Resource, data []byte) (string, error)
}

// Job is one resource to fetch and write
type Job struct {
	Resource     notestore.Resource
	NotebookName string
}

// Outcome reports what happened to one resource
type Outcome struct {
	Resource     notestore.Resource
	NotebookName string
	Status       Status
	Path         string
	Size         int
	Duration     time.Duration
	Err          error
}

// DisplayName is the name shown to the user: the declared file name, or the
// local file name when none was declared
func (o Outcome) DisplayName() string {
	if o.Resource.Attributes.FileName != "" {
		return o.Resource.Attributes.FileName
	}
	if o.Path != "" {
		return filepath.Base(o.Path)
	}
	return o.Resource.GUID
}

// Persister fetches one resource and writes it to storage. A failure only
// ever affects the resource being processed.
type Persister struct {
	client ResourceFetcher
	store  ResourceStore
	logger logger.Logger
}

// NewPersister creates a persister
func NewPersister(client ResourceFetcher, store ResourceStore, log logger.Logger) *Persister {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Persister{client: client, store: store, logger: log}
}

// Persist fetches and saves the job's resource and reports the outcome.
// Resources that are not accepted images are skipped without a fetch.
func (p *Persister) Persist(ctx context.Context, session notestore.Session, job Job) Outcome {
	start := time.Now()
	r := job.Resource
	outcome := Outcome{
		Resource:     r,
		NotebookName: job.NotebookName,
	}

	log := p.logger.WithFields(map[string]interface{}{
		"resource_guid": r.GUID,
		"note_guid":     r.NoteGUID,
		"mime":          r.Mime,
	})

	if !media.Accepts(r) {
		outcome.Status = StatusSkipped
		outcome.Duration = time.Since(start)
		log.Debug("Resource is not an accepted image, skipping")
		return outcome
	}

	outcome.Path = p.store.PathFor(r)

	data, err := p.client.GetResourceData(ctx, session, r.GUID)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = classify(err, errs.KindRemoteProtocol, "fetch resource data")
		outcome.Duration = time.Since(start)
		log.WithError(outcome.Err).ErrorWithFields("Failed to fetch resource", map[string]interface{}{
			"kind":     string(errs.KindOf(outcome.Err)),
			"duration": outcome.Duration,
		})
		return outcome
	}
	outcome.Size = len(data)

	path, err := p.store.Save(r, data)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = classify(err, errs.KindLocalWrite, "save resource")
		outcome.Duration = time.Since(start)
		log.WithError(outcome.Err).ErrorWithFields("Failed to write resource", map[string]interface{}{
			"path": outcome.Path,
			"size": outcome.Size,
		})
		return outcome
	}

	outcome.Status = StatusWritten
	outcome.Path = path
	outcome.Duration = time.Since(start)
	log.DebugWithFields("Resource written", map[string]interface{}{
		"path":     path,
		"size":     outcome.Size,
		"duration": outcome.Duration,
	})
	return outcome
}

// classify makes sure err carries a Kind, defaulting to fallback
func classify(err error, fallback errs.Kind, op string) error {
	if errs.KindOf(err) != errs.KindUnknown {
		return fmt.Errorf("%s: %w", op, err)
	}
	return errs.Wrap(fallback, err, op)
}
