package fetcher

import (
	"context"
	"fmt"
	"time"

	"notefetch/internal/downloader"
	"notefetch/pkg/config"
	"notefetch/pkg/logger"
	"notefetch/pkg/media"
	"notefetch/pkg/notestore"
	"notefetch/pkg/storage"
)

// Options tunes a fetch run
type Options struct {
	// PageSize is the number of notes requested per FindNotes call
	PageSize int
	// Workers is the number of concurrent fetch-and-write workers
	Workers int
}

// NotebookFailure records a notebook whose notes could not be listed
type NotebookFailure struct {
	Notebook notestore.Notebook
	Err      error
}

// Report summarizes a run
type Report struct {
	Notebooks        int
	Notes            int
	Written          int
	Skipped          int
	Failed           int
	Failures         []downloader.Outcome
	NotebookFailures []NotebookFailure
	Duration         time.Duration
}

// HasFailures reports whether any resource or notebook failed
func (r *Report) HasFailures() bool {
	return r.Failed > 0 || len(r.NotebookFailures) > 0
}

func (r *Report) record(o downloader.Outcome) {
	switch o.Status {
	case downloader.StatusWritten:
		r.Written++
	case downloader.StatusSkipped:
		r.Skipped++
	case downloader.StatusFailed:
		r.Failed++
		r.Failures = append(r.Failures, o)
	}
}

// Fetcher walks notebooks, notes and resources and saves every image
type Fetcher struct {
	store    NoteStore
	files    downloader.ResourceStore
	reporter Reporter
	opts     Options
	logger   logger.Logger
}

// New creates a Fetcher
func New(store NoteStore, files downloader.ResourceStore, reporter Reporter, opts Options, log logger.Logger) *Fetcher {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	opts.PageSize = notestore.ClampPageSize(opts.PageSize)
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Fetcher{
		store:    store,
		files:    files,
		reporter: reporter,
		opts:     opts,
		logger:   log,
	}
}

// NewFromConfig creates a Fetcher writing to cfg.Output.Directory
func NewFromConfig(cfg *config.Config, store NoteStore, reporter Reporter, log logger.Logger) *Fetcher {
	return New(store, storage.NewManager(cfg.Output.Directory), reporter, Options{
		PageSize: cfg.Download.PageSize,
		Workers:  cfg.Download.ConcurrentDownloads,
	}, log)
}

// Run fetches every accepted image of the account. A notebook listing
// failure aborts the run; a note listing failure is recorded and the next
// notebook is processed; resource failures only appear in the report.
// On cancellation the partial report is returned with the context error.
func (f *Fetcher) Run(ctx context.Context, session notestore.Session) (*Report, error) {
	start := time.Now()

	notebooks, err := f.store.ListNotebooks(ctx, session)
	if err != nil {
		f.logger.WithError(err).Error("Failed to list notebooks")
		return nil, fmt.Errorf("failed to list notebooks: %w", err)
	}

	report := &Report{Notebooks: len(notebooks)}
	f.logger.InfoWithFields("Starting fetch", map[string]interface{}{
		"notebooks": len(notebooks),
		"page_size": f.opts.PageSize,
		"workers":   f.opts.Workers,
	})

	persister := downloader.NewPersister(f.store, f.files, f.logger)
	pool := downloader.NewWorkerPool(ctx, f.opts.Workers, persister, session, f.logger)
	pool.Start()

	// Collector owns Written, Failed, Failures; the traversal owns the rest
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for outcome := range pool.Results() {
			report.record(outcome)
			f.reporter.ResourceDone(outcome)
		}
	}()

	var runErr error
	for _, nb := range notebooks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		f.reporter.NotebookStarted(nb)
		if err := f.fetchNotebook(ctx, session, nb, pool, report); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				runErr = ctxErr
				break
			}
			f.logger.WithError(err).WarnWithFields("Skipping rest of notebook", map[string]interface{}{
				"notebook_guid": nb.GUID,
				"notebook":      nb.Name,
			})
			report.NotebookFailures = append(report.NotebookFailures, NotebookFailure{Notebook: nb, Err: err})
			f.reporter.NotebookFailed(nb, err)
		}
	}

	pool.Stop()
	<-collected
	report.Duration = time.Since(start)

	f.logger.InfoWithFields("Fetch finished", map[string]interface{}{
		"notebooks":         report.Notebooks,
		"notes":             report.Notes,
		"written":           report.Written,
		"skipped":           report.Skipped,
		"failed":            report.Failed,
		"notebook_failures": len(report.NotebookFailures),
		"duration":          report.Duration,
	})

	if runErr != nil {
		return report, fmt.Errorf("fetch interrupted: %w", runErr)
	}
	return report, nil
}

// fetchNotebook pages through the notes of one notebook and queues every
// accepted image
func (f *Fetcher) fetchNotebook(ctx context.Context, s notestore.Session, nb notestore.Notebook, pool *downloader.WorkerPool, report *Report) error {
	filter := notestore.NoteFilter{NotebookGUID: nb.GUID}
	offset := 0

	for {
		page, err := f.store.FindNotes(ctx, s, filter, offset, f.opts.PageSize)
		if err != nil {
			return fmt.Errorf("failed to list notes of %q at offset %d: %w", nb.Name, offset, err)
		}

		f.logger.DebugWithFields("Notes page fetched", map[string]interface{}{
			"notebook": nb.Name,
			"offset":   offset,
			"count":    len(page.Notes),
			"total":    page.TotalNotes,
		})

		for _, note := range page.Notes {
			report.Notes++
			for _, r := range note.Resources {
				if r.NoteGUID == "" {
					r.NoteGUID = note.GUID
				}
				if !media.Accepts(r) {
					report.Skipped++
					f.logger.DebugWithFields("Skipping non-image resource", map[string]interface{}{
						"resource_guid": r.GUID,
						"mime":          r.Mime,
					})
					continue
				}

				f.reporter.ResourceAccepted(nb, r)
				if err := pool.Submit(downloader.Job{Resource: r, NotebookName: nb.Name}); err != nil {
					return err
				}
			}
		}

		offset += len(page.Notes)
		if len(page.Notes) < f.opts.PageSize ||
			offset >= page.TotalNotes ||
			offset >= notestore.MaxNotesPerAccount {
			return nil
		}
	}
}
