// Package fetcher drives one image fetch run over an authenticated session.
//
// Notebooks are listed once, then each notebook's notes are paged through
// with FindNotes. Every resource whose MIME type is an accepted image is
// handed to a downloader.WorkerPool, which fetches the bytes and writes
// them through a storage.Manager as {guid}_{fileName}.
//
// Failure scope is narrow: a failed resource is reported and skipped, a
// notebook whose notes cannot be listed is recorded in the Report and the
// run moves on. Only a failure to list notebooks aborts the run.
package fetcher
