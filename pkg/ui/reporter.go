package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"notefetch/internal/downloader"
	"notefetch/pkg/fetcher"
	"notefetch/pkg/notestore"
	"notefetch/pkg/storage"
)

// ConsoleReporter prints fetch progress as plain lines. Its methods may be
// called from several goroutines; each line is written whole.
type ConsoleReporter struct {
	mu      sync.Mutex
	out     io.Writer
	quiet   bool
	palette Palette
	tracker *StatusTracker
}

// NewConsoleReporter creates a reporter writing to out. In quiet mode only
// failures and the summary are printed.
func NewConsoleReporter(out io.Writer, quiet bool) *ConsoleReporter {
	return &ConsoleReporter{
		out:     out,
		quiet:   quiet,
		palette: NewPalette(out),
		tracker: NewStatusTracker(),
	}
}

var _ fetcher.Reporter = (*ConsoleReporter)(nil)

func (c *ConsoleReporter) NotebookStarted(nb notestore.Notebook) {
	if c.quiet {
		return
	}
	c.println("Notebook: " + c.palette.Cyan(nb.Name))
}

func (c *ConsoleReporter) NotebookFailed(nb notestore.Notebook, err error) {
	c.println(c.palette.Red(fmt.Sprintf(" ! Could not list notes of notebook '%s': %v", nb.Name, err)))
}

func (c *ConsoleReporter) ResourceAccepted(nb notestore.Notebook, r notestore.Resource) {
	if c.quiet {
		return
	}
	c.println(" * Found an image! Filename: " + c.palette.Yellow(displayName(r)))
}

func (c *ConsoleReporter) ResourceDone(o downloader.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch o.Status {
	case downloader.StatusWritten:
		c.tracker.RecordWritten(o.Size)
		if !c.quiet {
			fmt.Fprintf(c.out, "   Image '%s' successfully written.\n", o.DisplayName())
		}
	case downloader.StatusFailed:
		c.tracker.RecordFailed()
		fmt.Fprintln(c.out, c.palette.Red(fmt.Sprintf("   Image '%s' could not be saved: %v", o.DisplayName(), o.Err)))
	}
}

// PrintSummary prints totals and every failure of the run
func (c *ConsoleReporter) PrintSummary(report *fetcher.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.palette
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "%s %d notebooks, %d notes, %d images written (%s), %d skipped, %d failed in %s\n",
		p.Magenta("[SUMMARY]"),
		report.Notebooks,
		report.Notes,
		report.Written,
		FormatBytes(c.tracker.Bytes),
		report.Skipped,
		report.Failed,
		report.Duration.Round(time.Millisecond),
	)

	for _, nf := range report.NotebookFailures {
		fmt.Fprintf(c.out, "  %s notebook '%s': %v\n", p.Red("failed"), nf.Notebook.Name, nf.Err)
	}
	for _, o := range report.Failures {
		fmt.Fprintf(c.out, "  %s %s (resource %s): %v\n", p.Red("failed"), o.DisplayName(), o.Resource.GUID, o.Err)
	}
	if !report.HasFailures() {
		fmt.Fprintln(c.out, p.Green("All images saved."))
	}
}

func (c *ConsoleReporter) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func displayName(r notestore.Resource) string {
	if r.Attributes.FileName != "" {
		return r.Attributes.FileName
	}
	return storage.ResolveName(r.GUID, "", r.Mime)
}
