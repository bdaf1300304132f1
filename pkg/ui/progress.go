package ui

import (
	"fmt"
	"time"
)

// StatusTracker counts written images and bytes for the run summary
type StatusTracker struct {
	Written   int
	Failed    int
	Bytes     int64
	StartTime time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{StartTime: time.Now()}
}

// RecordWritten counts one written image of size bytes
func (st *StatusTracker) RecordWritten(size int) {
	st.Written++
	st.Bytes += int64(size)
}

// RecordFailed counts one failed image
func (st *StatusTracker) RecordFailed() {
	st.Failed++
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetWriteRate returns written images per minute
func (st *StatusTracker) GetWriteRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Written) / elapsed
}

// FormatBytes renders n with a binary unit, e.g. 1.5 KiB
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
