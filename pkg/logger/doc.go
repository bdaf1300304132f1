// Package logger provides structured logging for notefetch.
//
// It wraps zerolog behind a small Logger interface. Console output goes to
// stderr so that stdout carries only the fetch progress lines; an optional
// log file receives JSON lines.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Fetch finished", map[string]interface{}{
//	    "written": 12,
//	    "failed":  1,
//	})
//
// Tests use NewNopLogger or NewTestLogger, which records every message.
package logger
