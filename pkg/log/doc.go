// Package log is the structured logging abstraction used across penpal.
//
// Components depend on the [Logger] interface and build fields with the
// helpers in this package. Two implementations ship with it:
//
//   - [ZerologAdapter] writes human-readable console lines to stderr and,
//     optionally, JSON lines to a log file.
//   - [NoopLogger] discards everything and is meant for tests.
//
// Usage:
//
//	logger, closer, err := log.NewZerologAdapter(log.Options{Level: "info", File: "app.log"})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	logger.Info("page loaded", log.String("url", u), log.Int("rows", n))
package log
