// Package log provides the logging abstraction shared by the playground
// packages.
//
// Components depend only on the Logger interface. The zerolog adapter is the
// default implementation; the no-op logger is used when no logger is given
// and in tests.
//
// # Usage
//
//	logger, err := log.New(log.Options{Level: "debug", Format: "json", Out: os.Stderr})
//	if err != nil {
//	    return err
//	}
//	logger.Info("dialing host", log.String("socket", path))
//
// Scoped loggers carry fields into every message:
//
//	sessionLog := log.With(logger, log.String("session", id))
package log
