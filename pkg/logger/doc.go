// Package logger provides the structured logging interface used across photopost.
//
// It wraps zerolog. Loggers are constructed explicitly and passed to the
// components that need them; there is no package-level instance.
//
// Console output is human readable and filtered at Level. When File is set,
// a second JSON sink is added, filtered independently at FileLevel and
// rotated by size through lumberjack (MaxSize megabytes, MaxBackups old files).
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close(log)
//
//	log.WithField("photo", path).Info("Posting photo")
package logger
