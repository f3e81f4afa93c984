/*
Package log provides structured logging for the cluster using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, configurable log levels, and helper
functions for common logging patterns.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("master listening on :7878")

	workerLog := log.WithWorker("10.0.0.5:9000")
	workerLog.Warn().Msg("worker failed health check, removing")

	jobLog := log.WithJob(job)
	jobLog.Info().Int("partitions", n).Msg("dispatching countwords job")

# Log levels

Debug is for development/troubleshooting, Info is the default production
level, Warn flags conditions that may need attention (a missed heartbeat),
Error records failed operations, and Fatal logs and then exits the
process. Start-up failures do not go through Fatal: internal/config
returns them as errors and cmd/hivemind prints them and exits non-zero.

# Do

  - Use component loggers (WithWorker, WithJob) instead of ad hoc string
    concatenation so logs stay queryable by field.
  - Log the shared secret's presence, never its value.
*/
package log
