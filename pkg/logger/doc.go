// Package logger builds the process-wide *slog.Logger: JSON records in prod,
// text records everywhere else, tagged with the service and environment.
package logger
