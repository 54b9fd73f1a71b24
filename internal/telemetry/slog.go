package telemetry

import (
	"fmt"
	"log/slog"
)

// SlogAPI implements API using the log/slog package.
type SlogAPI struct {
	logger *slog.Logger
}

// NewSlogAPI creates a SlogAPI that writes to logger, a nil logger means slog.Default().
func NewSlogAPI(logger *slog.Logger) SlogAPI {
	return SlogAPI{logger: logger}
}

func (s SlogAPI) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

func (SlogAPI) formatParams(out *[]any, params []any) {
	for i, p := range params {
		*out = append(
			*out,
			fmt.Sprintf("params.%d", i),
			p,
		)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	s.log().Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	s.log().Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	s.log().Debug(message, remainingPairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.log().Info("count", "id", id, "n", count)
}
