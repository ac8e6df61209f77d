// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/memtwin/memtwin/internal/consolidate"
	"github.com/memtwin/memtwin/internal/metrics"
	"github.com/memtwin/memtwin/internal/service"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Episodes     *service.EpisodeService
	Capture      *service.CaptureService
	Search       *service.SearchService
	Status       *service.StatusService
	Reconcile    *service.ReconcileService
	Consolidator *consolidate.Consolidator
	Collector    *metrics.Collector
	Logger       *slog.Logger
}
