package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports pipeline and cache events as debug-level log lines.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks writing to l, or log.Default() when l is nil.
func NewLogHooks(l *log.Logger) *LogHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHooks{logger: l}
}

func (h *LogHooks) OnIngestStart(_ context.Context, format, path string) {
	h.logger.Debug("ingest start", "format", format, "path", path)
}

func (h *LogHooks) OnIngestComplete(_ context.Context, format, path string, rows, cols int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("ingest failed", "format", format, "path", path, "err", err, "elapsed", d)
		return
	}
	h.logger.Debug("ingest done", "format", format, "path", path, "rows", rows, "cols", cols, "elapsed", d)
}

func (h *LogHooks) OnExportStart(_ context.Context, kind, path string) {
	h.logger.Debug("export start", "kind", kind, "path", path)
}

func (h *LogHooks) OnExportComplete(_ context.Context, kind, path string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("export failed", "kind", kind, "path", path, "err", err)
		return
	}
	h.logger.Debug("export done", "kind", kind, "path", path, "elapsed", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
)
