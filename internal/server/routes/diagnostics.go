package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/any-hub/grimoire/internal/cache"
	"github.com/any-hub/grimoire/internal/metrics"
	"github.com/any-hub/grimoire/internal/version"
)

// CacheInspector 暴露文档缓存的只读视图。
type CacheInspector interface {
	Len() int
	Snapshot() []cache.EntryStatus
}

type cachePayload struct {
	Version  string              `json:"version"`
	Entries  int                 `json:"entries"`
	States   map[string]int      `json:"states"`
	Packages []cache.EntryStatus `json:"packages"`
}

// RegisterDiagnostics 暴露 /-/cache 与 /-/metrics 诊断接口，供运维查询缓存状态与指标。
func RegisterDiagnostics(app *fiber.App, inspector CacheInspector, recorder *metrics.Recorder) {
	if app == nil {
		return
	}

	if inspector != nil {
		app.Get("/-/cache", func(c fiber.Ctx) error {
			return c.JSON(encodeCache(inspector.Len(), inspector.Snapshot()))
		})

		app.Get("/-/cache/*", func(c fiber.Ctx) error {
			pkg := strings.TrimSpace(c.Params("*"))
			if pkg == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "package_required"})
			}
			status, ok := findEntry(inspector.Snapshot(), pkg)
			if !ok {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "package_not_cached"})
			}
			return c.JSON(status)
		})
	}

	app.Get("/-/metrics", adaptor.HTTPHandler(recorder.Handler()))
}

func encodeCache(size int, entries []cache.EntryStatus) cachePayload {
	states := map[string]int{
		cache.StatePending: 0,
		cache.StateReady:   0,
		cache.StateFailed:  0,
	}
	for _, entry := range entries {
		states[entry.State]++
	}
	if entries == nil {
		entries = []cache.EntryStatus{}
	}
	return cachePayload{
		Version:  version.Full(),
		Entries:  size,
		States:   states,
		Packages: entries,
	}
}

func findEntry(entries []cache.EntryStatus, pkg string) (cache.EntryStatus, bool) {
	for _, entry := range entries {
		if entry.Package == pkg {
			return entry, true
		}
	}
	return cache.EntryStatus{}, false
}
