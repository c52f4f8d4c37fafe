package handler

import (
	"net/http"
	"runtime"
	"time"

	"arcstore-api/internal/repository"
	"arcstore-api/internal/service"
	"arcstore-api/pkg/apierror"
	"arcstore-api/pkg/response"

	"go.uber.org/zap"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	game        repository.GameRepository
	reaper      *service.ReaperScheduler
	catalogType string
	cacheType   string
	startTime   time.Time
	log         *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	game repository.GameRepository,
	reaper *service.ReaperScheduler,
	catalogType string,
	cacheType string,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		game:        game,
		reaper:      reaper,
		catalogType: catalogType,
		cacheType:   cacheType,
		startTime:   time.Now(),
		log:         log.Named("admin_handler"),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["catalog_db_type"] = h.catalogType
	stats["cache_type"] = h.cacheType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	gameStats, err := h.game.GetStats(r.Context())
	if err == nil {
		gameStats["status"] = "connected"
		stats["game_db"] = gameStats
	} else {
		stats["game_db"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// Reap handles POST /api/v1/admin/reap and sweeps expired purchase orders now.
func (h *AdminHandler) Reap(w http.ResponseWriter, r *http.Request) {
	removed, err := h.reaper.RunNow(r.Context())
	if err != nil {
		h.log.Error("manual reap failed", zap.Error(err))
		response.Error(w, apierror.ServiceUnavailable("reap failed"))
		return
	}

	h.log.Info("manual reap", zap.Int64("removed", removed))
	response.OK(w, map[string]int64{"removed": removed})
}
