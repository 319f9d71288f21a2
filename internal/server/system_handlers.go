package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/papertrade/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves process and database status
type SystemHandlers struct {
	databases []*database.DB
	startedAt time.Time
	cpuStats  func(ctx context.Context) (float64, error)
	memStats  func(ctx context.Context) (float64, error)
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(databases []*database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		startedAt: time.Now(),
		cpuStats:  cpuPercent,
		memStats:  memPercent,
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// DatabaseStatus is the status of one database
type DatabaseStatus struct {
	Name    string          `json:"name"`
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// SystemStatus is the response of GET /api/system/status
type SystemStatus struct {
	Status        string           `json:"status"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	Goroutines    int              `json:"goroutines"`
	Databases     []DatabaseStatus `json:"databases"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := SystemStatus{
		Status:        "healthy",
		Version:       Version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		Databases:     make([]DatabaseStatus, 0, len(h.databases)),
	}

	var err error
	if status.CPUPercent, err = h.cpuStats(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	}
	if status.MemoryPercent, err = h.memStats(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	}

	for _, db := range h.databases {
		ds := DatabaseStatus{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(r.Context()); err != nil {
			ds.Healthy = false
			ds.Error = err.Error()
			status.Status = "degraded"
		}
		if stats, err := db.GetStats(); err == nil {
			ds.Stats = stats
		}
		status.Databases = append(status.Databases, ds)
	}

	h.writeJSON(w, http.StatusOK, status)
}

// cpuPercent samples CPU usage over 100ms, averaged across all CPUs
func cpuPercent(ctx context.Context) (float64, error) {
	percent, err := cpu.PercentWithContext(ctx, 100*time.Millisecond, false)
	if err != nil || len(percent) == 0 {
		return 0, err
	}
	return percent[0], nil
}

func memPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
