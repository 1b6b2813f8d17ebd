package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/averros/tradecore/internal/database"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	portfolioDB *database.DB
	ledgerDB    *database.DB
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, portfolioDB, ledgerDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		portfolioDB: portfolioDB,
		ledgerDB:    ledgerDB,
	}
}

// SystemStatusResponse describes the process and host status
type SystemStatusResponse struct {
	UptimeSeconds  float64 `json:"uptime_seconds"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryPercent  float64 `json:"memory_percent"`
	MemoryUsedMB   float64 `json:"memory_used_mb"`
	Goroutines     int     `json:"goroutines"`
	GoVersion      string  `json:"go_version"`
	DataDirPresent bool    `json:"data_dir_present"`
}

// HandleSystemStatus returns process and host status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent, memUsedMB := h.getSystemStats()

	_, statErr := os.Stat(h.dataDir)

	response := SystemStatusResponse{
		UptimeSeconds:  time.Since(h.startupTime).Seconds(),
		CPUPercent:     cpuPercent,
		MemoryPercent:  memPercent,
		MemoryUsedMB:   memUsedMB,
		Goroutines:     runtime.NumGoroutine(),
		GoVersion:      runtime.Version(),
		DataDirPresent: statErr == nil,
	}

	h.writeJSON(w, response)
}

// DatabaseStatsResponse reports per-database connection and size stats
type DatabaseStatsResponse struct {
	Databases map[string]DatabaseStats `json:"databases"`
}

// DatabaseStats describes one database
type DatabaseStats struct {
	OpenConnections int     `json:"open_connections"`
	InUse           int     `json:"in_use"`
	Idle            int     `json:"idle"`
	FileSizeMB      float64 `json:"file_size_mb"`
	Healthy         bool    `json:"healthy"`
}

// HandleDatabaseStats returns connection pool and file size stats for both databases
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	response := DatabaseStatsResponse{Databases: map[string]DatabaseStats{}}
	for name, db := range map[string]*database.DB{"portfolio": h.portfolioDB, "ledger": h.ledgerDB} {
		if db == nil {
			continue
		}
		pool := db.Conn().Stats()
		response.Databases[name] = DatabaseStats{
			OpenConnections: pool.OpenConnections,
			InUse:           pool.InUse,
			Idle:            pool.Idle,
			FileSizeMB:      h.fileSizeMB(filepath.Join(h.dataDir, name+".db")),
			Healthy:         db.QuickCheck(r.Context()) == nil,
		}
	}

	h.writeJSON(w, response)
}

// DiskUsageResponse reports disk usage for the data directory's filesystem
type DiskUsageResponse struct {
	DataDirMB     float64 `json:"data_dir_mb"`
	DiskTotalGB   float64 `json:"disk_total_gb"`
	DiskFreeGB    float64 `json:"disk_free_gb"`
	DiskUsedPct   float64 `json:"disk_used_pct"`
	DiskMountPath string  `json:"disk_mount_path"`
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	response := DiskUsageResponse{
		DataDirMB:     h.getDirSize(h.dataDir),
		DiskMountPath: h.dataDir,
	}

	if usage, err := disk.Usage(h.dataDir); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	} else {
		response.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
		response.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
		response.DiskUsedPct = usage.UsedPercent
	}

	h.writeJSON(w, response)
}

// getSystemStats returns CPU percentage, RAM percentage and RAM used in MB.
// The 100ms CPU sampling window keeps the endpoint fast enough for pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent, float64(memStat.Used) / 1024 / 1024
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

func (h *SystemHandlers) fileSizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
