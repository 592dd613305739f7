package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse reports host and process health for the
// dashboard's status footer.
type SystemStatusResponse struct {
	Status       string  `json:"status"`
	UptimeHours  float64 `json:"uptime_hours"`
	CPUPercent   float64 `json:"cpu_percent"`
	RAMPercent   float64 `json:"ram_percent"`
	Goroutines   int     `json:"goroutines"`
	HeapAllocMB  uint64  `json:"heap_alloc_mb"`
	HeapSysMB    uint64  `json:"heap_sys_mb"`
	NumGC        uint32  `json:"num_gc"`
	CheckedAt    string  `json:"checked_at"`
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := SystemStatusResponse{
		Status:     "running",
		Goroutines: runtime.NumGoroutine(),
		CheckedAt:  time.Now().Format(time.RFC3339),
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	response.HeapAllocMB = m.Alloc / 1024 / 1024
	response.HeapSysMB = m.Sys / 1024 / 1024
	response.NumGC = m.NumGC

	// Host metrics are best effort; a probe failure leaves zeros.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response.CPUPercent = percents[0]
	} else if err != nil {
		s.log.Warn().Err(err).Msg("CPU probe failed")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response.RAMPercent = vm.UsedPercent
	} else {
		s.log.Warn().Err(err).Msg("Memory probe failed")
	}

	if uptime, err := host.Uptime(); err == nil {
		response.UptimeHours = float64(uptime) / 3600
	}

	s.writeJSON(w, http.StatusOK, response)
}
