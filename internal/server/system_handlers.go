package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse is the /api/system/status payload: process
// health plus whatever Core's status provider adds (chain connectivity,
// detector and composer counters).
type SystemStatusResponse struct {
	UptimeSeconds float64                `json:"uptime_seconds"`
	CPUPercent    float64                `json:"cpu_percent"`
	RAMPercent    float64                `json:"ram_percent"`
	ChainConnected bool                  `json:"chain_connected"`
	LastGoodSlot  uint64                 `json:"last_good_slot"`
	Counters      map[string]uint64      `json:"counters,omitempty"`
}

// handleSystemStatus returns CPU/RAM usage plus whatever Core's status
// provider layers on (chain connectivity, per-detector drop counters).
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()

	var resp SystemStatusResponse
	if s.statusFn != nil {
		resp = s.statusFn()
	}
	resp.UptimeSeconds = time.Since(s.startedAt).Seconds()
	resp.CPUPercent = cpuPercent
	resp.RAMPercent = ramPercent

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// getSystemStats samples CPU and RAM usage over a short interval so the
// status endpoint stays responsive under frequent polling.
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to get CPU percentage")
		cpuPercents = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to get memory statistics")
		return cpuPercents[0], 0
	}

	return cpuPercents[0], memStat.UsedPercent
}
