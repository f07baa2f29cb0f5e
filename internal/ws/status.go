package ws

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// StatusPayload is the JSON body served by GET /status.
type StatusPayload struct {
	State         string  `json:"state"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Observers     int     `json:"observers"`
	Broadcasts    uint64  `json:"broadcasts"`
	DroppedEvents uint64  `json:"dropped_events"`
	Goroutines    int     `json:"goroutines"`
	MemoryRSS     uint64  `json:"memory_rss_bytes,omitempty"`
	CPUPercent    float64 `json:"cpu_percent,omitempty"`
}

func (s *Server) handleStatus(reg *Registry, b *Broadcaster, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		payload := StatusPayload{
			State:         s.State().String(),
			UptimeSeconds: time.Since(startedAt).Seconds(),
			Observers:     reg.Len(),
			Broadcasts:    b.Broadcasts(),
			DroppedEvents: b.Dropped(),
			Goroutines:    runtime.NumGoroutine(),
		}
		fillProcessStats(&payload)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}
}

// fillProcessStats adds the server process's own footprint. Values that
// cannot be collected on this platform are left out.
func fillProcessStats(p *StatusPayload) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	if mi, err := proc.MemoryInfo(); err == nil && mi != nil {
		p.MemoryRSS = mi.RSS
	}
	if pct, err := proc.CPUPercent(); err == nil {
		p.CPUPercent = pct
	}
}
