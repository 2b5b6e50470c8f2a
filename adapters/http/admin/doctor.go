package admin

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/pkg/httpjson"
)

// DoctorResponse represents the system health check response.
type DoctorResponse struct {
	Status    string        `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
	System    SystemInfo    `json:"system"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "warn", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo represents system information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
	Uptime       string `json:"uptime,omitempty"`
}

var startTime = time.Now()

// Doctor performs a comprehensive system health check.
//
//	@Summary		System health check
//	@Description	Database, boot, host API and module state diagnostics
//	@Tags			Admin - System
//	@Produce		json
//	@Success		200	{object}	DoctorResponse	"Health check results"
//	@Failure		503	{object}	DoctorResponse	"Unhealthy"
//	@Security		AdminAuth
//	@Router			/admin/doctor [get]
func (h *Handler) Doctor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	response := DoctorResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Checks: []HealthCheck{
			h.checkDatabase(ctx),
			h.checkBoot(),
			h.checkModules(ctx),
			checkMemory(),
		},
	}

	hasWarn, hasFail := false, false
	for _, check := range response.Checks {
		switch check.Status {
		case "warn":
			hasWarn = true
		case "fail":
			hasFail = true
		}
	}
	if hasFail {
		response.Status = "unhealthy"
	} else if hasWarn {
		response.Status = "degraded"
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	response.System = SystemInfo{
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		MemAlloc:     formatBytes(memStats.Alloc),
		MemSys:       formatBytes(memStats.Sys),
		Uptime:       time.Since(startTime).Round(time.Second).String(),
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	httpjson.Write(w, statusCode, response)
}

func (h *Handler) checkDatabase(ctx context.Context) HealthCheck {
	check := HealthCheck{Name: "database", Status: "pass"}
	if h.db == nil {
		check.Message = "In-memory settings store"
		return check
	}

	start := time.Now()
	err := h.db.PingContext(ctx)
	check.Latency = time.Since(start).String()
	if err != nil {
		check.Status = "fail"
		check.Message = fmt.Sprintf("Database ping failed: %v", err)
	} else {
		check.Message = "Database connection healthy"
	}
	return check
}

func (h *Handler) checkBoot() HealthCheck {
	check := HealthCheck{Name: "boot", Status: "pass"}
	switch {
	case !h.lifecycle.Booted():
		check.Status = "warn"
		check.Message = "Modules have not been booted yet"
	case h.lifecycle.Host().API == "":
		check.Status = "fail"
		check.Message = "Core API is not available; no modules were loaded"
	default:
		host := h.lifecycle.Host()
		check.Message = fmt.Sprintf("Host runtime %s, API %s, language runtime %s",
			host.Runtime, host.API, host.LanguageRuntime)
	}
	return check
}

func (h *Handler) checkModules(ctx context.Context) HealthCheck {
	check := HealthCheck{Name: "modules", Status: "pass"}

	statuses, err := h.lifecycle.Statuses(ctx)
	if err != nil {
		check.Status = "fail"
		check.Message = fmt.Sprintf("Module state unreadable: %v", err)
		return check
	}

	var active int
	var problems []string
	for _, st := range statuses {
		switch st.State {
		case module.StateActive:
			active++
		case module.StateGatedOut:
			problems = append(problems, st.ID+" gated out")
		case module.StateFaulted:
			problems = append(problems, st.ID+" faulted")
		}
	}

	if len(problems) > 0 {
		check.Status = "warn"
		check.Message = fmt.Sprintf("%d active; %s", active, strings.Join(problems, ", "))
	} else {
		check.Message = fmt.Sprintf("%d of %d modules active", active, len(statuses))
	}
	return check
}

func checkMemory() HealthCheck {
	check := HealthCheck{Name: "memory", Status: "pass"}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Warn if using more than 500MB
	if memStats.Alloc > 500*1024*1024 {
		check.Status = "warn"
		check.Message = fmt.Sprintf("High memory usage: %s", formatBytes(memStats.Alloc))
	} else {
		check.Message = fmt.Sprintf("Memory usage: %s", formatBytes(memStats.Alloc))
	}
	return check
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
