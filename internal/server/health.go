package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"
)

// healthHandler reports the session store and host metrics. It answers 503 when the
// store is down.
func (s *Server) healthHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	var (
		store  map[string]string
		system map[string]interface{}
	)

	g, grpCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		store = s.store.Health(grpCtx)
		return nil
	})
	g.Go(func() error {
		system = systemStats(grpCtx)
		return nil
	})
	_ = g.Wait()

	status := http.StatusOK
	overall := "online"
	if store["status"] == "down" {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	return c.JSON(status, map[string]interface{}{
		"status": overall,
		"runtime": map[string]interface{}{
			"uptime":     time.Since(s.startTime).Round(time.Second).String(),
			"start_time": s.startTime.Format(time.RFC3339),
		},
		"session_store": store,
		"system":        system,
	})
}

// systemStats collects host metrics. Metrics the platform cannot report are omitted.
func systemStats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{}

	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats["memory"] = map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(v.Total)/1024/1024/1024),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(v.Used)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
		}
	}

	// Interval 0 compares against the previous call instead of blocking.
	if cpuPercent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercent) > 0 {
		stats["cpu_usage"] = fmt.Sprintf("%.2f%%", cpuPercent[0])
	}

	if d, err := disk.UsageWithContext(ctx, "/"); err == nil {
		stats["disk_usage"] = fmt.Sprintf("%.2f%%", d.UsedPercent)
	}

	if hInfo, err := host.InfoWithContext(ctx); err == nil {
		stats["os"] = hInfo.OS
		stats["platform"] = hInfo.Platform
		stats["hostname"] = hInfo.Hostname
		stats["procs"] = hInfo.Procs
	}

	return stats
}
