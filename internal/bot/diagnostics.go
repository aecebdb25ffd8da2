// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/danmackey/rorserverbot/internal/registry"
)

// HostStats holds the host metrics collected by a SystemMonitor, backing
// both the operator ">hostinfo" command and the periodic stats log line.
type HostStats struct {
	CPUPercent       float64
	MemoryPercent    float64
	DiskUsagePercent float64
	LoadAverage      float64
}

// SystemMonitor collects host metrics on its own ticker, independent of
// the connection's frame-clock/heartbeat loops (host metrics don't need
// game-tick resolution).
type SystemMonitor struct {
	logger *slog.Logger

	close chan struct{}
	wg    sync.WaitGroup

	mu    sync.RWMutex
	stats HostStats
}

// NewSystemMonitor creates a SystemMonitor.
func NewSystemMonitor(logger *slog.Logger) *SystemMonitor {
	return &SystemMonitor{
		logger: logger.With("component", "system_monitor"),
		close:  make(chan struct{}),
	}
}

// Start begins periodic metric collection at interval.
func (sm *SystemMonitor) Start(interval time.Duration) {
	sm.wg.Add(1)
	go sm.run(interval)
}

// Stop stops the monitor and waits for its goroutine to exit.
func (sm *SystemMonitor) Stop() {
	close(sm.close)
	sm.wg.Wait()
}

// Stats returns the most recently collected host metrics.
func (sm *SystemMonitor) Stats() HostStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stats
}

func (sm *SystemMonitor) run(interval time.Duration) {
	defer sm.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sm.collect()

	for {
		select {
		case <-sm.close:
			return
		case <-ticker.C:
			sm.collect()
		}
	}
}

func (sm *SystemMonitor) collect() {
	var stats HostStats

	if percentage, err := cpu.Percent(0, false); err == nil && len(percentage) > 0 {
		stats.CPUPercent = percentage[0]
	} else {
		sm.logger.Debug("failed to collect cpu stats", "error", err)
	}

	if v, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = v.UsedPercent
	} else {
		sm.logger.Debug("failed to collect memory stats", "error", err)
	}

	if d, err := disk.Usage("/"); err == nil {
		stats.DiskUsagePercent = d.UsedPercent
	} else {
		sm.logger.Debug("failed to collect disk stats", "error", err)
	}

	if l, err := load.Avg(); err == nil {
		stats.LoadAverage = l.Load1
	} else {
		sm.logger.Debug("failed to collect load stats", "error", err)
	}

	sm.mu.Lock()
	sm.stats = stats
	sm.mu.Unlock()
}

// logStats emits one structured log line combining host metrics with the
// connection's registry stats, mirroring the teacher's periodic
// stats_reporter line but for one RoRnet session instead of a backup
// scheduler.
func logStats(logger *slog.Logger, startedAt time.Time, host HostStats, reg *registry.Registry) {
	stats := reg.GlobalStats()
	logger.Info("bot stats",
		"uptime_seconds", int64(time.Since(startedAt).Seconds()),
		"users_online", reg.UserCount(),
		"users_seen_total", stats.UserCount,
		"meters_driven", stats.MetersDriven,
		"meters_sailed", stats.MetersSailed,
		"meters_walked", stats.MetersWalked,
		"meters_flown", stats.MetersFlown,
		"cpu_percent", host.CPUPercent,
		"memory_percent", host.MemoryPercent,
		"disk_usage_percent", host.DiskUsagePercent,
		"load_average", host.LoadAverage,
	)
}
