package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"texttalk/observability"
)

// ReporterWorker periodically logs a telemetry line combining gateway
// counters with process-level stats (RSS, CPU). One structured log line per
// interval is enough for a single-process deployment.
type ReporterWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

func NewReporterWorker(log *slog.Logger, monitoring *observability.MonitoringManager, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, monitoring: monitoring, interval: interval}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := w.monitoring.Snapshot()

			rss := uint64(0)
			cpu := float64(0)
			if memInfo, err := p.MemoryInfo(); err == nil {
				rss = memInfo.RSS
			}
			if cpuPercent, err := p.CPUPercent(); err == nil {
				cpu = cpuPercent
			}

			w.log.Info("Gateway telemetry",
				"active_connections", stats.ActiveConnections,
				"messages_stored", stats.MessagesStored,
				"deliveries", stats.Deliveries,
				"dropped_deliveries", stats.DroppedDeliveries,
				"alloc_mem_mb", stats.AllocMemMb,
				"num_gc", stats.NumGC,
				"rss_bytes", rss,
				"cpu_percent", cpu,
			)
		}
	}
}
