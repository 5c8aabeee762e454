package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"peerlink/contract"
	"peerlink/observability"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker periodically logs session counters together with the
// process's own CPU and memory footprint.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	stats    *observability.SessionStats
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration,
	stats *observability.SessionStats) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, stats: stats}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	w.log.Info("Starting session telemetry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			snap := w.stats.Snapshot()
			w.log.Info("Session telemetry",
				"devices_discovered", snap.DevicesDiscovered,
				"connections", snap.Connections,
				"messages_sent", snap.MessagesSent,
				"messages_delivered", snap.MessagesDelivered,
				"notifications", snap.Notifications,
				"sink_timeouts", snap.SinkTimeouts,
				"cpu_percent", cpu,
				"ram_bytes", rss,
			)
		}
	}
}

// selfStats retrieves technical metrics (Memory, CPU) for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
