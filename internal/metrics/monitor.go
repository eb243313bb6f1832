// Package metrics exposes process load and the statsviz live runtime
// dashboard, standing in for the clustering stack's etcd load-report
// (no registry to report to in a single-process deployment, §F).
//
// Grounded on framework/game/monitor.go's periodic CPU/memory sampler,
// minus its discovery.Registry upload — reportLoad here logs instead
// of reporting.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/arl/statsviz"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"minefield/common/log"
)

// Stats reports the point-in-time counts a Monitor samples.
type Stats func() (rooms, waiting int)

// Monitor periodically logs process load alongside room/player counts.
type Monitor struct {
	stats    Stats
	interval time.Duration
	logger   *log.Logger
}

// NewMonitor builds a Monitor that samples stats every interval.
func NewMonitor(stats Stats, interval time.Duration) *Monitor {
	return &Monitor{stats: stats, interval: interval, logger: log.With("component", "monitor")}
}

// Run logs load on interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.reportLoad()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reportLoad()
		}
	}
}

func (m *Monitor) reportLoad() {
	rooms, waiting := m.stats()
	cpuPct := m.cpuUsage()
	memPct := m.memUsage()
	m.logger.Debug("load", "rooms", rooms, "waiting", waiting, "cpu_pct", cpuPct, "mem_pct", memPct)
}

func (m *Monitor) cpuUsage() float64 {
	percentages, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		if err != nil {
			m.logger.Warn("cpu sample failed", "err", err)
		}
		return 0
	}
	return percentages[0]
}

func (m *Monitor) memUsage() float64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		m.logger.Warn("memory sample failed", "err", err)
		return 0
	}
	return v.UsedPercent
}

// Serve exposes the statsviz live dashboard at /debug/statsviz/ until
// ctx is cancelled or the listener fails.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		return err
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
