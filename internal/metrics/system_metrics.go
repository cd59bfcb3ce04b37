package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const namespace = "archaeoseeker"

// MetricsManager owns the service's Prometheus registry and host gauges
type MetricsManager struct {
	registry *prometheus.Registry

	mu          sync.RWMutex
	initialized bool
	proc        *process.Process

	cpuPercent *prometheus.GaugeVec
	memory     *prometheus.GaugeVec
	load       *prometheus.GaugeVec
	process    *prometheus.GaugeVec
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the process-wide MetricsManager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = &MetricsManager{
			registry: prometheus.NewRegistry(),
		}
		instance.registry.MustRegister(collectors.NewGoCollector())
	})
	return instance
}

// Registry returns the registry every metric of this service is registered on
func Registry() *prometheus.Registry {
	return GetInstance().registry
}

func hostGauge(name, help, label string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "host",
		Name:      name,
		Help:      help,
	}, []string{label})
}

// InitializeMetrics registers the host gauges once
func (mm *MetricsManager) InitializeMetrics() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.initialized {
		return
	}

	mm.cpuPercent = hostGauge("cpu_usage_percent", "CPU usage per core", "core")
	mm.memory = hostGauge("memory_bytes", "Host memory by kind", "kind")
	mm.load = hostGauge("load_average", "Host load average", "window")
	mm.process = hostGauge("process", "Process gauges: open_fds, heap_alloc_bytes, gc_cpu_fraction, start_time_seconds", "gauge")
	mm.registry.MustRegister(mm.cpuPercent, mm.memory, mm.load, mm.process)

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("Process metrics unavailable")
	} else {
		mm.proc = proc
		if created, err := proc.CreateTime(); err == nil {
			mm.process.WithLabelValues("start_time_seconds").Set(float64(created) / 1000)
		}
	}

	mm.initialized = true
}

// StartSystemMetrics samples host metrics every interval until ctx ends.
// It does nothing unless ENABLE_SYSTEM_METRICS is "true".
func StartSystemMetrics(ctx context.Context, interval time.Duration) {
	if os.Getenv("ENABLE_SYSTEM_METRICS") != "true" {
		return
	}

	mm := GetInstance()
	mm.InitializeMetrics()
	log.Info().Dur("interval", interval).Msg("Collecting system metrics")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mm.collect()
			}
		}
	}()
}

// collect takes one sample; unavailable sources are skipped
func (mm *MetricsManager) collect() {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.initialized {
		return
	}

	if perCore, err := cpu.Percent(0, true); err == nil {
		for i, pct := range perCore {
			mm.cpuPercent.WithLabelValues(fmt.Sprintf("cpu%d", i)).Set(pct)
		}
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		mm.memory.WithLabelValues("total").Set(float64(vm.Total))
		mm.memory.WithLabelValues("available").Set(float64(vm.Available))
		mm.memory.WithLabelValues("used").Set(float64(vm.Used))
	}

	if avg, err := load.Avg(); err == nil {
		mm.load.WithLabelValues("1m").Set(avg.Load1)
		mm.load.WithLabelValues("5m").Set(avg.Load5)
		mm.load.WithLabelValues("15m").Set(avg.Load15)
	}

	if mm.proc != nil {
		if fds, err := mm.proc.NumFDs(); err == nil {
			mm.process.WithLabelValues("open_fds").Set(float64(fds))
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	mm.process.WithLabelValues("heap_alloc_bytes").Set(float64(ms.HeapAlloc))
	mm.process.WithLabelValues("gc_cpu_fraction").Set(ms.GCCPUFraction)
}
