package sampler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"

	"codeberg.org/mutker/metricshub/internal/logger"
)

const (
	// FallbackCPUTemp is reported when no temperature sensor is readable
	FallbackCPUTemp = 40.0

	timeLayout = "2006-01-02 15:04:05"

	cpuSampleInterval = time.Second
)

// cpuTempSensors are sensor key prefixes that identify a CPU package
// sensor across common platforms
var cpuTempSensors = []string{"coretemp", "k10temp", "cpu_thermal", "cpu-thermal", "acpitz"}

type SystemSampler struct {
	groupKey  string
	tempProbe func(ctx context.Context) (float64, error)
}

// NewSystemSampler derives the host identity once; it stays stable for the
// process lifetime.
func NewSystemSampler(groupKey string) *SystemSampler {
	if groupKey == "" {
		groupKey = hostIdentity()
	}

	logger.Info().Str("group_key", groupKey).Msg("System sampler initialized")

	return &SystemSampler{
		groupKey:  groupKey,
		tempProbe: probeCPUTemp,
	}
}

func (s *SystemSampler) Name() string {
	return "system"
}

// Collect reads instantaneous CPU and memory utilization. The temperature
// probe degrades to FallbackCPUTemp on any failure rather than dropping
// the sample.
func (s *SystemSampler) Collect(ctx context.Context) (any, bool) {
	cpuPercents, err := cpu.PercentWithContext(ctx, cpuSampleInterval, false)
	if err != nil || len(cpuPercents) == 0 {
		logger.Error().Err(err).Msg("Failed to read CPU utilization")
		return nil, false
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read memory utilization")
		return nil, false
	}

	temp, err := s.tempProbe(ctx)
	if err != nil {
		logger.Debug().Err(err).Msgf("Temperature probe unavailable, using fallback %.1f", FallbackCPUTemp)
		temp = FallbackCPUTemp
	}

	sample := SystemSample{
		GroupKey:    s.groupKey,
		CPUUsage:    cpuPercents[0],
		MemoryUsage: vm.UsedPercent,
		CPUTemp:     temp,
		Timestamp:   time.Now().Format(timeLayout),
	}

	logger.Debug().
		Float64("cpu_usage", sample.CPUUsage).
		Float64("memory_usage", sample.MemoryUsage).
		Float64("cpu_temp", sample.CPUTemp).
		Msg("Gathered system metrics")

	return sample, true
}

func probeCPUTemp(ctx context.Context) (float64, error) {
	stats, err := sensors.TemperaturesWithContext(ctx)
	if err != nil {
		return 0, err
	}

	var first *float64
	for i := range stats {
		t := stats[i].Temperature
		if t <= 0 {
			continue
		}
		if first == nil {
			first = &t
		}
		for _, key := range cpuTempSensors {
			if strings.HasPrefix(stats[i].SensorKey, key) {
				return t, nil
			}
		}
	}
	if first != nil {
		return *first, nil
	}

	return 0, errNoSensor
}

// hostIdentity builds a stable identifier from the hostname and the first
// hardware address, falling back to a random token when neither is
// available
func hostIdentity() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "host"
	}

	if mac := firstHardwareAddr(); mac != "" {
		return hostname + "-" + mac
	}

	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err == nil {
		return hostname + "-" + hex.EncodeToString(buf)
	}

	return hostname
}

func firstHardwareAddr() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return strings.ReplaceAll(iface.HardwareAddr.String(), ":", "")
	}

	return ""
}
