package sampler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemSamplerProbeFailureUsesFallback(t *testing.T) {
	s := NewSystemSampler("test-host")
	s.tempProbe = func(context.Context) (float64, error) {
		return 0, errNoSensor
	}

	payload, ok := s.Collect(context.Background())
	require.True(t, ok, "probe failure must not drop the sample")

	sample, isSample := payload.(SystemSample)
	require.True(t, isSample)
	assert.Equal(t, "test-host", sample.GroupKey)
	assert.InDelta(t, FallbackCPUTemp, sample.CPUTemp, 0.001)
	assert.GreaterOrEqual(t, sample.CPUUsage, 0.0)
	assert.LessOrEqual(t, sample.CPUUsage, 100.0)
	assert.Greater(t, sample.MemoryUsage, 0.0)
	assert.NotEmpty(t, sample.Timestamp)
}

func TestSystemSamplerProbeSuccess(t *testing.T) {
	s := NewSystemSampler("test-host")
	s.tempProbe = func(context.Context) (float64, error) {
		return 62.5, nil
	}

	payload, ok := s.Collect(context.Background())
	require.True(t, ok)

	sample := payload.(SystemSample)
	assert.InDelta(t, 62.5, sample.CPUTemp, 0.001)
}

func TestSystemSamplerIdentityIsStable(t *testing.T) {
	s := NewSystemSampler("")
	require.NotEmpty(t, s.groupKey)

	s.tempProbe = func(context.Context) (float64, error) { return 50, nil }

	first, ok := s.Collect(context.Background())
	require.True(t, ok)
	second, ok := s.Collect(context.Background())
	require.True(t, ok)

	assert.Equal(t, first.(SystemSample).GroupKey, second.(SystemSample).GroupKey)
}

func TestSystemSamplerName(t *testing.T) {
	assert.Equal(t, "system", NewSystemSampler("x").Name())
}
